package vector

import (
	"database/sql/driver"
	"fmt"

	sqlite "modernc.org/sqlite"
)

// modernc registers itself as "sqlite"; functions are registered process-wide.
const moderncDriverName = "sqlite"

func registerModernc() error {
	for name, fn := range map[string]func(a, b []float32) (float64, error){
		cosineFunc: CosineDistance,
		l2Func:     L2Distance,
	} {
		err := sqlite.RegisterDeterministicScalarFunction(name, 2,
			func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
				if args[0] == nil || args[1] == nil {
					return nil, nil
				}
				a, aok := args[0].([]byte)
				b, bok := args[1].([]byte)
				if !aok || !bok {
					return nil, fmt.Errorf("%s: arguments must be BLOBs, got %T and %T", name, args[0], args[1])
				}
				return blobDistance(fn, a, b)
			})
		if err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}
	return nil
}
