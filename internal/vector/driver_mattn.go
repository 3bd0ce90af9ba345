//go:build cgo
// +build cgo

package vector

import (
	"database/sql"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// mattn's stock "sqlite3" driver is wrapped so every new connection gets the distance
// functions.
const mattnDriverName = "sqlite3_askindex"

func registerMattn() error {
	sql.Register(mattnDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc(cosineFunc, func(a, b []byte) (float64, error) {
				return blobDistance(CosineDistance, a, b)
			}, true); err != nil {
				return err
			}
			return conn.RegisterFunc(l2Func, func(a, b []byte) (float64, error) {
				return blobDistance(L2Distance, a, b)
			}, true)
		},
	})
	return nil
}
