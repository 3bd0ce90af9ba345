//go:build !cgo
// +build !cgo

package vector

import (
	"database/sql"
	"database/sql/driver"
	"errors"
)

const mattnDriverName = "sqlite3_askindex"

type unavailableDriver struct{}

func (unavailableDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("sqlite3 driver requires CGO; build with CGO_ENABLED=1 or use the sqlite driver")
}

func registerMattn() error {
	sql.Register(mattnDriverName, unavailableDriver{})
	return nil
}
