package vector

import (
	"errors"
	"sync"
)

var (
	registerOnce sync.Once
	registerErr  error
)

func registerDrivers() error {
	registerOnce.Do(func() {
		registerErr = errors.Join(registerMattn(), registerModernc())
	})
	return registerErr
}
