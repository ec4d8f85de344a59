package services

import (
	"errors"
	"fmt"
)

// ErrStorage marks failures of the underlying document store. Handlers map it
// to a generic 500 and never expose the cause.
var ErrStorage = errors.New("storage unavailable")

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
