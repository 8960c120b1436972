package graphdb

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable reports that the graph store could not be queried at all, as
// opposed to a query that ran and matched nothing.
var ErrStoreUnavailable = errors.New("graph store unavailable")

// StoreError carries the failed operation and the driver error. It matches
// ErrStoreUnavailable with errors.Is.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrStoreUnavailable, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}
