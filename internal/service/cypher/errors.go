package cypher

import (
	"errors"
	"fmt"
)

// ErrInvalidQueryShape is returned when a shape is given an unknown label or a malformed
// parameter. Such a query never reaches the store.
var ErrInvalidQueryShape = errors.New("invalid query shape")

func invalidShape(shape, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidQueryShape, shape, fmt.Sprintf(format, args...))
}
