package store

import (
	"errors"
	"fmt"
)

// ErrInvalidFormat is returned when an import document lacks stepsData or userProfile.
var ErrInvalidFormat = errors.New("invalid import format")

var ErrNotFound = errors.New("not found")

// ValidationError rejects a bad write before it reaches the database.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
