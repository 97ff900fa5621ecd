package backend

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a collection or item does not exist.
// It propagates to a 404 response, never to a 500.
var ErrNotFound = errors.New("not found")

// ValidationError is returned when required fields are missing from a
// write payload. It carries the full list of missing names so callers
// can report all of them at once.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// ConflictError is returned when a collection's derived slug or custom
// path collides with another collection's route surface.
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("path %q is already in use by another collection", e.Path)
}
