// Package store holds the resource dataset: the read-only in-memory index,
// the deterministic generator that fills it, and the dataset validator.
package store

import (
	"errors"
	"regexp"
)

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}

// IsNotFound reports whether err is (or wraps) an *ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

// idPattern is the canonical 8-4-4-4-12 hexadecimal identifier syntax.
var idPattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidID reports whether id has the canonical identifier syntax.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
