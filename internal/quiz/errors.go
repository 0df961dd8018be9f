package quiz

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("quiz not found")
	ErrInvalidState       = errors.New("no active authoring session")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Unavailable marks a backend failure so callers can tell it apart from
// user-facing conditions with errors.Is.
func Unavailable(operation string, err error) error {
	return fmt.Errorf("%s: %w: %w", operation, ErrStorageUnavailable, err)
}

// IsUserError reports whether err should be turned into a plain reply rather
// than logged as an operator problem.
func IsUserError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidState)
}
