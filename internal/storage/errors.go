package storage

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("concurrent modification")

	// ErrAlreadySettled is returned when an entry was completed by someone else first.
	ErrAlreadySettled = fmt.Errorf("%w: entry already settled", ErrConflict)

	ErrInvalidTransition = errors.New("invalid status transition")
)
