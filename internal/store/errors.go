package store

import (
	"errors"
	"fmt"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/database"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrTransient marks failures that may succeed on retry: timeouts, dropped
	// connections, lock contention.
	ErrTransient = errors.New("store: transient failure")

	// ErrUnknownField is returned for a collection/field pair that is not a
	// counter.
	ErrUnknownField = errors.New("store: unknown counter field")
)

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// classify maps driver errors onto the store taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrTransient) || errors.Is(err, ErrUnknownField) {
		return err
	}
	if database.IsRetryableError(err) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}
