package engine

import (
	"errors"
	"fmt"

	"github.com/lazypower/charmlink/internal/store"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrStorage         = errors.New("storage failure")
)

// Error kinds as reported to API callers.
const (
	KindNotFound        = "not_found"
	KindUnauthorized    = "unauthorized"
	KindInvalidArgument = "invalid_argument"
	KindConflict        = "conflict"
	KindStorage         = "storage_failure"
)

// KindOf classifies err. Anything unrecognized is a storage failure; nil has
// no kind.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound), errors.Is(err, store.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrConflict), errors.Is(err, store.ErrConflict):
		return KindConflict
	}
	return KindStorage
}

// wrap attaches op context and translates store errors into engine kinds.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrConflict),
		errors.Is(err, ErrStorage):
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
