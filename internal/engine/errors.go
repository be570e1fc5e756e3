package engine

import (
	"errors"
	"fmt"

	"orderbuddy/internal/db"
)

// Sentinel errors returned by the engine. The transport layer branches on
// these with errors.Is; only ErrStoreUnavailable is retryable, every other
// kind is permanent for the given input.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrSelfMatch        = errors.New("cannot buddy up with your own order")
	ErrDuplicatePending = errors.New("buddy request already sent")
	ErrForbidden        = errors.New("not authorized for this request")
	ErrAlreadyResolved  = errors.New("request already resolved")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ErrorCodes maps sentinel errors to the stable codes exposed to API clients.
var ErrorCodes = map[error]string{
	ErrInvalidInput:     "INVALID_INPUT",
	ErrNotFound:         "NOT_FOUND",
	ErrSelfMatch:        "SELF_MATCH",
	ErrDuplicatePending: "DUPLICATE_PENDING",
	ErrForbidden:        "FORBIDDEN",
	ErrAlreadyResolved:  "ALREADY_RESOLVED",
	ErrUnauthenticated:  "UNAUTHENTICATED",
	ErrStoreUnavailable: "STORE_UNAVAILABLE",
}

// Code returns the stable API code for err, or INTERNAL_ERROR when err is not
// one of the engine's sentinels.
func Code(err error) string {
	for sentinel, code := range ErrorCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return "INTERNAL_ERROR"
}

// storeErr classifies an error coming back from the repository layer:
// transient driver failures become ErrStoreUnavailable so callers know the
// operation may be retried; everything else is wrapped as-is.
func storeErr(op string, err error) error {
	if db.IsUnavailable(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
