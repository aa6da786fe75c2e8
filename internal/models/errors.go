package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for requests rejected before any retrieval runs.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a fatwa or category does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamUnavailable marks a collaborator (store, index, embedder) failure.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrDegradedCount marks a total count that fell back to a weaker estimate.
	ErrDegradedCount = errors.New("degraded count")
)

// WrapError attaches an operation name to err while keeping kind matchable with errors.Is.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

// IsKind reports whether err is of the given sentinel kind.
func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
