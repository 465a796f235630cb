package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrProbeFailed  = errors.New("probe failed")
	ErrIO           = errors.New("io error")
	ErrDependency   = errors.New("dependency failed")
	ErrCancelled    = errors.New("cancelled")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrDependency
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the taxonomy label for an error, or "unknown" when the error
// carries no recognized marker. The label is stored in structured per-file
// scan error records.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrProbeFailed):
		return "probe_failed"
	case errors.Is(err, ErrIO):
		return "io_error"
	case errors.Is(err, ErrDependency):
		return "dependency_failed"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	default:
		return "unknown"
	}
}

// Recoverable reports whether a per-file scan error should be recorded and
// skipped rather than aborting the run.
func Recoverable(err error) bool {
	return errors.Is(err, ErrProbeFailed) || errors.Is(err, ErrIO) || errors.Is(err, ErrDependency)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
