// Package faults defines the error taxonomy shared across stagepilot
// components and helpers for classifying failures.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport marks request failures that should be retried and, when
	// retries are exhausted, escalate into a reconnect cycle.
	ErrTransport = errors.New("transport error")
	// ErrTimeout marks requests that exceeded their deadline. Counts as a
	// failed attempt for retry purposes.
	ErrTimeout = errors.New("timeout")
	// ErrDecode marks unusable wire data. Per-line decode problems are
	// tolerated and never carry this marker; it is reserved for responses
	// that cannot be processed at all.
	ErrDecode = errors.New("decode error")
	// ErrNotFound marks lookups of regions, setlists, or items that do not
	// exist. Operations carrying it are rejected with no partial mutation.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks requests rejected before any external command is
	// issued.
	ErrValidation = errors.New("validation error")
	// ErrPersistence marks best-effort extended-state read/write failures.
	ErrPersistence = errors.New("persistence error")
	// ErrExhausted marks the terminal disconnected state reached after the
	// maximum reconnect attempts.
	ErrExhausted = errors.New("reconnect attempts exhausted")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRejection reports whether the error represents a synchronously rejected
// operation (lookup or validation failure) rather than a transport problem.
func IsRejection(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation)
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
		return "failure"
	}
	return strings.Join(parts, ": ")
}
