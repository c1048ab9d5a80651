package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks malformed configuration values. Raised before
	// any output I/O is attempted.
	ErrConfiguration = errors.New("configuration error")
	// ErrProvider marks a record source that cannot serve a mandatory
	// sensor, or one that fails to open. Fatal to the owning step only.
	ErrProvider = errors.New("provider error")
	// ErrValidation marks invalid caller input or an unusable runtime
	// precondition, such as a second run contending for the same root.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing required file or marker.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks everything else; callers may retry the whole step.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes step context while tagging it
// with the provided marker for later exit classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Exit codes surfaced at the process boundary. Recovered errors never reach
// this mapping; they are logged and counted inside the owning step.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitProvider      = 3
)

// ExitCode maps a fatal pipeline error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation):
		return ExitConfiguration
	case errors.Is(err, ErrProvider):
		return ExitProvider
	default:
		return ExitFailure
	}
}

// Details strips the sentinel prefix from a wrapped error, returning the
// step-context detail suitable for user-facing messages.
func Details(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range []error{ErrConfiguration, ErrProvider, ErrValidation, ErrNotFound, ErrTransient} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
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
