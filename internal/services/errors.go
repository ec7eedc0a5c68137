package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying: network blips, rate
	// limits, upstream maintenance.
	ErrTransient = errors.New("transient failure")
	// ErrPermanent marks per-item failures that retrying cannot fix:
	// policy rejections, invalid parameters, exhausted quota.
	ErrPermanent = errors.New("permanent failure")
	// ErrTimeout marks operations that ran out of their time budget.
	ErrTimeout = errors.New("timeout")
	// ErrConfiguration marks missing or invalid runtime configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrExternalTool marks failures reported by external binaries.
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks inputs rejected before any work started.
	ErrValidation = errors.New("validation error")
)

// Wrap builds an error message that includes phase context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	detail := buildDetail(phase, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTransient reports whether the error should be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsPermanent reports whether the error is terminal for its item.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent) || errors.Is(err, ErrValidation)
}

// IsTimeout reports whether the error represents an exhausted time budget.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
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
