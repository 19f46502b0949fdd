package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// SchemaViolationError means a stage boundary payload failed validation.
// Terminal, never retried.
type SchemaViolationError struct {
	Stage  string
	Field  string
	Reason string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation at stage %s, field %s: %s", e.Stage, e.Field, e.Reason)
}

// StatusError carries an upstream status code so the executor can
// classify it. Collaborator adapters wrap their failures into this.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Message)
}

// StageExhaustedError is returned once the retry budget for a stage is
// spent. Last holds the final attempt's error.
type StageExhaustedError struct {
	Stage    string
	Attempts int
	Last     error
}

func (e *StageExhaustedError) Error() string {
	return fmt.Sprintf("stage %s exhausted after %d attempts: %v", e.Stage, e.Attempts, e.Last)
}

func (e *StageExhaustedError) Unwrap() error {
	return e.Last
}

// InsufficientSlateError means generation could not produce enough
// distinct candidates. Callers should regenerate with relaxed inputs.
type InsufficientSlateError struct {
	Distinct int
	Required int
}

func (e *InsufficientSlateError) Error() string {
	return fmt.Sprintf("insufficient slate: %d distinct candidates, need %d", e.Distinct, e.Required)
}

// UnknownReferenceError flags feedback for an outfit id that was never
// presented. A warning, never fatal.
type UnknownReferenceError struct {
	OutfitID string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown outfit reference %q", e.OutfitID)
}

var retryableCodes = map[int]bool{429: true, 500: true, 503: true, 504: true}

// IsRetryable reports whether the executor may retry after err.
// Only throttling, transient server failures and timeouts qualify.
func IsRetryable(err error) bool {
	var status *StatusError
	if errors.As(err, &status) {
		return retryableCodes[status.Code]
	}
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
