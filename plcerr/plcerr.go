// Package plcerr defines the structured error payload shared across the
// simulator core. Errors the core raises itself (bounds, lifecycle, snapshot,
// scenario parsing, bank sizing) are of this type; errors from listening on a
// socket, opening a serial port, or loading the configuration are returned
// as the underlying library produced them, not wrapped in this type.
package plcerr

import "fmt"

// Code identifies the kind of failure without relying on string matching
// against Message, which is free to change wording.
type Code string

const (
	CodeAddressOutOfRange  Code = "ADDRESS_OUT_OF_RANGE"
	CodeCountExceedsRange  Code = "COUNT_EXCEEDS_RANGE"
	CodeInvalidCount       Code = "INVALID_COUNT"
	CodeAlreadyRunning     Code = "ALREADY_RUNNING"
	CodeNotRunning         Code = "NOT_RUNNING"
	CodeShutdownTimeout    Code = "SHUTDOWN_TIMEOUT"
	CodeSnapshotError      Code = "SNAPSHOT_ERROR"
	CodeScenarioParseError Code = "SCENARIO_PARSE_ERROR"
	CodeInvalidConfig      Code = "INVALID_CONFIG"
)

// Error is the structured payload. It implements the error interface so it
// composes with the rest of Go's error handling (errors.As, %w, etc).
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
