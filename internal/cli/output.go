package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aristath/latticefold/internal/domain"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Prediction or validation failed
	ExitCommandError = 2 // Bad arguments, flags or input files
)

// ExitError carries the exit code a command wants the process to end with.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// exitCodeFor maps a pipeline error onto an exit code. Rejected input and
// configuration are the caller's mistake; everything else is a failed run.
func exitCodeFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInvalidInput, domain.KindConfiguration:
		return ExitCommandError
	default:
		return ExitFailure
	}
}

// Response is the JSON envelope written when --format=json.
type Response struct {
	Status string      `json:"status"` // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed command.
type ErrorBody struct {
	Kind     string  `json:"kind"`
	Message  string  `json:"message"`
	MemoryGB float64 `json:"memory_gb,omitempty"`
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Success writes data as JSON, or calls text to render it for humans.
func (f *OutputFormatter) Success(data interface{}, text func(w io.Writer)) error {
	if f.Format == "json" {
		return f.encode(Response{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Error writes err in the configured format.
func (f *OutputFormatter) Error(err error) error {
	body := errorBody(err)
	if f.Format == "json" {
		return f.encode(Response{Status: "error", Error: body})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", body.Kind, body.Message)
	if body.MemoryGB > 0 {
		fmt.Fprintf(f.Writer, "Estimated state vector memory: %.6f GB\n", body.MemoryGB)
	}
	return nil
}

func (f *OutputFormatter) encode(v interface{}) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func errorBody(err error) *ErrorBody {
	body := &ErrorBody{
		Kind:    domain.KindOf(err).String(),
		Message: err.Error(),
	}
	if gb, ok := domain.MemoryEstimateOf(err); ok {
		body.MemoryGB = gb
	}
	return body
}
