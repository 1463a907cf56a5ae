package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers (HTTP, CLI, batch) can react without
// string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindResourceInfeasible
	KindEvaluationNumeric
	KindConfiguration
	KindOptimizerInternal
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindResourceInfeasible:
		return "resource_infeasible"
	case KindEvaluationNumeric:
		return "evaluation_numeric"
	case KindConfiguration:
		return "configuration"
	case KindOptimizerInternal:
		return "optimizer_internal"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Error is the typed error returned at every pipeline stage boundary.
type Error struct {
	Kind     Kind
	Op       string  // Operation that failed, e.g. "sequence.Validate"
	Field    string  // Offending input field, if any
	Message  string  // Human readable detail
	MemoryGB float64 // Estimated state memory, set for KindResourceInfeasible
	Err      error   // Underlying cause
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the bare sentinels below by kind, so
// errors.Is(err, domain.ErrInvalidInput) works for any invalid-input error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Field == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrResourceInfeasible = &Error{Kind: KindResourceInfeasible}
	ErrEvaluationNumeric  = &Error{Kind: KindEvaluationNumeric}
	ErrConfiguration      = &Error{Kind: KindConfiguration}
	ErrOptimizerInternal  = &Error{Kind: KindOptimizerInternal}
	ErrNotFound           = &Error{Kind: KindNotFound}
)

// InvalidInput reports a rejected sequence or decode input.
func InvalidInput(op, field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Field: field, Message: fmt.Sprintf(format, args...)}
}

// ResourceInfeasible reports that simulating the request would need too much memory.
func ResourceInfeasible(op string, memoryGB float64, format string, args ...interface{}) *Error {
	return &Error{Kind: KindResourceInfeasible, Op: op, MemoryGB: memoryGB, Message: fmt.Sprintf(format, args...)}
}

// NumericFailure reports a NaN or infinite value produced during evaluation.
func NumericFailure(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindEvaluationNumeric, Op: op, Message: fmt.Sprintf(format, args...)}
}

// ConfigurationError reports an unknown variant name or out-of-range setting.
func ConfigurationError(op, field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Field: field, Message: fmt.Sprintf(format, args...)}
}

// OptimizerFailure wraps an error raised inside an optimization method.
func OptimizerFailure(op string, err error) *Error {
	return &Error{Kind: KindOptimizerInternal, Op: op, Message: "optimizer failed", Err: err}
}

// NotFound reports a missing job or report.
func NotFound(op, what string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: what + " not found"}
}

// KindOf extracts the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MemoryEstimateOf returns the memory estimate carried by a resource error.
func MemoryEstimateOf(err error) (float64, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindResourceInfeasible {
		return e.MemoryGB, true
	}
	return 0, false
}
