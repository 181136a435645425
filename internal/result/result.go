// Package result is the tagged success/error value every tool returns.
// Callers branch on IsOK and Err().Kind instead of probing for an "error"
// field in a map.
package result

import (
	"errors"
	"fmt"

	"github.com/rushi-auxo/fivetran-mcp/internal/upstream"
)

// Kind classifies a failed operation.
type Kind string

const (
	KindUpstream  Kind = "upstream"  // non-2xx upstream response
	KindConfig    Kind = "config"    // required setting missing
	KindNoMatch   Kind = "no_match"  // lookup found nothing among the options
	KindInvalid   Kind = "invalid"   // caller supplied a bad argument
	KindTransport Kind = "transport" // request never got an answer
)

// Error is the error variant of a Result.
type Error struct {
	Kind    Kind     `json:"kind"`
	Message string   `json:"error"`
	Status  int      `json:"status,omitempty"`
	Options []string `json:"available,omitempty"`

	cause error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// Classifier lets domain errors choose their own Kind and option list.
type Classifier interface {
	error
	Kind() Kind
	Options() []string
}

// Result holds either a value or an *Error, never both.
type Result[T any] struct {
	value T
	err   *Error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] { return Result[T]{value: v} }

// Fail wraps an error value.
func Fail[T any](e *Error) Result[T] { return Result[T]{err: e} }

// Of converts a (value, error) pair into a Result, classifying err.
func Of[T any](v T, err error) Result[T] {
	if err != nil {
		return Fail[T](Classify(err))
	}
	return Ok(v)
}

// IsOK reports whether the result carries a value.
func (r Result[T]) IsOK() bool { return r.err == nil }

// Value returns the success value (zero when failed).
func (r Result[T]) Value() T { return r.value }

// Err returns the error variant or nil.
func (r Result[T]) Err() *Error { return r.err }

// Invalid builds a KindInvalid error.
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

// Classify maps an error onto the taxonomy. Upstream status errors keep the
// raw response body as their message.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	if se, ok := upstream.AsStatus(err); ok {
		return &Error{Kind: KindUpstream, Message: se.Body, Status: se.StatusCode, cause: err}
	}
	var c Classifier
	if errors.As(err, &c) {
		return &Error{Kind: c.Kind(), Message: c.Error(), Options: c.Options(), cause: err}
	}
	return &Error{Kind: KindTransport, Message: err.Error(), cause: err}
}
