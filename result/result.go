// Package result provides a tagged success/failure union. Failures are
// carried as values so they never cross a batch boundary as panics or
// unhandled errors.
package result

import (
	"github.com/imgvault/imgvault/fault"
)

// Result is a generic interface that represents either a success or a failure.
type Result[T any] interface {
	// IsSuccess returns true if the result is a success, false otherwise.
	IsSuccess() bool
	// IsError returns true if the result is a failure, false otherwise.
	IsError() bool
	// Value returns the success value and the fault if there is any.
	Value() (*T, fault.Fault)
	// Error returns the failure fault.
	Error() fault.Fault
	// ToValue returns the success value if the result is a success, nil otherwise.
	ToValue() *T
}

// Success represents a successful result.
type Success[T any] struct {
	Val *T
}

// NewSuccess creates a new success result.
func NewSuccess[T any](value *T) Result[T] {
	return &Success[T]{Val: value}
}

// IsSuccess implements Result.
func (s Success[T]) IsSuccess() bool {
	return true
}

// IsError implements Result.
func (s Success[T]) IsError() bool {
	return false
}

// Value implements Result.
func (s Success[T]) Value() (*T, fault.Fault) {
	return s.Val, nil
}

// Error implements Result.
func (s Success[T]) Error() fault.Fault {
	return fault.New(fault.Internal, "success-cannot-be-error", "cannot take the error of a success result")
}

// ToValue returns the success value.
func (s Success[T]) ToValue() *T {
	return s.Val
}

// Failure represents a failed result.
type Failure[T any] struct {
	Val *T
	Err fault.Fault
}

// NewFailure creates a new Failure result.
func NewFailure[T any](err fault.Fault) Result[T] {
	return &Failure[T]{Err: err}
}

// NewFailureWithValue creates a Failure that still carries a partial value.
func NewFailureWithValue[T any](value *T, err fault.Fault) Result[T] {
	return &Failure[T]{Val: value, Err: err}
}

// IsSuccess implements Result.
func (f Failure[T]) IsSuccess() bool {
	return false
}

// IsError implements Result.
func (f Failure[T]) IsError() bool {
	return true
}

// Value implements Result.
func (f Failure[T]) Value() (*T, fault.Fault) {
	return f.Val, f.Err
}

// Error implements Result.
func (f Failure[T]) Error() fault.Fault {
	return f.Err
}

// ToValue implements Result.
func (f Failure[T]) ToValue() *T {
	return nil
}

// ToResult casts a value-or-fault pair into a Result.
func ToResult[T any](value *T, err fault.Fault) Result[T] {
	if err != nil {
		return NewFailure[T](err)
	}
	return NewSuccess[T](value)
}

// CastFailure rewraps the fault of a failed Result under a different value type.
func CastFailure[T, E any](r Result[T]) Result[E] {
	if r.IsSuccess() {
		return NewFailure[E](fault.New(fault.Internal, "success-cannot-produce-error", "cannot cast a success result"))
	}
	return NewFailure[E](r.Error())
}
