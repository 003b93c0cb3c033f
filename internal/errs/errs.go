// Package errs defines the error taxonomy shared by the scheduling engine
// and the booking lifecycle. Validation and conflict errors are resolved
// locally by changing input; external failures are retryable as-is.
package errs

import (
	"errors"
	"fmt"
)

// Conflict kinds.
const (
	KindCapacity       = "capacity"
	KindBlocked        = "blocked"
	KindBookingOverlap = "booking_overlap"
	KindDoubleBooking  = "double_booking"
	KindAlreadyCharged = "already_charged"
)

// Validation is a synchronously rejected input error. It never reaches an
// external call.
type Validation struct {
	Reason string
}

func (e *Validation) Error() string {
	return fmt.Sprintf("validation: %s", e.Reason)
}

// Validationf builds a Validation error.
func Validationf(format string, args ...any) error {
	return &Validation{Reason: fmt.Sprintf(format, args...)}
}

// Conflict is a scheduling or state collision rejected before commit. No
// partial state is left behind.
type Conflict struct {
	Kind   string
	Reason string
}

func (e *Conflict) Error() string {
	return fmt.Sprintf("conflict (%s): %s", e.Kind, e.Reason)
}

// Conflictf builds a Conflict error of the given kind.
func Conflictf(kind, format string, args ...any) error {
	return &Conflict{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// NotFound marks an operation against a record that no longer exists.
type NotFound struct {
	Entity string
	ID     int64
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// External wraps a failed call to a collaborator (payment gateway, record
// store write, ...). Safe to retry by the operator; the engine never retries
// on its own.
type External struct {
	Op  string
	Err error
}

func (e *External) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *External) Unwrap() error { return e.Err }

// Externalf wraps err as an external failure of the named operation.
func Externalf(op string, err error) error {
	return &External{Op: op, Err: err}
}

// IsValidation reports whether err is a validation rejection.
func IsValidation(err error) bool {
	var v *Validation
	return errors.As(err, &v)
}

// IsConflict reports whether err is a conflict; when kind is non-empty the
// conflict must also be of that kind.
func IsConflict(err error, kind string) bool {
	var c *Conflict
	if !errors.As(err, &c) {
		return false
	}
	return kind == "" || c.Kind == kind
}

// IsNotFound reports whether err marks a missing record.
func IsNotFound(err error) bool {
	var n *NotFound
	return errors.As(err, &n)
}

// IsRetryable reports whether err is an external failure the operator may
// retry without changing input.
func IsRetryable(err error) bool {
	var x *External
	return errors.As(err, &x)
}
