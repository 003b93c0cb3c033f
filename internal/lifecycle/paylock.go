package lifecycle

import (
	"velora/internal/errs"
	"velora/internal/models"
)

// LockState is the manual payment-edit lock. Payment status is normally an
// automated field; an operator has to confirm the unlock twice before the
// editor accepts a manual value.
type LockState string

const (
	LockLocked   LockState = "locked"
	LockConfirm1 LockState = "confirm1"
	LockUnlocked LockState = "unlocked"
)

// PayLock is the two-confirmation unlock sequence for manual payment edits.
// It is a per-edit-session object, not persisted state.
type PayLock struct {
	state LockState
}

// NewPayLock returns a lock in the locked state.
func NewPayLock() *PayLock {
	return &PayLock{state: LockLocked}
}

// Confirm advances the unlock sequence one step and returns the new state.
func (l *PayLock) Confirm() LockState {
	switch l.state {
	case LockLocked:
		l.state = LockConfirm1
	case LockConfirm1:
		l.state = LockUnlocked
	}
	return l.state
}

// Reset re-locks, discarding any confirmation progress.
func (l *PayLock) Reset() {
	l.state = LockLocked
}

// State returns the current lock state.
func (l *PayLock) State() LockState {
	return l.state
}

// Unlocked reports whether manual payment edits are currently allowed.
func (l *PayLock) Unlocked() bool {
	return l.state == LockUnlocked
}

// Editor applies operator edits to a booking's joint state. Manual changes
// to payment status are refused until the editor's lock has been unlocked by
// two explicit confirmations.
type Editor struct {
	lock *PayLock
}

// NewEditor returns an editor with a fresh locked PayLock.
func NewEditor() *Editor {
	return &Editor{lock: NewPayLock()}
}

// Lock exposes the editor's unlock sequence.
func (e *Editor) Lock() *PayLock {
	return e.lock
}

// Apply validates and applies an operator edit.
func (e *Editor) Apply(b models.Booking, edit Edit) (models.Booking, error) {
	if edit.PaymentStatus != nil && !e.lock.Unlocked() {
		return b, errs.Validationf("payment status is locked; confirm the unlock twice to edit it manually")
	}
	return Apply(b, edit)
}
