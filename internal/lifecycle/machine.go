// Package lifecycle owns the joint booking-status and payment-status state
// machine, the external charge flow, and the no-show penalty capture. Every
// edit to the pair of status fields goes through Apply so the coupling
// invariants hold for every persisted booking.
package lifecycle

import (
	"velora/internal/errs"
	"velora/internal/models"
)

// Edit is a requested change to a booking's joint state. Nil fields are left
// as they are.
type Edit struct {
	Status        *string
	PaymentStatus *string
}

// statusTransitions is the booking status graph. Terminal states have no
// outgoing edges.
var statusTransitions = map[string][]string{
	models.StatusPending: {
		models.StatusConfirmed, models.StatusRequested, models.StatusNew, models.StatusOnline,
		models.StatusCompleted, models.StatusCancelled, models.StatusNoShow,
	},
	models.StatusConfirmed: {
		models.StatusRequested, models.StatusNew, models.StatusOnline,
		models.StatusCompleted, models.StatusCancelled, models.StatusNoShow,
	},
	models.StatusRequested: {
		models.StatusConfirmed, models.StatusNew, models.StatusOnline,
		models.StatusCompleted, models.StatusCancelled, models.StatusNoShow,
	},
	models.StatusNew: {
		models.StatusConfirmed, models.StatusRequested, models.StatusOnline,
		models.StatusCompleted, models.StatusCancelled, models.StatusNoShow,
	},
	models.StatusOnline: {
		models.StatusConfirmed, models.StatusRequested, models.StatusNew,
		models.StatusCompleted, models.StatusCancelled, models.StatusNoShow,
	},
}

var paymentTransitions = map[string][]string{
	models.PaymentPending: {models.PaymentPaid, models.PaymentFailed},
	models.PaymentFailed:  {models.PaymentPaid},
	models.PaymentPaid:    {models.PaymentRefunded, models.PaymentPartialRefund},
}

func canTransition(graph map[string][]string, from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range graph[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Apply validates the edit against the current booking and returns the
// resulting booking. It never mutates its input and performs no I/O.
//
// Coupling rules enforced here:
//   - paid + pending is an invalid joint state; when payment turns paid while
//     status is pending, status is coerced to confirmed. no_show is never
//     overridden by the coercion.
//   - entering confirmed requires a verified saved method, unless the same
//     edit sets payment to paid (a successful charge substitutes for a card).
//   - a second transition to paid is rejected as already charged.
func Apply(b models.Booking, edit Edit) (models.Booking, error) {
	status := b.Status
	payment := b.PaymentStatus

	if edit.Status != nil {
		if !models.ValidStatus(*edit.Status) {
			return b, errs.Validationf("unknown booking status %q", *edit.Status)
		}
		status = *edit.Status
	}
	if edit.PaymentStatus != nil {
		if !models.ValidPaymentStatus(*edit.PaymentStatus) {
			return b, errs.Validationf("unknown payment status %q", *edit.PaymentStatus)
		}
		payment = *edit.PaymentStatus
	}

	paymentChanged := payment != b.PaymentStatus
	statusChanged := status != b.Status

	if edit.PaymentStatus != nil && *edit.PaymentStatus == models.PaymentPaid && b.PaymentStatus == models.PaymentPaid {
		return b, errs.Conflictf(errs.KindAlreadyCharged, "booking %d is already paid", b.ID)
	}
	if paymentChanged && !canTransition(paymentTransitions, b.PaymentStatus, payment) {
		return b, errs.Validationf("payment status cannot change from %s to %s", b.PaymentStatus, payment)
	}
	if statusChanged && !canTransition(statusTransitions, b.Status, status) {
		return b, errs.Validationf("booking status cannot change from %s to %s", b.Status, status)
	}

	// Paid while pending is invalid; confirm instead. A no-show keeps its
	// status even when its penalty settles the payment.
	if payment == models.PaymentPaid && status == models.StatusPending {
		status = models.StatusConfirmed
	}

	if status == models.StatusConfirmed && b.Status != models.StatusConfirmed {
		paidNow := paymentChanged && payment == models.PaymentPaid
		if !b.HasVerifiedMethod() && !paidNow {
			return b, errs.Validationf("confirming requires a saved verified payment method or a simultaneous payment")
		}
	}

	out := b
	out.Status = status
	out.PaymentStatus = payment
	return out, nil
}
