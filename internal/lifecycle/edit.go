package lifecycle

import (
	"context"

	"velora/internal/errs"
	"velora/internal/models"
)

// EditBooking applies an operator edit to the booking's joint state and
// persists the result. unlockConfirms is how many times the operator has
// confirmed the manual payment unlock; fewer than two leaves payment edits
// locked, status-only edits never need the unlock.
func (s *Service) EditBooking(ctx context.Context, b models.Booking, edit Edit, unlockConfirms int) (*models.Booking, error) {
	editor := NewEditor()
	for i := 0; i < unlockConfirms; i++ {
		editor.Lock().Confirm()
	}

	updated, err := editor.Apply(b, edit)
	if err != nil {
		return nil, err
	}
	if updated.PaymentStatus == models.PaymentPaid && b.PaymentStatus != models.PaymentPaid {
		paidAt := s.now()
		updated.PaidAt = &paidAt
	}

	if err := s.store.UpdateBooking(ctx, &updated); err != nil {
		return nil, errs.Externalf("persist booking edit", err)
	}
	s.logger.Info().Int64("booking_id", b.ID).
		Str("status", updated.Status).Str("payment_status", updated.PaymentStatus).
		Msg("booking state edited")
	return &updated, nil
}
