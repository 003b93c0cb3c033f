package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"velora/internal/errs"
	"velora/internal/metrics"
	"velora/internal/models"
)

// MinChargeableCents is the smallest amount the gateway accepts in minor
// currency units.
const MinChargeableCents = 50

// PenaltyPercents are the selectable no-show penalty levels.
var PenaltyPercents = []int{0, 25, 50, 75, 100}

// CaptureRequest is a saved-method capture instruction for the gateway.
type CaptureRequest struct {
	IdempotencyKey string
	BookingID      int64
	Method         string
	AmountCents    int64
}

// LinkRequest asks the gateway for a hosted payment page.
type LinkRequest struct {
	Reference   string
	BookingID   int64
	AmountCents int64
}

// Gateway is the external payment collaborator. Calls are single attempts
// with no automatic retry.
type Gateway interface {
	Capture(ctx context.Context, req CaptureRequest) error
	CreateLink(ctx context.Context, req LinkRequest) (string, error)
}

// Recorder persists a booking after a successful state change.
type Recorder interface {
	UpdateBooking(ctx context.Context, b *models.Booking) error
}

// LinkMailer delivers a hosted payment link to the client. Fire and forget:
// delivery failure never fails the operation that requested it.
type LinkMailer interface {
	SendPaymentLink(ctx context.Context, email, url string, amountCents int64)
}

// Service runs the charge flows against the gateway and persists the
// resulting state transitions.
type Service struct {
	store   Recorder
	gateway Gateway
	mailer  LinkMailer
	logger  *zerolog.Logger
	now     func() time.Time
	newKey  func() string
}

// NewService creates a charge service. mailer may be nil.
func NewService(store Recorder, gateway Gateway, mailer LinkMailer, logger *zerolog.Logger) *Service {
	return &Service{
		store:   store,
		gateway: gateway,
		mailer:  mailer,
		logger:  logger,
		now:     time.Now,
		newKey:  uuid.NewString,
	}
}

// AttemptCharge captures the booking's full price against its saved method.
// An already-paid booking is a conflict before any external call; a booking
// without a verified method is a validation failure so the operator can fall
// back to manual settlement or a payment link. On gateway failure nothing is
// mutated and the error is retryable.
func (s *Service) AttemptCharge(ctx context.Context, b models.Booking) (*models.Booking, error) {
	if b.PaymentStatus == models.PaymentPaid {
		return nil, errs.Conflictf(errs.KindAlreadyCharged, "booking %d is already paid", b.ID)
	}
	if !b.HasVerifiedMethod() {
		return nil, errs.Validationf("booking %d has no saved verified payment method", b.ID)
	}
	if s.gateway == nil {
		return nil, errs.Validationf("no payment gateway configured; record a manual settlement instead")
	}

	req := CaptureRequest{
		IdempotencyKey: s.newKey(),
		BookingID:      b.ID,
		Method:         b.PaymentMethod,
		AmountCents:    b.PriceCents,
	}
	if err := s.gateway.Capture(ctx, req); err != nil {
		metrics.IncCharge("failure")
		s.logger.Warn().Err(err).Int64("booking_id", b.ID).Int64("amount_cents", req.AmountCents).Msg("capture failed")
		return nil, errs.Externalf("payment capture", err)
	}
	metrics.IncCharge("success")

	return s.settle(ctx, b)
}

// RecordManualSettlement marks the booking paid after an in-person payment
// (cash, terminal, transfer). The instrument is informational only.
func (s *Service) RecordManualSettlement(ctx context.Context, b models.Booking, instrument string) (*models.Booking, error) {
	if b.PaymentStatus == models.PaymentPaid {
		return nil, errs.Conflictf(errs.KindAlreadyCharged, "booking %d is already paid", b.ID)
	}
	s.logger.Info().Int64("booking_id", b.ID).Str("instrument", instrument).Msg("manual settlement recorded")
	return s.settle(ctx, b)
}

// SendPaymentLink creates a hosted payment page for the booking's price and
// emails it to the client. No-show bookings only accept in-person
// settlement, so link generation is refused for them. No local state
// changes; the payment lands later through the gateway.
func (s *Service) SendPaymentLink(ctx context.Context, b models.Booking, email string) (string, error) {
	if b.Status == models.StatusNoShow {
		return "", errs.Validationf("payment links are unavailable for no-show bookings")
	}
	if b.PaymentStatus == models.PaymentPaid {
		return "", errs.Conflictf(errs.KindAlreadyCharged, "booking %d is already paid", b.ID)
	}
	if s.gateway == nil {
		return "", errs.Validationf("no payment gateway configured")
	}

	url, err := s.gateway.CreateLink(ctx, LinkRequest{
		Reference:   s.newKey(),
		BookingID:   b.ID,
		AmountCents: b.PriceCents,
	})
	if err != nil {
		return "", errs.Externalf("create payment link", err)
	}

	if s.mailer != nil && email != "" {
		s.mailer.SendPaymentLink(ctx, email, url, b.PriceCents)
	}
	return url, nil
}

// CaptureNoShowPenalty charges a fraction of the original price against the
// booking's saved method. overrideCents, when positive, replaces the
// percentage amount. A zero amount waives the penalty without touching the
// booking. Amounts below the gateway minimum are rejected up front.
func (s *Service) CaptureNoShowPenalty(ctx context.Context, b models.Booking, percent int, overrideCents int64) (*models.Booking, int64, error) {
	if b.Status != models.StatusNoShow {
		return nil, 0, errs.Validationf("penalty capture applies to no-show bookings only")
	}
	if b.PaymentStatus == models.PaymentPaid {
		return nil, 0, errs.Conflictf(errs.KindAlreadyCharged, "booking %d is already paid", b.ID)
	}

	amount := overrideCents
	if amount <= 0 {
		if !validPercent(percent) {
			return nil, 0, errs.Validationf("penalty percentage must be one of 0/25/50/75/100, got %d", percent)
		}
		amount = b.PriceCents * int64(percent) / 100
	}
	if amount == 0 {
		// Penalty waived.
		return &b, 0, nil
	}
	if amount < MinChargeableCents {
		return nil, 0, errs.Validationf("penalty of %d cents is below the %d cent gateway minimum", amount, MinChargeableCents)
	}
	if !b.HasVerifiedMethod() {
		return nil, 0, errs.Validationf("no saved method on file; a no-show penalty can only be settled in person")
	}
	if s.gateway == nil {
		return nil, 0, errs.Validationf("no payment gateway configured")
	}

	req := CaptureRequest{
		IdempotencyKey: s.newKey(),
		BookingID:      b.ID,
		Method:         b.PaymentMethod,
		AmountCents:    amount,
	}
	if err := s.gateway.Capture(ctx, req); err != nil {
		metrics.IncCharge("failure")
		return nil, 0, errs.Externalf("penalty capture", err)
	}
	metrics.IncCharge("success")
	metrics.IncPenaltyCaptured()

	updated, err := s.settle(ctx, b)
	if err != nil {
		return nil, 0, err
	}
	return updated, amount, nil
}

// settle applies the paid transition and persists it. The coupling rules in
// Apply confirm a pending booking and preserve no_show.
func (s *Service) settle(ctx context.Context, b models.Booking) (*models.Booking, error) {
	paid := models.PaymentPaid
	updated, err := Apply(b, Edit{PaymentStatus: &paid})
	if err != nil {
		return nil, err
	}
	paidAt := s.now()
	updated.PaidAt = &paidAt

	if err := s.store.UpdateBooking(ctx, &updated); err != nil {
		// The money moved; only the record write failed. Retry persists.
		s.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("paid transition not persisted")
		return nil, errs.Externalf("persist payment", err)
	}
	return &updated, nil
}

func validPercent(p int) bool {
	for _, v := range PenaltyPercents {
		if v == p {
			return true
		}
	}
	return false
}
