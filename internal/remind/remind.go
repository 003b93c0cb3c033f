// Package remind sweeps the store for upcoming bookings and alerts the
// operator channel once per booking. A booking is marked only after a
// notification went out, so a crashed sweep retries it next round.
package remind

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"velora/internal/models"
)

// Store is the record-store slice the sweep reads and marks.
type Store interface {
	UpcomingUnreminded(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	MarkReminded(ctx context.Context, id int64) error
}

// Notifier delivers the reminder. Fire and forget.
type Notifier interface {
	BookingReminder(ctx context.Context, b *models.Booking, clientName string)
}

// Service is the periodic sweep.
type Service struct {
	store    Store
	notifier Notifier
	lead     time.Duration
	interval time.Duration
	logger   *zerolog.Logger
	now      func() time.Time
}

// New creates a sweep that reminds about bookings starting within lead,
// checking every interval.
func New(store Store, notifier Notifier, lead, interval time.Duration, logger *zerolog.Logger) *Service {
	if lead <= 0 {
		lead = 2 * time.Hour
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Service{
		store:    store,
		notifier: notifier,
		lead:     lead,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info().Dur("lead", s.lead).Dur("interval", s.interval).Msg("reminder sweep started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns how many reminders went out.
func (s *Service) Sweep(ctx context.Context) int {
	now := s.now()
	due, err := s.store.UpcomingUnreminded(ctx, now, now.Add(s.lead))
	if err != nil {
		s.logger.Error().Err(err).Msg("reminder query failed")
		return 0
	}

	sent := 0
	for i := range due {
		b := &due[i]
		s.notifier.BookingReminder(ctx, b, "")
		if err := s.store.MarkReminded(ctx, b.ID); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("mark reminded failed")
			continue
		}
		sent++
	}
	if sent > 0 {
		s.logger.Info().Int("sent", sent).Msg("reminders sent")
	}
	return sent
}
