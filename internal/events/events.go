// Package events carries the "bookings changed" signal between operator
// sessions. The signal has no payload on purpose: subscribers silently
// re-fetch their loaded day instead of interpreting a diff. A redis pub/sub
// bus connects separate processes; the local bus serves single-process
// deployments and tests.
package events

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ChannelBookings is the redis channel for booking-set changes.
const ChannelBookings = "velora:bookings:changed"

// Handler reacts to a change notification. It must not block; slow work
// belongs in the handler's own goroutine.
type Handler func(ctx context.Context)

// LocalBus is an in-process fan-out used when redis is not configured.
type LocalBus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewLocalBus constructs an empty bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

// Subscribe registers a handler.
func (b *LocalBus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// BookingsChanged notifies every subscriber synchronously.
func (b *LocalBus) BookingsChanged(ctx context.Context) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx)
	}
}

// RedisBus publishes and receives change signals over redis pub/sub.
type RedisBus struct {
	client *redis.Client
	logger *zerolog.Logger
}

// NewRedisBus creates a bus over an established client.
func NewRedisBus(client *redis.Client, logger *zerolog.Logger) *RedisBus {
	return &RedisBus{client: client, logger: logger}
}

// BookingsChanged publishes the signal. Publish failures are logged and
// swallowed; notification is best effort and never fails a booking write.
func (b *RedisBus) BookingsChanged(ctx context.Context) {
	if err := b.client.Publish(ctx, ChannelBookings, "1").Err(); err != nil {
		b.logger.Warn().Err(err).Msg("publish bookings-changed failed")
	}
}

// Listen delivers every change signal to h until ctx is cancelled. Run it in
// its own goroutine.
func (b *RedisBus) Listen(ctx context.Context, h Handler) {
	sub := b.client.Subscribe(ctx, ChannelBookings)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			h(ctx)
		}
	}
}

// Ping reports whether redis answers, for readiness checks.
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
