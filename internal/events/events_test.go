package events

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestLocalBusFanOut(t *testing.T) {
	bus := NewLocalBus()

	var first, second int
	bus.Subscribe(func(context.Context) { first++ })
	bus.Subscribe(func(context.Context) { second++ })

	bus.BookingsChanged(context.Background())
	bus.BookingsChanged(context.Background())

	if first != 2 || second != 2 {
		t.Fatalf("handlers called %d/%d times, want 2/2", first, second)
	}
}

func TestRedisBusDelivers(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	logger := zerolog.New(io.Discard)
	bus := NewRedisBus(client, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan struct{}, 1)
	go bus.Listen(ctx, func(context.Context) {
		select {
		case received <- struct{}{}:
		default:
		}
	})

	// The subscription needs a moment to be registered before publishing.
	deadline := time.After(5 * time.Second)
	for {
		bus.BookingsChanged(ctx)
		select {
		case <-received:
			return
		case <-deadline:
			t.Fatal("change signal never delivered")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestRedisBusPing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	logger := zerolog.New(io.Discard)
	bus := NewRedisBus(client, &logger)

	if err := bus.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}
