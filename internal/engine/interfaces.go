package engine

import (
	"context"
	"time"

	"velora/internal/models"
)

// Store is the narrow record-store surface the engine reads and mutates
// through. Every mutation is a single atomic write; the engine re-reads the
// day's records at commit time instead of holding a cached view.
type Store interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	CreateBooking(ctx context.Context, b *models.Booking) error
	UpdateBooking(ctx context.Context, b *models.Booking) error
	DeleteBooking(ctx context.Context, id int64) error

	GetBlock(ctx context.Context, id int64) (*models.LaneBlock, error)
	CreateBlock(ctx context.Context, b *models.LaneBlock) error
	UpdateBlock(ctx context.Context, b *models.LaneBlock) error
	DeleteBlock(ctx context.Context, id int64) error

	ListBookings(ctx context.Context, centerID int64, day time.Time) ([]models.Booking, error)
	ListBlocks(ctx context.Context, centerID int64, day time.Time) ([]models.LaneBlock, error)
	ListLanes(ctx context.Context, centerID int64) ([]models.Lane, error)
	ListServices(ctx context.Context) ([]models.Service, error)
	GetService(ctx context.Context, id int64) (*models.Service, error)

	// ClientBookings returns every booking referencing the client, most
	// recent start time first.
	ClientBookings(ctx context.Context, clientID int64) ([]models.Booking, error)
}

// Directory resolves and maintains client profiles.
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*models.Client, error)
	Create(ctx context.Context, c *models.Client) error
	Update(ctx context.Context, c *models.Client) error
}

// Redeemer applies a voucher or package redemption against a booking. A
// redemption failure never rolls the booking back.
type Redeemer interface {
	Redeem(ctx context.Context, code string, bookingID int64, amountCents int64) error
}

// Publisher signals that the booking record set changed, with no payload
// detail. Subscribers silently re-fetch.
type Publisher interface {
	BookingsChanged(ctx context.Context)
}
