package occupancy

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"velora/internal/models"
)

// Availability is the coarse "any lane free" aggregate for a single instant.
// It is a UI signal only; the authoritative per-lane capacity check lives in
// the scheduling engine.
type Availability struct {
	TotalLanes     int  `json:"total_lanes"`
	BookedLanes    int  `json:"booked_lanes"`
	BlockedLanes   int  `json:"blocked_lanes"`
	AvailableLanes int  `json:"available_lanes"`
	IsFullyBooked  bool `json:"is_fully_booked"`
}

// Calculator answers availability queries for one loaded (center, date)
// view. It owns a derived Index plus the raw records needed to resolve a
// booking back from an instant.
type Calculator struct {
	lanes    []models.Lane // active lanes of the center, in position order
	bookings []models.Booking
	services map[int64]models.Service
	index    *Index
	logger   *zerolog.Logger
}

// NewCalculator builds a calculator for the given view data. Inactive lanes
// are dropped; the rest are kept in position order so "first lane" is well
// defined for the legacy fallback.
func NewCalculator(lanes []models.Lane, bookings []models.Booking, blocks []models.LaneBlock, services []models.Service, logger *zerolog.Logger) *Calculator {
	active := make([]models.Lane, 0, len(lanes))
	for _, l := range lanes {
		if l.IsActive {
			active = append(active, l)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Position < active[j].Position })

	svc := make(map[int64]models.Service, len(services))
	for _, s := range services {
		svc[s.ID] = s
	}

	return &Calculator{
		lanes:    active,
		bookings: bookings,
		services: svc,
		index:    Rebuild(bookings, blocks),
		logger:   logger,
	}
}

// Index exposes the underlying occupancy index.
func (c *Calculator) Index() *Index {
	return c.index
}

// Lanes returns the center's active lanes in position order.
func (c *Calculator) Lanes() []models.Lane {
	return c.lanes
}

// IsOccupied reports whether the lane is busy at instant.
func (c *Calculator) IsOccupied(laneID int64, instant time.Time) bool {
	return c.index.IsOccupied(laneID, instant)
}

// Availability classifies every active lane of the view's center at instant.
// A lane is available iff it has neither a booking nor a block covering the
// instant.
func (c *Calculator) Availability(view models.ViewContext, instant time.Time) Availability {
	var agg Availability

	for _, lane := range c.lanes {
		if lane.CenterID != view.CenterID {
			continue
		}
		agg.TotalLanes++

		kind, busy := c.index.kindAt(lane.ID, instant)
		if !busy {
			continue
		}
		if kind == models.KindBooking {
			agg.BookedLanes++
		} else {
			agg.BlockedLanes++
		}
	}

	agg.AvailableLanes = agg.TotalLanes - agg.BookedLanes - agg.BlockedLanes
	agg.IsFullyBooked = agg.AvailableLanes <= 0
	return agg
}

// BookingAt returns the booking occupying the lane at instant, if any. For
// the center's first lane it additionally consults the legacy shim that
// matches untagged historical bookings by their recomputed lane (see
// legacy.go). Non-nil only for non-cancelled bookings.
func (c *Calculator) BookingAt(view models.ViewContext, laneID int64, instant time.Time) *models.Booking {
	for i := range c.bookings {
		b := &c.bookings[i]
		if b.CenterID != view.CenterID || b.Status == models.StatusCancelled {
			continue
		}
		if b.LaneID != nil && *b.LaneID == laneID && b.Overlaps(instant, instant.Add(time.Nanosecond)) {
			return b
		}
	}

	return c.legacyBookingAt(view, laneID, instant)
}
