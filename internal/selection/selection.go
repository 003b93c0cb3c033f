// Package selection turns raw pointer gestures over the day grid into
// booking or block creation requests. A gesture's mode is fixed at
// pointer-down and its range is lane-local; everything else about the
// eventual record is decided by the scheduling engine.
package selection

import (
	"time"

	"github.com/rs/zerolog"

	"velora/internal/models"
	"velora/internal/timegrid"
)

// ClickBlockMinutes is the length of a block synthesized from a plain click
// in block mode.
const ClickBlockMinutes = 30

// PadMinutes is added to every dragged range, matching the turnover margin
// bookings carry.
const PadMinutes = 5

// ServiceMatchToleranceMinutes bounds how far a service's standard duration
// may sit from a dragged duration and still be pre-selected.
const ServiceMatchToleranceMinutes = 10

// Action tells the caller what to do after pointer-up.
type Action int

const (
	// ActionNone means the gesture was cancelled; nothing to do.
	ActionNone Action = iota
	// ActionCreateBlock carries a ready block range.
	ActionCreateBlock
	// ActionOpenBooking opens the creation flow prefilled from the drag.
	ActionOpenBooking
	// ActionClickThrough defers a plain booking-mode click to the ordinary
	// click handler (service-duration default).
	ActionClickThrough
)

// Outcome is the result of a completed gesture.
type Outcome struct {
	Action          Action
	LaneID          int64
	Start           time.Time
	End             time.Time // set for ActionCreateBlock
	DurationMinutes int       // set for ActionOpenBooking
	ServiceID       *int64    // pre-selected service, if any matched
}

// Controller tracks one pointer gesture at a time. It is not safe for
// concurrent use; drive it from the single UI event loop.
type Controller struct {
	services []models.Service
	grid     *timegrid.Grid
	logger   *zerolog.Logger

	active    bool
	blockMode bool
	laneID    int64
	startSlot time.Time
	lastSlot  time.Time
	moved     bool
}

// NewController creates a controller over the bookable service catalogue.
// Pointer positions are snapped onto the standard day grid.
func NewController(services []models.Service, logger *zerolog.Logger) *Controller {
	return &Controller{services: services, grid: timegrid.Default(), logger: logger}
}

// PointerDown starts a gesture on (lane, instant). Block mode is fixed here:
// either the blocking toggle is active or a modifier key is held.
func (c *Controller) PointerDown(laneID int64, instant time.Time, blockToggle, modifierHeld bool) {
	slot := c.grid.Snap(instant)
	c.active = true
	c.blockMode = blockToggle || modifierHeld
	c.laneID = laneID
	c.startSlot = slot
	c.lastSlot = slot
	c.moved = false
}

// PointerMove extends the selection within the start lane. Movement into a
// different lane is ignored; the selection stays lane-local.
func (c *Controller) PointerMove(laneID int64, instant time.Time) {
	if !c.active || laneID != c.laneID {
		return
	}
	slot := c.grid.Snap(instant)
	c.lastSlot = slot
	if !slot.Equal(c.startSlot) {
		c.moved = true
	}
}

// PointerUp finishes the gesture on (lane, instant) and returns what to do.
// Releasing on another lane or outside the grid cancels (see Cancel).
func (c *Controller) PointerUp(laneID int64, instant time.Time) Outcome {
	if !c.active {
		return Outcome{}
	}
	if laneID != c.laneID {
		return c.Cancel()
	}
	slot := c.grid.Snap(instant)

	defer c.reset()

	// True click: released where it started with no recorded movement.
	if slot.Equal(c.startSlot) && !c.moved {
		if c.blockMode {
			return Outcome{
				Action: ActionCreateBlock,
				LaneID: c.laneID,
				Start:  c.startSlot,
				End:    c.startSlot.Add(ClickBlockMinutes * time.Minute),
			}
		}
		return Outcome{Action: ActionClickThrough, LaneID: c.laneID, Start: c.startSlot}
	}

	start, end := c.startSlot, slot
	if end.Before(start) {
		start, end = end, start
	}
	spanMinutes := int(end.Sub(start) / time.Minute)
	duration := spanMinutes + PadMinutes

	if c.blockMode {
		return Outcome{
			Action: ActionCreateBlock,
			LaneID: c.laneID,
			Start:  start,
			End:    start.Add(time.Duration(duration) * time.Minute),
		}
	}

	out := Outcome{
		Action:          ActionOpenBooking,
		LaneID:          c.laneID,
		Start:           start,
		DurationMinutes: duration,
		ServiceID:       c.matchService(duration),
	}
	return out
}

// Cancel drops all transient gesture state without committing anything.
// Call it for a pointer-up outside any valid slot.
func (c *Controller) Cancel() Outcome {
	if c.active && c.logger != nil {
		c.logger.Debug().Int64("lane_id", c.laneID).Msg("selection cancelled")
	}
	c.reset()
	return Outcome{}
}

// Active reports whether a gesture is in progress.
func (c *Controller) Active() bool {
	return c.active
}

func (c *Controller) reset() {
	*c = Controller{services: c.services, grid: c.grid, logger: c.logger}
}

// matchService returns the active service whose standard duration sits
// closest to the dragged duration, within tolerance. Equal distances go to
// the lowest service id so the pick is stable across catalogue orderings.
// Nil when none qualify.
func (c *Controller) matchService(durationMinutes int) *int64 {
	var best *models.Service
	bestDiff := ServiceMatchToleranceMinutes + 1
	for i := range c.services {
		s := &c.services[i]
		if !s.IsActive {
			continue
		}
		diff := s.DurationMinutes - durationMinutes
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff || (diff == bestDiff && best != nil && s.ID < best.ID) {
			best = s
			bestDiff = diff
		}
	}
	if best == nil {
		return nil
	}
	return &best.ID
}
