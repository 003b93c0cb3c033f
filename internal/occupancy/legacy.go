package occupancy

import (
	"time"

	"velora/internal/assign"
	"velora/internal/models"
)

// legacyBookingAt resolves bookings written before lane tagging became
// mandatory. Such records carry no lane id, so their expected lane is
// recomputed from the service's treatment group. The fallback applies only
// when the queried lane is the center's first lane and must never be used
// for new writes. Delete this file once historical data is migrated.
func (c *Calculator) legacyBookingAt(view models.ViewContext, laneID int64, instant time.Time) *models.Booking {
	laneIdx := c.laneIndex(view.CenterID, laneID)
	if laneIdx != 0 {
		return nil
	}

	for i := range c.bookings {
		b := &c.bookings[i]
		if b.LaneID != nil || b.CenterID != view.CenterID || b.Status == models.StatusCancelled {
			continue
		}
		if !b.Overlaps(instant, instant.Add(time.Nanosecond)) {
			continue
		}

		group := ""
		if svc, ok := c.services[b.ServiceID]; ok {
			group = svc.TreatmentGroup
		}
		if assign.PreferredLaneIndex(group) == laneIdx {
			if c.logger != nil {
				c.logger.Debug().
					Int64("booking_id", b.ID).
					Int64("lane_id", laneID).
					Msg("resolved untagged legacy booking by treatment group")
			}
			return b
		}
	}
	return nil
}

// laneIndex returns the position of laneID among the center's active lanes,
// or -1 when the lane is unknown.
func (c *Calculator) laneIndex(centerID, laneID int64) int {
	idx := 0
	for _, l := range c.lanes {
		if l.CenterID != centerID {
			continue
		}
		if l.ID == laneID {
			return idx
		}
		idx++
	}
	return -1
}
