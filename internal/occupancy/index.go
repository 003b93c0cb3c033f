// Package occupancy derives per-lane occupancy from the authoritative
// booking and block record sets and answers availability queries over it.
// The index is a throwaway projection: callers rebuild it after every
// mutation and on every change notification instead of patching it.
package occupancy

import (
	"sort"
	"time"

	"velora/internal/models"
)

// Index maps each lane to its ordered list of occupying intervals for one
// (center, date) view.
type Index struct {
	intervals map[int64][]models.OccupancyInterval
}

// Rebuild constructs a fresh index from the full booking and block
// collections of a (center, date) pair. Cancelled bookings do not occupy a
// lane; untagged legacy bookings carry no lane and are skipped here (see
// Calculator.BookingAt for the read-side fallback).
func Rebuild(bookings []models.Booking, blocks []models.LaneBlock) *Index {
	ix := &Index{intervals: make(map[int64][]models.OccupancyInterval)}

	for i := range bookings {
		b := &bookings[i]
		if b.LaneID == nil || b.Status == models.StatusCancelled {
			continue
		}
		ix.intervals[*b.LaneID] = append(ix.intervals[*b.LaneID], models.OccupancyInterval{
			LaneID: *b.LaneID,
			Start:  b.StartTime,
			End:    b.EndTime(),
			Kind:   models.KindBooking,
			RefID:  b.ID,
		})
	}

	for i := range blocks {
		bl := &blocks[i]
		ix.intervals[bl.LaneID] = append(ix.intervals[bl.LaneID], models.OccupancyInterval{
			LaneID: bl.LaneID,
			Start:  bl.StartTime,
			End:    bl.EndTime,
			Kind:   models.KindBlock,
			RefID:  bl.ID,
		})
	}

	for laneID := range ix.intervals {
		list := ix.intervals[laneID]
		sort.Slice(list, func(i, j int) bool {
			return list[i].Start.Before(list[j].Start)
		})
	}

	return ix
}

// IsOccupied reports whether instant falls within any interval for the lane,
// booking or block alike.
func (ix *Index) IsOccupied(laneID int64, instant time.Time) bool {
	for _, iv := range ix.intervals[laneID] {
		if iv.Contains(instant) {
			return true
		}
		if iv.Start.After(instant) {
			break
		}
	}
	return false
}

// Intervals returns the sorted occupancy intervals for a lane.
func (ix *Index) Intervals(laneID int64) []models.OccupancyInterval {
	return ix.intervals[laneID]
}

// At returns the interval containing instant on the lane, if any.
func (ix *Index) At(laneID int64, instant time.Time) (models.OccupancyInterval, bool) {
	for _, iv := range ix.intervals[laneID] {
		if iv.Contains(instant) {
			return iv, true
		}
		if iv.Start.After(instant) {
			break
		}
	}
	return models.OccupancyInterval{}, false
}

// kindAt reports which kind of interval, if any, covers instant on the lane.
func (ix *Index) kindAt(laneID int64, instant time.Time) (string, bool) {
	iv, ok := ix.At(laneID, instant)
	if !ok {
		return "", false
	}
	return iv.Kind, true
}
