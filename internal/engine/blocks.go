package engine

import (
	"context"
	"fmt"
	"time"

	"velora/internal/errs"
	"velora/internal/metrics"
	"velora/internal/models"
)

// CreateBlockInput describes an administrative lane closure request.
type CreateBlockInput struct {
	View      models.ViewContext
	CenterID  int64
	LaneID    int64
	Start     time.Time
	End       time.Time
	Reason    string
	CreatedBy string
}

// CreateBlock closes a lane for [Start, End). A block can never be forced
// onto an existing booking: the caller must move or cancel the appointment
// first. Capacity does not apply to blocks; a lane is blocked or booked,
// never both.
func (e *Engine) CreateBlock(ctx context.Context, in CreateBlockInput) (*models.LaneBlock, error) {
	if in.CenterID != in.View.CenterID {
		return nil, errs.Validationf("center %d does not match selected center %d", in.CenterID, in.View.CenterID)
	}
	if !in.End.After(in.Start) {
		return nil, errs.Validationf("block end must be after start")
	}

	lanes, bookings, blocks, _, err := e.loadDay(ctx, in.CenterID, in.Start)
	if err != nil {
		return nil, err
	}

	lane := findLane(lanes, in.LaneID)
	if lane == nil {
		return nil, errs.Validationf("lane %d is not an active lane of center %d", in.LaneID, in.CenterID)
	}

	if err := checkBlockTarget(bookings, blocks, in.LaneID, in.Start, in.End, 0); err != nil {
		return nil, err
	}

	block := &models.LaneBlock{
		CenterID:  in.CenterID,
		LaneID:    in.LaneID,
		StartTime: in.Start,
		EndTime:   in.End,
		Reason:    in.Reason,
		CreatedBy: in.CreatedBy,
	}
	if err := e.store.CreateBlock(ctx, block); err != nil {
		return nil, errs.Externalf("create block", err)
	}

	e.notifyChanged(ctx)
	return block, nil
}

// MoveBlock relocates a block, preserving its original duration. Same
// contract as MoveBooking minus the client checks.
func (e *Engine) MoveBlock(ctx context.Context, view models.ViewContext, id int64, centerID, laneID int64, start time.Time) (*models.LaneBlock, error) {
	block, err := e.store.GetBlock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load block: %w", err)
	}
	if block == nil {
		return nil, &errs.NotFound{Entity: "block", ID: id}
	}

	lanes, bookings, blocks, _, err := e.loadDay(ctx, centerID, start)
	if err != nil {
		return nil, err
	}

	lane := findLane(lanes, laneID)
	if lane == nil {
		return nil, errs.Validationf("lane %d is not an active lane of center %d", laneID, centerID)
	}

	end := start.Add(block.EndTime.Sub(block.StartTime))
	if err := checkBlockTarget(bookings, blocks, laneID, start, end, block.ID); err != nil {
		return nil, err
	}

	moved := *block
	moved.CenterID = centerID
	moved.LaneID = laneID
	moved.StartTime = start
	moved.EndTime = end

	if err := e.store.UpdateBlock(ctx, &moved); err != nil {
		return nil, errs.Externalf("update block", err)
	}

	metrics.IncMoved(models.KindBlock)
	e.notifyChanged(ctx)
	return &moved, nil
}

// DeleteBlock removes the block record unconditionally.
func (e *Engine) DeleteBlock(ctx context.Context, id int64) error {
	block, err := e.store.GetBlock(ctx, id)
	if err != nil {
		return fmt.Errorf("load block: %w", err)
	}
	if block == nil {
		return &errs.NotFound{Entity: "block", ID: id}
	}

	if err := e.store.DeleteBlock(ctx, id); err != nil {
		return errs.Externalf("delete block", err)
	}
	e.notifyChanged(ctx)
	return nil
}

// checkBlockTarget rejects a block destination overlapping any live booking
// or any other block on the lane.
func checkBlockTarget(bookings []models.Booking, blocks []models.LaneBlock, laneID int64, start, end time.Time, excludeID int64) error {
	for i := range bookings {
		b := &bookings[i]
		if b.Status == models.StatusCancelled || b.LaneID == nil || *b.LaneID != laneID {
			continue
		}
		if b.Overlaps(start, end) {
			metrics.IncConflict(errs.KindBookingOverlap)
			return errs.Conflictf(errs.KindBookingOverlap, "booking %d occupies the lane at %s", b.ID, b.StartTime.Format("15:04"))
		}
	}
	for i := range blocks {
		bl := &blocks[i]
		if bl.ID == excludeID || bl.LaneID != laneID {
			continue
		}
		if bl.Overlaps(start, end) {
			metrics.IncConflict(errs.KindBlocked)
			return errs.Conflictf(errs.KindBlocked, "lane is already blocked %s–%s", bl.StartTime.Format("15:04"), bl.EndTime.Format("15:04"))
		}
	}
	return nil
}
