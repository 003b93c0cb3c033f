// Package view maintains one operator session's loaded (center, date)
// snapshot with an explicit optimistic overlay. Drag-moves are projected
// locally under a pending marker while the engine write is in flight; the
// overlay is cleared on commit and discarded with a forced reload on
// failure, so the local view never stays diverged from the store.
package view

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"velora/internal/models"
	"velora/internal/occupancy"
)

// Source is the read side of the record store.
type Source interface {
	ListBookings(ctx context.Context, centerID int64, day time.Time) ([]models.Booking, error)
	ListBlocks(ctx context.Context, centerID int64, day time.Time) ([]models.LaneBlock, error)
	ListLanes(ctx context.Context, centerID int64) ([]models.Lane, error)
	ListServices(ctx context.Context) ([]models.Service, error)
}

// Scheduler is the engine surface the view commits moves through.
type Scheduler interface {
	MoveBooking(ctx context.Context, view models.ViewContext, id int64, centerID, laneID int64, start time.Time) (*models.Booking, error)
	MoveBlock(ctx context.Context, view models.ViewContext, id int64, centerID, laneID int64, start time.Time) (*models.LaneBlock, error)
}

// View is one session's state for a single ViewContext. All accessors
// return overlay-applied data.
type View struct {
	source    Source
	scheduler Scheduler
	logger    *zerolog.Logger

	mu       sync.RWMutex
	vctx     models.ViewContext
	lanes    []models.Lane
	services []models.Service
	bookings []models.Booking
	blocks   []models.LaneBlock

	pendingBookings map[int64]models.Booking
	pendingBlocks   map[int64]models.LaneBlock

	index *occupancy.Index
}

// New creates an unloaded view; call Load before reading from it.
func New(source Source, scheduler Scheduler, vctx models.ViewContext, logger *zerolog.Logger) *View {
	return &View{
		source:          source,
		scheduler:       scheduler,
		logger:          logger,
		vctx:            vctx,
		pendingBookings: make(map[int64]models.Booking),
		pendingBlocks:   make(map[int64]models.LaneBlock),
	}
}

// Context returns the view's ViewContext.
func (v *View) Context() models.ViewContext {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.vctx
}

// Load replaces the authoritative snapshot from the store. Pending overlay
// entries survive a load; they belong to writes still in flight.
func (v *View) Load(ctx context.Context) error {
	bookings, err := v.source.ListBookings(ctx, v.vctx.CenterID, v.vctx.Date)
	if err != nil {
		return err
	}
	blocks, err := v.source.ListBlocks(ctx, v.vctx.CenterID, v.vctx.Date)
	if err != nil {
		return err
	}
	lanes, err := v.source.ListLanes(ctx, v.vctx.CenterID)
	if err != nil {
		return err
	}
	services, err := v.source.ListServices(ctx)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.bookings = bookings
	v.blocks = blocks
	v.lanes = lanes
	v.services = services
	v.rebuildLocked()
	v.mu.Unlock()
	return nil
}

// OnChange handles a store change notification: a non-blocking refetch. The
// UI thread is never held up; a failed refresh is logged and the next
// notification or explicit Load repairs the view.
func (v *View) OnChange(ctx context.Context) {
	go func() {
		if err := v.Load(ctx); err != nil {
			v.logger.Warn().Err(err).Msg("view refresh failed")
		}
	}()
}

// Bookings returns the day's bookings with pending projections applied.
func (v *View) Bookings() []models.Booking {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.overlaidBookingsLocked()
}

// Blocks returns the day's blocks with pending projections applied.
func (v *View) Blocks() []models.LaneBlock {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.overlaidBlocksLocked()
}

// Calculator builds an availability calculator over the overlaid snapshot.
func (v *View) Calculator() *occupancy.Calculator {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return occupancy.NewCalculator(v.lanes, v.overlaidBookingsLocked(), v.overlaidBlocksLocked(), v.services, v.logger)
}

// Index returns the occupancy index over the overlaid snapshot.
func (v *View) Index() *occupancy.Index {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.index
}

// HasPending reports whether the booking has an uncommitted projection, so
// the UI can render it dimmed.
func (v *View) HasPending(id int64) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.pendingBookings[id]
	if !ok {
		_, ok = v.pendingBlocks[id]
	}
	return ok
}

// MoveBooking commits a drag-move in two phases: project the destination
// locally under a pending marker, then write through the engine. On success
// the result replaces the projection; on any failure the projection is
// discarded and the snapshot force-reloaded.
func (v *View) MoveBooking(ctx context.Context, id int64, centerID, laneID int64, start time.Time) error {
	v.mu.Lock()
	current := findBooking(v.bookings, id)
	if current == nil {
		v.mu.Unlock()
		return v.failAndReload(ctx, id, nil)
	}
	projected := *current
	projected.CenterID = centerID
	projected.LaneID = &laneID
	projected.StartTime = start
	v.pendingBookings[id] = projected
	v.rebuildLocked()
	v.mu.Unlock()

	moved, err := v.scheduler.MoveBooking(ctx, v.Context(), id, centerID, laneID, start)
	if err != nil {
		return v.failAndReload(ctx, id, err)
	}

	v.mu.Lock()
	delete(v.pendingBookings, id)
	replaceBooking(v.bookings, *moved)
	v.rebuildLocked()
	v.mu.Unlock()
	return nil
}

// MoveBlock is MoveBooking for lane blocks.
func (v *View) MoveBlock(ctx context.Context, id int64, centerID, laneID int64, start time.Time) error {
	v.mu.Lock()
	current := findBlock(v.blocks, id)
	if current == nil {
		v.mu.Unlock()
		return v.failAndReload(ctx, id, nil)
	}
	projected := *current
	projected.CenterID = centerID
	projected.LaneID = laneID
	projected.EndTime = start.Add(current.EndTime.Sub(current.StartTime))
	projected.StartTime = start
	v.pendingBlocks[id] = projected
	v.rebuildLocked()
	v.mu.Unlock()

	moved, err := v.scheduler.MoveBlock(ctx, v.Context(), id, centerID, laneID, start)
	if err != nil {
		return v.failAndReload(ctx, id, err)
	}

	v.mu.Lock()
	delete(v.pendingBlocks, id)
	replaceBlock(v.blocks, *moved)
	v.rebuildLocked()
	v.mu.Unlock()
	return nil
}

// failAndReload discards the record's projection and reloads the snapshot so
// the view cannot stay diverged. The original error is returned; a reload
// failure is only logged.
func (v *View) failAndReload(ctx context.Context, id int64, cause error) error {
	v.mu.Lock()
	delete(v.pendingBookings, id)
	delete(v.pendingBlocks, id)
	v.rebuildLocked()
	v.mu.Unlock()

	if err := v.Load(ctx); err != nil {
		v.logger.Error().Err(err).Msg("reload after failed move failed")
	}
	if cause == nil {
		return &stale{id: id}
	}
	return cause
}

// stale marks a move on a record the snapshot no longer contains.
type stale struct {
	id int64
}

func (s *stale) Error() string {
	return "record is no longer in the loaded view; reloaded"
}

func (v *View) rebuildLocked() {
	v.index = occupancy.Rebuild(v.overlaidBookingsLocked(), v.overlaidBlocksLocked())
}

func (v *View) overlaidBookingsLocked() []models.Booking {
	out := make([]models.Booking, 0, len(v.bookings))
	for _, b := range v.bookings {
		if p, ok := v.pendingBookings[b.ID]; ok {
			out = append(out, p)
			continue
		}
		out = append(out, b)
	}
	return out
}

func (v *View) overlaidBlocksLocked() []models.LaneBlock {
	out := make([]models.LaneBlock, 0, len(v.blocks))
	for _, b := range v.blocks {
		if p, ok := v.pendingBlocks[b.ID]; ok {
			out = append(out, p)
			continue
		}
		out = append(out, b)
	}
	return out
}

func findBooking(bookings []models.Booking, id int64) *models.Booking {
	for i := range bookings {
		if bookings[i].ID == id {
			return &bookings[i]
		}
	}
	return nil
}

func replaceBooking(bookings []models.Booking, updated models.Booking) {
	for i := range bookings {
		if bookings[i].ID == updated.ID {
			bookings[i] = updated
			return
		}
	}
}

func findBlock(blocks []models.LaneBlock, id int64) *models.LaneBlock {
	for i := range blocks {
		if blocks[i].ID == id {
			return &blocks[i]
		}
	}
	return nil
}

func replaceBlock(blocks []models.LaneBlock, updated models.LaneBlock) {
	for i := range blocks {
		if blocks[i].ID == updated.ID {
			blocks[i] = updated
			return
		}
	}
}
