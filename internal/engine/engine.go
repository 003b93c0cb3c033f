// Package engine validates and commits create/move/delete operations on
// bookings and lane blocks. It owns the conflict and capacity decisions: all
// writes are funnelled through here and re-checked against fresh day data at
// commit time.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"velora/internal/assign"
	"velora/internal/errs"
	"velora/internal/metrics"
	"velora/internal/models"
	"velora/internal/occupancy"
)

// SafetyMarginMinutes is added to every booking's service duration so lanes
// get a turnover gap between appointments.
const SafetyMarginMinutes = 5

// Rules are optional advance-window constraints on new bookings. Zero values
// disable a constraint.
type Rules struct {
	MinAdvance time.Duration
	MaxAdvance time.Duration
}

// Engine is the scheduling engine.
type Engine struct {
	store     Store
	directory Directory
	redeemer  Redeemer
	publisher Publisher
	rules     Rules
	logger    *zerolog.Logger
	now       func() time.Time
}

// New creates an engine. redeemer and publisher may be nil.
func New(store Store, directory Directory, redeemer Redeemer, publisher Publisher, rules Rules, logger *zerolog.Logger) *Engine {
	return &Engine{
		store:     store,
		directory: directory,
		redeemer:  redeemer,
		publisher: publisher,
		rules:     rules,
		logger:    logger,
		now:       time.Now,
	}
}

// ClientInfo carries the profile fields of a named client request.
type ClientInfo struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// CreateBookingInput describes a booking creation request.
type CreateBookingInput struct {
	View         models.ViewContext
	CenterID     int64
	LaneID       *int64 // explicit lane choice; nil lets the engine suggest one
	ServiceID    int64
	Start        time.Time
	Client       *ClientInfo // nil for walk-ins
	WalkIn       bool
	SaveAsClient bool // materialize a walk-in profile from Client info
	Notes        string
	VoucherCode  string
}

// CreateResult is the outcome of a successful creation. VoucherErr reports a
// redemption failure separately; it never rolls the booking back.
type CreateResult struct {
	Booking    *models.Booking
	VoucherErr error
}

// CreateBooking validates and persists a new booking with status pending and
// payment status pending.
func (e *Engine) CreateBooking(ctx context.Context, in CreateBookingInput) (*CreateResult, error) {
	svc, err := e.store.GetService(ctx, in.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}
	if svc == nil {
		return nil, errs.Validationf("service %d is unknown", in.ServiceID)
	}

	// Defense against stale-state submissions from an outdated view.
	if in.CenterID != in.View.CenterID {
		return nil, errs.Validationf("center %d does not match selected center %d", in.CenterID, in.View.CenterID)
	}

	if err := e.checkAdvanceWindow(in.Start); err != nil {
		return nil, err
	}

	lanes, bookings, blocks, services, err := e.loadDay(ctx, in.CenterID, in.Start)
	if err != nil {
		return nil, err
	}

	calc := occupancy.NewCalculator(lanes, bookings, blocks, services, e.logger)
	if agg := calc.Availability(in.View, in.Start); agg.IsFullyBooked {
		metrics.IncConflict(errs.KindCapacity)
		return nil, errs.Conflictf(errs.KindCapacity, "no lanes available at %s", in.Start.Format("15:04"))
	}

	clientID, err := e.resolveClient(ctx, in)
	if err != nil {
		return nil, err
	}

	lane, err := e.resolveLane(calc.Lanes(), in.LaneID, svc)
	if err != nil {
		return nil, err
	}

	start := in.Start
	duration := svc.DurationMinutes + SafetyMarginMinutes
	end := start.Add(time.Duration(duration) * time.Minute)

	if err := e.checkLaneFree(bookings, blocks, lane, start, end, 0); err != nil {
		return nil, err
	}

	var inheritedMethod, inheritedStatus string
	if clientID != nil {
		history, err := e.store.ClientBookings(ctx, *clientID)
		if err != nil {
			return nil, fmt.Errorf("load client bookings: %w", err)
		}
		if err := checkDoubleBooking(history, start, end, 0); err != nil {
			metrics.IncConflict(errs.KindDoubleBooking)
			return nil, err
		}
		inheritedMethod, inheritedStatus = inheritPaymentMethod(history)
	}

	booking := &models.Booking{
		CenterID:        in.CenterID,
		LaneID:          &lane.ID,
		ServiceID:       svc.ID,
		ClientID:        clientID,
		StartTime:       start,
		DurationMinutes: duration,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
		PriceCents:      svc.PriceCents,
		Notes:           in.Notes,
		PaymentMethod:   inheritedMethod,
		MethodStatus:    inheritedStatus,
	}

	if err := e.store.CreateBooking(ctx, booking); err != nil {
		return nil, errs.Externalf("create booking", err)
	}

	metrics.IncBookingCreated(booking.Status)
	e.notifyChanged(ctx)

	result := &CreateResult{Booking: booking}
	if in.VoucherCode != "" && e.redeemer != nil {
		if err := e.redeemer.Redeem(ctx, in.VoucherCode, booking.ID, booking.PriceCents); err != nil {
			e.logger.Warn().Err(err).Int64("booking_id", booking.ID).Msg("voucher redemption failed")
			result.VoucherErr = errs.Externalf("voucher redemption", err)
		}
	}
	return result, nil
}

// MoveBooking relocates a booking to a new center/lane/start, keeping its
// stored duration. A capacity or block conflict aborts with no mutation; a
// failed store write is surfaced as retryable so the caller can reload.
func (e *Engine) MoveBooking(ctx context.Context, view models.ViewContext, id int64, centerID, laneID int64, start time.Time) (*models.Booking, error) {
	booking, err := e.store.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if booking == nil {
		return nil, &errs.NotFound{Entity: "booking", ID: id}
	}

	lanes, bookings, blocks, _, err := e.loadDay(ctx, centerID, start)
	if err != nil {
		return nil, err
	}

	lane := findLane(lanes, laneID)
	if lane == nil {
		return nil, errs.Validationf("lane %d is not an active lane of center %d", laneID, centerID)
	}

	end := start.Add(time.Duration(booking.DurationMinutes) * time.Minute)
	if err := e.checkLaneFree(bookings, blocks, lane, start, end, booking.ID); err != nil {
		return nil, err
	}

	if booking.ClientID != nil {
		history, err := e.store.ClientBookings(ctx, *booking.ClientID)
		if err != nil {
			return nil, fmt.Errorf("load client bookings: %w", err)
		}
		if err := checkDoubleBooking(history, start, end, booking.ID); err != nil {
			metrics.IncConflict(errs.KindDoubleBooking)
			return nil, err
		}
	}

	moved := *booking
	moved.CenterID = centerID
	moved.LaneID = &lane.ID
	moved.StartTime = start

	if err := e.store.UpdateBooking(ctx, &moved); err != nil {
		return nil, errs.Externalf("update booking", err)
	}

	metrics.IncMoved(models.KindBooking)
	e.notifyChanged(ctx)
	return &moved, nil
}

// DeleteBooking removes the booking record unconditionally. Compensating
// notification is the caller's responsibility.
func (e *Engine) DeleteBooking(ctx context.Context, id int64) error {
	booking, err := e.store.GetBooking(ctx, id)
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if booking == nil {
		return &errs.NotFound{Entity: "booking", ID: id}
	}

	if err := e.store.DeleteBooking(ctx, id); err != nil {
		return errs.Externalf("delete booking", err)
	}
	e.notifyChanged(ctx)
	return nil
}

// resolveClient applies step 4 of the creation flow: named clients are
// upserted by email, walk-ins only materialize a profile when the caller
// opted in.
func (e *Engine) resolveClient(ctx context.Context, in CreateBookingInput) (*int64, error) {
	if in.WalkIn && !in.SaveAsClient {
		return nil, nil
	}
	if in.Client == nil {
		if in.WalkIn {
			return nil, errs.Validationf("save-as-client requires profile details")
		}
		return nil, errs.Validationf("client details are required for a named booking")
	}
	if in.Client.Email == "" {
		if in.WalkIn {
			// A walk-in profile without email cannot be deduplicated; create it as-is.
			c := &models.Client{FirstName: in.Client.FirstName, LastName: in.Client.LastName, Phone: in.Client.Phone}
			if err := e.directory.Create(ctx, c); err != nil {
				return nil, errs.Externalf("create client", err)
			}
			return &c.ID, nil
		}
		return nil, errs.Validationf("client email is required")
	}

	existing, err := e.directory.FindByEmail(ctx, in.Client.Email)
	if err != nil {
		return nil, errs.Externalf("find client", err)
	}
	if existing != nil {
		existing.FirstName = in.Client.FirstName
		existing.LastName = in.Client.LastName
		existing.Phone = in.Client.Phone
		if err := e.directory.Update(ctx, existing); err != nil {
			return nil, errs.Externalf("update client", err)
		}
		return &existing.ID, nil
	}

	c := &models.Client{
		FirstName: in.Client.FirstName,
		LastName:  in.Client.LastName,
		Email:     in.Client.Email,
		Phone:     in.Client.Phone,
	}
	if err := e.directory.Create(ctx, c); err != nil {
		return nil, errs.Externalf("create client", err)
	}
	return &c.ID, nil
}

// resolveLane picks the target lane. An explicit choice always wins, even
// against the lane's allowed-group set (warn only, see DESIGN.md); otherwise
// the treatment-group mapping suggests an index into the center's lanes.
func (e *Engine) resolveLane(lanes []models.Lane, explicit *int64, svc *models.Service) (*models.Lane, error) {
	if len(lanes) == 0 {
		return nil, errs.Validationf("center has no active lanes")
	}

	if explicit != nil {
		lane := findLane(lanes, *explicit)
		if lane == nil {
			return nil, errs.Validationf("lane %d is not an active lane of this center", *explicit)
		}
		if svc.GroupID != nil && !lane.AcceptsGroup(*svc.GroupID) {
			e.logger.Warn().
				Int64("lane_id", lane.ID).
				Int64("group_id", *svc.GroupID).
				Str("service", svc.Name).
				Msg("explicit lane choice violates allowed treatment groups")
		}
		return lane, nil
	}

	idx := assign.PreferredLaneIndex(svc.TreatmentGroup)
	if idx >= len(lanes) {
		idx = len(lanes) - 1
	}
	return &lanes[idx], nil
}

// checkLaneFree enforces block exclusivity and lane capacity over [start,
// end) for the lane, ignoring the booking identified by excludeID.
func (e *Engine) checkLaneFree(bookings []models.Booking, blocks []models.LaneBlock, lane *models.Lane, start, end time.Time, excludeID int64) error {
	for i := range blocks {
		if blocks[i].LaneID == lane.ID && blocks[i].Overlaps(start, end) {
			metrics.IncConflict(errs.KindBlocked)
			return errs.Conflictf(errs.KindBlocked, "lane %s is blocked %s–%s",
				lane.Name, blocks[i].StartTime.Format("15:04"), blocks[i].EndTime.Format("15:04"))
		}
	}

	capacity := lane.Capacity
	if capacity < 1 {
		capacity = 1
	}

	count := 0
	for i := range bookings {
		b := &bookings[i]
		if b.ID == excludeID || b.Status == models.StatusCancelled {
			continue
		}
		if b.LaneID != nil && *b.LaneID == lane.ID && b.Overlaps(start, end) {
			count++
		}
	}
	if count >= capacity {
		metrics.IncConflict(errs.KindCapacity)
		return errs.Conflictf(errs.KindCapacity, "lane %s already has %d overlapping booking(s)", lane.Name, count)
	}
	return nil
}

func (e *Engine) checkAdvanceWindow(start time.Time) error {
	now := e.now()
	if e.rules.MinAdvance > 0 && start.Before(now.Add(e.rules.MinAdvance)) {
		return errs.Validationf("booking must start at least %s from now", e.rules.MinAdvance)
	}
	if e.rules.MaxAdvance > 0 && start.After(now.Add(e.rules.MaxAdvance)) {
		return errs.Validationf("booking may start at most %s from now", e.rules.MaxAdvance)
	}
	return nil
}

func (e *Engine) loadDay(ctx context.Context, centerID int64, day time.Time) ([]models.Lane, []models.Booking, []models.LaneBlock, []models.Service, error) {
	lanes, err := e.store.ListLanes(ctx, centerID)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("list lanes: %w", err)
	}
	bookings, err := e.store.ListBookings(ctx, centerID, day)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("list bookings: %w", err)
	}
	blocks, err := e.store.ListBlocks(ctx, centerID, day)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("list blocks: %w", err)
	}
	services, err := e.store.ListServices(ctx)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("list services: %w", err)
	}
	return lanes, bookings, blocks, services, nil
}

func (e *Engine) notifyChanged(ctx context.Context) {
	if e.publisher != nil {
		e.publisher.BookingsChanged(ctx)
	}
}

// checkDoubleBooking rejects when the client's history contains another live
// booking whose interval overlaps [start, end).
func checkDoubleBooking(history []models.Booking, start, end time.Time, excludeID int64) error {
	for i := range history {
		b := &history[i]
		if b.ID == excludeID || b.Status == models.StatusCancelled {
			continue
		}
		if b.Overlaps(start, end) {
			return errs.Conflictf(errs.KindDoubleBooking, "client already has booking %d at %s", b.ID, b.StartTime.Format("15:04"))
		}
	}
	return nil
}

// inheritPaymentMethod returns the saved method of the client's most recent
// prior booking, but only when that method has been verified by a successful
// charge. History is ordered most recent first.
func inheritPaymentMethod(history []models.Booking) (method, status string) {
	for i := range history {
		if history[i].HasVerifiedMethod() {
			return history[i].PaymentMethod, history[i].MethodStatus
		}
	}
	return "", ""
}

func findLane(lanes []models.Lane, id int64) *models.Lane {
	for i := range lanes {
		if lanes[i].ID == id && lanes[i].IsActive {
			return &lanes[i]
		}
	}
	return nil
}
