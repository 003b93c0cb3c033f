package models

import "time"

// Booking status values. Cancelled, completed and no-show are terminal;
// re-opening a terminal booking is handled outside the scheduling core.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRequested = "requested"
	StatusNew       = "new"
	StatusOnline    = "online"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// Payment status values.
const (
	PaymentPending       = "pending"
	PaymentPaid          = "paid"
	PaymentFailed        = "failed"
	PaymentRefunded      = "refunded"
	PaymentPartialRefund = "partial_refund"
)

// MethodSucceeded marks a saved payment method that has been verified by a
// successful charge. Only such methods may be inherited by new bookings.
const MethodSucceeded = "succeeded"

// ValidStatus reports whether s is a known booking status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRequested, StatusNew,
		StatusOnline, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded, PaymentPartialRefund:
		return true
	}
	return false
}

// IsTerminalStatus reports whether a booking in status s can still change.
func IsTerminalStatus(s string) bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Center is a physical location that owns a set of lanes.
type Center struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Lane is a bookable room or station at a center. Capacity is the number of
// simultaneous bookings the lane tolerates; AllowedGroups restricts which
// treatment groups the lane is suggested for (empty = accepts any).
type Lane struct {
	ID            int64   `json:"id"`
	CenterID      int64   `json:"center_id"`
	Name          string  `json:"name"`
	Capacity      int     `json:"capacity"`
	AllowedGroups []int64 `json:"allowed_groups,omitempty"`
	Position      int     `json:"position"`
	IsActive      bool    `json:"is_active"`
}

// AcceptsGroup reports whether the lane's configured group set admits the
// given treatment group. An empty set accepts anything.
func (l *Lane) AcceptsGroup(groupID int64) bool {
	if len(l.AllowedGroups) == 0 {
		return true
	}
	for _, g := range l.AllowedGroups {
		if g == groupID {
			return true
		}
	}
	return false
}

// Service is reference data describing a bookable treatment.
type Service struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	TreatmentGroup  string `json:"treatment_group,omitempty"`
	GroupID         *int64 `json:"group_id,omitempty"`
	IsActive        bool   `json:"is_active"`
}

// Client is a CRM profile referenced by bookings. Walk-in bookings carry no
// client reference at all.
type Client struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Booking is an appointment occupying a lane for a time range.
type Booking struct {
	ID              int64      `json:"id"`
	CenterID        int64      `json:"center_id"`
	LaneID          *int64     `json:"lane_id,omitempty"` // nil for legacy untagged bookings
	ServiceID       int64      `json:"service_id"`
	ClientID        *int64     `json:"client_id,omitempty"` // nil for walk-ins
	StartTime       time.Time  `json:"start_time"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          string     `json:"status"`
	PaymentStatus   string     `json:"payment_status"`
	PriceCents      int64      `json:"price_cents"`
	Notes           string     `json:"notes,omitempty"`
	PaymentMethod   string     `json:"payment_method,omitempty"` // saved gateway method reference
	MethodStatus    string     `json:"method_status,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	ReminderSent    bool       `json:"reminder_sent"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Version         int64      `json:"version"`
}

// EndTime returns the exclusive end of the booking interval.
func (b *Booking) EndTime() time.Time {
	return b.StartTime.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Overlaps reports whether the booking interval intersects [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return Overlaps(b.StartTime, b.EndTime(), start, end)
}

// HasVerifiedMethod reports whether the booking carries a saved payment
// method that has already been verified by a successful charge.
func (b *Booking) HasVerifiedMethod() bool {
	return b.PaymentMethod != "" && b.MethodStatus == MethodSucceeded
}

// LaneBlock is an administrative closure of a lane for a time range. Blocks
// and bookings are mutually exclusive occupants of a lane.
type LaneBlock struct {
	ID        int64     `json:"id"`
	CenterID  int64     `json:"center_id"`
	LaneID    int64     `json:"lane_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Reason    string    `json:"reason"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Overlaps reports whether the block interval intersects [start, end).
func (b *LaneBlock) Overlaps(start, end time.Time) bool {
	return Overlaps(b.StartTime, b.EndTime, start, end)
}

// Occupancy kinds.
const (
	KindBooking = "booking"
	KindBlock   = "block"
)

// OccupancyInterval is the ephemeral projection of a booking or block onto a
// lane timeline. Never persisted; rebuilt from the record sets.
type OccupancyInterval struct {
	LaneID int64     `json:"lane_id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Kind   string    `json:"kind"`
	RefID  int64     `json:"ref_id"`
}

// Contains reports whether instant falls inside the half-open interval.
func (o *OccupancyInterval) Contains(instant time.Time) bool {
	return !instant.Before(o.Start) && instant.Before(o.End)
}

// Interaction modes for the calendar view.
const (
	ModeBooking  = "booking"
	ModeBlocking = "blocking"
)

// ViewContext identifies what an operator session is currently looking at.
// Threaded explicitly into every availability and scheduling call.
type ViewContext struct {
	CenterID int64     `json:"center_id"`
	Date     time.Time `json:"date"`
	Mode     string    `json:"mode"`
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
