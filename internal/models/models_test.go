package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	at := func(m int) time.Time { return base.Add(time.Duration(m) * time.Minute) }

	tests := []struct {
		name     string
		aStart   time.Time
		aEnd     time.Time
		bStart   time.Time
		bEnd     time.Time
		expected bool
	}{
		{"identical", at(0), at(60), at(0), at(60), true},
		{"contained", at(0), at(60), at(15), at(30), true},
		{"partial front", at(0), at(60), at(-30), at(30), true},
		{"partial back", at(0), at(60), at(30), at(90), true},
		{"touching end is free", at(0), at(60), at(60), at(90), false},
		{"touching start is free", at(60), at(90), at(0), at(60), false},
		{"disjoint", at(0), at(30), at(90), at(120), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
		})
	}
}

func TestBookingEndTime(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	b := &Booking{StartTime: start, DurationMinutes: 65}

	assert.Equal(t, start.Add(65*time.Minute), b.EndTime())
	assert.True(t, b.Overlaps(start.Add(30*time.Minute), start.Add(90*time.Minute)))
	assert.False(t, b.Overlaps(start.Add(65*time.Minute), start.Add(90*time.Minute)))
}

func TestLaneAcceptsGroup(t *testing.T) {
	open := &Lane{ID: 1}
	restricted := &Lane{ID: 2, AllowedGroups: []int64{3, 7}}

	assert.True(t, open.AcceptsGroup(42))
	assert.True(t, restricted.AcceptsGroup(7))
	assert.False(t, restricted.AcceptsGroup(42))
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, ValidStatus(StatusNoShow))
	assert.False(t, ValidStatus("archived"))
	assert.True(t, ValidPaymentStatus(PaymentPartialRefund))
	assert.False(t, ValidPaymentStatus("chargeback"))

	assert.True(t, IsTerminalStatus(StatusCancelled))
	assert.True(t, IsTerminalStatus(StatusNoShow))
	assert.False(t, IsTerminalStatus(StatusConfirmed))
}

func TestHasVerifiedMethod(t *testing.T) {
	b := &Booking{PaymentMethod: "pm_81f3", MethodStatus: MethodSucceeded}
	assert.True(t, b.HasVerifiedMethod())

	b.MethodStatus = "requires_action"
	assert.False(t, b.HasVerifiedMethod())

	b = &Booking{MethodStatus: MethodSucceeded}
	assert.False(t, b.HasVerifiedMethod())
}
