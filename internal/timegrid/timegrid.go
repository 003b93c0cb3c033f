// Package timegrid produces the discrete schedulable time slots for a
// business day. It is a pure function of (date, window, granularity) and
// carries no state.
package timegrid

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Default calendar parameters: 5-minute granularity over the 10:00–22:00
// opening window, inclusive of the closing boundary slot.
const (
	DefaultGranularityMinutes = 5
	DefaultOpenTime           = "10:00"
	DefaultCloseTime          = "22:00"
)

// Window describes the opening hours of a business day.
type Window struct {
	Open  string // "10:00"
	Close string // "22:00"
}

// DefaultWindow returns the standard salon opening window.
func DefaultWindow() Window {
	return Window{Open: DefaultOpenTime, Close: DefaultCloseTime}
}

// Grid generates slot sequences for calendar dates.
type Grid struct {
	window      Window
	granularity time.Duration
}

// New creates a grid with the given window and granularity in minutes.
// Non-positive granularity falls back to the default.
func New(window Window, granularityMinutes int) *Grid {
	if granularityMinutes <= 0 {
		granularityMinutes = DefaultGranularityMinutes
	}
	return &Grid{
		window:      window,
		granularity: time.Duration(granularityMinutes) * time.Minute,
	}
}

// Default returns a grid with the standard window and granularity.
func Default() *Grid {
	return New(DefaultWindow(), DefaultGranularityMinutes)
}

// Slots returns the ordered slot timestamps for the given calendar date,
// including the closing boundary slot. A window whose open time is after its
// close time yields an empty sequence.
func (g *Grid) Slots(date time.Time) ([]time.Time, error) {
	open, err := parseTimeOnDate(date, g.window.Open)
	if err != nil {
		return nil, fmt.Errorf("parse open time: %w", err)
	}

	close, err := parseTimeOnDate(date, g.window.Close)
	if err != nil {
		return nil, fmt.Errorf("parse close time: %w", err)
	}

	if open.After(close) {
		return nil, nil
	}

	var slots []time.Time
	for cursor := open; !cursor.After(close); cursor = cursor.Add(g.granularity) {
		slots = append(slots, cursor)
	}
	return slots, nil
}

// Contains reports whether instant lands exactly on a grid slot for its date.
func (g *Grid) Contains(instant time.Time) bool {
	slots, err := g.Slots(instant)
	if err != nil {
		return false
	}
	for _, s := range slots {
		if s.Equal(instant) {
			return true
		}
	}
	return false
}

// Snap rounds instant down to the nearest grid slot boundary.
func (g *Grid) Snap(instant time.Time) time.Time {
	day := time.Date(instant.Year(), instant.Month(), instant.Day(), 0, 0, 0, 0, instant.Location())
	offset := instant.Sub(day)
	return day.Add(offset - offset%g.granularity)
}

// Granularity returns the slot width.
func (g *Grid) Granularity() time.Duration {
	return g.granularity
}

func parseTimeOnDate(date time.Time, timeStr string) (time.Time, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid time format: %s", timeStr)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hour: %w", err)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid minute: %w", err)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location()), nil
}
