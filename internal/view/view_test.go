package view

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"velora/internal/models"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) ListBookings(ctx context.Context, centerID int64, day time.Time) ([]models.Booking, error) {
	args := m.Called(ctx, centerID, day)
	return args.Get(0).([]models.Booking), args.Error(1)
}
func (m *mockSource) ListBlocks(ctx context.Context, centerID int64, day time.Time) ([]models.LaneBlock, error) {
	args := m.Called(ctx, centerID, day)
	return args.Get(0).([]models.LaneBlock), args.Error(1)
}
func (m *mockSource) ListLanes(ctx context.Context, centerID int64) ([]models.Lane, error) {
	args := m.Called(ctx, centerID)
	return args.Get(0).([]models.Lane), args.Error(1)
}
func (m *mockSource) ListServices(ctx context.Context) ([]models.Service, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Service), args.Error(1)
}

type mockScheduler struct {
	mock.Mock
}

func (m *mockScheduler) MoveBooking(ctx context.Context, view models.ViewContext, id int64, centerID, laneID int64, start time.Time) (*models.Booking, error) {
	args := m.Called(ctx, view, id, centerID, laneID, start)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockScheduler) MoveBlock(ctx context.Context, view models.ViewContext, id int64, centerID, laneID int64, start time.Time) (*models.LaneBlock, error) {
	args := m.Called(ctx, view, id, centerID, laneID, start)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LaneBlock), args.Error(1)
}

var (
	day  = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	vctx = models.ViewContext{CenterID: 1, Date: day, Mode: models.ModeBooking}
)

func at(hour, min int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func lanePtr(id int64) *int64 { return &id }

func loadedView(t *testing.T, source *mockSource, scheduler *mockScheduler, bookings []models.Booking) *View {
	t.Helper()
	logger := zerolog.New(io.Discard)

	source.On("ListBookings", mock.Anything, int64(1), mock.Anything).Return(bookings, nil)
	source.On("ListBlocks", mock.Anything, int64(1), mock.Anything).Return([]models.LaneBlock{}, nil)
	source.On("ListLanes", mock.Anything, int64(1)).Return([]models.Lane{
		{ID: 11, CenterID: 1, Capacity: 1, IsActive: true},
		{ID: 12, CenterID: 1, Capacity: 1, Position: 1, IsActive: true},
	}, nil)
	source.On("ListServices", mock.Anything).Return([]models.Service{}, nil)

	v := New(source, scheduler, vctx, &logger)
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return v
}

func TestLoadBuildsIndex(t *testing.T) {
	source := new(mockSource)
	booking := models.Booking{ID: 5, CenterID: 1, LaneID: lanePtr(11), StartTime: at(10, 0), DurationMinutes: 60, Status: models.StatusConfirmed}
	v := loadedView(t, source, new(mockScheduler), []models.Booking{booking})

	assert.Len(t, v.Bookings(), 1)
	assert.True(t, v.Index().IsOccupied(11, at(10, 30)))
	assert.False(t, v.Index().IsOccupied(12, at(10, 30)))
}

func TestMoveBookingCommitClearsPending(t *testing.T) {
	source := new(mockSource)
	scheduler := new(mockScheduler)
	booking := models.Booking{ID: 5, CenterID: 1, LaneID: lanePtr(11), StartTime: at(10, 0), DurationMinutes: 60, Status: models.StatusConfirmed}
	v := loadedView(t, source, scheduler, []models.Booking{booking})

	moved := booking
	moved.LaneID = lanePtr(12)
	moved.StartTime = at(15, 0)

	scheduler.On("MoveBooking", mock.Anything, vctx, int64(5), int64(1), int64(12), at(15, 0)).
		Run(func(args mock.Arguments) {
			// While the write is in flight the projection is already visible
			// under a pending marker.
			assert.True(t, v.HasPending(5))
			assert.True(t, v.Index().IsOccupied(12, at(15, 30)))
		}).
		Return(&moved, nil).Once()

	err := v.MoveBooking(context.Background(), 5, 1, 12, at(15, 0))
	assert.NoError(t, err)
	assert.False(t, v.HasPending(5))
	assert.True(t, v.Index().IsOccupied(12, at(15, 30)))
	assert.False(t, v.Index().IsOccupied(11, at(10, 30)))
	scheduler.AssertExpectations(t)
}

func TestMoveBookingFailureDiscardsAndReloads(t *testing.T) {
	source := new(mockSource)
	scheduler := new(mockScheduler)
	booking := models.Booking{ID: 5, CenterID: 1, LaneID: lanePtr(11), StartTime: at(10, 0), DurationMinutes: 60, Status: models.StatusConfirmed}
	v := loadedView(t, source, scheduler, []models.Booking{booking})

	scheduler.On("MoveBooking", mock.Anything, vctx, int64(5), int64(1), int64(12), at(15, 0)).
		Return(nil, errors.New("destination occupied"))

	err := v.MoveBooking(context.Background(), 5, 1, 12, at(15, 0))
	assert.Error(t, err)
	assert.False(t, v.HasPending(5))

	// The projection is gone and the authoritative position is back.
	assert.True(t, v.Index().IsOccupied(11, at(10, 30)))
	assert.False(t, v.Index().IsOccupied(12, at(15, 30)))

	// Initial load plus the forced reload.
	source.AssertNumberOfCalls(t, "ListBookings", 2)
}

func TestMoveBookingUnknownRecordReloads(t *testing.T) {
	source := new(mockSource)
	scheduler := new(mockScheduler)
	v := loadedView(t, source, scheduler, []models.Booking{})

	err := v.MoveBooking(context.Background(), 99, 1, 12, at(15, 0))
	assert.Error(t, err)
	scheduler.AssertNotCalled(t, "MoveBooking", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	source.AssertNumberOfCalls(t, "ListBookings", 2)
}

func TestMoveBlockProjectsDuration(t *testing.T) {
	source := new(mockSource)
	scheduler := new(mockScheduler)
	logger := zerolog.New(io.Discard)

	block := models.LaneBlock{ID: 3, CenterID: 1, LaneID: 11, StartTime: at(12, 0), EndTime: at(14, 0)}
	source.On("ListBookings", mock.Anything, int64(1), mock.Anything).Return([]models.Booking{}, nil)
	source.On("ListBlocks", mock.Anything, int64(1), mock.Anything).Return([]models.LaneBlock{block}, nil)
	source.On("ListLanes", mock.Anything, int64(1)).Return([]models.Lane{{ID: 11, CenterID: 1, Capacity: 1, IsActive: true}}, nil)
	source.On("ListServices", mock.Anything).Return([]models.Service{}, nil)

	v := New(source, scheduler, vctx, &logger)
	assert.NoError(t, v.Load(context.Background()))

	moved := block
	moved.StartTime = at(16, 0)
	moved.EndTime = at(18, 0)
	scheduler.On("MoveBlock", mock.Anything, vctx, int64(3), int64(1), int64(11), at(16, 0)).
		Run(func(args mock.Arguments) {
			assert.True(t, v.Index().IsOccupied(11, at(17, 0)), "projected block must cover the new range")
		}).
		Return(&moved, nil).Once()

	assert.NoError(t, v.MoveBlock(context.Background(), 3, 1, 11, at(16, 0)))
	assert.True(t, v.Index().IsOccupied(11, at(17, 0)))
	assert.False(t, v.Index().IsOccupied(11, at(13, 0)))
}

func TestOnChangeRefreshesInBackground(t *testing.T) {
	source := new(mockSource)
	logger := zerolog.New(io.Discard)

	refreshed := make(chan struct{}, 2)
	source.On("ListBookings", mock.Anything, int64(1), mock.Anything).Return([]models.Booking{}, nil)
	source.On("ListBlocks", mock.Anything, int64(1), mock.Anything).Return([]models.LaneBlock{}, nil)
	source.On("ListLanes", mock.Anything, int64(1)).Return([]models.Lane{}, nil)
	source.On("ListServices", mock.Anything).Return([]models.Service{}, nil).Run(func(mock.Arguments) {
		refreshed <- struct{}{}
	})

	v := New(source, new(mockScheduler), vctx, &logger)
	assert.NoError(t, v.Load(context.Background()))
	<-refreshed // drain the initial load

	v.OnChange(context.Background())

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("change notification did not trigger a refetch")
	}
}
