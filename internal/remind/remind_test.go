package remind

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

type mockStore struct {
	mock.Mock
}

func (m *mockStore) UpcomingUnreminded(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockStore) MarkReminded(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) BookingReminder(ctx context.Context, b *models.Booking, clientName string) {
	m.Called(ctx, b, clientName)
}

func newTestService(store *mockStore, notifier *mockNotifier) *Service {
	logger := zerolog.New(io.Discard)
	s := New(store, notifier, 2*time.Hour, time.Minute, &logger)
	s.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestSweepSendsAndMarks(t *testing.T) {
	store := new(mockStore)
	notifier := new(mockNotifier)
	s := newTestService(store, notifier)
	ctx := context.Background()

	from := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	due := []models.Booking{
		{ID: 1, StartTime: from.Add(time.Hour)},
		{ID: 2, StartTime: from.Add(90 * time.Minute)},
	}

	store.On("UpcomingUnreminded", ctx, from, from.Add(2*time.Hour)).Return(due, nil)
	notifier.On("BookingReminder", ctx, mock.Anything, "").Twice()
	store.On("MarkReminded", ctx, int64(1)).Return(nil).Once()
	store.On("MarkReminded", ctx, int64(2)).Return(nil).Once()

	assert.Equal(t, 2, s.Sweep(ctx))
	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestSweepQueryFailure(t *testing.T) {
	store := new(mockStore)
	notifier := new(mockNotifier)
	s := newTestService(store, notifier)
	ctx := context.Background()

	store.On("UpcomingUnreminded", ctx, mock.Anything, mock.Anything).
		Return([]models.Booking{}, errors.New("db closed"))

	assert.Zero(t, s.Sweep(ctx))
	notifier.AssertNotCalled(t, "BookingReminder", mock.Anything, mock.Anything, mock.Anything)
}

func TestSweepMarkFailureStillCountsOthers(t *testing.T) {
	store := new(mockStore)
	notifier := new(mockNotifier)
	s := newTestService(store, notifier)
	ctx := context.Background()

	due := []models.Booking{{ID: 1}, {ID: 2}}
	store.On("UpcomingUnreminded", ctx, mock.Anything, mock.Anything).Return(due, nil)
	notifier.On("BookingReminder", ctx, mock.Anything, "").Twice()
	store.On("MarkReminded", ctx, int64(1)).Return(errors.New("locked"))
	store.On("MarkReminded", ctx, int64(2)).Return(nil)

	assert.Equal(t, 1, s.Sweep(ctx))
}
