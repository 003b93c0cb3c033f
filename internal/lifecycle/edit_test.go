package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"velora/internal/errs"
	"velora/internal/models"
)

func TestEditBookingToNoShowThenPenalty(t *testing.T) {
	store := new(mockRecorder)
	gw := new(mockGateway)
	svc := newTestService(store, gw, nil)
	ctx := context.Background()

	noShow := models.StatusNoShow
	store.On("UpdateBooking", ctx, mock.MatchedBy(func(got *models.Booking) bool {
		return got.Status == models.StatusNoShow && got.PaymentStatus == models.PaymentPending
	})).Return(nil).Once()

	marked, err := svc.EditBooking(ctx, chargeable(), Edit{Status: &noShow}, 0)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusNoShow, marked.Status)
	assert.Nil(t, marked.PaidAt)

	gw.On("Capture", ctx, mock.MatchedBy(func(req CaptureRequest) bool {
		return req.AmountCents == 4000
	})).Return(nil).Once()
	store.On("UpdateBooking", ctx, mock.MatchedBy(func(got *models.Booking) bool {
		return got.Status == models.StatusNoShow && got.PaymentStatus == models.PaymentPaid
	})).Return(nil).Once()

	settled, amount, err := svc.CaptureNoShowPenalty(ctx, *marked, 50, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(4000), amount)
	assert.Equal(t, models.StatusNoShow, settled.Status)
	gw.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestEditBookingPaymentLockedWithoutConfirmations(t *testing.T) {
	paid := models.PaymentPaid

	for _, confirms := range []int{0, 1} {
		store := new(mockRecorder)
		svc := newTestService(store, new(mockGateway), nil)

		_, err := svc.EditBooking(context.Background(), chargeable(), Edit{PaymentStatus: &paid}, confirms)
		assert.True(t, errs.IsValidation(err), "confirms=%d: got %v", confirms, err)
		store.AssertNotCalled(t, "UpdateBooking", mock.Anything, mock.Anything)
	}
}

func TestEditBookingManualPaymentAfterUnlock(t *testing.T) {
	store := new(mockRecorder)
	svc := newTestService(store, new(mockGateway), nil)
	ctx := context.Background()

	paid := models.PaymentPaid
	store.On("UpdateBooking", ctx, mock.MatchedBy(func(got *models.Booking) bool {
		return got.PaymentStatus == models.PaymentPaid && got.Status == models.StatusConfirmed && got.PaidAt != nil
	})).Return(nil).Once()

	updated, err := svc.EditBooking(ctx, chargeable(), Edit{PaymentStatus: &paid}, 2)
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, updated.PaymentStatus)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	store.AssertExpectations(t)
}

func TestEditBookingInvalidTransition(t *testing.T) {
	store := new(mockRecorder)
	svc := newTestService(store, new(mockGateway), nil)

	b := chargeable()
	b.Status = models.StatusCancelled
	confirmed := models.StatusConfirmed

	_, err := svc.EditBooking(context.Background(), b, Edit{Status: &confirmed}, 0)
	assert.True(t, errs.IsValidation(err))
	store.AssertNotCalled(t, "UpdateBooking", mock.Anything, mock.Anything)
}

func TestEditBookingPersistFailure(t *testing.T) {
	store := new(mockRecorder)
	svc := newTestService(store, new(mockGateway), nil)
	ctx := context.Background()

	cancelled := models.StatusCancelled
	store.On("UpdateBooking", ctx, mock.Anything).Return(assert.AnError).Once()

	_, err := svc.EditBooking(ctx, chargeable(), Edit{Status: &cancelled}, 0)
	assert.True(t, errs.IsRetryable(err))
}
