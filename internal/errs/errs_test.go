package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaxonomy(t *testing.T) {
	v := Validationf("service is required")
	c := Conflictf(KindCapacity, "lane 3 is full")
	n := &NotFound{Entity: "booking", ID: 42}
	x := Externalf("payment capture", errors.New("gateway timeout"))

	assert.True(t, IsValidation(v))
	assert.False(t, IsValidation(c))

	assert.True(t, IsConflict(c, KindCapacity))
	assert.True(t, IsConflict(c, ""))
	assert.False(t, IsConflict(c, KindBlocked))
	assert.False(t, IsConflict(v, KindCapacity))

	assert.True(t, IsNotFound(n))
	assert.False(t, IsNotFound(x))

	assert.True(t, IsRetryable(x))
	assert.False(t, IsRetryable(c))
}

func TestWrappedErrorsSurvive(t *testing.T) {
	inner := Conflictf(KindDoubleBooking, "client 7 already booked")
	wrapped := fmt.Errorf("create booking: %w", inner)

	assert.True(t, IsConflict(wrapped, KindDoubleBooking))

	ext := fmt.Errorf("move: %w", Externalf("update booking", errors.New("disk full")))
	assert.True(t, IsRetryable(ext))
	assert.ErrorContains(t, ext, "disk full")
}
