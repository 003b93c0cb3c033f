package clients

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velora/internal/models"
	"velora/internal/store"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zerolog.New(io.Discard)
	return New(db, &logger)
}

func TestDirectoryRoundTrip(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	c := &models.Client{FirstName: "Ana", LastName: "Lopes", Email: "ana@example.com", Phone: "+351 900 000 000"}
	require.NoError(t, d.Create(ctx, c))
	assert.NotZero(t, c.ID)

	got, err := d.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, "Lopes", got.LastName)

	got.Phone = "+351 911 111 111"
	require.NoError(t, d.Update(ctx, got))
	again, err := d.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "+351 911 111 111", again.Phone)
}

func TestFindByEmailUnknown(t *testing.T) {
	d := newTestDirectory(t)
	got, err := d.FindByEmail(context.Background(), "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateWithoutEmail(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	// Walk-in profiles without email must not collide on the unique index.
	a := &models.Client{FirstName: "Walk"}
	b := &models.Client{FirstName: "In"}
	require.NoError(t, d.Create(ctx, a))
	require.NoError(t, d.Create(ctx, b))
	assert.NotEqual(t, a.ID, b.ID)
}
