package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labbook/internal/domain"
	"labbook/internal/models"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test", nil), mr
}

func TestRedisStore_Bookings(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	later := &models.Booking{ID: "b2", AssetID: "A001", UserID: "u1", Date: day, StartTime: "13:00", EndTime: "14:00", Purpose: "sweep"}
	earlier := &models.Booking{ID: "b1", AssetID: "A001", UserID: "u2", Date: day, StartTime: "09:00", EndTime: "10:00", Purpose: "calibration"}
	other := &models.Booking{ID: "b3", AssetID: "A002", UserID: "u1", Date: day.AddDate(0, 0, 1), StartTime: "09:00", EndTime: "10:00"}

	require.NoError(t, store.InsertBooking(ctx, later))
	require.NoError(t, store.InsertBooking(ctx, earlier))
	require.NoError(t, store.InsertBooking(ctx, other))

	got, err := store.ListBookings(ctx, "A001", day.Add(15*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b1", got[0].ID)
	assert.Equal(t, "b2", got[1].ID)
	assert.True(t, got[0].Date.Equal(day))

	none, err := store.ListBookings(ctx, "A001", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := store.ListAllBookings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"b1", "b2", "b3"}, []string{all[0].ID, all[1].ID, all[2].ID})

	// Stored as JSON text keyed by interval.
	raw := mr.HGet("test:bookings:A001:2026-03-09", "09:00-10:00")
	assert.Contains(t, raw, `"assetId":"A001"`)
	assert.Contains(t, raw, `"startTime":"09:00"`)
}

func TestRedisStore_DuplicateBooking(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	first := &models.Booking{ID: "b1", AssetID: "A001", Date: day, StartTime: "09:00", EndTime: "10:00"}
	again := &models.Booking{ID: "b2", AssetID: "A001", Date: day, StartTime: "09:00", EndTime: "10:00"}

	require.NoError(t, store.InsertBooking(ctx, first))
	assert.ErrorIs(t, store.InsertBooking(ctx, again), domain.ErrDuplicateBooking)

	got, err := store.ListBookings(ctx, "A001", day)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].ID)
}

func TestRedisStore_InsertBookingIndexFailure(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	b := &models.Booking{ID: "b1", AssetID: "A001", UserID: "u1", Date: day, StartTime: "09:00", EndTime: "10:00"}

	// A string under the index key makes SADD fail with WRONGTYPE.
	require.NoError(t, mr.Set("test:bookings:index", "broken"))

	err := store.InsertBooking(ctx, b)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDuplicateBooking)

	got, err := store.ListBookings(ctx, "A001", day)
	require.NoError(t, err)
	assert.Empty(t, got)

	mr.Del("test:bookings:index")
	require.NoError(t, store.InsertBooking(ctx, b))

	all, err := store.ListAllBookings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b1", all[0].ID)
}

func TestRedisStore_Assets(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()
	due := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.UpsertAsset(ctx, &models.Asset{ID: "A002", Name: "Spectrum Analyzer PRO-500", Available: true})
	require.NoError(t, err)
	saved, err := store.UpsertAsset(ctx, &models.Asset{
		ID:                 "A001",
		Name:               "Oscilloscope XYZ-2000",
		Type:               "Measurement",
		CalibrationStatus:  models.CalibrationCalibrated,
		NextCalibrationDue: &due,
		Location:           "Lab 1",
		Available:          true,
	})
	require.NoError(t, err)
	assert.Equal(t, "A001", saved.ID)

	assets, err := store.ListAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "A001", assets[0].ID)
	assert.Equal(t, "A002", assets[1].ID)

	require.NoError(t, store.SetAssetAvailability(ctx, "A001", false))
	got, err := store.GetAsset(ctx, "A001")
	require.NoError(t, err)
	assert.False(t, got.Available)
	assert.Equal(t, "Lab 1", got.Location)
	require.NotNil(t, got.NextCalibrationDue)
	assert.True(t, got.NextCalibrationDue.Equal(due))

	_, err = store.GetAsset(ctx, "A999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.SetAssetAvailability(ctx, "A999", false), domain.ErrNotFound)
}

func TestRedisStore_Unreachable(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))
	mr.Close()

	assert.Error(t, store.Ping(ctx))
	_, err := store.ListAssets(ctx)
	assert.Error(t, err)
	assert.False(t, domain.IsDomainError(err))
}
