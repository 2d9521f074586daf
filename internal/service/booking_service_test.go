package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"labbook/internal/database"
	"labbook/internal/domain"
	"labbook/internal/events"
	"labbook/internal/models"
	"labbook/internal/timerange"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListBookings(ctx context.Context, assetID string, date time.Time) ([]models.Booking, error) {
	args := m.Called(ctx, assetID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockStore) ListAllBookings(ctx context.Context) ([]models.Booking, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockStore) InsertBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockStore) ListAssets(ctx context.Context) ([]models.Asset, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Asset), args.Error(1)
}

func (m *mockStore) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Asset), args.Error(1)
}

func (m *mockStore) UpsertAsset(ctx context.Context, a *models.Asset) (*models.Asset, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Asset), args.Error(1)
}

func (m *mockStore) SetAssetAvailability(ctx context.Context, id string, available bool) error {
	return m.Called(ctx, id, available).Error(0)
}

func (m *mockStore) Ping(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockStore) Close() error                   { return m.Called().Error(0) }

func newTestService(store domain.BookingStore, bus *events.EventBus) *BookingService {
	logger := zerolog.New(io.Discard)
	svc := NewBookingService(store, bus, Options{Location: time.UTC, CalendarWorkers: 2}, &logger)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestSaveBooking(t *testing.T) {
	ctx := context.Background()
	lab := time.FixedZone("lab", 3*60*60)

	t.Run("AssignsIDAndMarksAssetUnavailable", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		b := &models.Booking{
			AssetID:   "A001",
			UserID:    "u1",
			Date:      time.Date(2026, 3, 9, 0, 0, 0, 0, lab),
			StartTime: "09:00",
			EndTime:   "10:00",
		}
		store.On("InsertBooking", ctx, b).Return(nil).Once()
		store.On("SetAssetAvailability", ctx, "A001", false).Return(nil).Once()

		require.NoError(t, svc.SaveBooking(ctx, b))
		assert.NotEmpty(t, b.ID)
		assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), b.CreatedAt)
		assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), b.Date)
		store.AssertExpectations(t)
	})

	t.Run("KeepsProvidedID", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		b := &models.Booking{ID: "fixed", AssetID: "A002", StartTime: "09:00", EndTime: "10:00"}
		store.On("InsertBooking", ctx, b).Return(nil).Once()
		store.On("SetAssetAvailability", ctx, "A002", false).Return(nil).Once()

		require.NoError(t, svc.SaveBooking(ctx, b))
		assert.Equal(t, "fixed", b.ID)
	})

	t.Run("InsertFailureIsWriteFailed", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		b := &models.Booking{AssetID: "A001", StartTime: "09:00", EndTime: "10:00"}
		store.On("InsertBooking", ctx, b).Return(errors.New("disk full")).Once()

		err := svc.SaveBooking(ctx, b)
		assert.ErrorIs(t, err, domain.ErrWriteFailed)
		store.AssertNotCalled(t, "SetAssetAvailability", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("DuplicateIsWriteFailed", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		b := &models.Booking{AssetID: "A001", StartTime: "09:00", EndTime: "10:00"}
		store.On("InsertBooking", ctx, b).Return(domain.ErrDuplicateBooking).Once()

		err := svc.SaveBooking(ctx, b)
		assert.ErrorIs(t, err, domain.ErrWriteFailed)
		assert.ErrorIs(t, err, domain.ErrDuplicateBooking)
	})

	t.Run("FlagFailureDoesNotUndoBooking", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		b := &models.Booking{AssetID: "A404", StartTime: "09:00", EndTime: "10:00"}
		store.On("InsertBooking", ctx, b).Return(nil).Once()
		store.On("SetAssetAvailability", ctx, "A404", false).Return(domain.ErrNotFound).Once()

		assert.NoError(t, svc.SaveBooking(ctx, b))
		store.AssertExpectations(t)
	})

	t.Run("PublishesEvent", func(t *testing.T) {
		store := new(mockStore)
		bus := events.NewEventBus()
		svc := newTestService(store, bus)

		var published []models.Booking
		bus.Subscribe(events.TypeBookingCreated, func(e events.Event) error {
			b, err := events.DecodeBooking(e)
			published = append(published, b)
			return err
		})

		b := &models.Booking{AssetID: "A001", StartTime: "09:00", EndTime: "10:00"}
		store.On("InsertBooking", ctx, b).Return(nil).Once()
		store.On("SetAssetAvailability", ctx, "A001", false).Return(nil).Once()

		require.NoError(t, svc.SaveBooking(ctx, b))
		require.Len(t, published, 1)
		assert.Equal(t, b.ID, published[0].ID)
	})
}

func TestBook(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	existing := []models.Booking{{AssetID: "A001", Date: day, StartTime: "09:00", EndTime: "10:00"}}

	t.Run("Conflict", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("ListBookings", ctx, "A001", day).Return(existing, nil).Once()

		err := svc.Book(ctx, &models.Booking{AssetID: "A001", Date: day, StartTime: "09:30", EndTime: "10:00"})
		assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
		store.AssertNotCalled(t, "InsertBooking", mock.Anything, mock.Anything)
	})

	t.Run("Unknown", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("ListBookings", ctx, "A001", day).Return(nil, domain.ErrStoreUnavailable).Once()

		err := svc.Book(ctx, &models.Booking{AssetID: "A001", Date: day, StartTime: "09:30", EndTime: "10:00"})
		assert.ErrorIs(t, err, domain.ErrAvailabilityUnknown)
		store.AssertNotCalled(t, "InsertBooking", mock.Anything, mock.Anything)
	})

	t.Run("InvalidRange", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)

		err := svc.Book(ctx, &models.Booking{AssetID: "A001", Date: day, StartTime: "10:00", EndTime: "10:00"})
		assert.ErrorIs(t, err, timerange.ErrEmptyRange)
	})

	t.Run("Free", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("ListBookings", ctx, "A001", day).Return(existing, nil).Once()
		store.On("InsertBooking", ctx, mock.AnythingOfType("*models.Booking")).Return(nil).Once()
		store.On("SetAssetAvailability", ctx, "A001", false).Return(nil).Once()

		b := &models.Booking{AssetID: "A001", Date: day, StartTime: "10:00", EndTime: "10:30"}
		require.NoError(t, svc.Book(ctx, b))
		assert.NotEmpty(t, b.ID)
		store.AssertExpectations(t)
	})
}

func TestReadPathsDegradeToEmpty(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	svc := newTestService(store, nil)

	store.On("ListAssets", ctx).Return(nil, domain.ErrStoreUnavailable).Once()
	store.On("ListAllBookings", ctx).Return(nil, domain.ErrStoreUnavailable).Once()

	assert.Empty(t, svc.GetAssets(ctx))
	assert.Empty(t, svc.GetBookings(ctx))
}

func TestSaveAsset_PropagatesFailure(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	svc := newTestService(store, nil)

	a := &models.Asset{ID: "A009"}
	store.On("UpsertAsset", ctx, a).Return(nil, domain.ErrStoreUnavailable).Once()

	_, err := svc.SaveAsset(ctx, a)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestAssetStatusAt(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	booked := []models.Booking{{ID: "b1", AssetID: "A001", Date: day, StartTime: "09:00", EndTime: "10:00"}}
	asset := &models.Asset{ID: "A001", Available: false}

	tests := []struct {
		name    string
		now     time.Time
		list    []models.Booking
		listErr error
		want    models.Availability
		current bool
	}{
		{"inside booking", day.Add(9*time.Hour + 15*time.Minute), booked, nil, models.Unavailable, true},
		{"at booking end", day.Add(10 * time.Hour), booked, nil, models.Available, false},
		{"store down", day.Add(9 * time.Hour), nil, errors.New("timeout"), models.Unknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockStore)
			svc := newTestService(store, nil)
			store.On("GetAsset", ctx, "A001").Return(asset, nil).Once()
			store.On("ListBookings", ctx, "A001", tt.now).Return(tt.list, tt.listErr).Once()

			got, err := svc.AssetStatusAt(ctx, "A001", tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.current, got.Current != nil)
			assert.False(t, got.Flag)
		})
	}

	t.Run("unknown asset", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("GetAsset", ctx, "A404").Return(nil, domain.ErrNotFound).Once()

		_, err := svc.AssetStatusAt(ctx, "A404", day)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestEnsureDefaultAssets(t *testing.T) {
	ctx := context.Background()

	t.Run("SeedsEmptyStore", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("ListAssets", ctx).Return([]models.Asset{}, nil).Once()
		store.On("UpsertAsset", ctx, mock.AnythingOfType("*models.Asset")).Return(&models.Asset{}, nil).Times(5)

		n, err := svc.EnsureDefaultAssets(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		store.AssertExpectations(t)
	})

	t.Run("LeavesExistingInventory", func(t *testing.T) {
		store := new(mockStore)
		svc := newTestService(store, nil)
		store.On("ListAssets", ctx).Return([]models.Asset{{ID: "X1"}}, nil).Once()

		n, err := svc.EnsureDefaultAssets(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		store.AssertNotCalled(t, "UpsertAsset", mock.Anything, mock.Anything)
	})
}

func TestDefaultAssets(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	assets := DefaultAssets(now)
	require.Len(t, assets, 5)

	ids := make([]string, len(assets))
	for i, a := range assets {
		ids[i] = a.ID
		assert.True(t, a.CalibrationStatus.Valid(), a.ID)
	}
	assert.Equal(t, []string{"A001", "A002", "A003", "A004", "A005"}, ids)

	assert.False(t, assets[2].Available)
	assert.Equal(t, now.AddDate(0, 0, -10), *assets[3].NextCalibrationDue)
	assert.Nil(t, assets[4].LastCalibrated)
}

// End-to-end against the embedded store.
func TestBookingFlow_SQLite(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	store, err := database.NewSQLiteStore(filepath.Join(t.TempDir(), "labbook.db"), &logger)
	require.NoError(t, err)
	defer store.Close()

	svc := newTestService(store, nil)
	n, err := svc.EnsureDefaultAssets(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	status, err := svc.CheckAvailability(ctx, "A001", day, "09:00", "09:30")
	require.NoError(t, err)
	assert.Equal(t, models.Available, status)

	require.NoError(t, svc.Book(ctx, &models.Booking{AssetID: "A001", UserID: "u1", Date: day, StartTime: "09:00", EndTime: "10:00", Purpose: "jitter measurement"}))

	asset, err := svc.GetAsset(ctx, "A001")
	require.NoError(t, err)
	assert.False(t, asset.Available)

	status, err = svc.CheckAvailability(ctx, "A001", day, "09:30", "10:00")
	require.NoError(t, err)
	assert.Equal(t, models.Unavailable, status)

	status, err = svc.CheckAvailability(ctx, "A001", day, "10:00", "10:30")
	require.NoError(t, err)
	assert.Equal(t, models.Available, status)

	err = svc.Book(ctx, &models.Booking{AssetID: "A001", UserID: "u2", Date: day, StartTime: "09:15", EndTime: "09:45"})
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)

	// Identical interval written directly is rejected by the store.
	err = svc.SaveBooking(ctx, &models.Booking{AssetID: "A001", UserID: "u3", Date: day, StartTime: "09:00", EndTime: "10:00"})
	assert.ErrorIs(t, err, domain.ErrDuplicateBooking)

	slots, err := svc.TimeSlots(ctx, "A001", day)
	require.NoError(t, err)
	require.Len(t, slots, timerange.SlotsPerDay)
	assert.False(t, slots[2].Available)
	assert.False(t, slots[3].Available)
	assert.True(t, slots[4].Available)

	days, err := svc.Calendar(ctx, "A001", day)
	require.NoError(t, err)
	require.Len(t, days, 14)
	assert.Equal(t, day, days[0].Date)
	assert.Equal(t, day.AddDate(0, 0, 13), days[13].Date)

	assert.Len(t, svc.GetBookings(ctx), 1)
}
