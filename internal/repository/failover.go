package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"labbook/internal/domain"
	"labbook/internal/metrics"
	"labbook/internal/models"
)

// DefaultRecoveryInterval is how long the primary stays bypassed after a failure.
const DefaultRecoveryInterval = time.Minute

// FailoverStore serves every operation from the primary store and retries
// once on the fallback when the primary fails. After a failure the primary is
// skipped until the recovery interval has elapsed, then probed again.
type FailoverStore struct {
	primary  domain.BookingStore
	fallback domain.BookingStore
	logger   *zerolog.Logger

	recovery  time.Duration
	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

// NewFailoverStore wraps primary and fallback. fallback may be nil, in which
// case primary errors are returned as domain.ErrStoreUnavailable.
func NewFailoverStore(primary, fallback domain.BookingStore, recovery time.Duration, logger *zerolog.Logger) *FailoverStore {
	if recovery <= 0 {
		recovery = DefaultRecoveryInterval
	}
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		recovery: recovery,
	}
}

// PrimaryDown reports whether the primary is currently bypassed.
func (f *FailoverStore) PrimaryDown() bool {
	return f.isDown.Load()
}

// usePrimary decides whether this call goes to the primary. While the
// primary is down, one call per recovery interval is let through as a probe.
func (f *FailoverStore) usePrimary() bool {
	if f.fallback == nil || !f.isDown.Load() {
		return true
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if time.Since(f.lastCheck) >= f.recovery {
		f.lastCheck = time.Now()
		return true
	}
	return false
}

func (f *FailoverStore) markDown(op string, err error) {
	f.mu.Lock()
	f.lastCheck = time.Now()
	f.mu.Unlock()

	if !f.isDown.Swap(true) {
		f.logger.Error().Err(err).Str("operation", op).Msg("primary store failed; switching to fallback")
	}
	metrics.SetPrimaryDown(true)
}

func (f *FailoverStore) markUp() {
	if f.isDown.Swap(false) {
		f.logger.Info().Msg("primary store recovered")
		metrics.SetPrimaryDown(false)
	}
}

// call runs fn against the primary and, on a store-level failure, once
// against the fallback. Domain errors and caller cancellation are returned
// as-is.
func call[T any](ctx context.Context, f *FailoverStore, op string, fn func(domain.BookingStore) (T, error)) (T, error) {
	var primaryErr error

	if f.usePrimary() {
		v, err := fn(f.primary)
		if err == nil {
			f.markUp()
			return v, nil
		}
		if domain.IsDomainError(err) || ctx.Err() != nil {
			return v, err
		}
		if f.fallback == nil {
			var zero T
			return zero, fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
		}
		f.markDown(op, err)
		primaryErr = err
	}

	metrics.IncFailover(op)
	v, err := fn(f.fallback)
	if err == nil || domain.IsDomainError(err) {
		return v, err
	}

	f.logger.Error().Err(err).Str("operation", op).Msg("fallback store failed")
	var zero T
	return zero, fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, errors.Join(primaryErr, err))
}

func exec(ctx context.Context, f *FailoverStore, op string, fn func(domain.BookingStore) error) error {
	_, err := call(ctx, f, op, func(s domain.BookingStore) (struct{}, error) {
		return struct{}{}, fn(s)
	})
	return err
}

func (f *FailoverStore) ListBookings(ctx context.Context, assetID string, date time.Time) ([]models.Booking, error) {
	return call(ctx, f, "list_bookings", func(s domain.BookingStore) ([]models.Booking, error) {
		return s.ListBookings(ctx, assetID, date)
	})
}

func (f *FailoverStore) ListAllBookings(ctx context.Context) ([]models.Booking, error) {
	return call(ctx, f, "list_all_bookings", func(s domain.BookingStore) ([]models.Booking, error) {
		return s.ListAllBookings(ctx)
	})
}

func (f *FailoverStore) InsertBooking(ctx context.Context, b *models.Booking) error {
	return exec(ctx, f, "insert_booking", func(s domain.BookingStore) error {
		return s.InsertBooking(ctx, b)
	})
}

func (f *FailoverStore) ListAssets(ctx context.Context) ([]models.Asset, error) {
	return call(ctx, f, "list_assets", func(s domain.BookingStore) ([]models.Asset, error) {
		return s.ListAssets(ctx)
	})
}

func (f *FailoverStore) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	return call(ctx, f, "get_asset", func(s domain.BookingStore) (*models.Asset, error) {
		return s.GetAsset(ctx, id)
	})
}

func (f *FailoverStore) UpsertAsset(ctx context.Context, a *models.Asset) (*models.Asset, error) {
	return call(ctx, f, "upsert_asset", func(s domain.BookingStore) (*models.Asset, error) {
		return s.UpsertAsset(ctx, a)
	})
}

func (f *FailoverStore) SetAssetAvailability(ctx context.Context, id string, available bool) error {
	return exec(ctx, f, "set_asset_availability", func(s domain.BookingStore) error {
		return s.SetAssetAvailability(ctx, id, available)
	})
}

func (f *FailoverStore) Ping(ctx context.Context) error {
	return exec(ctx, f, "ping", func(s domain.BookingStore) error {
		return s.Ping(ctx)
	})
}

func (f *FailoverStore) Close() error {
	var errs []error
	if err := f.primary.Close(); err != nil {
		errs = append(errs, err)
	}
	if f.fallback != nil {
		if err := f.fallback.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
