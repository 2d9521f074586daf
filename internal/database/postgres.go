package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"labbook/internal/domain"
	"labbook/internal/models"
	"labbook/internal/timerange"
)

const pgUniqueViolation = "23505"

// PostgresStore is a domain.BookingStore backed by a PostgreSQL pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

// NewPostgresStore connects to databaseURL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string, maxConns int32, logger *zerolog.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", domain.ErrStoreUnavailable, err)
	}

	store := &PostgresStore{pool: pool, logger: logger}
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info().Msg("postgres store initialized")
	return store, nil
}

// EnsureSchema creates the tables and the booking uniqueness constraint.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS assets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			calibration_status TEXT NOT NULL,
			last_calibrated TIMESTAMPTZ,
			next_calibration_due TIMESTAMPTZ,
			location TEXT NOT NULL DEFAULT '',
			available BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT PRIMARY KEY,
			asset_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			date DATE NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			purpose TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_slot ON bookings(asset_id, date, start_time, end_time)`,
	}
	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgBookingColumns = `id, asset_id, user_id, date, start_time, end_time, purpose, created_at`

func (s *PostgresStore) ListBookings(ctx context.Context, assetID string, date time.Time) ([]models.Booking, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgBookingColumns+` FROM bookings
		WHERE asset_id = $1 AND date = $2
		ORDER BY start_time`,
		assetID, timerange.UTCDay(date))
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return collectBookings(rows)
}

func (s *PostgresStore) ListAllBookings(ctx context.Context) ([]models.Booking, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgBookingColumns+` FROM bookings ORDER BY date, start_time, asset_id`)
	if err != nil {
		return nil, fmt.Errorf("list all bookings: %w", err)
	}
	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]models.Booking, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Booking, error) {
		var b models.Booking
		err := row.Scan(&b.ID, &b.AssetID, &b.UserID, &b.Date, &b.StartTime, &b.EndTime, &b.Purpose, &b.CreatedAt)
		b.Date = timerange.UTCDay(b.Date)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan bookings: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) InsertBooking(ctx context.Context, b *models.Booking) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO bookings (`+pgBookingColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.AssetID, b.UserID, timerange.UTCDay(b.Date), b.StartTime, b.EndTime, b.Purpose, b.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrDuplicateBooking
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

const pgAssetColumns = `id, name, type, calibration_status, last_calibrated, next_calibration_due, location, available`

func (s *PostgresStore) ListAssets(ctx context.Context) ([]models.Asset, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pgAssetColumns+` FROM assets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Asset, error) {
		a, err := scanPgAsset(row)
		if err != nil {
			return models.Asset{}, err
		}
		return *a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan assets: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgAssetColumns+` FROM assets WHERE id = $1`, id)
	a, err := scanPgAsset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

func scanPgAsset(row pgx.Row) (*models.Asset, error) {
	var (
		a      models.Asset
		status string
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Type, &status, &a.LastCalibrated, &a.NextCalibrationDue, &a.Location, &a.Available); err != nil {
		return nil, err
	}
	a.CalibrationStatus = models.CalibrationStatus(status)
	return &a, nil
}

func (s *PostgresStore) UpsertAsset(ctx context.Context, a *models.Asset) (*models.Asset, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO assets (`+pgAssetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			calibration_status = EXCLUDED.calibration_status,
			last_calibrated = EXCLUDED.last_calibrated,
			next_calibration_due = EXCLUDED.next_calibration_due,
			location = EXCLUDED.location,
			available = EXCLUDED.available
		RETURNING `+pgAssetColumns,
		a.ID, a.Name, a.Type, string(a.CalibrationStatus),
		a.LastCalibrated, a.NextCalibrationDue, a.Location, a.Available)
	saved, err := scanPgAsset(row)
	if err != nil {
		return nil, fmt.Errorf("upsert asset: %w", err)
	}
	return saved, nil
}

func (s *PostgresStore) SetAssetAvailability(ctx context.Context, id string, available bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE assets SET available = $1 WHERE id = $2`, available, id)
	if err != nil {
		return fmt.Errorf("set asset availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
