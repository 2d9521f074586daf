package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"labbook/internal/domain"
	"labbook/internal/models"
	"labbook/internal/timerange"
)

// SQLiteStore is a domain.BookingStore backed by an embedded SQLite file.
type SQLiteStore struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

// NewSQLiteStore opens the database file and creates tables if they don't exist.
func NewSQLiteStore(path string, logger *zerolog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{DB: db, path: path, logger: logger}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("sqlite store initialized")
	return store, nil
}

func (s *SQLiteStore) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS assets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			calibration_status TEXT NOT NULL,
			last_calibrated DATETIME,
			next_calibration_due DATETIME,
			location TEXT NOT NULL DEFAULT '',
			available BOOLEAN NOT NULL DEFAULT 1
		)`,
		// date is the calendar day as YYYY-MM-DD.
		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT PRIMARY KEY,
			asset_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			purpose TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_slot ON bookings(asset_id, date, start_time, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_created ON bookings(created_at)`,
	}

	for _, q := range queries {
		if _, err := s.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Path is the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Ping satisfies domain.BookingStore.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.PingContext(ctx)
}

const sqliteBookingColumns = `id, asset_id, user_id, date, start_time, end_time, purpose, created_at`

func (s *SQLiteStore) ListBookings(ctx context.Context, assetID string, date time.Time) ([]models.Booking, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT `+sqliteBookingColumns+` FROM bookings
		WHERE asset_id = ? AND date = ?
		ORDER BY start_time`,
		assetID, timerange.DayKey(date))
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()
	return scanSQLiteBookings(rows)
}

func (s *SQLiteStore) ListAllBookings(ctx context.Context) ([]models.Booking, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT `+sqliteBookingColumns+` FROM bookings ORDER BY date, start_time, asset_id`)
	if err != nil {
		return nil, fmt.Errorf("list all bookings: %w", err)
	}
	defer rows.Close()
	return scanSQLiteBookings(rows)
}

func scanSQLiteBookings(rows *sql.Rows) ([]models.Booking, error) {
	var out []models.Booking
	for rows.Next() {
		var (
			b   models.Booking
			day string
		)
		if err := rows.Scan(&b.ID, &b.AssetID, &b.UserID, &day, &b.StartTime, &b.EndTime, &b.Purpose, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		date, err := time.ParseInLocation(timerange.DateLayout, day, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("booking %s has malformed date %q: %w", b.ID, day, err)
		}
		b.Date = date
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertBooking(ctx context.Context, b *models.Booking) error {
	_, err := s.ExecContext(ctx,
		`INSERT INTO bookings (`+sqliteBookingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.AssetID, b.UserID, timerange.DayKey(b.Date), b.StartTime, b.EndTime, b.Purpose, b.CreatedAt.UTC())
	if err != nil {
		var sqErr sqlite3.Error
		if errors.As(err, &sqErr) && sqErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return domain.ErrDuplicateBooking
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

const sqliteAssetColumns = `id, name, type, calibration_status, last_calibrated, next_calibration_due, location, available`

func (s *SQLiteStore) ListAssets(ctx context.Context) ([]models.Asset, error) {
	rows, err := s.QueryContext(ctx, `SELECT `+sqliteAssetColumns+` FROM assets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []models.Asset
	for rows.Next() {
		a, err := scanSQLiteAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	row := s.QueryRowContext(ctx, `SELECT `+sqliteAssetColumns+` FROM assets WHERE id = ?`, id)
	a, err := scanSQLiteAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteAsset(row rowScanner) (*models.Asset, error) {
	var (
		a          models.Asset
		status     string
		last, next sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Type, &status, &last, &next, &a.Location, &a.Available); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	a.CalibrationStatus = models.CalibrationStatus(status)
	if last.Valid {
		t := last.Time.UTC()
		a.LastCalibrated = &t
	}
	if next.Valid {
		t := next.Time.UTC()
		a.NextCalibrationDue = &t
	}
	return &a, nil
}

func (s *SQLiteStore) UpsertAsset(ctx context.Context, a *models.Asset) (*models.Asset, error) {
	_, err := s.ExecContext(ctx, `
		INSERT INTO assets (`+sqliteAssetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			calibration_status = excluded.calibration_status,
			last_calibrated = excluded.last_calibrated,
			next_calibration_due = excluded.next_calibration_due,
			location = excluded.location,
			available = excluded.available`,
		a.ID, a.Name, a.Type, string(a.CalibrationStatus),
		nullTime(a.LastCalibrated), nullTime(a.NextCalibrationDue),
		a.Location, a.Available)
	if err != nil {
		return nil, fmt.Errorf("upsert asset: %w", err)
	}
	return a.Clone(), nil
}

func (s *SQLiteStore) SetAssetAvailability(ctx context.Context, id string, available bool) error {
	res, err := s.ExecContext(ctx, `UPDATE assets SET available = ? WHERE id = ?`, available, id)
	if err != nil {
		return fmt.Errorf("set asset availability: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set asset availability: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Backup writes a consistent copy of the database to dest using VACUUM INTO.
func (s *SQLiteStore) Backup(ctx context.Context, dest string) error {
	if _, err := s.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
