package domain

import (
	"context"
	"time"

	"labbook/internal/models"
)

// BookingStore persists assets and bookings. Dates are stored as the
// calendar day; ListBookings matches on the calendar day of date.
type BookingStore interface {
	ListBookings(ctx context.Context, assetID string, date time.Time) ([]models.Booking, error)
	ListAllBookings(ctx context.Context) ([]models.Booking, error)
	// InsertBooking returns ErrDuplicateBooking when the same asset, day,
	// start and end are already booked.
	InsertBooking(ctx context.Context, b *models.Booking) error

	ListAssets(ctx context.Context) ([]models.Asset, error)
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
	UpsertAsset(ctx context.Context, a *models.Asset) (*models.Asset, error)
	SetAssetAvailability(ctx context.Context, id string, available bool) error

	Ping(ctx context.Context) error
	Close() error
}
