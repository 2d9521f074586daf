// Package availability decides whether a wall-clock interval on an asset is
// free of bookings.
package availability

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"labbook/internal/metrics"
	"labbook/internal/models"
	"labbook/internal/timerange"
)

// BookingLister is the read side of the booking store the checker needs.
type BookingLister interface {
	ListBookings(ctx context.Context, assetID string, date time.Time) ([]models.Booking, error)
}

// Checker answers availability questions against the current booking set.
type Checker struct {
	store  BookingLister
	logger *zerolog.Logger
}

func NewChecker(store BookingLister, logger *zerolog.Logger) *Checker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Checker{store: store, logger: logger}
}

// Check reports whether [start, end) on the calendar day of date is free.
// An error is returned only for a malformed range; store failures yield
// models.Unknown.
func (c *Checker) Check(ctx context.Context, assetID string, date time.Time, start, end string) (models.Availability, error) {
	r, err := timerange.New(start, end)
	if err != nil {
		return models.Unknown, err
	}

	status := c.ForDay(ctx, assetID, date).Status(r)
	metrics.IncAvailabilityCheck(string(status))
	return status, nil
}

// ForDay loads the asset's bookings for one calendar day.
func (c *Checker) ForDay(ctx context.Context, assetID string, date time.Time) Day {
	bookings, err := c.store.ListBookings(ctx, assetID, date)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("asset_id", assetID).
			Str("date", timerange.DayKey(date)).
			Msg("could not load bookings; availability unknown")
		return UnknownDay(assetID, date)
	}
	return NewDay(assetID, date, bookings)
}

// Day is a snapshot of one asset's bookings on one calendar day.
type Day struct {
	AssetID  string
	Date     time.Time
	bookings []models.Booking
	unknown  bool
}

// NewDay keeps only bookings for assetID on the calendar day of date, so
// stores that return a wider set are handled the same way.
func NewDay(assetID string, date time.Time, bookings []models.Booking) Day {
	d := Day{AssetID: assetID, Date: date}
	for _, b := range bookings {
		if b.AssetID == assetID && timerange.SameDay(b.Date, date) {
			d.bookings = append(d.bookings, b)
		}
	}
	return d
}

// UnknownDay is a day whose bookings could not be read.
func UnknownDay(assetID string, date time.Time) Day {
	return Day{AssetID: assetID, Date: date, unknown: true}
}

func (d Day) Known() bool {
	return !d.unknown
}

func (d Day) Bookings() []models.Booking {
	return d.bookings
}

// Status classifies r against the day's bookings.
func (d Day) Status(r timerange.Range) models.Availability {
	if d.unknown {
		return models.Unknown
	}
	if _, ok := d.Conflict(r); ok {
		return models.Unavailable
	}
	return models.Available
}

// Conflict returns the first booking that conflicts with r.
func (d Day) Conflict(r timerange.Range) (models.Booking, bool) {
	for _, b := range d.bookings {
		if Conflicts(r, b) {
			return b, true
		}
	}
	return models.Booking{}, false
}

// Conflicts applies the booking conflict rule: r's start lies in
// [b.start, b.end), r's end lies in (b.start, b.end], or r covers b.
// Touching intervals do not conflict.
func Conflicts(r timerange.Range, b models.Booking) bool {
	if r.Start >= b.StartTime && r.Start < b.EndTime {
		return true
	}
	if r.End > b.StartTime && r.End <= b.EndTime {
		return true
	}
	return r.Start <= b.StartTime && r.End >= b.EndTime
}
