package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"labbook/internal/availability"
	"labbook/internal/domain"
	"labbook/internal/events"
	"labbook/internal/metrics"
	"labbook/internal/models"
	"labbook/internal/slots"
	"labbook/internal/timerange"
)

// Options tunes a BookingService.
type Options struct {
	// Location is the zone slot clocks are read in. Defaults to time.Local.
	Location        *time.Location
	CalendarWorkers int
}

type BookingService struct {
	store    domain.BookingStore
	checker  *availability.Checker
	slots    *slots.Generator
	calendar *slots.CalendarBuilder
	bus      *events.EventBus
	loc      *time.Location
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBookingService(store domain.BookingStore, bus *events.EventBus, opts Options, logger *zerolog.Logger) *BookingService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	checker := availability.NewChecker(store, logger)
	gen := slots.NewGenerator(checker)
	return &BookingService{
		store:    store,
		checker:  checker,
		slots:    gen,
		calendar: slots.NewCalendarBuilder(gen, opts.CalendarWorkers),
		bus:      bus,
		loc:      opts.Location,
		logger:   logger,
		now:      time.Now,
	}
}

// Location is the zone slot clocks and calendar days are read in.
func (s *BookingService) Location() *time.Location {
	return s.loc
}

// GetAssets lists assets. A store failure is logged and yields an empty list.
func (s *BookingService) GetAssets(ctx context.Context) []models.Asset {
	assets, err := s.store.ListAssets(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to list assets")
		return []models.Asset{}
	}
	return assets
}

func (s *BookingService) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	return s.store.GetAsset(ctx, id)
}

// SaveAsset creates or replaces an asset.
func (s *BookingService) SaveAsset(ctx context.Context, a *models.Asset) (*models.Asset, error) {
	saved, err := s.store.UpsertAsset(ctx, a)
	if err != nil {
		s.logger.Error().Err(err).Str("asset_id", a.ID).Msg("failed to save asset")
		return nil, fmt.Errorf("save asset %s: %w", a.ID, err)
	}
	s.logger.Info().Str("asset_id", a.ID).Msg("asset saved")
	return saved, nil
}

// GetBookings lists every booking. A store failure is logged and yields an
// empty list.
func (s *BookingService) GetBookings(ctx context.Context) []models.Booking {
	bookings, err := s.store.ListAllBookings(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to list bookings")
		return []models.Booking{}
	}
	return bookings
}

// SaveBooking persists b and then marks its asset unavailable. It does not
// check availability; use Book for that. A failure to update the asset flag
// is logged and does not undo the booking.
func (s *BookingService) SaveBooking(ctx context.Context, b *models.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now().UTC()
	}
	b.Date = timerange.UTCDay(b.Date)

	if err := s.store.InsertBooking(ctx, b); err != nil {
		status := "failed"
		if errors.Is(err, domain.ErrDuplicateBooking) {
			status = "duplicate"
		}
		metrics.IncBookingCreated(status)
		s.logger.Error().
			Err(err).
			Str("asset_id", b.AssetID).
			Str("date", b.DayKey()).
			Str("slot", b.SlotKey()).
			Msg("failed to save booking")
		return fmt.Errorf("%w: %w", domain.ErrWriteFailed, err)
	}
	metrics.IncBookingCreated("created")

	s.logger.Info().
		Str("booking_id", b.ID).
		Str("asset_id", b.AssetID).
		Str("user_id", b.UserID).
		Str("date", b.DayKey()).
		Str("slot", b.SlotKey()).
		Msg("booking saved")

	if err := s.store.SetAssetAvailability(ctx, b.AssetID, false); err != nil {
		metrics.IncAssetFlagFailure()
		s.logger.Warn().Err(err).Str("asset_id", b.AssetID).Msg("booking saved but asset flag not updated")
	}

	s.publish(b)
	return nil
}

func (s *BookingService) publish(b *models.Booking) {
	if s.bus == nil {
		return
	}
	event, err := events.BookingCreated(b)
	if err != nil {
		s.logger.Warn().Err(err).Str("booking_id", b.ID).Msg("failed to encode booking event")
		return
	}
	if err := s.bus.Publish(event); err != nil {
		s.logger.Warn().Err(err).Str("booking_id", b.ID).Msg("booking event handler failed")
	}
}

// Book checks the requested interval and saves the booking when it is free.
// It returns domain.ErrSlotUnavailable on a conflict and
// domain.ErrAvailabilityUnknown when the store could not be read. Two
// concurrent calls for overlapping but not identical intervals can both
// succeed.
func (s *BookingService) Book(ctx context.Context, b *models.Booking) error {
	status, err := s.checker.Check(ctx, b.AssetID, b.Date, b.StartTime, b.EndTime)
	if err != nil {
		return err
	}

	switch status {
	case models.Unavailable:
		metrics.IncBookingCreated("conflict")
		return domain.ErrSlotUnavailable
	case models.Unknown:
		metrics.IncBookingCreated("unknown")
		return domain.ErrAvailabilityUnknown
	}

	return s.SaveBooking(ctx, b)
}

// CheckAvailability reports whether [start, end) on date is free for the asset.
func (s *BookingService) CheckAvailability(ctx context.Context, assetID string, date time.Time, start, end string) (models.Availability, error) {
	return s.checker.Check(ctx, assetID, date, start, end)
}

// TimeSlots returns the day's slot grid for the asset.
func (s *BookingService) TimeSlots(ctx context.Context, assetID string, date time.Time) ([]models.TimeSlot, error) {
	return s.slots.Generate(ctx, assetID, date)
}

// Calendar returns the slot grids of the calendar window starting at start.
func (s *BookingService) Calendar(ctx context.Context, assetID string, start time.Time) ([]models.CalendarDay, error) {
	return s.calendar.Build(ctx, start, assetID)
}

// AssetStatus is an asset's availability derived from its bookings.
type AssetStatus struct {
	AssetID string              `json:"assetId"`
	At      time.Time           `json:"at"`
	Status  models.Availability `json:"status"`
	// Current is the booking covering At, if any.
	Current *models.Booking `json:"current,omitempty"`
	// Flag is the stored availability flag, which bookings only ever clear.
	Flag bool `json:"flag"`
}

// AssetStatusAt derives availability at now from the bookings covering that
// instant instead of trusting the stored flag.
func (s *BookingService) AssetStatusAt(ctx context.Context, assetID string, now time.Time) (*AssetStatus, error) {
	asset, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}

	now = now.In(s.loc)
	out := &AssetStatus{AssetID: assetID, At: now, Flag: asset.Available}

	day := s.checker.ForDay(ctx, assetID, now)
	if !day.Known() {
		out.Status = models.Unknown
		return out, nil
	}

	clock := now.Format(timerange.ClockLayout)
	for _, b := range day.Bookings() {
		r := timerange.Range{Start: b.StartTime, End: b.EndTime}
		if r.Contains(clock) {
			current := b
			out.Current = &current
			out.Status = models.Unavailable
			return out, nil
		}
	}

	out.Status = models.Available
	return out, nil
}
