package slots

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"labbook/internal/models"
	"labbook/internal/timerange"
)

// CalendarDays is the length of the calendar window.
const CalendarDays = 14

// CalendarBuilder assembles per-day slot grids over the calendar window.
type CalendarBuilder struct {
	gen     *Generator
	workers int
}

// NewCalendarBuilder creates a builder generating up to workers days at once.
func NewCalendarBuilder(gen *Generator, workers int) *CalendarBuilder {
	if workers <= 0 {
		workers = 4
	}
	return &CalendarBuilder{gen: gen, workers: workers}
}

// Build returns CalendarDays consecutive days starting at the midnight of
// startDate. Days are generated concurrently and placed by index, so the
// result is always in date order.
func (b *CalendarBuilder) Build(ctx context.Context, startDate time.Time, assetID string) ([]models.CalendarDay, error) {
	first := timerange.Day(startDate)
	days := make([]models.CalendarDay, CalendarDays)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i := range days {
		date := first.AddDate(0, 0, i)
		g.Go(func() error {
			slots, err := b.gen.Generate(gctx, assetID, date)
			if err != nil {
				return fmt.Errorf("generate %s: %w", timerange.DayKey(date), err)
			}
			days[i] = models.CalendarDay{
				Date:      date,
				Available: models.AnyAvailable(slots),
				Slots:     slots,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return days, nil
}
