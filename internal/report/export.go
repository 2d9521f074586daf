package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"labbook/internal/models"
	"labbook/internal/timerange"
)

// Source is the data an export reads. Errors are returned, not degraded, so a
// partial spreadsheet is never produced.
type Source interface {
	ListAssets(ctx context.Context) ([]models.Asset, error)
	ListAllBookings(ctx context.Context) ([]models.Booking, error)
}

var (
	assetColumns   = []string{"ID", "Name", "Type", "Calibration Status", "Last Calibrated", "Next Calibration Due", "Location", "Available"}
	bookingColumns = []string{"ID", "Asset ID", "User ID", "Date", "Start", "End", "Purpose", "Created At"}
)

// Export writes an Assets sheet and a Bookings sheet to w.
func Export(ctx context.Context, src Source, w io.Writer) error {
	sw, err := build(ctx, src)
	if err != nil {
		return err
	}
	defer sw.Close()

	return sw.Save(w)
}

// ExportToFile writes the same workbook as Export to path. Nothing is written
// when the source cannot be read.
func ExportToFile(ctx context.Context, src Source, path string) error {
	sw, err := build(ctx, src)
	if err != nil {
		return err
	}
	defer sw.Close()

	if err := sw.SaveToFile(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func build(ctx context.Context, src Source) (*SheetWriter, error) {
	assets, err := src.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}
	bookings, err := src.ListAllBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	sw := NewSheetWriter()
	if err := fill(sw, assets, bookings); err != nil {
		sw.Close()
		return nil, err
	}
	return sw, nil
}

func fill(sw *SheetWriter, assets []models.Asset, bookings []models.Booking) error {
	if err := sw.AddSheet("Assets"); err != nil {
		return err
	}
	if err := sw.WriteHeader(assetColumns); err != nil {
		return err
	}
	for _, a := range assets {
		if err := sw.WriteRow([]any{
			a.ID, a.Name, a.Type, string(a.CalibrationStatus),
			formatDay(a.LastCalibrated), formatDay(a.NextCalibrationDue),
			a.Location, a.Available,
		}); err != nil {
			return fmt.Errorf("write asset %s: %w", a.ID, err)
		}
	}

	if err := sw.AddSheet("Bookings"); err != nil {
		return err
	}
	if err := sw.WriteHeader(bookingColumns); err != nil {
		return err
	}
	for _, b := range bookings {
		if err := sw.WriteRow([]any{
			b.ID, b.AssetID, b.UserID, b.DayKey(), b.StartTime, b.EndTime, b.Purpose,
			b.CreatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return fmt.Errorf("write booking %s: %w", b.ID, err)
		}
	}
	return nil
}

func formatDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return timerange.DayKey(*t)
}
