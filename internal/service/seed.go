package service

import (
	"context"
	"time"

	"labbook/internal/models"
)

// DefaultAssets is the starter inventory, with calibration dates relative to now.
func DefaultAssets(now time.Time) []models.Asset {
	day := func(offset int) *time.Time {
		t := now.UTC().AddDate(0, 0, offset)
		return &t
	}

	return []models.Asset{
		{
			ID:                 "A001",
			Name:               "Oscilloscope XYZ-2000",
			Type:               "Measurement",
			CalibrationStatus:  models.CalibrationCalibrated,
			LastCalibrated:     day(-30),
			NextCalibrationDue: day(150),
			Location:           "Lab 1",
			Available:          true,
		},
		{
			ID:                 "A002",
			Name:               "Spectrum Analyzer PRO-500",
			Type:               "Measurement",
			CalibrationStatus:  models.CalibrationDueSoon,
			LastCalibrated:     day(-170),
			NextCalibrationDue: day(10),
			Location:           "Lab 2",
			Available:          true,
		},
		{
			ID:                 "A003",
			Name:               "Multimeter DMM-8050",
			Type:               "Testing",
			CalibrationStatus:  models.CalibrationCalibrated,
			LastCalibrated:     day(-15),
			NextCalibrationDue: day(165),
			Location:           "Lab 1",
			Available:          false,
		},
		{
			ID:                 "A004",
			Name:               "Function Generator FG-100",
			Type:               "Signal",
			CalibrationStatus:  models.CalibrationOverdue,
			LastCalibrated:     day(-190),
			NextCalibrationDue: day(-10),
			Location:           "Lab 3",
			Available:          true,
		},
		{
			ID:                "A005",
			Name:              "Power Supply PS-3030",
			Type:              "Power",
			CalibrationStatus: models.CalibrationNotRequired,
			Location:          "Lab 2",
			Available:         true,
		},
	}
}

// EnsureDefaultAssets seeds DefaultAssets when the store holds no assets and
// returns how many were inserted.
func (s *BookingService) EnsureDefaultAssets(ctx context.Context) (int, error) {
	existing, err := s.store.ListAssets(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	assets := DefaultAssets(s.now())
	for i := range assets {
		if _, err := s.store.UpsertAsset(ctx, &assets[i]); err != nil {
			return i, err
		}
	}
	s.logger.Info().Int("count", len(assets)).Msg("seeded default assets")
	return len(assets), nil
}
