package slots

import (
	"context"
	"fmt"
	"time"

	"labbook/internal/availability"
	"labbook/internal/models"
	"labbook/internal/timerange"
)

// DayChecker loads the booking snapshot slots are checked against.
type DayChecker interface {
	ForDay(ctx context.Context, assetID string, date time.Time) availability.Day
}

// SlotInfo is a compact clock-only view of a slot.
type SlotInfo struct {
	Start     string              `json:"start"` // "10:00"
	End       string              `json:"end"`   // "10:30"
	Available bool                `json:"available"`
	Status    models.Availability `json:"status"`
}

// Generator produces the fixed slot grid for an asset and date.
type Generator struct {
	checker DayChecker
}

// NewGenerator creates a new slot generator.
func NewGenerator(checker DayChecker) *Generator {
	return &Generator{checker: checker}
}

// Generate returns the day's slots from open to close in order. Every slot is
// classified against one snapshot of the day's bookings.
func (g *Generator) Generate(ctx context.Context, assetID string, date time.Time) ([]models.TimeSlot, error) {
	day := g.checker.ForDay(ctx, assetID, date)

	grid := timerange.DaySlots()
	slots := make([]models.TimeSlot, 0, len(grid))
	for _, r := range grid {
		start, end, err := r.Bounds(date)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", r, err)
		}

		status := day.Status(r)
		slots = append(slots, models.TimeSlot{
			Start:     start,
			End:       end,
			Available: status.IsAvailable(),
			Status:    status,
		})
	}

	return slots, nil
}

// ToSlotInfo converts slots to their clock-only form.
func ToSlotInfo(slots []models.TimeSlot) []SlotInfo {
	result := make([]SlotInfo, len(slots))
	for i, s := range slots {
		result[i] = SlotInfo{
			Start:     s.Start.Format(timerange.ClockLayout),
			End:       s.End.Format(timerange.ClockLayout),
			Available: s.Available,
			Status:    s.Status,
		}
	}
	return result
}

// GetAvailableSlots returns only available slots.
func GetAvailableSlots(slots []models.TimeSlot) []models.TimeSlot {
	var available []models.TimeSlot
	for _, s := range slots {
		if s.Available {
			available = append(available, s)
		}
	}
	return available
}

// FindConsecutiveSlots groups available slots into back-to-back runs.
func FindConsecutiveSlots(slots []models.TimeSlot) [][]models.TimeSlot {
	available := GetAvailableSlots(slots)
	if len(available) == 0 {
		return nil
	}

	var groups [][]models.TimeSlot
	current := []models.TimeSlot{available[0]}

	for i := 1; i < len(available); i++ {
		if available[i].Start.Equal(current[len(current)-1].End) {
			current = append(current, available[i])
		} else {
			groups = append(groups, current)
			current = []models.TimeSlot{available[i]}
		}
	}
	groups = append(groups, current)

	return groups
}

// FreeRun is a maximal stretch of back-to-back available slots.
type FreeRun struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Slots int    `json:"slots"`
}

// FreeRuns summarises FindConsecutiveSlots as clock ranges.
func FreeRuns(slots []models.TimeSlot) []FreeRun {
	groups := FindConsecutiveSlots(slots)
	runs := make([]FreeRun, 0, len(groups))
	for _, g := range groups {
		runs = append(runs, FreeRun{
			Start: g[0].Start.Format(timerange.ClockLayout),
			End:   g[len(g)-1].End.Format(timerange.ClockLayout),
			Slots: len(g),
		})
	}
	return runs
}
