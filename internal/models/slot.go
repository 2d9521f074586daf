package models

import "time"

// Availability is the outcome of an availability check.
type Availability string

const (
	Available   Availability = "available"
	Unavailable Availability = "unavailable"
	// Unknown means the booking store could not be read.
	Unknown Availability = "unknown"
)

// IsAvailable collapses the tri-state result; Unknown counts as unavailable.
func (a Availability) IsAvailable() bool {
	return a == Available
}

// TimeSlot is a computed bookable interval. It is never persisted.
type TimeSlot struct {
	Start     time.Time    `json:"start"`
	End       time.Time    `json:"end"`
	Available bool         `json:"available"`
	Status    Availability `json:"status"`
}

// CalendarDay groups the slots of a single date.
type CalendarDay struct {
	Date      time.Time  `json:"date"`
	Available bool       `json:"available"`
	Slots     []TimeSlot `json:"slots"`
}

// AnyAvailable reports whether at least one slot is available.
func AnyAvailable(slots []TimeSlot) bool {
	for _, s := range slots {
		if s.Available {
			return true
		}
	}
	return false
}
