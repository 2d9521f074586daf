package models

import "time"

// CalibrationStatus describes where an asset is in its calibration cycle.
type CalibrationStatus string

const (
	CalibrationCalibrated  CalibrationStatus = "Calibrated"
	CalibrationDueSoon     CalibrationStatus = "Due Soon"
	CalibrationOverdue     CalibrationStatus = "Overdue"
	CalibrationNotRequired CalibrationStatus = "Not Required"
)

// Valid reports whether s is one of the known calibration states.
func (s CalibrationStatus) Valid() bool {
	switch s {
	case CalibrationCalibrated, CalibrationDueSoon, CalibrationOverdue, CalibrationNotRequired:
		return true
	}
	return false
}

// Asset is a piece of lab equipment that can be booked.
type Asset struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Type               string            `json:"type"`
	CalibrationStatus  CalibrationStatus `json:"calibrationStatus"`
	LastCalibrated     *time.Time        `json:"lastCalibrated,omitempty"`
	NextCalibrationDue *time.Time        `json:"nextCalibrationDue,omitempty"`
	Location           string            `json:"location,omitempty"`
	// Available is cleared by every successful booking and never reset automatically.
	Available bool `json:"available"`
}

// Clone returns a deep copy of the asset.
func (a *Asset) Clone() *Asset {
	c := *a
	if a.LastCalibrated != nil {
		t := *a.LastCalibrated
		c.LastCalibrated = &t
	}
	if a.NextCalibrationDue != nil {
		t := *a.NextCalibrationDue
		c.NextCalibrationDue = &t
	}
	return &c
}
