package models

import "time"

// Booking reserves an asset for a wall-clock interval on one calendar day.
type Booking struct {
	ID        string    `json:"id,omitempty"`
	AssetID   string    `json:"assetId"`
	UserID    string    `json:"userId"`
	Date      time.Time `json:"date"`      // calendar day, time-of-day stripped
	StartTime string    `json:"startTime"` // HH:MM
	EndTime   string    `json:"endTime"`   // HH:MM, exclusive
	Purpose   string    `json:"purpose"`
	CreatedAt time.Time `json:"createdAt"`
}

// DayKey returns the booking's calendar day as YYYY-MM-DD.
func (b *Booking) DayKey() string {
	return b.Date.Format("2006-01-02")
}

// SlotKey identifies the booked interval within its asset and day.
func (b *Booking) SlotKey() string {
	return b.StartTime + "-" + b.EndTime
}
