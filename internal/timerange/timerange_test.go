package timerange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidClock(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"08:00", true},
		{"23:59", true},
		{"00:00", true},
		{"8:00", false},
		{"08:0", false},
		{"24:00", false},
		{"12:60", false},
		{"ab:cd", false},
		{"", false},
		{"08:00:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidClock(tt.in))
		})
	}
}

func TestNew(t *testing.T) {
	r, err := New("09:00", "09:30")
	require.NoError(t, err)
	assert.Equal(t, Range{Start: "09:00", End: "09:30"}, r)

	_, err = New("09:30", "09:30")
	assert.ErrorIs(t, err, ErrEmptyRange)

	_, err = New("10:00", "09:30")
	assert.ErrorIs(t, err, ErrEmptyRange)

	_, err = New("9:00", "09:30")
	assert.ErrorIs(t, err, ErrInvalidClock)

	_, err = New("09:00", "25:00")
	assert.ErrorIs(t, err, ErrInvalidClock)
}

func TestDaySlots_Grid(t *testing.T) {
	slots := DaySlots()
	require.Len(t, slots, SlotsPerDay)

	assert.Equal(t, OpenAt, slots[0].Start)
	assert.Equal(t, CloseAt, slots[len(slots)-1].End)

	date := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	for i, s := range slots {
		start, end, err := s.Bounds(date)
		require.NoError(t, err)
		assert.Equal(t, SlotDuration, end.Sub(start), "slot %d", i)
		if i > 0 {
			assert.Equal(t, slots[i-1].End, s.Start, "gap or overlap before slot %d", i)
		}
	}
}

func TestSlot(t *testing.T) {
	assert.Equal(t, Range{Start: "08:00", End: "08:30"}, Slot(0))
	assert.Equal(t, Range{Start: "08:30", End: "09:00"}, Slot(1))
	assert.Equal(t, Range{Start: "12:30", End: "13:00"}, Slot(9))
	assert.Equal(t, Range{Start: "17:30", End: "18:00"}, Slot(19))
}

func TestAt(t *testing.T) {
	loc := time.FixedZone("lab", 3*60*60)
	date := time.Date(2026, 2, 14, 15, 45, 12, 0, loc)

	got, err := At(date, "09:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 14, 9, 30, 0, 0, loc), got)

	_, err = At(date, "9:30")
	assert.ErrorIs(t, err, ErrInvalidClock)
}

func TestRange_Contains(t *testing.T) {
	r := Range{Start: "10:00", End: "11:00"}
	assert.True(t, r.Contains("10:00"))
	assert.True(t, r.Contains("10:59"))
	assert.False(t, r.Contains("11:00"))
	assert.False(t, r.Contains("09:59"))
	assert.Equal(t, "10:00-11:00", r.String())
}

func TestDayHelpers(t *testing.T) {
	loc := time.FixedZone("lab", -5*60*60)
	ts := time.Date(2026, 7, 1, 22, 15, 0, 0, loc)

	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, loc), Day(ts))
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), UTCDay(ts))
	assert.Equal(t, "2026-07-01", DayKey(ts))

	assert.True(t, SameDay(ts, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, SameDay(ts, time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2026-01-15", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("2026-01-15T13:20:00Z", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("15-01-2026", time.UTC)
	assert.Error(t, err)
}
