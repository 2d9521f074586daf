package events

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labbook/internal/models"
)

func TestEventBus_Publish(t *testing.T) {
	bus := NewEventBus()

	var got []string
	bus.Subscribe("a", func(e Event) error {
		got = append(got, "first:"+string(e.Payload))
		return errors.New("boom")
	})
	bus.Subscribe("a", func(e Event) error {
		got = append(got, "second:"+string(e.Payload))
		assert.False(t, e.CreatedAt.IsZero())
		return nil
	})
	bus.Subscribe("b", func(Event) error {
		t.Error("handler for another type called")
		return nil
	})

	err := bus.Publish(Event{Type: "a", Payload: []byte("x")})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"first:x", "second:x"}, got)

	assert.NoError(t, bus.Publish(Event{Type: "nobody"}))
}

func TestBookingCreated_RoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	b := &models.Booking{
		ID:        "b1",
		AssetID:   "A001",
		UserID:    "u1",
		Date:      time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		StartTime: "09:00",
		EndTime:   "10:00",
		CreatedAt: created,
	}

	e, err := BookingCreated(b)
	require.NoError(t, err)
	assert.Equal(t, TypeBookingCreated, e.Type)
	assert.Equal(t, created, e.CreatedAt)

	decoded, err := DecodeBooking(e)
	require.NoError(t, err)
	assert.Equal(t, "A001", decoded.AssetID)
	assert.Equal(t, "09:00-10:00", decoded.SlotKey())
}
