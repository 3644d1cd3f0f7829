package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatingHours_ScanAcceptsBothForms(t *testing.T) {
	var h OperatingHours
	err := h.Scan([]byte(`{"monday":"11:00-22:00","friday":{"opens":"12:00","closes":"23:30"}}`))
	require.NoError(t, err)

	assert.Equal(t, Interval{Opens: "11:00", Closes: "22:00"}, h["monday"])
	assert.Equal(t, Interval{Opens: "12:00", Closes: "23:30"}, h["friday"])
}

func TestOperatingHours_FoldsWeekdayCase(t *testing.T) {
	var h OperatingHours
	require.NoError(t, h.Scan(`{"Monday":"11:00-22:00"," FRIDAY ":{"opens":"12:00","closes":"23:30"}}`))
	assert.Equal(t, Interval{Opens: "11:00", Closes: "22:00"}, h["monday"])
	assert.True(t, h.OpenOn(time.Friday))
	assert.False(t, h.OpenOn(time.Sunday))

	var r Restaurant
	require.NoError(t, json.Unmarshal([]byte(`{"operating_hours":{"Sunday":"10:00-16:00"}}`), &r))
	assert.True(t, r.OperatingHours.OpenOn(time.Sunday))
	assert.NoError(t, r.OperatingHours.Validate())
}

func TestOperatingHours_ScanRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		src  any
	}{
		{"unknown weekday", `{"funday":"11:00-22:00"}`},
		{"bad clock", `{"monday":"11am-10pm"}`},
		{"no separator", `{"monday":"11:00"}`},
		{"not json", `{`},
		{"wrong type", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h OperatingHours
			assert.Error(t, h.Scan(tt.src))
		})
	}
}

func TestOperatingHours_ValueRoundTrip(t *testing.T) {
	h := DefaultOperatingHours()
	v, err := h.Value()
	require.NoError(t, err)

	var back OperatingHours
	require.NoError(t, back.Scan(v))
	assert.Equal(t, h, back)
}

func TestOperatingHours_OpenOn(t *testing.T) {
	h := OperatingHours{"monday": {Opens: "11:00", Closes: "22:00"}}
	assert.True(t, h.OpenOn(time.Monday))
	assert.False(t, h.OpenOn(time.Tuesday))

	assert.True(t, OperatingHours{}.OpenOn(time.Sunday), "no hours means always open")
}

func TestDietaryTags_Normalised(t *testing.T) {
	tags := NewDietaryTags(" Vegan", "gluten-free", "VEGAN", "")
	assert.Equal(t, DietaryTags{"gluten-free", "vegan"}, tags)
	assert.True(t, tags.Has("Vegan"))
	assert.False(t, tags.Has("halal"))

	b, err := json.Marshal(tags)
	require.NoError(t, err)
	assert.JSONEq(t, `["gluten-free","vegan"]`, string(b))
}

func TestReservationStatus_Transitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusPending.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusPending.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusConfirmed))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusCancelled))
}
