package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeInstant(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"on boundary", "2024-01-01T10:05:00Z", "2024-01-01T10:05:00Z"},
		{"mid bucket", "2024-01-01T10:07:42Z", "2024-01-01T10:05:00Z"},
		{"just before boundary", "2024-01-01T10:04:59Z", "2024-01-01T10:00:00Z"},
		{"top of hour", "2024-01-01T10:00:30Z", "2024-01-01T10:00:00Z"},
		{"end of hour", "2024-01-01T10:59:59Z", "2024-01-01T10:55:00Z"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeInstant(mustTime(t, tc.in))
			assert.Equal(t, mustTime(t, tc.expected), got)
		})
	}
}

func TestNormalizeInstant_KeepsLocation(t *testing.T) {
	zone := time.FixedZone("UTC+02:00", 2*3600)
	in := time.Date(2024, 6, 15, 13, 37, 11, 0, zone)

	got := NormalizeInstant(in)
	assert.Equal(t, time.Date(2024, 6, 15, 13, 35, 0, 0, zone), got)
	assert.Equal(t, zone, got.Location())
}

func TestSelectCurrent_PrefersContainingInterval(t *testing.T) {
	intervals := []ForecastInterval{
		interval(t, "2024-01-01T09:00:00Z", "2024-01-01T10:00:00Z"),
		interval(t, "2024-01-01T10:00:00Z", "2024-01-01T11:00:00Z"),
	}

	// now = 10:07 normalizes to 10:05, contained only by the second.
	cur := SelectCurrent(intervals, mustTime(t, "2024-01-01T10:07:00Z"))
	require.NotNil(t, cur)
	assert.Equal(t, mustTime(t, "2024-01-01T10:00:00Z"), cur.Start)
	assert.Equal(t, mustTime(t, "2024-01-01T11:00:00Z"), cur.End)
	assert.Equal(t, mustTime(t, "2024-01-01T10:05:00Z"), cur.Point)
}

func TestSelectCurrent_NarrowestSpanWins(t *testing.T) {
	wide := interval(t, "2024-01-01T00:00:00Z", "2024-01-01T12:00:00Z")
	narrow := interval(t, "2024-01-01T06:00:00Z", "2024-01-01T08:00:00Z")
	narrow.Attributes.Temperature = &Measurement{Value: "2.5", Unit: "celsius"}

	cur := SelectCurrent([]ForecastInterval{wide, narrow}, mustTime(t, "2024-01-01T07:03:00Z"))
	require.NotNil(t, cur)
	assert.Equal(t, narrow.Start, cur.Start)
	require.NotNil(t, cur.Attributes.Temperature)
	assert.Equal(t, "2.5", cur.Attributes.Temperature.Value)
}

func TestSelectCurrent_SpanTieEarliestStart(t *testing.T) {
	a := interval(t, "2024-01-01T06:00:00Z", "2024-01-01T12:00:00Z")
	b := interval(t, "2024-01-01T04:00:00Z", "2024-01-01T10:00:00Z")

	cur := SelectCurrent([]ForecastInterval{a, b}, mustTime(t, "2024-01-01T08:00:00Z"))
	require.NotNil(t, cur)
	assert.Equal(t, b.Start, cur.Start)
}

func TestSelectCurrent_NoneContains(t *testing.T) {
	intervals := []ForecastInterval{
		interval(t, "2024-01-01T00:00:00Z", "2024-01-01T06:00:00Z"),
	}
	assert.Nil(t, SelectCurrent(intervals, mustTime(t, "2024-01-02T00:00:00Z")))
	assert.Nil(t, SelectCurrent(nil, mustTime(t, "2024-01-01T03:00:00Z")))
}

func TestSelectCurrent_DeterministicWithinBucket(t *testing.T) {
	intervals := []ForecastInterval{
		interval(t, "2024-01-01T09:00:00Z", "2024-01-01T10:00:00Z"),
		interval(t, "2024-01-01T10:00:00Z", "2024-01-01T11:00:00Z"),
		interval(t, "2024-01-01T09:00:00Z", "2024-01-01T12:00:00Z"),
	}

	t1 := SelectCurrent(intervals, mustTime(t, "2024-01-01T10:05:01Z"))
	t2 := SelectCurrent(intervals, mustTime(t, "2024-01-01T10:09:59Z"))
	require.NotNil(t, t1)
	require.NotNil(t, t2)
	assert.Equal(t, t1, t2)
}
