package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(TimeLayout, s)
	require.NoError(t, err)
	return ts
}

func interval(t *testing.T, from, to string) ForecastInterval {
	t.Helper()
	return ForecastInterval{Start: mustTime(t, from), End: mustTime(t, to)}
}

func TestDataset_UpsertInsertsAndReplaces(t *testing.T) {
	ds := NewDataset()

	fi := interval(t, "2024-01-01T00:00:00Z", "2024-01-01T06:00:00Z")
	fi.Attributes.Temperature = &Measurement{Value: "5.0", Unit: "celsius"}

	assert.True(t, ds.Upsert(fi), "first upsert should insert")
	require.Equal(t, 1, ds.Len())

	// Same key, new value: replaced in place, still one interval.
	fi.Attributes.Temperature = &Measurement{Value: "6.0", Unit: "celsius"}
	assert.False(t, ds.Upsert(fi), "second upsert should replace")
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, "6.0", ds.Intervals()[0].Attributes.Temperature.Value)
}

func TestDataset_UpsertKeyUniqueness(t *testing.T) {
	ds := NewDataset()

	a := interval(t, "2024-01-01T00:00:00Z", "2024-01-01T06:00:00Z")
	b := interval(t, "2024-01-01T00:00:00Z", "2024-01-01T12:00:00Z")
	c := interval(t, "2024-01-01T06:00:00Z", "2024-01-01T12:00:00Z")

	for _, fi := range []ForecastInterval{a, b, c, a, b, c} {
		ds.Upsert(fi)
	}
	assert.Equal(t, 3, ds.Len())

	seen := map[IntervalKey]bool{}
	for _, fi := range ds.Intervals() {
		assert.False(t, seen[fi.Key()], "duplicate key %v", fi.Key())
		seen[fi.Key()] = true
	}
}

func TestDataset_MergeIdempotence(t *testing.T) {
	parsed := []ForecastInterval{
		interval(t, "2024-01-01T00:00:00Z", "2024-01-01T06:00:00Z"),
		interval(t, "2024-01-01T06:00:00Z", "2024-01-01T12:00:00Z"),
		interval(t, "2024-01-01T00:00:00Z", "2024-01-01T12:00:00Z"),
	}

	once := NewDataset()
	for _, fi := range parsed {
		once.Upsert(fi)
	}
	twice := NewDataset()
	for i := 0; i < 2; i++ {
		for _, fi := range parsed {
			twice.Upsert(fi)
		}
	}

	assert.Equal(t, once.Intervals(), twice.Intervals())
}

func TestDataset_IntervalsSorted(t *testing.T) {
	ds := NewDataset()
	ds.Upsert(interval(t, "2024-01-01T12:00:00Z", "2024-01-01T18:00:00Z"))
	ds.Upsert(interval(t, "2024-01-01T00:00:00Z", "2024-01-01T12:00:00Z"))
	ds.Upsert(interval(t, "2024-01-01T00:00:00Z", "2024-01-01T06:00:00Z"))

	got := ds.Intervals()
	require.Len(t, got, 3)
	assert.Equal(t, mustTime(t, "2024-01-01T00:00:00Z"), got[0].Start)
	assert.Equal(t, mustTime(t, "2024-01-01T06:00:00Z"), got[0].End)
	assert.Equal(t, mustTime(t, "2024-01-01T12:00:00Z"), got[1].End)
	assert.Equal(t, mustTime(t, "2024-01-01T12:00:00Z"), got[2].Start)
}

func TestDataset_Expire(t *testing.T) {
	ds := NewDataset()
	ds.Upsert(interval(t, "2024-01-01T00:00:00Z", "2024-01-01T06:00:00Z"))
	ds.Upsert(interval(t, "2024-01-02T00:00:00Z", "2024-01-02T06:00:00Z"))
	ds.Upsert(interval(t, "2024-01-03T00:00:00Z", "2024-01-03T06:00:00Z"))

	now := mustTime(t, "2024-01-03T12:00:00Z")
	maxAge := 48 * time.Hour

	removed := ds.Expire(now, maxAge)
	assert.Equal(t, 1, removed)
	for _, fi := range ds.Intervals() {
		assert.LessOrEqual(t, now.Sub(fi.End), maxAge)
	}

	// Idempotent with the same now.
	assert.Zero(t, ds.Expire(now, maxAge))
	assert.Equal(t, 2, ds.Len())
}

func TestDataset_CurrentNilWhenEmpty(t *testing.T) {
	ds := NewDataset()
	assert.Nil(t, ds.Current())

	fi := interval(t, "2024-01-01T00:00:00Z", "2024-01-01T06:00:00Z")
	ds.Upsert(fi)
	ds.SetCurrent(&fi)
	require.NotNil(t, ds.Current())

	ds.Clear()
	assert.Nil(t, ds.Current())
	assert.Zero(t, ds.Len())
}

func TestDataset_RefreshCurrentKeepsPreviousOnGap(t *testing.T) {
	ds := NewDataset()
	ds.Upsert(interval(t, "2024-01-01T10:00:00Z", "2024-01-01T11:00:00Z"))

	cur := ds.RefreshCurrent(mustTime(t, "2024-01-01T10:07:00Z"))
	require.NotNil(t, cur)
	assert.Equal(t, mustTime(t, "2024-01-01T10:05:00Z"), cur.Point)

	// No interval covers this instant; the previous value survives.
	cur = ds.RefreshCurrent(mustTime(t, "2024-01-02T10:07:00Z"))
	require.NotNil(t, cur)
	assert.Equal(t, mustTime(t, "2024-01-01T10:05:00Z"), cur.Point)
}
