package domain

import (
	"sort"
	"time"
)

// WeatherDataset is the root aggregate: the merged set of forecast
// intervals for one location plus the most recently derived current
// conditions. It exclusively owns its intervals; dropping the dataset
// releases everything.
//
// The dataset is not safe for concurrent use. All mutation happens on the
// scheduler loop, which is the single logical owner.
type WeatherDataset struct {
	slices  map[IntervalKey]*ForecastInterval
	current *ForecastInterval
}

// NewDataset creates an empty dataset.
func NewDataset() *WeatherDataset {
	return &WeatherDataset{slices: make(map[IntervalKey]*ForecastInterval)}
}

// Upsert merges one interval: an exact (Start, End) match has its
// attributes replaced in place, otherwise the interval is inserted.
// Reports whether a new entry was created.
func (ds *WeatherDataset) Upsert(fi ForecastInterval) bool {
	key := fi.Key()
	if existing, ok := ds.slices[key]; ok {
		existing.Attributes = fi.Attributes
		if !fi.Point.IsZero() {
			existing.Point = fi.Point
		}
		return false
	}
	stored := fi
	ds.slices[key] = &stored
	return true
}

// Expire removes every interval whose End is older than now minus maxAge.
// It is idempotent: repeated calls with the same now remove nothing further.
// Returns the number of intervals removed.
func (ds *WeatherDataset) Expire(now time.Time, maxAge time.Duration) int {
	removed := 0
	for key, fi := range ds.slices {
		if now.Sub(fi.End) > maxAge {
			delete(ds.slices, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored intervals.
func (ds *WeatherDataset) Len() int {
	return len(ds.slices)
}

// Intervals returns a copy of all stored intervals ordered by Start, with
// End breaking ties. The copy is safe for the caller to retain.
func (ds *WeatherDataset) Intervals() []ForecastInterval {
	out := make([]ForecastInterval, 0, len(ds.slices))
	for _, fi := range ds.slices {
		out = append(out, *fi)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].End.Before(out[j].End)
	})
	return out
}

// Current returns the most recently derived current conditions, or nil when
// none have been derived and the dataset holds no cache-restored seed.
func (ds *WeatherDataset) Current() *ForecastInterval {
	if len(ds.slices) == 0 {
		return nil
	}
	return ds.current
}

// SetCurrent records a derived current-conditions value. Pass nil to drop
// the previous value.
func (ds *WeatherDataset) SetCurrent(fi *ForecastInterval) {
	ds.current = fi
}

// RefreshCurrent recomputes current conditions for the given instant. When
// no interval represents the instant the previous value is kept, so a brief
// gap between rolling windows does not blank the derived state.
func (ds *WeatherDataset) RefreshCurrent(now time.Time) *ForecastInterval {
	if cur := SelectCurrent(ds.Intervals(), now); cur != nil {
		ds.current = cur
	}
	return ds.Current()
}

// Clear drops all intervals and the derived current conditions. Used for an
// outright location change.
func (ds *WeatherDataset) Clear() {
	ds.slices = make(map[IntervalKey]*ForecastInterval)
	ds.current = nil
}
