package domain

import "time"

// conditionsGrid is the bucket width current-conditions selection snaps to.
// Recomputation on the scheduler is aligned to the same grid, so selection
// is insensitive to call jitter within a bucket.
const conditionsGrid = 5 * time.Minute

// NormalizeInstant snaps t down to the most recent 5-minute boundary,
// truncating seconds and the minute remainder. The location of t is kept.
func NormalizeInstant(t time.Time) time.Time {
	return t.Add(-time.Duration(t.Minute()%5)*time.Minute -
		time.Duration(t.Second())*time.Second -
		time.Duration(t.Nanosecond()))
}

// SelectCurrent picks the interval that best represents now: among the
// intervals containing the normalized instant, the one with the narrowest
// span wins, ties broken by earliest Start. Returns nil when no interval
// contains the instant. The returned copy has Point set to the normalized
// instant.
func SelectCurrent(intervals []ForecastInterval, now time.Time) *ForecastInterval {
	point := NormalizeInstant(now)

	var best *ForecastInterval
	for i := range intervals {
		fi := &intervals[i]
		if !fi.Contains(point) {
			continue
		}
		if best == nil || fi.Span() < best.Span() ||
			(fi.Span() == best.Span() && fi.Start.Before(best.Start)) {
			best = fi
		}
	}
	if best == nil {
		return nil
	}

	cur := *best
	cur.Point = point
	return &cur
}
