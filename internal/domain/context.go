package domain

import (
	"fmt"
	"time"
)

// QueryContext is the location/config identity a dataset belongs to for one
// session. Coordinates are kept as strings so request URLs and cache
// comparisons use exactly the configured representation.
type QueryContext struct {
	LocationName string
	Latitude     string
	Longitude    string
	ElevationM   int
	UTCOffsetMin int

	// CacheMaxAge is the ceiling on the age of a cache file considered a
	// valid seed for this context.
	CacheMaxAge time.Duration
}

// Equal reports whether two contexts describe the same dataset identity.
// LocationName and CacheMaxAge are presentation/policy values and do not
// participate.
func (qc QueryContext) Equal(other QueryContext) bool {
	return qc.Latitude == other.Latitude &&
		qc.Longitude == other.Longitude &&
		qc.ElevationM == other.ElevationM &&
		qc.UTCOffsetMin == other.UTCOffsetMin
}

// Zone returns the fixed-offset location for local-time calculations such
// as the astro calendar-day check and the 5-minute conditions grid.
func (qc QueryContext) Zone() *time.Location {
	name := fmt.Sprintf("UTC%+03d:%02d", qc.UTCOffsetMin/60, abs(qc.UTCOffsetMin%60))
	return time.FixedZone(name, qc.UTCOffsetMin*60)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
