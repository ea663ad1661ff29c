package domain

import "time"

// TimeLayout is the timestamp form used by the forecast and sunrise
// services and by the disk cache: UTC, second precision, trailing Z.
const TimeLayout = "2006-01-02T15:04:05Z"

// Measurement is a reported value with its source unit, both carried
// verbatim as strings.
type Measurement struct {
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// WindDirection holds the direction in degrees plus its compass name,
// e.g. deg="225.8" name="SW".
type WindDirection struct {
	Deg  string `json:"deg"`
	Name string `json:"name,omitempty"`
}

// WindSpeed holds the speed in meters per second plus the Beaufort number.
type WindSpeed struct {
	MPS      string `json:"mps"`
	Beaufort string `json:"beaufort,omitempty"`
}

// Symbol identifies a weather situation both numerically and by textual id,
// e.g. number=3 id="PartlyCloud".
type Symbol struct {
	Number int    `json:"number"`
	ID     string `json:"id"`
}

// LocationAttributes is the sparse set of weather fields reported for one
// interval. A nil field was not reported by the source.
type LocationAttributes struct {
	Altitude  string `json:"altitude,omitempty"`
	Latitude  string `json:"latitude,omitempty"`
	Longitude string `json:"longitude,omitempty"`

	Temperature   *Measurement   `json:"temperature,omitempty"`
	Pressure      *Measurement   `json:"pressure,omitempty"`
	Humidity      *Measurement   `json:"humidity,omitempty"`
	WindDirection *WindDirection `json:"wind_direction,omitempty"`
	WindSpeed     *WindSpeed     `json:"wind_speed,omitempty"`

	// Cloud cover percentages per layer plus overall cloudiness and fog.
	CloudsLow    *string `json:"clouds_low,omitempty"`
	CloudsMedium *string `json:"clouds_medium,omitempty"`
	CloudsHigh   *string `json:"clouds_high,omitempty"`
	Cloudiness   *string `json:"cloudiness,omitempty"`
	Fog          *string `json:"fog,omitempty"`

	Precipitation *Measurement `json:"precipitation,omitempty"`
	Symbol        *Symbol      `json:"symbol,omitempty"`
}

// IntervalKey is the identity of a forecast interval within a dataset.
type IntervalKey struct {
	Start time.Time
	End   time.Time
}

// ForecastInterval is a forecast valid over [Start, End]. Point is the
// instant the interval was selected to represent; it is zero on freshly
// parsed intervals and only meaningful on derived current conditions and
// cache-restored records.
type ForecastInterval struct {
	Start      time.Time          `json:"start"`
	End        time.Time          `json:"end"`
	Point      time.Time          `json:"point,omitzero"`
	Attributes LocationAttributes `json:"attributes"`
}

// Key returns the (Start, End) identity of the interval.
func (fi *ForecastInterval) Key() IntervalKey {
	return IntervalKey{Start: fi.Start, End: fi.End}
}

// Span is the width of the validity range. Narrower spans are more specific
// forecasts and win selection ties.
func (fi *ForecastInterval) Span() time.Duration {
	return fi.End.Sub(fi.Start)
}

// Contains reports whether t falls within [Start, End], inclusive on both
// ends.
func (fi *ForecastInterval) Contains(t time.Time) bool {
	return !t.Before(fi.Start) && !t.After(fi.End)
}
