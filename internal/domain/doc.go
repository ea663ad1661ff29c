// Package domain models multi-day point forecasts and astronomical data
// fetched from met.no-style weather APIs.
//
// # Data Source
//
// Forecast documents come from the locationforecast service, astronomical
// documents from the sunrise service. Both are XML; the adapter in
// internal/adapter/metno maps them onto the types in this package.
//
// # Timeslices
//
// The forecast service returns overlapping rolling windows: each document
// carries many "time" entries, each valid over an absolute interval
// [From, To] in UTC. A [ForecastInterval] is identified by that pair.
// Re-fetching yields the same keys with possibly updated values, so merging
// is an upsert keyed on (Start, End). Without eviction the set would grow
// unboundedly across restarts via cache round-trips; [WeatherDataset.Expire]
// drops intervals whose End has fallen behind a retention threshold.
//
// # Attribute presence
//
// The source reports a sparse attribute set per interval: short-range
// entries typically carry precipitation and a symbol, long-range entries the
// full instantaneous fields. Absent fields are represented as nil pointers
// and mean "not reported by the source for this interval", which is distinct
// from an empty or zero value. Values and units are carried as strings
// exactly as reported; unit conversion is a display concern outside this
// package.
//
// # Current conditions
//
// "Current conditions" is never fetched. It is derived: [SelectCurrent]
// picks the interval that best represents a query instant, after snapping
// the instant down to a 5-minute boundary so repeated calls inside the same
// window agree. The derived value is recomputed, never merged back into the
// interval set.
//
// # Astronomical data
//
// An [AstroSnapshot] holds sun and moon visibility facts for one calendar
// day and is replaced wholesale once per day, never merged field-by-field.
// [AstroSnapshot.IsNight] handles the polar cases via the NeverRises and
// NeverSets flags.
package domain
