package domain

import "time"

// AstroSnapshot holds sun and moon visibility facts for one calendar day at
// a location. It is replaced wholesale once per day, never merged.
type AstroSnapshot struct {
	SunNeverRises bool      `json:"sun_never_rises,omitempty"`
	SunNeverSets  bool      `json:"sun_never_sets,omitempty"`
	Sunrise       time.Time `json:"sunrise,omitzero"`
	Sunset        time.Time `json:"sunset,omitzero"`

	MoonNeverRises bool      `json:"moon_never_rises,omitempty"`
	MoonNeverSets  bool      `json:"moon_never_sets,omitempty"`
	Moonrise       time.Time `json:"moonrise,omitzero"`
	Moonset        time.Time `json:"moonset,omitzero"`
	MoonPhase      string    `json:"moon_phase,omitempty"`
}

// IsNight reports whether the given instant falls outside daylight. A nil
// snapshot means no astronomical data is available yet and daytime is
// assumed.
func (a *AstroSnapshot) IsNight(now time.Time) bool {
	if a == nil {
		return false
	}
	if a.SunNeverRises {
		return true
	}
	if a.SunNeverSets {
		return false
	}
	return now.Before(a.Sunrise) || now.After(a.Sunset)
}
