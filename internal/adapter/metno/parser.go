// Package metno maps met.no-style XML documents onto domain types and
// fetches them over HTTP. Parsing is pure: bytes in, records out, no I/O.
package metno

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/overcastlab/meteod/internal/domain"
)

// ErrNoData marks a structurally valid document that carried nothing
// usable. Callers treat it like a failed fetch: no merge this cycle.
var ErrNoData = errors.New("no usable data in document")

// Forecast document shapes. Attribute and element names follow the
// locationforecast schema; pointer fields distinguish absent elements.

type forecastDoc struct {
	XMLName  xml.Name      `xml:"weatherdata"`
	Products []productNode `xml:"product"`
}

type productNode struct {
	Class string     `xml:"class,attr"`
	Times []timeNode `xml:"time"`
}

type timeNode struct {
	Datatype string        `xml:"datatype,attr"`
	From     string        `xml:"from,attr"`
	To       string        `xml:"to,attr"`
	Location *locationNode `xml:"location"`
}

type locationNode struct {
	Altitude  string `xml:"altitude,attr"`
	Latitude  string `xml:"latitude,attr"`
	Longitude string `xml:"longitude,attr"`

	Temperature   *valueUnitNode `xml:"temperature"`
	WindDirection *windDirNode   `xml:"windDirection"`
	WindSpeed     *windSpeedNode `xml:"windSpeed"`
	Humidity      *valueUnitNode `xml:"humidity"`
	Pressure      *valueUnitNode `xml:"pressure"`
	Cloudiness    *percentNode   `xml:"cloudiness"`
	Fog           *percentNode   `xml:"fog"`
	LowClouds     *percentNode   `xml:"lowClouds"`
	MediumClouds  *percentNode   `xml:"mediumClouds"`
	HighClouds    *percentNode   `xml:"highClouds"`
	Precipitation *valueUnitNode `xml:"precipitation"`
	Symbol        *symbolNode    `xml:"symbol"`
}

type valueUnitNode struct {
	Value string `xml:"value,attr"`
	Unit  string `xml:"unit,attr"`
}

type windDirNode struct {
	Deg  string `xml:"deg,attr"`
	Name string `xml:"name,attr"`
}

type windSpeedNode struct {
	MPS      string `xml:"mps,attr"`
	Beaufort string `xml:"beaufort,attr"`
}

type percentNode struct {
	Percent string `xml:"percent,attr"`
}

type symbolNode struct {
	Number string `xml:"number,attr"`
	ID     string `xml:"id,attr"`
}

// ParseForecast extracts forecast intervals from a weatherdata document.
// Only products of class "pointData" and time entries of datatype
// "forecast" are considered, both matched case-insensitively. Entries with
// missing or malformed from/to timestamps are skipped; a bad entry never
// aborts the document.
func ParseForecast(body []byte) ([]domain.ForecastInterval, error) {
	var doc forecastDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse forecast document: %w", err)
	}

	var out []domain.ForecastInterval
	for _, product := range doc.Products {
		if !strings.EqualFold(product.Class, "pointData") {
			continue
		}
		for _, tn := range product.Times {
			if !strings.EqualFold(tn.Datatype, "forecast") {
				continue
			}
			start, err := time.Parse(domain.TimeLayout, tn.From)
			if err != nil || start.IsZero() {
				continue
			}
			end, err := time.Parse(domain.TimeLayout, tn.To)
			if err != nil || end.IsZero() {
				continue
			}
			if tn.Location == nil {
				continue
			}
			out = append(out, domain.ForecastInterval{
				Start:      start,
				End:        end,
				Attributes: mapLocation(tn.Location),
			})
		}
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

func mapLocation(loc *locationNode) domain.LocationAttributes {
	attrs := domain.LocationAttributes{
		Altitude:  loc.Altitude,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
	}
	if loc.Temperature != nil {
		attrs.Temperature = &domain.Measurement{Value: loc.Temperature.Value, Unit: loc.Temperature.Unit}
	}
	if loc.Pressure != nil {
		attrs.Pressure = &domain.Measurement{Value: loc.Pressure.Value, Unit: loc.Pressure.Unit}
	}
	if loc.Humidity != nil {
		attrs.Humidity = &domain.Measurement{Value: loc.Humidity.Value, Unit: loc.Humidity.Unit}
	}
	if loc.WindDirection != nil {
		attrs.WindDirection = &domain.WindDirection{Deg: loc.WindDirection.Deg, Name: loc.WindDirection.Name}
	}
	if loc.WindSpeed != nil {
		attrs.WindSpeed = &domain.WindSpeed{MPS: loc.WindSpeed.MPS, Beaufort: loc.WindSpeed.Beaufort}
	}
	if loc.LowClouds != nil {
		attrs.CloudsLow = &loc.LowClouds.Percent
	}
	if loc.MediumClouds != nil {
		attrs.CloudsMedium = &loc.MediumClouds.Percent
	}
	if loc.HighClouds != nil {
		attrs.CloudsHigh = &loc.HighClouds.Percent
	}
	if loc.Cloudiness != nil {
		attrs.Cloudiness = &loc.Cloudiness.Percent
	}
	if loc.Fog != nil {
		attrs.Fog = &loc.Fog.Percent
	}
	if loc.Precipitation != nil {
		attrs.Precipitation = &domain.Measurement{Value: loc.Precipitation.Value, Unit: loc.Precipitation.Unit}
	}
	if loc.Symbol != nil {
		number, err := strconv.Atoi(loc.Symbol.Number)
		if err == nil {
			attrs.Symbol = &domain.Symbol{Number: number, ID: loc.Symbol.ID}
		}
	}
	return attrs
}

// Astro document shapes, following the sunrise schema.

type astroDoc struct {
	XMLName xml.Name        `xml:"astrodata"`
	Times   []astroTimeNode `xml:"time"`
}

type astroTimeNode struct {
	Locations []astroLocationNode `xml:"location"`
}

type astroLocationNode struct {
	Sun  *sunMoonNode `xml:"sun"`
	Moon *sunMoonNode `xml:"moon"`
}

type sunMoonNode struct {
	NeverRise string `xml:"never_rise,attr"`
	NeverSet  string `xml:"never_set,attr"`
	Rise      string `xml:"rise,attr"`
	Set       string `xml:"set,attr"`
	Phase     string `xml:"phase,attr"`
}

// ParseAstro extracts the day's sun and moon facts from an astrodata
// document. A wrong root element or missing time/location structure yields
// an error; that is "no data this cycle", not a fatal condition.
func ParseAstro(body []byte) (*domain.AstroSnapshot, error) {
	var doc astroDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse astro document: %w", err)
	}
	if len(doc.Times) == 0 || len(doc.Times[0].Locations) == 0 {
		return nil, ErrNoData
	}

	loc := doc.Times[0].Locations[0]
	astro := &domain.AstroSnapshot{}
	if sun := loc.Sun; sun != nil {
		astro.SunNeverRises = parseBoolAttr(sun.NeverRise)
		astro.SunNeverSets = parseBoolAttr(sun.NeverSet)
		astro.Sunrise = parseTimeAttr(sun.Rise)
		astro.Sunset = parseTimeAttr(sun.Set)
	}
	if moon := loc.Moon; moon != nil {
		astro.MoonNeverRises = parseBoolAttr(moon.NeverRise)
		astro.MoonNeverSets = parseBoolAttr(moon.NeverSet)
		astro.Moonrise = parseTimeAttr(moon.Rise)
		astro.Moonset = parseTimeAttr(moon.Set)
		astro.MoonPhase = moon.Phase
	}
	return astro, nil
}

// parseBoolAttr follows the source convention: "true" and "1" are true,
// anything else, including absence, is false.
func parseBoolAttr(v string) bool {
	return v == "true" || v == "1"
}

// parseTimeAttr returns the zero time for absent or malformed timestamps.
func parseTimeAttr(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(domain.TimeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// One-shot lookup document shapes used at configuration time.

type geonamesDoc struct {
	XMLName xml.Name `xml:"geonames"`
	SRTM3   string   `xml:"srtm3"`
}

type timezoneDoc struct {
	XMLName xml.Name `xml:"timezone"`
	Offset  string   `xml:"offset"`
}

// ParseElevation reads the elevation in meters from a geonames document.
func ParseElevation(body []byte) (int, error) {
	var doc geonamesDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return 0, fmt.Errorf("parse elevation document: %w", err)
	}
	elevation, err := strconv.Atoi(strings.TrimSpace(doc.SRTM3))
	if err != nil {
		return 0, fmt.Errorf("parse elevation value %q: %w", doc.SRTM3, err)
	}
	return elevation, nil
}

// ParseTimezone reads the UTC offset from a timezone document and returns
// it in minutes. The source reports fractional hours, e.g. "5.5".
func ParseTimezone(body []byte) (int, error) {
	var doc timezoneDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return 0, fmt.Errorf("parse timezone document: %w", err)
	}
	hours, err := strconv.ParseFloat(strings.TrimSpace(doc.Offset), 64)
	if err != nil {
		return 0, fmt.Errorf("parse timezone offset %q: %w", doc.Offset, err)
	}
	return int(hours * 60), nil
}

// DocParser adapts the package-level parse functions to an interface
// value, so callers can substitute a fake in tests.
type DocParser struct{}

func (DocParser) ParseForecast(body []byte) ([]domain.ForecastInterval, error) {
	return ParseForecast(body)
}

func (DocParser) ParseAstro(body []byte) (*domain.AstroSnapshot, error) {
	return ParseAstro(body)
}
