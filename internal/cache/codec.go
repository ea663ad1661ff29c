// Package cache persists a weather dataset to a section-keyed text file so
// a restart can seed itself without waiting for the network.
//
// The file carries one [info] header section (location identity, interval
// count, write timestamp) and one [timeslice{N}] section per interval,
// N zero-based in write order. Attribute keys are only written when the
// field is present; a missing key on read means "not reported", never an
// empty value. All timestamps are UTC in the 2006-01-02T15:04:05Z form.
package cache

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/ini.v1"

	"github.com/overcastlab/meteod/internal/domain"
)

// ErrRejected marks a cache payload that failed validation against the
// current query context: stale, mismatched identity, or structurally
// incomplete. Never fatal; the caller falls back to a network fetch.
var ErrRejected = errors.New("cache rejected")

const infoSection = "info"

// Encode serializes the dataset for the given context. Interval sections
// are emitted in the dataset's sorted order.
func Encode(ds *domain.WeatherDataset, qc domain.QueryContext, now time.Time) ([]byte, error) {
	f := ini.Empty()

	info, err := f.NewSection(infoSection)
	if err != nil {
		return nil, fmt.Errorf("encode cache header: %w", err)
	}
	intervals := ds.Intervals()
	setKey(info, "location_name", qc.LocationName)
	setKey(info, "lat", qc.Latitude)
	setKey(info, "lon", qc.Longitude)
	setKey(info, "msl", strconv.Itoa(qc.ElevationM))
	setKey(info, "timezone", strconv.Itoa(qc.UTCOffsetMin))
	setKey(info, "timeslices", strconv.Itoa(len(intervals)))
	setKey(info, "cache_date", formatTime(now))

	for i, fi := range intervals {
		sec, err := f.NewSection(fmt.Sprintf("timeslice%d", i))
		if err != nil {
			return nil, fmt.Errorf("encode timeslice %d: %w", i, err)
		}
		writeInterval(sec, fi)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write cache payload: %w", err)
	}
	return buf.Bytes(), nil
}

func writeInterval(sec *ini.Section, fi domain.ForecastInterval) {
	setKey(sec, "start", formatTime(fi.Start))
	setKey(sec, "end", formatTime(fi.End))
	if !fi.Point.IsZero() {
		setKey(sec, "point", formatTime(fi.Point))
	}

	attrs := fi.Attributes
	setKey(sec, "altitude", attrs.Altitude)
	setKey(sec, "latitude", attrs.Latitude)
	setKey(sec, "longitude", attrs.Longitude)
	if attrs.Temperature != nil {
		setKey(sec, "temperature_value", attrs.Temperature.Value)
		setKey(sec, "temperature_unit", attrs.Temperature.Unit)
	}
	if attrs.WindDirection != nil {
		setKey(sec, "wind_dir_deg", attrs.WindDirection.Deg)
		setKey(sec, "wind_dir_name", attrs.WindDirection.Name)
	}
	if attrs.WindSpeed != nil {
		setKey(sec, "wind_speed_mps", attrs.WindSpeed.MPS)
		setKey(sec, "wind_speed_beaufort", attrs.WindSpeed.Beaufort)
	}
	if attrs.Humidity != nil {
		setKey(sec, "humidity_value", attrs.Humidity.Value)
		setKey(sec, "humidity_unit", attrs.Humidity.Unit)
	}
	if attrs.Pressure != nil {
		setKey(sec, "pressure_value", attrs.Pressure.Value)
		setKey(sec, "pressure_unit", attrs.Pressure.Unit)
	}
	setOptional(sec, "clouds_low", attrs.CloudsLow)
	setOptional(sec, "clouds_medium", attrs.CloudsMedium)
	setOptional(sec, "clouds_high", attrs.CloudsHigh)
	setOptional(sec, "cloudiness", attrs.Cloudiness)
	setOptional(sec, "fog_percent", attrs.Fog)
	if attrs.Precipitation != nil {
		setKey(sec, "precipitation_value", attrs.Precipitation.Value)
		setKey(sec, "precipitation_unit", attrs.Precipitation.Unit)
	}
	if attrs.Symbol != nil {
		setKey(sec, "symbol_id", strconv.Itoa(attrs.Symbol.Number))
		setKey(sec, "symbol", attrs.Symbol.ID)
	}
}

// Decode validates a cache payload against the current context and
// reconstructs its intervals. Individual corrupt timeslice sections are
// skipped; header problems reject the whole payload with ErrRejected.
func Decode(data []byte, qc domain.QueryContext, now time.Time) ([]domain.ForecastInterval, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable payload: %v", ErrRejected, err)
	}

	info, err := f.GetSection(infoSection)
	if err != nil {
		return nil, fmt.Errorf("%w: missing [info] section", ErrRejected)
	}
	for _, key := range []string{"location_name", "lat", "lon", "msl", "timezone", "timeslices", "cache_date"} {
		if !info.HasKey(key) {
			return nil, fmt.Errorf("%w: missing header field %q", ErrRejected, key)
		}
	}

	if info.Key("lat").String() != qc.Latitude || info.Key("lon").String() != qc.Longitude {
		return nil, fmt.Errorf("%w: coordinates do not match query context", ErrRejected)
	}
	if msl, err := info.Key("msl").Int(); err != nil || msl != qc.ElevationM {
		return nil, fmt.Errorf("%w: elevation does not match query context", ErrRejected)
	}
	if tz, err := info.Key("timezone").Int(); err != nil || tz != qc.UTCOffsetMin {
		return nil, fmt.Errorf("%w: utc offset does not match query context", ErrRejected)
	}

	count, err := info.Key("timeslices").Int()
	if err != nil || count < 1 {
		return nil, fmt.Errorf("%w: no timeslices declared", ErrRejected)
	}

	written, err := parseTime(info.Key("cache_date").String())
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable cache_date", ErrRejected)
	}
	if now.Sub(written) > qc.CacheMaxAge {
		return nil, fmt.Errorf("%w: payload older than %s", ErrRejected, qc.CacheMaxAge)
	}

	var out []domain.ForecastInterval
	for i := 0; i < count; i++ {
		sec, err := f.GetSection(fmt.Sprintf("timeslice%d", i))
		if err != nil {
			continue
		}
		fi, err := readInterval(sec)
		if err != nil {
			continue
		}
		out = append(out, fi)
	}
	return out, nil
}

func readInterval(sec *ini.Section) (domain.ForecastInterval, error) {
	start, err := parseTime(sec.Key("start").String())
	if err != nil {
		return domain.ForecastInterval{}, fmt.Errorf("bad start: %w", err)
	}
	end, err := parseTime(sec.Key("end").String())
	if err != nil {
		return domain.ForecastInterval{}, fmt.Errorf("bad end: %w", err)
	}

	fi := domain.ForecastInterval{Start: start, End: end}
	if sec.HasKey("point") {
		if point, err := parseTime(sec.Key("point").String()); err == nil {
			fi.Point = point
		}
	}

	attrs := &fi.Attributes
	attrs.Altitude = sec.Key("altitude").String()
	attrs.Latitude = sec.Key("latitude").String()
	attrs.Longitude = sec.Key("longitude").String()
	if sec.HasKey("temperature_value") {
		attrs.Temperature = &domain.Measurement{
			Value: sec.Key("temperature_value").String(),
			Unit:  sec.Key("temperature_unit").String(),
		}
	}
	if sec.HasKey("wind_dir_deg") {
		attrs.WindDirection = &domain.WindDirection{
			Deg:  sec.Key("wind_dir_deg").String(),
			Name: sec.Key("wind_dir_name").String(),
		}
	}
	if sec.HasKey("wind_speed_mps") {
		attrs.WindSpeed = &domain.WindSpeed{
			MPS:      sec.Key("wind_speed_mps").String(),
			Beaufort: sec.Key("wind_speed_beaufort").String(),
		}
	}
	if sec.HasKey("humidity_value") {
		attrs.Humidity = &domain.Measurement{
			Value: sec.Key("humidity_value").String(),
			Unit:  sec.Key("humidity_unit").String(),
		}
	}
	if sec.HasKey("pressure_value") {
		attrs.Pressure = &domain.Measurement{
			Value: sec.Key("pressure_value").String(),
			Unit:  sec.Key("pressure_unit").String(),
		}
	}
	attrs.CloudsLow = optionalKey(sec, "clouds_low")
	attrs.CloudsMedium = optionalKey(sec, "clouds_medium")
	attrs.CloudsHigh = optionalKey(sec, "clouds_high")
	attrs.Cloudiness = optionalKey(sec, "cloudiness")
	attrs.Fog = optionalKey(sec, "fog_percent")
	if sec.HasKey("precipitation_value") {
		attrs.Precipitation = &domain.Measurement{
			Value: sec.Key("precipitation_value").String(),
			Unit:  sec.Key("precipitation_unit").String(),
		}
	}
	if sec.HasKey("symbol") && sec.HasKey("symbol_id") {
		if number, err := sec.Key("symbol_id").Int(); err == nil {
			attrs.Symbol = &domain.Symbol{Number: number, ID: sec.Key("symbol").String()}
		}
	}
	return fi, nil
}

func setKey(sec *ini.Section, key, value string) {
	if value == "" {
		return
	}
	sec.Key(key).SetValue(value)
}

func setOptional(sec *ini.Section, key string, value *string) {
	if value == nil {
		return
	}
	sec.Key(key).SetValue(*value)
}

func optionalKey(sec *ini.Section, key string) *string {
	if !sec.HasKey(key) {
		return nil
	}
	v := sec.Key(key).String()
	return &v
}

func formatTime(t time.Time) string {
	return t.UTC().Format(domain.TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(domain.TimeLayout, s)
}
