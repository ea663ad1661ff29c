package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LATITUDE", "59.91")
	t.Setenv("LONGITUDE", "10.75")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "59.91", cfg.Latitude)
	assert.Equal(t, "10.75", cfg.Longitude)
	assert.Equal(t, ElevationUnset, cfg.ElevationM)
	assert.Equal(t, UTCOffsetUnset, cfg.UTCOffsetMin)
	assert.Equal(t, 15*time.Second, cfg.TickInterval)
	assert.Equal(t, 20*time.Minute, cfg.DataMaxAge)
	assert.Equal(t, 48*time.Hour, cfg.DataRetention)
	assert.Equal(t, 5*time.Minute, cfg.ConditionsInterval)
	assert.Equal(t, 48*time.Hour, cfg.CacheMaxAge)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.NotEmpty(t, cfg.CacheDir)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoadMissingCoordinates(t *testing.T) {
	t.Setenv("LATITUDE", "")
	t.Setenv("LONGITUDE", "")

	_, err := Load()
	assert.ErrorContains(t, err, "LATITUDE and LONGITUDE are required")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LATITUDE", "48.21")
	t.Setenv("LONGITUDE", "16.37")
	t.Setenv("LOCATION_NAME", "Vienna")
	t.Setenv("ELEVATION_M", "171")
	t.Setenv("UTC_OFFSET_MIN", "60")
	t.Setenv("DATA_MAX_AGE", "10m")
	t.Setenv("CACHE_DIR", "/tmp/meteod-test")
	t.Setenv("KAFKA_BROKERS", "localhost:9092, localhost:9093")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Vienna", cfg.LocationName)
	assert.Equal(t, 171, cfg.ElevationM)
	assert.Equal(t, 60, cfg.UTCOffsetMin)
	assert.Equal(t, 10*time.Minute, cfg.DataMaxAge)
	assert.Equal(t, "/tmp/meteod-test", cfg.CacheDir)
	assert.Equal(t, []string{"localhost:9092", "localhost:9093"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled)
}

func TestLoadInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad elevation", "ELEVATION_M", "high"},
		{"bad offset", "UTC_OFFSET_MIN", "1h"},
		{"bad tick", "TICK_INTERVAL", "often"},
		{"negative tick", "TICK_INTERVAL", "-15s"},
		{"bad rate", "RATE_LIMIT_RPS", "fast"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("LATITUDE", "59.91")
			t.Setenv("LONGITUDE", "10.75")
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadKafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("LATITUDE", "59.91")
	t.Setenv("LONGITUDE", "10.75")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "")

	_, err := Load()
	assert.ErrorContains(t, err, "KAFKA_BROKERS")
}

func TestQueryContext(t *testing.T) {
	t.Setenv("LATITUDE", "59.91")
	t.Setenv("LONGITUDE", "10.75")
	t.Setenv("LOCATION_NAME", "Oslo")
	t.Setenv("ELEVATION_M", "23")
	t.Setenv("UTC_OFFSET_MIN", "120")

	cfg, err := Load()
	require.NoError(t, err)

	qc := cfg.QueryContext()
	assert.Equal(t, "Oslo", qc.LocationName)
	assert.Equal(t, "59.91", qc.Latitude)
	assert.Equal(t, "10.75", qc.Longitude)
	assert.Equal(t, 23, qc.ElevationM)
	assert.Equal(t, 120, qc.UTCOffsetMin)
	assert.Equal(t, cfg.CacheMaxAge, qc.CacheMaxAge)
}
