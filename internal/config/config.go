package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/overcastlab/meteod/internal/domain"
)

// ElevationUnset and UTCOffsetUnset mark values the operator did not
// provide; main resolves them with a one-shot lookup before the scheduler
// starts.
const (
	ElevationUnset = -9999
	UTCOffsetUnset = -9999
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	LocationName string
	Latitude     string
	Longitude    string
	ElevationM   int
	UTCOffsetMin int

	ForecastURL  string
	AstroURL     string
	ElevationURL string
	TimezoneURL  string
	UserAgent    string

	FetchTimeout time.Duration
	RateLimitRPS float64
	RateBurst    int

	TickInterval       time.Duration
	DataMaxAge         time.Duration
	DataRetention      time.Duration
	ConditionsInterval time.Duration

	CacheDir    string
	CacheMaxAge time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka conditions notifier, enabled when brokers are configured.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	// Best-effort; absence of a .env file is the normal case.
	_ = godotenv.Load()

	cfg := &Config{
		LocationName: os.Getenv("LOCATION_NAME"),
		Latitude:     strings.TrimSpace(os.Getenv("LATITUDE")),
		Longitude:    strings.TrimSpace(os.Getenv("LONGITUDE")),

		ForecastURL:  envOrDefault("FORECAST_URL", "http://api.yr.no/weatherapi/locationforecastlts/1.1"),
		AstroURL:     envOrDefault("ASTRO_URL", "http://api.yr.no/weatherapi/sunrise/1.0"),
		ElevationURL: envOrDefault("ELEVATION_URL", "http://api.geonames.org/srtm3XML"),
		TimezoneURL:  envOrDefault("TIMEZONE_URL", "http://www.earthtools.org/timezone"),
		UserAgent:    envOrDefault("USER_AGENT", "meteod/1.0 (+https://github.com/overcastlab/meteod)"),

		HTTPAddr:  envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),

		KafkaTopic: envOrDefault("KAFKA_TOPIC", "current-conditions"),
	}

	if cfg.Latitude == "" || cfg.Longitude == "" {
		return nil, errors.New("LATITUDE and LONGITUDE are required")
	}

	var err error
	if cfg.ElevationM, err = envInt("ELEVATION_M", ElevationUnset); err != nil {
		return nil, err
	}
	if cfg.UTCOffsetMin, err = envInt("UTC_OFFSET_MIN", UTCOffsetUnset); err != nil {
		return nil, err
	}
	if cfg.RateBurst, err = envInt("RATE_BURST", 4); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = envFloat("RATE_LIMIT_RPS", 1); err != nil {
		return nil, err
	}

	durations := []struct {
		dst  *time.Duration
		name string
		def  string
	}{
		{&cfg.FetchTimeout, "FETCH_TIMEOUT", "30s"},
		{&cfg.TickInterval, "TICK_INTERVAL", "15s"},
		{&cfg.DataMaxAge, "DATA_MAX_AGE", "20m"},
		{&cfg.DataRetention, "DATA_RETENTION", "48h"},
		{&cfg.ConditionsInterval, "CONDITIONS_INTERVAL", "5m"},
		{&cfg.CacheMaxAge, "CACHE_MAX_AGE", "48h"},
		{&cfg.ShutdownTimeout, "SHUTDOWN_TIMEOUT", "10s"},
	}
	for _, d := range durations {
		if *d.dst, err = envDuration(d.name, d.def); err != nil {
			return nil, err
		}
	}

	cfg.CacheDir = os.Getenv("CACHE_DIR")
	if cfg.CacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = "."
		}
		cfg.CacheDir = filepath.Join(base, "meteod")
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	cfg.KafkaEnabled = len(cfg.KafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		cfg.KafkaEnabled = v == "true"
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

// QueryContext builds the dataset identity from the resolved settings.
// Call after elevation and UTC offset have been filled in.
func (c *Config) QueryContext() domain.QueryContext {
	return domain.QueryContext{
		LocationName: c.LocationName,
		Latitude:     c.Latitude,
		Longitude:    c.Longitude,
		ElevationM:   c.ElevationM,
		UTCOffsetMin: c.UTCOffsetMin,
		CacheMaxAge:  c.CacheMaxAge,
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return f, nil
}

func envDuration(key, def string) (time.Duration, error) {
	v := envOrDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
