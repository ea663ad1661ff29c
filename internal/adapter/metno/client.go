package metno

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/overcastlab/meteod/internal/domain"
)

// ClientConfig bundles endpoint and resilience settings for the remote
// weather source.
type ClientConfig struct {
	ForecastURL  string
	AstroURL     string
	ElevationURL string
	TimezoneURL  string

	Timeout time.Duration
	// RateLimit is the sustained requests-per-second budget towards the
	// source; Burst allows short spikes (startup issues astro and forecast
	// back to back).
	RateLimit float64
	Burst     int
	UserAgent string
}

// Client fetches forecast and astronomical documents over HTTP. Requests
// pass through a rate limiter and a circuit breaker so a struggling source
// is not hammered on every scheduler tick.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates a Client with the given settings.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "metno",
			Timeout: time.Minute,
		}),
		logger: logger,
	}
}

// FetchForecast retrieves the multi-day forecast document for the context's
// coordinates and elevation.
func (c *Client) FetchForecast(ctx context.Context, qc domain.QueryContext) ([]byte, error) {
	url := fmt.Sprintf("%s/?lat=%s;lon=%s;msl=%d",
		c.cfg.ForecastURL, qc.Latitude, qc.Longitude, qc.ElevationM)
	return c.get(ctx, url)
}

// FetchAstro retrieves the sun/moon document for the given local calendar
// date.
func (c *Client) FetchAstro(ctx context.Context, qc domain.QueryContext, date time.Time) ([]byte, error) {
	url := fmt.Sprintf("%s/?lat=%s;lon=%s;date=%s",
		c.cfg.AstroURL, qc.Latitude, qc.Longitude, date.Format("2006-01-02"))
	return c.get(ctx, url)
}

// LookupElevation resolves the elevation in meters for a coordinate pair.
// One-shot, configuration time only.
func (c *Client) LookupElevation(ctx context.Context, lat, lon string) (int, error) {
	url := fmt.Sprintf("%s?lat=%s&lng=%s", c.cfg.ElevationURL, lat, lon)
	body, err := c.get(ctx, url)
	if err != nil {
		return 0, err
	}
	return ParseElevation(body)
}

// LookupTimezone resolves the UTC offset in minutes for a coordinate pair.
// One-shot, configuration time only.
func (c *Client) LookupTimezone(ctx context.Context, lat, lon string) (int, error) {
	url := fmt.Sprintf("%s/%s/%s", c.cfg.TimezoneURL, lat, lon)
	body, err := c.get(ctx, url)
	if err != nil {
		return 0, err
	}
	return ParseTimezone(body)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if c.cfg.UserAgent != "" {
			req.Header.Set("User-Agent", c.cfg.UserAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}
