package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/overcastlab/meteod/internal/domain"
	"github.com/overcastlab/meteod/internal/observability"
)

// Store reads and writes the cache file on disk. Writes happen after every
// successful forecast merge (write-through) and are best-effort: the
// in-memory dataset stays authoritative when the disk misbehaves.
type Store struct {
	dir     string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStore creates a Store rooted at dir. The directory is created lazily
// on first write.
func NewStore(dir string, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{dir: dir, logger: logger, metrics: metrics}
}

// Path returns the cache file location for a query context. One file per
// location identity, so switching locations never reads another's data.
func (s *Store) Path(qc domain.QueryContext) string {
	name := fmt.Sprintf("weatherdata_%s_%s_%d", qc.Latitude, qc.Longitude, qc.ElevationM)
	return filepath.Join(s.dir, name)
}

// Save encodes the dataset and writes it through to disk.
func (s *Store) Save(ds *domain.WeatherDataset, qc domain.QueryContext, now time.Time) error {
	data, err := Encode(ds, qc, now)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	path := s.Path(qc)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

// Seed loads the cache file for the context, validates it, and upserts the
// restored intervals into the dataset. Returns the number of intervals
// restored; a missing or rejected file seeds nothing and is not an error
// worth surfacing beyond a debug log.
func (s *Store) Seed(ds *domain.WeatherDataset, qc domain.QueryContext, now time.Time) int {
	data, err := os.ReadFile(s.Path(qc))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.metrics.CacheEvents.WithLabelValues("read", "error").Inc()
			s.logger.Debug("cache file unreadable", "path", s.Path(qc), "error", err)
		}
		return 0
	}

	intervals, err := Decode(data, qc, now)
	if err != nil {
		s.metrics.CacheEvents.WithLabelValues("read", "rejected").Inc()
		s.logger.Debug("cache file not used", "path", s.Path(qc), "reason", err)
		return 0
	}
	s.metrics.CacheEvents.WithLabelValues("read", "ok").Inc()
	for _, fi := range intervals {
		ds.Upsert(fi)
	}
	// Current conditions stay unset; the next recomputation derives them.
	return len(intervals)
}
