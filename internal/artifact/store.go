package artifact

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/rainfall-predictor/internal/domain"
	"github.com/couchcryptid/rainfall-predictor/internal/observability"
)

// Store loads the artifact bundle on first use and keeps it for the life of
// the process. Concurrent first requests share one load. A failed load is not
// cached, so dropping the files in place later recovers without a restart.
type Store struct {
	dir     string
	logger  *slog.Logger
	metrics *observability.Metrics

	bundle atomic.Pointer[Bundle]
	group  singleflight.Group
}

// NewStore creates a store over an artifact directory. Nothing is read yet.
func NewStore(dir string, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{dir: dir, logger: logger, metrics: metrics}
}

// Dir returns the artifact directory.
func (s *Store) Dir() string { return s.dir }

// Bundle returns the loaded bundle, loading it if necessary. Waiting callers
// return early when ctx is done; the shared load itself runs to completion.
func (s *Store) Bundle(ctx context.Context) (*Bundle, error) {
	if b := s.bundle.Load(); b != nil {
		return b, nil
	}

	ch := s.group.DoChan("bundle", func() (any, error) {
		if b := s.bundle.Load(); b != nil {
			return b, nil
		}
		return s.load()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Bundle), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Load is Bundle without the result, for eager loading at startup.
func (s *Store) Load(ctx context.Context) error {
	_, err := s.Bundle(ctx)
	return err
}

// Loaded reports whether a bundle is in memory.
func (s *Store) Loaded() bool {
	return s.bundle.Load() != nil
}

// Missing lists artifacts absent from the directory.
func (s *Store) Missing() []string {
	return Missing(s.dir)
}

// CheckReadiness loads the bundle if needed and reports any load failure.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.Load(ctx)
}

func (s *Store) load() (*Bundle, error) {
	b, err := Load(s.dir)
	if err != nil {
		s.metrics.ArtifactLoads.WithLabelValues("failure").Inc()
		level := slog.LevelError
		if errors.Is(err, domain.ErrMissingArtifact) {
			level = slog.LevelWarn
		}
		s.logger.Log(context.Background(), level, "artifact load failed", "dir", s.dir, "error", err)
		return nil, err
	}

	s.bundle.Store(b)
	s.metrics.ArtifactLoads.WithLabelValues("success").Inc()
	s.metrics.ArtifactsLoaded.Set(1)
	s.logger.Info("artifacts loaded",
		"dir", s.dir,
		"model", b.ModelInfo.Kind,
		"scaler", b.ScalerInfo.Kind,
		"encoded_columns", b.Encoders.Columns(),
	)
	return b, nil
}
