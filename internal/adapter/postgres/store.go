// Package postgres keeps an audit log of served predictions.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/rainfall-predictor/internal/domain"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS prediction_log (
    id               uuid PRIMARY KEY,
    predicted_at     timestamptz NOT NULL,
    location         text NOT NULL,
    prediction       smallint NOT NULL,
    outcome          text NOT NULL,
    model_kind       text NOT NULL,
    fallback_columns text[] NOT NULL DEFAULT '{}',
    observation      jsonb NOT NULL
);
CREATE INDEX IF NOT EXISTS prediction_log_predicted_at_idx ON prediction_log (predicted_at DESC);
`

const insertSQL = `
INSERT INTO prediction_log (id, predicted_at, location, prediction, outcome, model_kind, fallback_columns, observation)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING`

const recentSQL = `
SELECT id::text, predicted_at, prediction, outcome, model_kind, fallback_columns, observation
FROM prediction_log
ORDER BY predicted_at DESC
LIMIT $1`

// Store writes prediction events to Postgres.
// It implements pipeline.EventSink.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	return &Store{pool: pool}, nil
}

const (
	connectAttempts = 5
	initialBackoff  = 500 * time.Millisecond
	maxBackoff      = 5 * time.Second
)

// Connect creates a Store and its schema, retrying while the database is
// still coming up.
func Connect(ctx context.Context, databaseURL string, logger *slog.Logger) (*Store, error) {
	s, err := New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := withBackoff(ctx, connectAttempts, initialBackoff, maxBackoff, logger, s.EnsureSchema); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// withBackoff calls fn up to attempts times, doubling the wait between
// calls up to maxWait.
func withBackoff(ctx context.Context, attempts int, wait, maxWait time.Duration, logger *slog.Logger, fn func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil || attempt >= attempts {
			return err
		}
		logger.Warn("postgres not ready, retrying",
			"attempt", attempt,
			"backoff", wait,
			"error", err,
		)
		if !retry.SleepWithContext(ctx, wait) {
			return fmt.Errorf("postgres: %w (last error: %w)", ctx.Err(), err)
		}
		wait = retry.NextBackoff(wait, maxWait)
	}
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the prediction_log table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// Name identifies the sink in logs and metrics.
func (s *Store) Name() string { return "postgres" }

// Publish inserts one event. Replays of the same event ID are ignored.
func (s *Store) Publish(ctx context.Context, event domain.PredictionEvent) error {
	args, err := insertArgs(event)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, insertSQL, args...); err != nil {
		return fmt.Errorf("postgres: insert prediction %s: %w", event.ID, err)
	}
	return nil
}

// Recent returns the latest logged predictions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.PredictionEvent, error) {
	rows, err := s.pool.Query(ctx, recentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query recent: %w", err)
	}
	defer rows.Close()

	events := make([]domain.PredictionEvent, 0, limit)
	for rows.Next() {
		var (
			e       domain.PredictionEvent
			raw     []byte
			predict int16
			at      time.Time
		)
		if err := rows.Scan(&e.ID, &at, &predict, &e.Outcome, &e.ModelKind, &e.FallbackColumns, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &e.Observation); err != nil {
			return nil, fmt.Errorf("postgres: decode observation %s: %w", e.ID, err)
		}
		e.Prediction = int(predict)
		e.PredictedAt = at.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

// insertArgs orders an event's columns for insertSQL.
func insertArgs(event domain.PredictionEvent) ([]any, error) {
	obs, err := json.Marshal(event.Observation)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode observation: %w", err)
	}
	fallbacks := event.FallbackColumns
	if fallbacks == nil {
		fallbacks = []string{}
	}
	return []any{
		event.ID,
		event.PredictedAt,
		event.Observation.Location,
		int16(event.Prediction),
		event.Outcome,
		event.ModelKind,
		fallbacks,
		obs,
	}, nil
}
