package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rainfall-predictor/internal/domain"
)

func TestInsertArgs(t *testing.T) {
	at := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	event := domain.PredictionEvent{
		ID:              "0b6a3a52-4ad4-4a55-9f8a-9d0e8a1f3c11",
		Observation:     domain.Observation{Location: "Sydney", MinTemp: 13.4, RainToday: "No"},
		Prediction:      1,
		Outcome:         "chance",
		FallbackColumns: []string{"WindDir3pm"},
		ModelKind:       "random_forest",
		PredictedAt:     at,
	}

	args, err := insertArgs(event)
	require.NoError(t, err)
	require.Len(t, args, 8)

	assert.Equal(t, event.ID, args[0])
	assert.Equal(t, at, args[1])
	assert.Equal(t, "Sydney", args[2])
	assert.Equal(t, int16(1), args[3])
	assert.Equal(t, "chance", args[4])
	assert.Equal(t, "random_forest", args[5])
	assert.Equal(t, []string{"WindDir3pm"}, args[6])

	var obs domain.Observation
	require.NoError(t, json.Unmarshal(args[7].([]byte), &obs))
	assert.Equal(t, event.Observation, obs)
}

func TestInsertArgs_NoFallbacksIsEmptyArray(t *testing.T) {
	args, err := insertArgs(domain.PredictionEvent{ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{}, args[6])
}

func TestStore_Name(t *testing.T) {
	assert.Equal(t, "postgres", (&Store{}).Name())
}

func TestWithBackoff_RetriesUntilSuccess(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	calls := 0
	err := withBackoff(context.Background(), 5, time.Millisecond, 4*time.Millisecond, logger, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithBackoff_GivesUpAfterAttempts(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	calls := 0
	err := withBackoff(context.Background(), 3, time.Millisecond, time.Millisecond, logger, func(context.Context) error {
		calls++
		return errors.New("connection refused")
	})
	require.Error(t, err)
	assert.Equal(t, "connection refused", err.Error())
	assert.Equal(t, 3, calls)
}

func TestWithBackoff_StopsOnCanceledContext(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := withBackoff(ctx, 5, time.Hour, time.Hour, logger, func(context.Context) error {
		calls++
		return errors.New("connection refused")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
