package domain

import (
	"time"

	"github.com/google/uuid"
)

// PredictionEvent records one served prediction for downstream sinks.
type PredictionEvent struct {
	ID              string      `json:"id"`
	Observation     Observation `json:"observation"`
	Prediction      int         `json:"prediction"`
	Outcome         string      `json:"outcome"`
	FallbackColumns []string    `json:"fallback_columns,omitempty"`
	ModelKind       string      `json:"model_kind"`
	PredictedAt     time.Time   `json:"predicted_at"`
}

// NewPredictionEvent stamps a prediction with a fresh ID and the package clock.
func NewPredictionEvent(obs Observation, p Prediction, fallbacks []string, modelKind string) PredictionEvent {
	return PredictionEvent{
		ID:              uuid.New().String(),
		Observation:     obs,
		Prediction:      int(p),
		Outcome:         p.Outcome(),
		FallbackColumns: fallbacks,
		ModelKind:       modelKind,
		PredictedAt:     Now(),
	}
}
