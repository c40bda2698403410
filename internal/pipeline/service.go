package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/rainfall-predictor/internal/artifact"
	"github.com/couchcryptid/rainfall-predictor/internal/domain"
	"github.com/couchcryptid/rainfall-predictor/internal/observability"
)

// BundleSource supplies the loaded artifact bundle.
type BundleSource interface {
	Bundle(ctx context.Context) (*artifact.Bundle, error)
	CheckReadiness(ctx context.Context) error
}

// EventSink receives a record of every served prediction.
type EventSink interface {
	Name() string
	Publish(ctx context.Context, event domain.PredictionEvent) error
}

// Result is the outcome of one prediction request.
type Result struct {
	Prediction domain.Prediction
	Event      domain.PredictionEvent
}

// Service runs the parse, encode, reorder, scale, predict flow for a form
// submission and hands the result to the configured sinks.
type Service struct {
	source         BundleSource
	sinks          []EventSink
	logger         *slog.Logger
	metrics        *observability.Metrics
	publishTimeout time.Duration
}

// New creates a Service. Sinks may be empty.
func New(source BundleSource, sinks []EventSink, logger *slog.Logger, metrics *observability.Metrics, publishTimeout time.Duration) *Service {
	return &Service{
		source:         source,
		sinks:          sinks,
		logger:         logger,
		metrics:        metrics,
		publishTimeout: publishTimeout,
	}
}

// CheckReadiness reports whether artifacts can be served.
func (s *Service) CheckReadiness(ctx context.Context) error {
	return s.source.CheckReadiness(ctx)
}

// Predict classifies one form submission. Errors wrap one of the domain
// sentinels; sink failures never fail the request.
func (s *Service) Predict(ctx context.Context, form map[string][]string) (Result, error) {
	obs, err := domain.ParseObservation(form)
	if err != nil {
		s.recordError(err)
		return Result{}, err
	}

	start := time.Now()
	bundle, err := s.source.Bundle(ctx)
	if err != nil {
		s.recordError(err)
		return Result{}, err
	}

	enc, err := domain.Preprocess(obs, bundle.Encoder(), bundle.Scaler, s.logger)
	if err != nil {
		s.recordError(err)
		return Result{}, err
	}
	for _, col := range enc.Fallbacks {
		s.metrics.UnseenCategories.WithLabelValues(col).Inc()
	}

	p, err := domain.Predict(bundle.Model, enc.Scaled)
	if err != nil {
		s.recordError(err)
		return Result{}, err
	}
	s.metrics.PredictionDuration.Observe(time.Since(start).Seconds())
	s.metrics.Predictions.WithLabelValues(p.Outcome()).Inc()

	event := domain.NewPredictionEvent(obs, p, enc.Fallbacks, bundle.ModelInfo.Kind)
	s.logger.Debug("prediction served",
		"id", event.ID,
		"location", obs.Location,
		"outcome", event.Outcome,
		"fallbacks", enc.Fallbacks,
	)
	s.publish(ctx, event)

	return Result{Prediction: p, Event: event}, nil
}

// publish delivers the event to every sink concurrently within the publish
// timeout. A slow or failing sink is logged and counted, never returned.
func (s *Service) publish(ctx context.Context, event domain.PredictionEvent) {
	if len(s.sinks) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	var g errgroup.Group
	for _, sink := range s.sinks {
		g.Go(func() error {
			if err := sink.Publish(ctx, event); err != nil {
				s.metrics.EventsPublished.WithLabelValues(sink.Name(), "error").Inc()
				s.logger.Warn("prediction event not published, continuing",
					"sink", sink.Name(),
					"id", event.ID,
					"error", err,
				)
				return nil
			}
			s.metrics.EventsPublished.WithLabelValues(sink.Name(), "success").Inc()
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) recordError(err error) {
	class := ErrorClass(err)
	s.metrics.PredictionErrors.WithLabelValues(class).Inc()
	switch class {
	case "missing_field", "invalid_input":
		s.logger.Info("prediction request rejected", "error", err)
	default:
		s.logger.Error("prediction failed", "class", class, "error", err)
	}
}

// ErrorClass names the domain error class of err for metrics and logs.
func ErrorClass(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingField):
		return "missing_field"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrMissingArtifact):
		return "missing_artifact"
	case errors.Is(err, domain.ErrSchemaMismatch):
		return "schema_mismatch"
	default:
		return "inference"
	}
}
