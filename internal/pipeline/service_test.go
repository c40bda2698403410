package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rainfall-predictor/internal/artifact"
	"github.com/couchcryptid/rainfall-predictor/internal/domain"
	"github.com/couchcryptid/rainfall-predictor/internal/observability"
	"github.com/couchcryptid/rainfall-predictor/internal/pipeline"
)

// --- mocks ---

type mockSource struct {
	bundle *artifact.Bundle
	err    error
}

func (m *mockSource) Bundle(context.Context) (*artifact.Bundle, error) {
	return m.bundle, m.err
}

func (m *mockSource) CheckReadiness(context.Context) error { return m.err }

type mockSink struct {
	name  string
	err   error
	block bool

	mu     sync.Mutex
	events []domain.PredictionEvent
}

func (m *mockSink) Name() string { return m.name }

func (m *mockSink) Publish(ctx context.Context, event domain.PredictionEvent) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func (m *mockSink) published() []domain.PredictionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PredictionEvent(nil), m.events...)
}

// --- helpers ---

func demoBundle(t *testing.T) *artifact.Bundle {
	t.Helper()
	dir := t.TempDir()
	_, err := artifact.WriteDocuments(dir, artifact.DemoDocuments(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)), artifact.None)
	require.NoError(t, err)
	b, err := artifact.Load(dir)
	require.NoError(t, err)
	return b
}

func sydneyForm() map[string][]string {
	return map[string][]string{
		"Location": {"Sydney"}, "MinTemp": {"13.4"}, "MaxTemp": {"22.9"},
		"Rainfall": {"0.6"}, "Evaporation": {"5.4"}, "Sunshine": {"7.6"},
		"WindGustDir": {"W"}, "WindGustSpeed": {"44"}, "WindDir9am": {"W"},
		"WindDir3pm": {"WNW"}, "WindSpeed9am": {"20"}, "WindSpeed3pm": {"24"},
		"Humidity9am": {"71"}, "Humidity3pm": {"22"}, "Pressure9am": {"1007.7"},
		"Pressure3pm": {"1007.1"}, "Cloud9am": {"8"}, "Cloud3pm": {"5"},
		"Temp9am": {"16.9"}, "Temp3pm": {"21.8"}, "RainToday": {"No"},
	}
}

func stormyForm() map[string][]string {
	form := sydneyForm()
	form["Humidity3pm"] = []string{"95"}
	form["Cloud3pm"] = []string{"8"}
	form["Sunshine"] = []string{"0"}
	form["WindGustSpeed"] = []string{"70"}
	form["Pressure9am"] = []string{"1008"}
	form["Pressure3pm"] = []string{"1003"}
	form["WindSpeed3pm"] = []string{"30"}
	form["RainToday"] = []string{"Yes"}
	return form
}

func newService(t *testing.T, src pipeline.BundleSource, sinks ...pipeline.EventSink) (*pipeline.Service, *observability.Metrics) {
	t.Helper()
	m := observability.NewMetricsForTesting()
	return pipeline.New(src, sinks, slog.Default(), m, 100*time.Millisecond), m
}

// --- tests ---

func TestService_Predict_NoRain(t *testing.T) {
	svc, m := newService(t, &mockSource{bundle: demoBundle(t)})

	res, err := svc.Predict(context.Background(), sydneyForm())
	require.NoError(t, err)
	assert.Equal(t, domain.Prediction(0), res.Prediction)
	assert.Equal(t, "no_chance", res.Event.Outcome)
	assert.Equal(t, artifact.LogisticRegression, res.Event.ModelKind)
	assert.Empty(t, res.Event.FallbackColumns)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Predictions.WithLabelValues("no_chance")), 0)
}

func TestService_Predict_Rain(t *testing.T) {
	svc, m := newService(t, &mockSource{bundle: demoBundle(t)})

	res, err := svc.Predict(context.Background(), stormyForm())
	require.NoError(t, err)
	assert.Equal(t, domain.Rain, res.Prediction)
	assert.Equal(t, "chance", res.Event.Outcome)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Predictions.WithLabelValues("chance")), 0)
}

func TestService_Predict_UnseenLocationStillPredicts(t *testing.T) {
	svc, m := newService(t, &mockSource{bundle: demoBundle(t)})
	form := stormyForm()
	form["Location"] = []string{"Atlantis"}

	res, err := svc.Predict(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, domain.Rain, res.Prediction)
	assert.Equal(t, []string{"Location"}, res.Event.FallbackColumns)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.UnseenCategories.WithLabelValues("Location")), 0)
}

func TestService_Predict_Deterministic(t *testing.T) {
	svc, _ := newService(t, &mockSource{bundle: demoBundle(t)})

	first, err := svc.Predict(context.Background(), stormyForm())
	require.NoError(t, err)
	for range 5 {
		again, err := svc.Predict(context.Background(), stormyForm())
		require.NoError(t, err)
		assert.Equal(t, first.Prediction, again.Prediction)
	}
}

func TestService_Predict_ErrorClasses(t *testing.T) {
	bundle := demoBundle(t)

	missing := sydneyForm()
	delete(missing, "Cloud3pm")
	invalid := sydneyForm()
	invalid["MinTemp"] = []string{"abc"}

	tests := []struct {
		name   string
		source *mockSource
		form   map[string][]string
		want   error
		class  string
	}{
		{"missing field", &mockSource{bundle: bundle}, missing, domain.ErrMissingField, "missing_field"},
		{"invalid number", &mockSource{bundle: bundle}, invalid, domain.ErrInvalidInput, "invalid_input"},
		{"missing artifacts", &mockSource{err: fmt.Errorf("%w: Rainfall.json", domain.ErrMissingArtifact)}, sydneyForm(), domain.ErrMissingArtifact, "missing_artifact"},
		{"bad artifacts", &mockSource{err: fmt.Errorf("%w: scale.json", domain.ErrSchemaMismatch)}, sydneyForm(), domain.ErrSchemaMismatch, "schema_mismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &mockSink{name: "audit"}
			svc, m := newService(t, tt.source, sink)

			_, err := svc.Predict(context.Background(), tt.form)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.class, pipeline.ErrorClass(err))
			assert.InDelta(t, 1.0, testutil.ToFloat64(m.PredictionErrors.WithLabelValues(tt.class)), 0)
			assert.Empty(t, sink.published())
		})
	}
}

func TestService_Predict_FieldValidationBeforeArtifacts(t *testing.T) {
	form := sydneyForm()
	delete(form, "Location")
	svc, _ := newService(t, &mockSource{err: domain.ErrMissingArtifact})

	_, err := svc.Predict(context.Background(), form)
	require.ErrorIs(t, err, domain.ErrMissingField)
}

type failingModel struct{}

func (failingModel) Predict(domain.Row) (int, error) { return 0, errors.New("boom") }

func TestService_Predict_InferenceFailure(t *testing.T) {
	bundle := demoBundle(t)
	bundle.Model = failingModel{}
	svc, m := newService(t, &mockSource{bundle: bundle})

	_, err := svc.Predict(context.Background(), sydneyForm())
	require.ErrorIs(t, err, domain.ErrInference)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.PredictionErrors.WithLabelValues("inference")), 0)
}

func TestService_Predict_PublishesToEverySink(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.March, 2, 9, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(nil) })

	kafka := &mockSink{name: "kafka"}
	audit := &mockSink{name: "postgres"}
	svc, m := newService(t, &mockSource{bundle: demoBundle(t)}, kafka, audit)

	res, err := svc.Predict(context.Background(), stormyForm())
	require.NoError(t, err)

	for _, sink := range []*mockSink{kafka, audit} {
		events := sink.published()
		require.Len(t, events, 1, sink.name)
		assert.Equal(t, res.Event.ID, events[0].ID)
		assert.Equal(t, fakeClock.Now(), events[0].PredictedAt)
		assert.Equal(t, "Sydney", events[0].Observation.Location)
		assert.InDelta(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues(sink.name, "success")), 0)
	}
}

func TestService_Predict_SinkFailureDoesNotFailRequest(t *testing.T) {
	broken := &mockSink{name: "kafka", err: errors.New("broker down")}
	slow := &mockSink{name: "postgres", block: true}
	svc, m := newService(t, &mockSource{bundle: demoBundle(t)}, broken, slow)

	res, err := svc.Predict(context.Background(), stormyForm())
	require.NoError(t, err)
	assert.Equal(t, domain.Rain, res.Prediction)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("kafka", "error")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("postgres", "error")), 0)
}

func TestService_Predict_PublishOutlivesCanceledRequest(t *testing.T) {
	sink := &mockSink{name: "kafka"}
	svc, _ := newService(t, &mockSource{bundle: demoBundle(t)}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Predict(ctx, sydneyForm())
	require.NoError(t, err)
	assert.Len(t, sink.published(), 1)
}

func TestService_CheckReadiness(t *testing.T) {
	svc, _ := newService(t, &mockSource{err: domain.ErrMissingArtifact})
	assert.ErrorIs(t, svc.CheckReadiness(context.Background()), domain.ErrMissingArtifact)

	svc, _ = newService(t, &mockSource{bundle: demoBundle(t)})
	assert.NoError(t, svc.CheckReadiness(context.Background()))
}

func TestErrorClass_WrappedUnknownIsInference(t *testing.T) {
	assert.Equal(t, "inference", pipeline.ErrorClass(errors.New("anything")))
}
