package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rainfall-predictor/internal/artifact"
)

func TestRun_DemoArtifacts(t *testing.T) {
	dir := t.TempDir()
	_, err := artifact.WriteDocuments(dir, artifact.DemoDocuments(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), artifact.Gzip)
	require.NoError(t, err)

	var out bytes.Buffer
	code := run(&out, dir)

	assert.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "type: logistic_regression")
	assert.Contains(t, out.String(), "trained at: 2024-03-01T00:00:00Z")
	assert.Contains(t, out.String(), "Location     49 classes")
	assert.Contains(t, out.String(), "numeric: median over 16 columns")
	assert.Contains(t, out.String(), "typical Canberra day: no_chance")
	assert.Contains(t, out.String(), "All artifacts are usable.")
}

func TestRun_MissingFiles(t *testing.T) {
	var out bytes.Buffer
	code := run(&out, t.TempDir())

	assert.Equal(t, 1, code)
	for _, name := range artifact.Files {
		assert.Contains(t, out.String(), name+": not found")
	}
	assert.NotContains(t, out.String(), "Smoke prediction")
}

func TestRun_MissingModelStillInspectsOthers(t *testing.T) {
	dir := t.TempDir()
	_, err := artifact.WriteDocuments(dir, artifact.DemoDocuments(time.Now()), artifact.None)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, artifact.ModelFile)))

	var out bytes.Buffer
	code := run(&out, dir)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), artifact.ModelFile+": not found")
	assert.NotContains(t, out.String(), "Model ("+artifact.ModelFile+")")
	assert.Contains(t, out.String(), "Scaler ("+artifact.ScalerFile+")")
	assert.Contains(t, out.String(), "type: standard")
	assert.Contains(t, out.String(), "Location     49 classes")
	assert.Contains(t, out.String(), "categorical: most_frequent over 5 columns")
	assert.NotContains(t, out.String(), "Smoke prediction")
}

func TestRun_InvalidScalerSkipsSmokeTest(t *testing.T) {
	dir := t.TempDir()
	_, err := artifact.WriteDocuments(dir, artifact.DemoDocuments(time.Now()), artifact.None)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifact.ScalerFile), []byte(`{"kind":"standard","scale":[1]}`), 0o600))

	var out bytes.Buffer
	code := run(&out, dir)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "artifact schema mismatch")
	assert.NotContains(t, out.String(), "Smoke prediction")
}

func TestRun_NullScalerAndNoEncoders(t *testing.T) {
	dir := t.TempDir()
	docs := artifact.DemoDocuments(time.Now())
	docs.Scaler = nil
	docs.Encoders = artifact.EncodersDoc{}
	_, err := artifact.WriteDocuments(dir, docs, artifact.None)
	require.NoError(t, err)

	var out bytes.Buffer
	code := run(&out, dir)

	// Without encoders the categorical fill values are not numeric.
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "type: none")
	assert.Contains(t, out.String(), "no encoder, values must be numeric")
	assert.Contains(t, out.String(), "preprocess:")
}

func TestTypicalDay_RequiresFullCoverage(t *testing.T) {
	_, ok := typicalDay(&artifact.Imputers{})
	assert.False(t, ok)
}
