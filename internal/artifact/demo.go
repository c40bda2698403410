package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/couchcryptid/rainfall-predictor/internal/domain"
)

// Documents is a full artifact set in its persisted form.
type Documents struct {
	Model    ModelDoc
	Scaler   *ScalerDoc
	Encoders EncodersDoc
	Imputers ImputersDoc
}

// Locations is the weatherAUS station vocabulary, in label-encoder order.
var Locations = []string{
	"Adelaide", "Albany", "Albury", "AliceSprings", "BadgerysCreek", "Ballarat",
	"Bendigo", "Brisbane", "Cairns", "Canberra", "Cobar", "CoffsHarbour",
	"Dartmoor", "Darwin", "GoldCoast", "Hobart", "Katherine", "Launceston",
	"Melbourne", "MelbourneAirport", "Mildura", "Moree", "MountGambier",
	"MountGinini", "Newcastle", "Nhil", "NorahHead", "NorfolkIsland",
	"Nuriootpa", "PearceRAAF", "Penrith", "Perth", "PerthAirport", "Portland",
	"Richmond", "Sale", "SalmonGums", "Sydney", "SydneyAirport", "Townsville",
	"Tuggeranong", "Uluru", "WaggaWagga", "Walpole", "Watsonia", "Williamtown",
	"Witchcliffe", "Wollongong", "Woomera",
}

// CompassPoints is the wind direction vocabulary, in label-encoder order.
var CompassPoints = []string{
	"E", "ENE", "ESE", "N", "NE", "NNE", "NNW", "NW",
	"S", "SE", "SSE", "SSW", "SW", "W", "WNW", "WSW",
}

// demoFeature is one column's fitted parameters in the demo bundle.
type demoFeature struct {
	coef, mean, scale float64
	median            any
}

// demoFeatures follows domain.Columns order.
var demoFeatures = []demoFeature{
	{0.05, 24, 14, "Canberra"},       // Location
	{0.1, 12.2, 6.4, 12.0},           // MinTemp
	{-0.05, 23.2, 7.1, 22.6},         // MaxTemp
	{0.1, 2.4, 8.5, 0.0},             // Rainfall
	{-0.05, 5.5, 4.2, 4.8},           // Evaporation
	{-0.45, 7.6, 3.8, 8.4},           // Sunshine
	{0.05, 7.8, 4.6, "W"},            // WindGustDir
	{0.75, 40, 13.6, 39.0},           // WindGustSpeed
	{-0.1, 7.5, 4.5, "N"},            // WindDir9am
	{0.05, 7.8, 4.5, "SE"},           // WindDir3pm
	{-0.1, 14, 8.9, 13.0},            // WindSpeed9am
	{-0.25, 18.6, 8.8, 19.0},         // WindSpeed3pm
	{0.1, 68.9, 19, 70.0},            // Humidity9am
	{1.2, 51.5, 20.8, 52.0},          // Humidity3pm
	{0.8, 1017.6, 7.1, 1017.6},       // Pressure9am
	{-1.2, 1015.3, 7, 1015.2},        // Pressure3pm
	{0.05, 4.4, 2.9, 5.0},            // Cloud9am
	{0.35, 4.5, 2.7, 5.0},            // Cloud3pm
	{0.1, 17, 6.5, 16.7},             // Temp9am
	{-0.1, 21.7, 6.9, 21.1},          // Temp3pm
	{0.2, 0.22, 0.42, "No"},          // RainToday
}

const demoIntercept = -1.9

// DemoDocuments returns a small, self-consistent artifact set: label
// encoders over the weatherAUS vocabularies, a standard scaler, and a
// logistic regression that leans on afternoon humidity, pressure, and cloud.
// It is meant for local runs and tests, not forecasting.
func DemoDocuments(trainedAt time.Time) Documents {
	names := domain.ColumnNames()
	coef := make([]float64, len(demoFeatures))
	mean := make([]float64, len(demoFeatures))
	scale := make([]float64, len(demoFeatures))

	var numCols, catCols []string
	var numStats, catStats []any
	for i, f := range demoFeatures {
		coef[i], mean[i], scale[i] = f.coef, f.mean, f.scale
		if domain.Columns[i].Kind == domain.Categorical {
			catCols = append(catCols, names[i])
			catStats = append(catStats, f.median)
		} else {
			numCols = append(numCols, names[i])
			numStats = append(numStats, f.median)
		}
	}

	trained := trainedAt.UTC()
	return Documents{
		Model: ModelDoc{
			Kind:         LogisticRegression,
			FeatureNames: names,
			Classes:      []int{0, 1},
			TrainedAt:    &trained,
			Coef:         coef,
			Intercept:    demoIntercept,
		},
		Scaler: &ScalerDoc{
			Kind:         "standard",
			FeatureNames: names,
			Mean:         mean,
			Scale:        scale,
		},
		Encoders: EncodersDoc{
			Features: map[string]LabelEncoderDoc{
				"Location":    {Classes: Locations},
				"WindGustDir": {Classes: CompassPoints},
				"WindDir9am":  {Classes: CompassPoints},
				"WindDir3pm":  {Classes: CompassPoints},
				"RainToday":   {Classes: []string{"No", "Yes"}},
			},
			Target: &LabelEncoderDoc{Classes: []string{"No", "Yes"}},
		},
		Imputers: ImputersDoc{
			Numeric:     &ImputerDoc{Strategy: "median", Columns: numCols, Statistics: numStats},
			Categorical: &ImputerDoc{Strategy: "most_frequent", Columns: catCols, Statistics: catStats},
		},
	}
}

// WriteDocuments stores an artifact set in dir with the given compression.
// Other stored variants of the same artifacts are removed so the new files
// are the ones Load resolves.
func WriteDocuments(dir string, docs Documents, c Compression) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	values := map[string]any{
		ModelFile:   docs.Model,
		ScalerFile:  docs.Scaler,
		EncoderFile: docs.Encoders,
		ImputerFile: docs.Imputers,
	}

	written := make([]string, 0, len(Files))
	for _, name := range Files {
		path := filepath.Join(dir, name+c.suffix())
		if err := removeVariants(dir, name, c); err != nil {
			return written, err
		}
		if err := writeDocument(path, c, values[name]); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func removeVariants(dir, name string, keep Compression) error {
	for _, c := range []Compression{None, Zstd, Gzip} {
		if c == keep {
			continue
		}
		path := filepath.Join(dir, name+c.suffix())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale %s: %w", path, err)
		}
	}
	return nil
}

func writeDocument(path string, c Compression, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.WriteCloser
	switch c {
	case Zstd:
		if w, err = zstd.NewWriter(f); err != nil {
			return err
		}
	case Gzip:
		w = gzip.NewWriter(f)
	default:
		w = nopWriteCloser{f}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
