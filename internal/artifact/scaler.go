package artifact

import (
	"fmt"

	"github.com/couchcryptid/rainfall-predictor/internal/domain"
)

// ScalerDoc is the persisted form of scale.json. A JSON null means the
// notebook saved no scaler and rows reach the model unscaled.
type ScalerDoc struct {
	Kind         string    `json:"kind" validate:"required,oneof=standard minmax"`
	FeatureNames []string  `json:"feature_names,omitempty"`
	Mean         []float64 `json:"mean,omitempty"`
	Min          []float64 `json:"min,omitempty"`
	Scale        []float64 `json:"scale" validate:"required,len=21"`
}

// ScalerInfo describes a loaded scaler for diagnostics.
type ScalerInfo struct {
	Kind         string
	FeatureNames []string
	NumFeatures  int
}

// StandardScaler computes (x - mean) / scale per feature.
type StandardScaler struct {
	mean  []float64
	scale []float64
}

// Transform implements domain.Scaler.
func (s *StandardScaler) Transform(row domain.Row) (domain.Row, error) {
	if len(row) != len(s.mean) {
		return nil, fmt.Errorf("scaler expects %d features, got %d", len(s.mean), len(row))
	}
	out := make(domain.Row, len(row))
	for i, x := range row {
		scale := s.scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (x - s.mean[i]) / scale
	}
	return out, nil
}

// MinMaxScaler computes x*scale + min per feature.
type MinMaxScaler struct {
	min   []float64
	scale []float64
}

// Transform implements domain.Scaler.
func (s *MinMaxScaler) Transform(row domain.Row) (domain.Row, error) {
	if len(row) != len(s.min) {
		return nil, fmt.Errorf("scaler expects %d features, got %d", len(s.min), len(row))
	}
	out := make(domain.Row, len(row))
	for i, x := range row {
		out[i] = x*s.scale[i] + s.min[i]
	}
	return out, nil
}

// ReadScaler loads scale.json. The returned scaler is nil when the file
// holds null.
func ReadScaler(path string) (domain.Scaler, ScalerInfo, error) {
	var doc *ScalerDoc
	if err := readDocument(path, &doc); err != nil {
		return nil, ScalerInfo{}, err
	}
	return NewScaler(doc, ScalerFile)
}

// NewScaler validates a scaler document.
func NewScaler(doc *ScalerDoc, name string) (domain.Scaler, ScalerInfo, error) {
	if doc == nil {
		return nil, ScalerInfo{Kind: "none"}, nil
	}
	if err := validate.Struct(doc); err != nil {
		return nil, ScalerInfo{}, schemaError(name, err)
	}
	if err := checkFeatureNames(doc.FeatureNames); err != nil {
		return nil, ScalerInfo{}, schemaError(name, err)
	}

	info := ScalerInfo{Kind: doc.Kind, FeatureNames: doc.FeatureNames, NumFeatures: len(doc.Scale)}
	switch doc.Kind {
	case "standard":
		if len(doc.Mean) != domain.NumFeatures {
			return nil, ScalerInfo{}, schemaError(name, fmt.Errorf("mean has %d entries, want %d", len(doc.Mean), domain.NumFeatures))
		}
		return &StandardScaler{mean: doc.Mean, scale: doc.Scale}, info, nil
	default:
		if len(doc.Min) != domain.NumFeatures {
			return nil, ScalerInfo{}, schemaError(name, fmt.Errorf("min has %d entries, want %d", len(doc.Min), domain.NumFeatures))
		}
		return &MinMaxScaler{min: doc.Min, scale: doc.Scale}, info, nil
	}
}
