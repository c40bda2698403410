package artifact

import (
	"fmt"
	"slices"
	"sort"

	"github.com/couchcryptid/rainfall-predictor/internal/domain"
)

// LabelEncoderDoc is a fitted label encoder: a value's code is its index.
type LabelEncoderDoc struct {
	Classes []string `json:"classes" validate:"required,min=1,unique"`
}

// EncodersDoc is the persisted form of encoder.json.
type EncodersDoc struct {
	Features map[string]LabelEncoderDoc `json:"features,omitempty" validate:"omitempty,dive"`
	Target   *LabelEncoderDoc           `json:"target,omitempty"`
}

// Encoders implements domain.Encoder over per-column label encoders.
type Encoders struct {
	codes   map[string]map[string]int
	classes map[string][]string
	target  []string
}

// ReadEncoders loads and validates encoder.json (or a compressed variant).
func ReadEncoders(path string) (*Encoders, error) {
	var doc EncodersDoc
	if err := readDocument(path, &doc); err != nil {
		return nil, err
	}
	return NewEncoders(doc, EncoderFile)
}

// NewEncoders validates an encoder document. Every feature encoder must be
// keyed by a categorical training column.
func NewEncoders(doc EncodersDoc, name string) (*Encoders, error) {
	if err := validate.Struct(doc); err != nil {
		return nil, schemaError(name, err)
	}

	categorical := domain.CategoricalColumns()
	e := &Encoders{
		codes:   make(map[string]map[string]int, len(doc.Features)),
		classes: make(map[string][]string, len(doc.Features)),
	}
	for col, enc := range doc.Features {
		if !slices.Contains(categorical, col) {
			return nil, schemaError(name, fmt.Errorf("encoder for %q, which is not a categorical column", col))
		}
		codes := make(map[string]int, len(enc.Classes))
		for i, c := range enc.Classes {
			codes[c] = i
		}
		e.codes[col] = codes
		e.classes[col] = slices.Clone(enc.Classes)
	}
	if doc.Target != nil {
		e.target = slices.Clone(doc.Target.Classes)
	}
	return e, nil
}

// Encode returns the trained code for value, or a tagged fallback.
func (e *Encoders) Encode(column, value string) domain.Encoding {
	codes, ok := e.codes[column]
	if !ok {
		return domain.Encoding{Outcome: domain.Unencoded}
	}
	code, ok := codes[value]
	if !ok {
		return domain.Encoding{Outcome: domain.Unknown, Code: domain.FallbackCode}
	}
	return domain.Encoding{Outcome: domain.Known, Code: float64(code)}
}

// Columns returns the encoded column names, sorted.
func (e *Encoders) Columns() []string {
	cols := make([]string, 0, len(e.classes))
	for c := range e.classes {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Classes returns the fitted vocabulary for a column.
func (e *Encoders) Classes(column string) []string {
	return slices.Clone(e.classes[column])
}

// TargetClasses returns the target encoder's vocabulary, if one was saved.
func (e *Encoders) TargetClasses() []string {
	return slices.Clone(e.target)
}
