package artifact

import (
	"fmt"
	"slices"

	"github.com/couchcryptid/rainfall-predictor/internal/domain"
)

// ImputerDoc is one fitted simple imputer: a fill statistic per column.
type ImputerDoc struct {
	Strategy   string   `json:"strategy" validate:"required,oneof=mean median most_frequent constant"`
	Columns    []string `json:"columns" validate:"required,min=1,unique"`
	Statistics []any    `json:"statistics" validate:"required"`
}

// ImputersDoc is the persisted form of imputer.json.
type ImputersDoc struct {
	Numeric     *ImputerDoc `json:"numeric,omitempty"`
	Categorical *ImputerDoc `json:"categorical,omitempty"`
}

// Imputer holds the fill values the notebook used for missing training data.
type Imputer struct {
	Strategy string
	fill     map[string]any
	columns  []string
}

// Columns returns the imputed columns in fitted order.
func (im *Imputer) Columns() []string { return slices.Clone(im.columns) }

// Fill returns the fitted statistic for a column.
func (im *Imputer) Fill(column string) (any, bool) {
	v, ok := im.fill[column]
	return v, ok
}

// Imputers groups the numeric and categorical imputers. The request path
// never imputes (missing fields are rejected); they are loaded so the
// bundle is complete and can be inspected.
type Imputers struct {
	Numeric     *Imputer
	Categorical *Imputer
}

// ReadImputers loads imputer.json (or a compressed variant).
func ReadImputers(path string) (*Imputers, error) {
	var doc *ImputersDoc
	if err := readDocument(path, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return &Imputers{}, nil
	}
	return NewImputers(*doc, ImputerFile)
}

// NewImputers validates an imputer document.
func NewImputers(doc ImputersDoc, name string) (*Imputers, error) {
	numeric, err := newImputer(doc.Numeric, domain.Numeric)
	if err != nil {
		return nil, schemaError(name, fmt.Errorf("numeric: %w", err))
	}
	categorical, err := newImputer(doc.Categorical, domain.Categorical)
	if err != nil {
		return nil, schemaError(name, fmt.Errorf("categorical: %w", err))
	}
	return &Imputers{Numeric: numeric, Categorical: categorical}, nil
}

func newImputer(doc *ImputerDoc, kind domain.Kind) (*Imputer, error) {
	if doc == nil {
		return nil, nil
	}
	if err := validate.Struct(doc); err != nil {
		return nil, err
	}
	if len(doc.Statistics) != len(doc.Columns) {
		return nil, fmt.Errorf("%d statistics for %d columns", len(doc.Statistics), len(doc.Columns))
	}

	kinds := make(map[string]domain.Kind, len(domain.Columns))
	for _, c := range domain.Columns {
		kinds[c.Name] = c.Kind
	}

	im := &Imputer{Strategy: doc.Strategy, fill: make(map[string]any, len(doc.Columns)), columns: slices.Clone(doc.Columns)}
	for i, col := range doc.Columns {
		k, ok := kinds[col]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", col)
		}
		if k != kind {
			return nil, fmt.Errorf("column %q is %s", col, k)
		}
		im.fill[col] = doc.Statistics[i]
	}
	return im, nil
}
