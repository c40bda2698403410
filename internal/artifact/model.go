package artifact

import (
	"fmt"
	"time"

	"github.com/couchcryptid/rainfall-predictor/internal/domain"
)

// Supported model kinds.
const (
	LogisticRegression = "logistic_regression"
	DecisionTree       = "decision_tree"
	RandomForest       = "random_forest"
)

// ModelDoc is the persisted form of Rainfall.json.
type ModelDoc struct {
	Kind         string     `json:"kind" validate:"required,oneof=logistic_regression decision_tree random_forest"`
	FeatureNames []string   `json:"feature_names,omitempty"`
	Classes      []int      `json:"classes,omitempty" validate:"omitempty,len=2,unique"`
	TrainedAt    *time.Time `json:"trained_at,omitempty"`

	// logistic_regression
	Coef      []float64 `json:"coef,omitempty"`
	Intercept float64   `json:"intercept,omitempty"`

	// decision_tree
	Tree *TreeDoc `json:"tree,omitempty"`

	// random_forest
	Trees []TreeDoc `json:"trees,omitempty" validate:"omitempty,dive"`
}

// TreeDoc mirrors the parallel arrays of a fitted sklearn tree. A node is a
// leaf when its left child is -1; Value holds its per-class weights.
type TreeDoc struct {
	ChildrenLeft  []int       `json:"children_left" validate:"required"`
	ChildrenRight []int       `json:"children_right" validate:"required"`
	Feature       []int       `json:"feature" validate:"required"`
	Threshold     []float64   `json:"threshold" validate:"required"`
	Value         [][]float64 `json:"value" validate:"required"`
}

// ModelInfo describes a loaded model for diagnostics and events.
type ModelInfo struct {
	Kind         string
	FeatureNames []string
	Classes      []int
	TrainedAt    time.Time
	NumTrees     int
}

var defaultClasses = []int{0, 1}

// Logistic is a fitted binary logistic regression.
type Logistic struct {
	coef      []float64
	intercept float64
	classes   []int
}

// Predict returns the positive class when the decision function is above 0.
func (m *Logistic) Predict(row domain.Row) (int, error) {
	if len(row) != len(m.coef) {
		return 0, fmt.Errorf("model expects %d features, got %d", len(m.coef), len(row))
	}
	z := m.intercept
	for i, x := range row {
		z += m.coef[i] * x
	}
	if z > 0 {
		return m.classes[1], nil
	}
	return m.classes[0], nil
}

// Tree is a fitted decision tree classifier.
type Tree struct {
	left, right []int
	feature     []int
	threshold   []float64
	value       [][]float64
}

// proba walks the tree and returns the normalized leaf distribution.
func (t *Tree) proba(row domain.Row) []float64 {
	node := 0
	for t.left[node] != -1 {
		if row[t.feature[node]] <= t.threshold[node] {
			node = t.left[node]
		} else {
			node = t.right[node]
		}
	}

	leaf := t.value[node]
	var sum float64
	for _, v := range leaf {
		sum += v
	}
	out := make([]float64, len(leaf))
	for i, v := range leaf {
		if sum > 0 {
			out[i] = v / sum
		}
	}
	return out
}

// Forest averages the class distributions of one or more trees. A single
// decision tree is a forest of one.
type Forest struct {
	trees   []*Tree
	classes []int
}

// Predict returns the class with the highest mean probability; ties go to
// the lower class index.
func (f *Forest) Predict(row domain.Row) (int, error) {
	if len(row) != domain.NumFeatures {
		return 0, fmt.Errorf("model expects %d features, got %d", domain.NumFeatures, len(row))
	}
	mean := make([]float64, len(f.classes))
	for _, t := range f.trees {
		for i, p := range t.proba(row) {
			mean[i] += p
		}
	}
	best := 0
	for i := range mean {
		if mean[i] > mean[best] {
			best = i
		}
	}
	return f.classes[best], nil
}

// ReadModel loads Rainfall.json (or a compressed variant).
func ReadModel(path string) (domain.Model, ModelInfo, error) {
	var doc ModelDoc
	if err := readDocument(path, &doc); err != nil {
		return nil, ModelInfo{}, err
	}
	return NewModel(doc, ModelFile)
}

// NewModel validates a model document and builds the matching classifier.
func NewModel(doc ModelDoc, name string) (domain.Model, ModelInfo, error) {
	if err := validate.Struct(doc); err != nil {
		return nil, ModelInfo{}, schemaError(name, err)
	}
	if err := checkFeatureNames(doc.FeatureNames); err != nil {
		return nil, ModelInfo{}, schemaError(name, err)
	}

	classes := doc.Classes
	if len(classes) == 0 {
		classes = defaultClasses
	}
	info := ModelInfo{Kind: doc.Kind, FeatureNames: doc.FeatureNames, Classes: classes}
	if doc.TrainedAt != nil {
		info.TrainedAt = doc.TrainedAt.UTC()
	}

	switch doc.Kind {
	case LogisticRegression:
		if len(doc.Coef) != domain.NumFeatures {
			return nil, ModelInfo{}, schemaError(name, fmt.Errorf("coef has %d entries, want %d", len(doc.Coef), domain.NumFeatures))
		}
		return &Logistic{coef: doc.Coef, intercept: doc.Intercept, classes: classes}, info, nil

	case DecisionTree:
		if doc.Tree == nil {
			return nil, ModelInfo{}, schemaError(name, fmt.Errorf("decision_tree requires a tree"))
		}
		t, err := newTree(*doc.Tree, len(classes))
		if err != nil {
			return nil, ModelInfo{}, schemaError(name, err)
		}
		info.NumTrees = 1
		return &Forest{trees: []*Tree{t}, classes: classes}, info, nil

	default:
		if len(doc.Trees) == 0 {
			return nil, ModelInfo{}, schemaError(name, fmt.Errorf("random_forest requires at least one tree"))
		}
		trees := make([]*Tree, len(doc.Trees))
		for i, td := range doc.Trees {
			t, err := newTree(td, len(classes))
			if err != nil {
				return nil, ModelInfo{}, schemaError(name, fmt.Errorf("trees[%d]: %w", i, err))
			}
			trees[i] = t
		}
		info.NumTrees = len(trees)
		return &Forest{trees: trees, classes: classes}, info, nil
	}
}

// newTree checks the node arrays are consistent. Children must have larger
// indices than their parent, which is how sklearn lays trees out and
// guarantees every walk terminates.
func newTree(doc TreeDoc, numClasses int) (*Tree, error) {
	n := len(doc.ChildrenLeft)
	if n == 0 {
		return nil, fmt.Errorf("tree has no nodes")
	}
	if len(doc.ChildrenRight) != n || len(doc.Feature) != n || len(doc.Threshold) != n || len(doc.Value) != n {
		return nil, fmt.Errorf("tree arrays have mismatched lengths")
	}

	for i := range n {
		l, r := doc.ChildrenLeft[i], doc.ChildrenRight[i]
		if l == -1 || r == -1 {
			if l != r {
				return nil, fmt.Errorf("node %d has only one child", i)
			}
			if len(doc.Value[i]) != numClasses {
				return nil, fmt.Errorf("leaf %d has %d class weights, want %d", i, len(doc.Value[i]), numClasses)
			}
			continue
		}
		if l <= i || r <= i || l >= n || r >= n {
			return nil, fmt.Errorf("node %d has out-of-order children %d, %d", i, l, r)
		}
		if f := doc.Feature[i]; f < 0 || f >= domain.NumFeatures {
			return nil, fmt.Errorf("node %d splits on feature %d", i, f)
		}
	}

	return &Tree{
		left:      doc.ChildrenLeft,
		right:     doc.ChildrenRight,
		feature:   doc.Feature,
		threshold: doc.Threshold,
		value:     doc.Value,
	}, nil
}
