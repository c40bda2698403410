package domain

import (
	"errors"
	"fmt"
	"log/slog"
)

// Row is an encoded feature vector in training column order.
type Row []float64

// FallbackCode replaces categorical values the encoder was never fitted on.
// It collides with the first trained class of every encoder.
const FallbackCode = 0.0

// EncodeOutcome tags how a categorical value was translated.
type EncodeOutcome int

const (
	// Known means the value is in the fitted vocabulary.
	Known EncodeOutcome = iota
	// Unknown means an encoder exists for the column but never saw the value.
	Unknown
	// Unencoded means no encoder was fitted for the column.
	Unencoded
)

// Encoding is the result of translating one categorical value.
type Encoding struct {
	Outcome EncodeOutcome
	Code    float64
}

// Encoder translates categorical values to their trained numeric codes.
type Encoder interface {
	Encode(column, value string) Encoding
}

// Scaler applies the fitted numeric transform to a full row.
type Scaler interface {
	Transform(row Row) (Row, error)
}

// Model is a fitted binary classifier over encoded, scaled rows.
type Model interface {
	Predict(row Row) (int, error)
}

// Encoded is an observation after encoding, ordering, and scaling.
type Encoded struct {
	Raw       Row      // encoded, in training order, before scaling
	Scaled    Row      // what the model sees
	Fallbacks []string // columns that received FallbackCode
}

// Preprocess runs the training-time pipeline on a single observation:
// label-encode categoricals, restore training column order, then scale.
// A nil encoder treats every categorical column as unencoded; a nil scaler
// passes the row through unchanged.
func Preprocess(obs Observation, enc Encoder, scaler Scaler, logger *slog.Logger) (Encoded, error) {
	values, fallbacks, err := encodeValues(obs, enc, logger)
	if err != nil {
		return Encoded{}, err
	}

	row, err := OrderRow(values)
	if err != nil {
		return Encoded{}, fmt.Errorf("%w: order row: %w", ErrInference, err)
	}

	scaled := row
	if scaler != nil {
		scaled, err = scaler.Transform(row)
		if err != nil {
			return Encoded{}, fmt.Errorf("%w: scale row: %w", ErrInference, err)
		}
	}

	return Encoded{Raw: row, Scaled: scaled, Fallbacks: fallbacks}, nil
}

// encodeValues produces a name-keyed numeric value for every column.
func encodeValues(obs Observation, enc Encoder, logger *slog.Logger) (map[string]float64, []string, error) {
	values := make(map[string]float64, NumFeatures)
	var fallbacks []string

	for _, col := range Columns {
		if col.Kind == Numeric {
			v, _ := obs.NumericValue(col.Name)
			values[col.Name] = v
			continue
		}

		raw, _ := obs.CategoricalValue(col.Name)
		e := Encoding{Outcome: Unencoded}
		if enc != nil {
			e = enc.Encode(col.Name, raw)
		}

		switch e.Outcome {
		case Known:
			values[col.Name] = e.Code
		case Unknown:
			logger.Warn("unseen category, using fallback code",
				"column", col.Name,
				"value", raw,
				"fallback", FallbackCode,
			)
			values[col.Name] = FallbackCode
			fallbacks = append(fallbacks, col.Name)
		default:
			// Without an encoder the submitted value must already be numeric.
			v, err := parseNumber(raw)
			if err != nil {
				return nil, nil, invalidInput(col.Name, err)
			}
			values[col.Name] = v
		}
	}
	return values, fallbacks, nil
}

// OrderRow assembles name-keyed values into training column order.
func OrderRow(values map[string]float64) (Row, error) {
	names := make([]string, 0, len(values))
	vals := make([]float64, 0, len(values))
	for name, v := range values {
		names = append(names, name)
		vals = append(vals, v)
	}
	return Reorder(names, vals)
}

// Reorder places values, labelled by names, into training column order.
// Every column must appear exactly once. Reordering an already ordered row
// returns an identical row.
func Reorder(names []string, values []float64) (Row, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("got %d names for %d values", len(names), len(values))
	}
	if len(names) != NumFeatures {
		return nil, fmt.Errorf("got %d columns, want %d", len(names), NumFeatures)
	}

	row := make(Row, NumFeatures)
	seen := make([]bool, NumFeatures)
	for i, name := range names {
		idx, ok := columnIndex[name]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		if seen[idx] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[idx] = true
		row[idx] = values[i]
	}
	return row, nil
}

// Prediction is the model's binary answer for one observation.
type Prediction int

// Rain is the class label meaning rain is expected tomorrow.
const Rain Prediction = 1

// Outcome names the result view for the prediction. Only an exact 1 counts
// as rain; any other label renders the no-rain view.
func (p Prediction) Outcome() string {
	if p == Rain {
		return "chance"
	}
	return "no_chance"
}

// Predict runs the model on a preprocessed row. Any model error is wrapped
// with ErrInference.
func Predict(m Model, row Row) (Prediction, error) {
	if m == nil {
		return 0, fmt.Errorf("%w: no model loaded", ErrInference)
	}
	label, err := m.Predict(row)
	if err != nil {
		if errors.Is(err, ErrInference) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", ErrInference, err)
	}
	return Prediction(label), nil
}
