package domain

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var errNotFinite = errors.New("value must be a finite number")

// ParseObservation builds an Observation from submitted form values.
// Fields are checked in training order and the first problem is returned
// as a *FieldError wrapping ErrMissingField or ErrInvalidInput.
// Categorical values are passed through exactly as submitted.
func ParseObservation(form map[string][]string) (Observation, error) {
	var obs Observation
	for _, col := range Columns {
		values, ok := form[col.Name]
		if !ok || len(values) == 0 {
			return Observation{}, missingField(col.Name)
		}
		raw := values[0]

		if col.Kind == Categorical {
			*categoricalFields[col.Name](&obs) = raw
			continue
		}

		v, err := parseNumber(raw)
		if err != nil {
			return Observation{}, invalidInput(col.Name, err)
		}
		*numericFields[col.Name](&obs) = v
	}
	return obs, nil
}

// parseNumber accepts any finite float64 literal, ignoring surrounding
// whitespace. NaN and infinities are rejected.
func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			return 0, numErr.Err
		}
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}
