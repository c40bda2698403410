package domain

// Kind distinguishes numeric columns from label-encoded categorical ones.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// Column is one feature the model was trained on.
type Column struct {
	Name string
	Kind Kind
}

// Columns is the training-time feature order. The model and scaler index
// features by position, so this literal must match the notebook exactly.
var Columns = []Column{
	{"Location", Categorical},
	{"MinTemp", Numeric},
	{"MaxTemp", Numeric},
	{"Rainfall", Numeric},
	{"Evaporation", Numeric},
	{"Sunshine", Numeric},
	{"WindGustDir", Categorical},
	{"WindGustSpeed", Numeric},
	{"WindDir9am", Categorical},
	{"WindDir3pm", Categorical},
	{"WindSpeed9am", Numeric},
	{"WindSpeed3pm", Numeric},
	{"Humidity9am", Numeric},
	{"Humidity3pm", Numeric},
	{"Pressure9am", Numeric},
	{"Pressure3pm", Numeric},
	{"Cloud9am", Numeric},
	{"Cloud3pm", Numeric},
	{"Temp9am", Numeric},
	{"Temp3pm", Numeric},
	{"RainToday", Categorical},
}

// NumFeatures is the width of an encoded row.
const NumFeatures = 21

// ColumnNames returns the training-time feature names in order.
func ColumnNames() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}

// CategoricalColumns returns the names of the label-encoded columns in
// training order.
func CategoricalColumns() []string {
	var names []string
	for _, c := range Columns {
		if c.Kind == Categorical {
			names = append(names, c.Name)
		}
	}
	return names
}

// columnIndex maps a feature name to its training position.
var columnIndex = func() map[string]int {
	m := make(map[string]int, len(Columns))
	for i, c := range Columns {
		m[c.Name] = i
	}
	return m
}()

// Observation is one submitted day of weather readings for a station.
// It is a value type; handlers build one per request and never modify it.
type Observation struct {
	Location      string  `json:"Location"`
	MinTemp       float64 `json:"MinTemp"`
	MaxTemp       float64 `json:"MaxTemp"`
	Rainfall      float64 `json:"Rainfall"`
	Evaporation   float64 `json:"Evaporation"`
	Sunshine      float64 `json:"Sunshine"`
	WindGustDir   string  `json:"WindGustDir"`
	WindGustSpeed float64 `json:"WindGustSpeed"`
	WindDir9am    string  `json:"WindDir9am"`
	WindDir3pm    string  `json:"WindDir3pm"`
	WindSpeed9am  float64 `json:"WindSpeed9am"`
	WindSpeed3pm  float64 `json:"WindSpeed3pm"`
	Humidity9am   float64 `json:"Humidity9am"`
	Humidity3pm   float64 `json:"Humidity3pm"`
	Pressure9am   float64 `json:"Pressure9am"`
	Pressure3pm   float64 `json:"Pressure3pm"`
	Cloud9am      float64 `json:"Cloud9am"`
	Cloud3pm      float64 `json:"Cloud3pm"`
	Temp9am       float64 `json:"Temp9am"`
	Temp3pm       float64 `json:"Temp3pm"`
	RainToday     string  `json:"RainToday"`
}

var numericFields = map[string]func(*Observation) *float64{
	"MinTemp":       func(o *Observation) *float64 { return &o.MinTemp },
	"MaxTemp":       func(o *Observation) *float64 { return &o.MaxTemp },
	"Rainfall":      func(o *Observation) *float64 { return &o.Rainfall },
	"Evaporation":   func(o *Observation) *float64 { return &o.Evaporation },
	"Sunshine":      func(o *Observation) *float64 { return &o.Sunshine },
	"WindGustSpeed": func(o *Observation) *float64 { return &o.WindGustSpeed },
	"WindSpeed9am":  func(o *Observation) *float64 { return &o.WindSpeed9am },
	"WindSpeed3pm":  func(o *Observation) *float64 { return &o.WindSpeed3pm },
	"Humidity9am":   func(o *Observation) *float64 { return &o.Humidity9am },
	"Humidity3pm":   func(o *Observation) *float64 { return &o.Humidity3pm },
	"Pressure9am":   func(o *Observation) *float64 { return &o.Pressure9am },
	"Pressure3pm":   func(o *Observation) *float64 { return &o.Pressure3pm },
	"Cloud9am":      func(o *Observation) *float64 { return &o.Cloud9am },
	"Cloud3pm":      func(o *Observation) *float64 { return &o.Cloud3pm },
	"Temp9am":       func(o *Observation) *float64 { return &o.Temp9am },
	"Temp3pm":       func(o *Observation) *float64 { return &o.Temp3pm },
}

var categoricalFields = map[string]func(*Observation) *string{
	"Location":    func(o *Observation) *string { return &o.Location },
	"WindGustDir": func(o *Observation) *string { return &o.WindGustDir },
	"WindDir9am":  func(o *Observation) *string { return &o.WindDir9am },
	"WindDir3pm":  func(o *Observation) *string { return &o.WindDir3pm },
	"RainToday":   func(o *Observation) *string { return &o.RainToday },
}

// NumericValue returns the value of a numeric column by name.
func (o Observation) NumericValue(name string) (float64, bool) {
	f, ok := numericFields[name]
	if !ok {
		return 0, false
	}
	return *f(&o), true
}

// CategoricalValue returns the raw string of a categorical column by name.
func (o Observation) CategoricalValue(name string) (string, bool) {
	f, ok := categoricalFields[name]
	if !ok {
		return "", false
	}
	return *f(&o), true
}
