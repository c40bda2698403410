// Package domain models a single day's weather observation and the
// preprocessing that turns it into the numeric row a rainfall classifier
// was trained on.
//
// # Data Source
//
// The model is trained offline on the Bureau of Meteorology "weatherAUS"
// daily observations. Each row describes one station on one day and the
// target is whether it rains the following day (RainTomorrow).
//
// # Column Conventions
//
// The model consumes exactly 21 columns in a fixed order (see Columns).
// Changing the order silently corrupts every prediction; nothing at runtime
// can detect it beyond the feature names carried in the artifacts.
//
//	Location     station name, e.g. "Sydney", "MelbourneAirport"
//	Wind*Dir     16-point compass: N, NNE, NE, ENE, E, ... NNW
//	RainToday    "Yes" when more than 1mm fell today, otherwise "No"
//	Cloud*       oktas, 0 (clear) to 8 (overcast)
//	Pressure*    hPa at mean sea level
//	Humidity*    percent
//	WindSpeed*   km/h averaged over the 10 minutes before the reading
//	Sunshine     hours of bright sunshine
//	Evaporation  mm, Class A pan, 24h to 9am
//
// # Categorical Encoding
//
// Categorical columns are label-encoded: the code is the index of the value
// in the encoder's fitted vocabulary. A value outside the vocabulary is
// replaced by FallbackCode and logged. Code 0 is also the first real class of
// every encoder, so a fallback is indistinguishable from that class once it
// reaches the model.
package domain
