package types

import "time"

// Weather holds the environmental conditions for a single forecast hour.
type Weather struct {
	CloudCover   float64 `json:"cloud_cover"`
	Radiation    float64 `json:"radiation"`
	TemperatureC float64 `json:"temp_c"`
	UVIndex      float64 `json:"uv_index"`
}

// ForecastPoint is one hour of the solar forecast. Index is the offset in hours
// from the hour the forecast was generated.
type ForecastPoint struct {
	Time       time.Time `json:"time"`
	Hour       int       `json:"hour"`
	Index      int       `json:"index"`
	Efficiency float64   `json:"efficiency"`
	GridLoad   float64   `json:"grid_load"`
	Label      string    `json:"label"`
	FullLabel  string    `json:"full_label"`
	IsPeak     bool      `json:"is_peak"`
	Weather    Weather   `json:"weather"`
}
