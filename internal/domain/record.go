package domain

// RawRecord is one data row as read from the source table, before any
// parsing. Fields hold the trimmed cell text and are empty when the row is
// shorter than the header.
type RawRecord struct {
	Line      int
	ID        string
	Latitude  string
	Longitude string
	Injured   string
	Deaths    string
}

// AccidentRecord is a validated accident with all required fields present.
type AccidentRecord struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Injured   int     `json:"injured"`
	Deaths    int     `json:"deaths"`
}

// EnrichedRecord is an AccidentRecord with its derived severity metrics.
type EnrichedRecord struct {
	AccidentRecord

	Intensity  int     `json:"intensity"`
	PctInjured float64 `json:"pct_injured"`
	PctDeaths  float64 `json:"pct_deaths"`
}

// HeatPoint is a weighted coordinate for heat-map rendering.
type HeatPoint struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Weight float64 `json:"weight"`
}

// RankedIncident is one of the N most severe accidents. PlaceName and
// FormattedAddress are only set when reverse geocoding is enabled.
type RankedIncident struct {
	Rank             int            `json:"rank"`
	Record           EnrichedRecord `json:"record"`
	PlaceName        string         `json:"place_name,omitempty"`
	FormattedAddress string         `json:"formatted_address,omitempty"`
}

// ChartRow is the per-accident field set consumed by the bubble chart.
type ChartRow struct {
	ID         string  `json:"id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Intensity  int     `json:"intensity"`
	PctInjured float64 `json:"pct_injured"`
}
