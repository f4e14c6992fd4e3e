package domain

// ChartSpec describes a bubble chart of accidents plotted by position, sized
// by intensity and colored by injured share. Field names refer to ChartRow
// JSON keys.
type ChartSpec struct {
	Title      string            `json:"title"`
	X          string            `json:"x"`
	Y          string            `json:"y"`
	Size       string            `json:"size"`
	Color      string            `json:"color"`
	HoverName  string            `json:"hover_name"`
	ColorScale string            `json:"color_scale"`
	Labels     map[string]string `json:"labels"`
	Rows       []ChartRow        `json:"rows"`
}

// BuildChartRows projects every record onto the fields the chart plots.
func BuildChartRows(ds []EnrichedRecord) []ChartRow {
	out := make([]ChartRow, len(ds))
	for i, rec := range ds {
		out[i] = ChartRow{
			ID:         rec.ID,
			Latitude:   rec.Latitude,
			Longitude:  rec.Longitude,
			Intensity:  rec.Intensity,
			PctInjured: rec.PctInjured,
		}
	}
	return out
}

// BuildChartSpec returns the accident bubble chart for ds.
func BuildChartSpec(ds []EnrichedRecord) ChartSpec {
	return ChartSpec{
		Title:      "Distribuição de Acidentes com Feridos e Mortes",
		X:          "longitude",
		Y:          "latitude",
		Size:       "intensity",
		Color:      "pct_injured",
		HoverName:  "id",
		ColorScale: "Viridis",
		Labels: map[string]string{
			"longitude":   "Longitude",
			"latitude":    "Latitude",
			"intensity":   "Intensidade",
			"pct_injured": "% Feridos",
		},
		Rows: BuildChartRows(ds),
	}
}
