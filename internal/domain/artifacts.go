package domain

import "time"

// RunSummary records the row accounting of one pipeline run.
type RunSummary struct {
	RowsRead        int       `json:"rows_read"`
	RowsDropped     int       `json:"rows_dropped"`
	RecordsEnriched int       `json:"records_enriched"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// Summarize stamps the row counts of a run with the current time.
func Summarize(rowsRead int, ds []EnrichedRecord) RunSummary {
	return RunSummary{
		RowsRead:        rowsRead,
		RowsDropped:     rowsRead - len(ds),
		RecordsEnriched: len(ds),
		ProcessedAt:     clock.Now().UTC(),
	}
}

// Artifacts is everything one run produces: the enriched dataset (also the
// table view) and the three projections derived from it.
type Artifacts struct {
	Dataset      []EnrichedRecord `json:"dataset"`
	Heat         HeatLayer        `json:"heat"`
	TopIncidents []RankedIncident `json:"top_incidents"`
	Chart        ChartSpec        `json:"chart"`
	Summary      RunSummary       `json:"summary"`
}

// BuildArtifacts derives every projection from an enriched dataset.
// Geocoding annotation of the top incidents is left to the caller.
func BuildArtifacts(ds []EnrichedRecord, rowsRead, topN int, heat HeatLayerOptions) Artifacts {
	if ds == nil {
		ds = []EnrichedRecord{}
	}
	return Artifacts{
		Dataset:      ds,
		Heat:         BuildHeatLayer(ds, heat),
		TopIncidents: SelectTopIncidents(ds, topN),
		Chart:        BuildChartSpec(ds),
		Summary:      Summarize(rowsRead, ds),
	}
}
