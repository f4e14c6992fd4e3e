package domain

// ComputeMetrics derives intensity and the injured/death shares of a record.
// Zero-intensity records get 0 for both shares.
func ComputeMetrics(rec AccidentRecord) EnrichedRecord {
	out := EnrichedRecord{
		AccidentRecord: rec,
		Intensity:      rec.Injured + rec.Deaths,
	}
	if out.Intensity > 0 {
		total := float64(out.Intensity)
		out.PctInjured = 100 * float64(rec.Injured) / total
		out.PctDeaths = 100 * float64(rec.Deaths) / total
	}
	return out
}

// EnrichRecords applies ComputeMetrics to every record, preserving order.
func EnrichRecords(recs []AccidentRecord) []EnrichedRecord {
	out := make([]EnrichedRecord, len(recs))
	for i, rec := range recs {
		out[i] = ComputeMetrics(rec)
	}
	return out
}
