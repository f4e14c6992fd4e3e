package domain

import (
	"cmp"
	"slices"
)

// DefaultTopN is the number of incidents highlighted on the map.
const DefaultTopN = 5

// SelectTopIncidents returns the n records with the highest intensity in
// descending order. Records with equal intensity keep their dataset order.
// A non-positive n yields an empty result; n larger than the dataset yields
// every record. The dataset is not reordered.
func SelectTopIncidents(ds []EnrichedRecord, n int) []RankedIncident {
	n = min(max(n, 0), len(ds))
	if n == 0 {
		return []RankedIncident{}
	}

	sorted := slices.Clone(ds)
	slices.SortStableFunc(sorted, func(a, b EnrichedRecord) int {
		return cmp.Compare(b.Intensity, a.Intensity)
	})

	out := make([]RankedIncident, n)
	for i := range out {
		out[i] = RankedIncident{Rank: i + 1, Record: sorted[i]}
	}
	return out
}
