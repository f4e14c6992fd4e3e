package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func dataset(intensities ...int) []EnrichedRecord {
	ds := make([]EnrichedRecord, len(intensities))
	for i, n := range intensities {
		ds[i] = ComputeMetrics(AccidentRecord{ID: string(rune('a' + i)), Injured: n})
	}
	return ds
}

func ids(incidents []RankedIncident) []string {
	out := make([]string, len(incidents))
	for i, inc := range incidents {
		out[i] = inc.Record.ID
	}
	return out
}

func TestSelectTopIncidents(t *testing.T) {
	tests := []struct {
		name        string
		intensities []int
		n           int
		want        []string
	}{
		{"descending by intensity", []int{1, 5, 3}, 2, []string{"b", "c"}},
		{"ties keep input order", []int{4, 9, 4, 4}, 3, []string{"b", "a", "c"}},
		{"n larger than dataset", []int{2, 1}, 5, []string{"a", "b"}},
		{"n zero", []int{2, 1}, 0, []string{}},
		{"negative n", []int{2, 1}, -3, []string{}},
		{"empty dataset", nil, 5, []string{}},
		{"all zero intensity", []int{0, 0, 0}, 2, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectTopIncidents(dataset(tt.intensities...), tt.n)

			assert.NotNil(t, got)
			assert.Equal(t, tt.want, ids(got))
			for i, inc := range got {
				assert.Equal(t, i+1, inc.Rank)
				if i > 0 {
					assert.GreaterOrEqual(t, got[i-1].Record.Intensity, inc.Record.Intensity)
				}
			}
		})
	}
}

func TestSelectTopIncidents_DoesNotReorderInput(t *testing.T) {
	ds := dataset(1, 3, 2)

	SelectTopIncidents(ds, 3)

	assert.Equal(t, []string{"a", "b", "c"}, []string{ds[0].ID, ds[1].ID, ds[2].ID})
}
