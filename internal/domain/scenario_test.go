package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCore drives the loader through artifact construction the way the
// pipeline does, without I/O.
func runCore(t *testing.T, input string, topN int) Artifacts {
	t.Helper()
	raws, err := LoadRecords(strings.NewReader(input), DefaultSchema())
	require.NoError(t, err)
	ds := EnrichRecords(ValidateRecords(raws, nil))
	return BuildArtifacts(ds, len(raws), topN, DefaultHeatLayerOptions())
}

func TestCore_MixedRows(t *testing.T) {
	input := "idacidente;latitude;longitude;feridos;mortes\n" +
		"1;-30.03;-51.22;2;1\n" +
		"2;-30.05;-51.18;0;0\n" +
		"3;;-51.20;1;0\n"

	a := runCore(t, input, 1)

	require.Len(t, a.Dataset, 2)
	first, second := a.Dataset[0], a.Dataset[1]

	assert.Equal(t, "1", first.ID)
	assert.Equal(t, 3, first.Intensity)
	assert.InDelta(t, 66.67, first.PctInjured, 0.01)
	assert.InDelta(t, 33.33, first.PctDeaths, 0.01)

	assert.Equal(t, "2", second.ID)
	assert.Equal(t, 0, second.Intensity)
	assert.Zero(t, second.PctInjured)
	assert.Zero(t, second.PctDeaths)

	assert.Equal(t, []string{"1"}, ids(a.TopIncidents))
	assert.Len(t, a.Heat.Points, 2)
	assert.Len(t, a.Chart.Rows, 2)
	assert.Equal(t, 1, a.Summary.RowsDropped)
}

func TestCore_TieOrdering(t *testing.T) {
	input := "idacidente;latitude;longitude;feridos;mortes\n" +
		"A;1;1;2;0\n" +
		"B;1;1;2;0\n" +
		"C;1;1;2;0\n"

	a := runCore(t, input, 2)

	assert.Equal(t, []string{"A", "B"}, ids(a.TopIncidents))
}

func TestCore_ProjectionsAreOneToOne(t *testing.T) {
	input := "idacidente;latitude;longitude;feridos;mortes\n" +
		"1;-30.01;-51.10;1;0\n" +
		"2;-30.02;-51.11;0;3\n" +
		"3;-30.03;-51.12;4;1\n" +
		"4;-30.04;x;1;1\n"

	a := runCore(t, input, 10)

	require.Len(t, a.Dataset, 3)
	require.Len(t, a.Heat.Points, len(a.Dataset))
	require.Len(t, a.Chart.Rows, len(a.Dataset))
	assert.Len(t, a.TopIncidents, 3)

	sum := 0
	for i, rec := range a.Dataset {
		assert.Equal(t, rec.Injured+rec.Deaths, rec.Intensity)
		assert.Equal(t, float64(rec.Intensity), a.Heat.Points[i].Weight)
		assert.Equal(t, rec.ID, a.Chart.Rows[i].ID)
		sum += rec.Intensity
	}
	assert.Equal(t, 9, sum)
}
