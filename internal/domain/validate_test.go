package domain

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRaw() RawRecord {
	return RawRecord{Line: 2, ID: "1", Latitude: "-30.03", Longitude: "-51.22", Injured: "2", Deaths: "1"}
}

func TestParseRecord(t *testing.T) {
	t.Run("complete row", func(t *testing.T) {
		rec, err := ParseRecord(validRaw())

		require.NoError(t, err)
		assert.Equal(t, AccidentRecord{ID: "1", Latitude: -30.03, Longitude: -51.22, Injured: 2, Deaths: 1}, rec)
	})

	t.Run("integral float counts", func(t *testing.T) {
		raw := validRaw()
		raw.Injured = "2.0"
		raw.Deaths = "0.0"
		rec, err := ParseRecord(raw)

		require.NoError(t, err)
		assert.Equal(t, 2, rec.Injured)
		assert.Equal(t, 0, rec.Deaths)
	})

	t.Run("empty id is kept", func(t *testing.T) {
		raw := validRaw()
		raw.ID = ""
		rec, err := ParseRecord(raw)

		require.NoError(t, err)
		assert.Empty(t, rec.ID)
	})

	t.Run("largest counts", func(t *testing.T) {
		raw := validRaw()
		raw.Injured = "2147483647"
		raw.Deaths = "2147483647.0"
		rec, err := ParseRecord(raw)

		require.NoError(t, err)
		assert.Equal(t, math.MaxInt32, rec.Injured)
		assert.Equal(t, math.MaxInt32, rec.Deaths)
	})

	t.Run("boundary coordinates", func(t *testing.T) {
		raw := validRaw()
		raw.Latitude = "-90"
		raw.Longitude = "180"
		_, err := ParseRecord(raw)

		require.NoError(t, err)
	})
}

func TestParseRecord_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RawRecord)
		want   error
	}{
		{"empty latitude", func(r *RawRecord) { r.Latitude = "" }, ErrMissingField},
		{"NaN longitude", func(r *RawRecord) { r.Longitude = "NaN" }, ErrMissingField},
		{"null injured", func(r *RawRecord) { r.Injured = "null" }, ErrMissingField},
		{"NA deaths", func(r *RawRecord) { r.Deaths = "NA" }, ErrMissingField},
		{"non-numeric latitude", func(r *RawRecord) { r.Latitude = "abc" }, ErrInvalidField},
		{"infinite longitude", func(r *RawRecord) { r.Longitude = "Inf" }, ErrInvalidField},
		{"latitude out of range", func(r *RawRecord) { r.Latitude = "91" }, ErrInvalidField},
		{"longitude out of range", func(r *RawRecord) { r.Longitude = "-180.5" }, ErrInvalidField},
		{"fractional injured", func(r *RawRecord) { r.Injured = "1.5" }, ErrInvalidField},
		{"negative deaths", func(r *RawRecord) { r.Deaths = "-1" }, ErrInvalidField},
		{"negative float injured", func(r *RawRecord) { r.Injured = "-2.0" }, ErrInvalidField},
		{"text deaths", func(r *RawRecord) { r.Deaths = "two" }, ErrInvalidField},
		{"injured above int32", func(r *RawRecord) { r.Injured = "3000000000" }, ErrInvalidField},
		{"deaths above int32 as float", func(r *RawRecord) { r.Deaths = "3e9" }, ErrInvalidField},
		{"injured at int64 max", func(r *RawRecord) { r.Injured = "9223372036854775807" }, ErrInvalidField},
		{"injured past int64", func(r *RawRecord) { r.Injured = "9223372036854775808" }, ErrInvalidField},
		{"hex float latitude", func(r *RawRecord) { r.Latitude = "0x1p4" }, ErrInvalidField},
		{"hex float deaths", func(r *RawRecord) { r.Deaths = "0x1p2" }, ErrInvalidField},
		{"underscore longitude", func(r *RawRecord) { r.Longitude = "-5_1.2" }, ErrInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mutate(&raw)

			_, err := ParseRecord(raw)

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestValidateRecords(t *testing.T) {
	raws := []RawRecord{
		{Line: 2, ID: "a", Latitude: "1", Longitude: "1", Injured: "1", Deaths: "0"},
		{Line: 3, ID: "b", Latitude: "", Longitude: "1", Injured: "1", Deaths: "0"},
		{Line: 4, ID: "c", Latitude: "2", Longitude: "2", Injured: "0", Deaths: "0"},
		{Line: 5, ID: "d", Latitude: "3", Longitude: "3", Injured: "x", Deaths: "0"},
		{Line: 6, ID: "e", Latitude: "4", Longitude: "4", Injured: "3", Deaths: "2"},
	}

	var dropped []int
	out := ValidateRecords(raws, func(raw RawRecord, err error) {
		assert.Error(t, err)
		dropped = append(dropped, raw.Line)
	})

	ids := make([]string, len(out))
	for i, rec := range out {
		ids[i] = rec.ID
	}
	assert.Equal(t, []string{"a", "c", "e"}, ids, "kept rows preserve input order")
	assert.Equal(t, []int{3, 5}, dropped)
}

func TestValidateRecords_AllDropped(t *testing.T) {
	out := ValidateRecords([]RawRecord{{Line: 2}}, nil)

	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestValidateRecords_OversizedCountDoesNotOutrank(t *testing.T) {
	input := "idacidente;latitude;longitude;feridos;mortes\n" +
		"big;-10;-50;9223372036854775807;1\n" +
		"small;-10;-50;3;1\n"
	raws, err := LoadRecords(strings.NewReader(input), DefaultSchema())
	require.NoError(t, err)

	ds := EnrichRecords(ValidateRecords(raws, nil))

	require.Len(t, ds, 1)
	assert.Equal(t, "small", ds[0].ID)
	top := SelectTopIncidents(ds, 1)
	require.Len(t, top, 1)
	assert.Equal(t, 4, top[0].Record.Intensity)
}
