package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
)

var (
	// ErrMissingField marks a required cell that is empty or holds a null marker.
	ErrMissingField = errors.New("missing field")
	// ErrInvalidField marks a required cell whose text does not parse to its type.
	ErrInvalidField = errors.New("invalid field")
)

// maxCount bounds injured and death counts so their sum cannot overflow.
const maxCount = math.MaxInt32

// nullMarkers are the cell values spreadsheet and dataframe exports use for
// "no value". Matched case-insensitively.
var nullMarkers = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"null": {},
	"none": {},
	"#n/a": {},
	"<na>": {},
}

func isNull(s string) bool {
	_, ok := nullMarkers[strings.ToLower(s)]
	return ok
}

// ParseRecord converts a raw row into an AccidentRecord. It returns an error
// wrapping ErrMissingField or ErrInvalidField naming the first offending field.
// The ID is carried through as-is and may be empty.
func ParseRecord(raw RawRecord) (AccidentRecord, error) {
	lat, err := parseFloat("latitude", raw.Latitude)
	if err != nil {
		return AccidentRecord{}, err
	}
	lon, err := parseFloat("longitude", raw.Longitude)
	if err != nil {
		return AccidentRecord{}, err
	}
	if !s2.LatLngFromDegrees(lat, lon).IsValid() {
		return AccidentRecord{}, fmt.Errorf("%w: coordinates (%g, %g) out of range", ErrInvalidField, lat, lon)
	}
	injured, err := parseCount("injured", raw.Injured)
	if err != nil {
		return AccidentRecord{}, err
	}
	deaths, err := parseCount("deaths", raw.Deaths)
	if err != nil {
		return AccidentRecord{}, err
	}

	return AccidentRecord{
		ID:        raw.ID,
		Latitude:  lat,
		Longitude: lon,
		Injured:   injured,
		Deaths:    deaths,
	}, nil
}

func parseFloat(field, s string) (float64, error) {
	if isNull(s) {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	v, err := parseDecimal(s)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidField, field, s)
	}
	return v, nil
}

// parseCount accepts integers in [0, maxCount], including integral float text
// such as "2.0".
func parseCount(field, s string) (int, error) {
	if isNull(s) {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%w: %s %d is negative", ErrInvalidField, field, n)
		}
		if n > maxCount {
			return 0, fmt.Errorf("%w: %s %d exceeds %d", ErrInvalidField, field, n, maxCount)
		}
		return n, nil
	}
	f, err := parseDecimal(s)
	if err != nil || f != math.Trunc(f) || f < 0 || f > maxCount {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidField, field, s)
	}
	return int(f), nil
}

// parseDecimal is strconv.ParseFloat restricted to decimal text. Hex floats
// such as "0x1p4" and underscore digit separators are rejected.
func parseDecimal(s string) (float64, error) {
	if strings.ContainsAny(s, "xX_") {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseFloat(s, 64)
}

// ValidateRecords keeps the rows that parse into complete AccidentRecords, in
// input order. onDrop, when non-nil, is called for every rejected row with the
// reason. An empty result is not an error.
func ValidateRecords(raws []RawRecord, onDrop func(RawRecord, error)) []AccidentRecord {
	out := make([]AccidentRecord, 0, len(raws))
	for _, raw := range raws {
		rec, err := ParseRecord(raw)
		if err != nil {
			if onDrop != nil {
				onDrop(raw, err)
			}
			continue
		}
		out = append(out, rec)
	}
	return out
}
