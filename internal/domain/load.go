package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Schema names the source columns that populate an AccidentRecord and the
// field delimiter of the table.
type Schema struct {
	ID        string
	Latitude  string
	Longitude string
	Injured   string
	Deaths    string
	Delimiter rune
}

// DefaultSchema returns the column layout of the municipal accident export.
func DefaultSchema() Schema {
	return Schema{
		ID:        "idacidente",
		Latitude:  "latitude",
		Longitude: "longitude",
		Injured:   "feridos",
		Deaths:    "mortes",
		Delimiter: ';',
	}
}

func (s Schema) columns() []string {
	return []string{s.ID, s.Latitude, s.Longitude, s.Injured, s.Deaths}
}

// MalformedInputError reports required columns absent from the header row.
type MalformedInputError struct {
	Missing []string
}

func (e *MalformedInputError) Error() string {
	return "malformed input: missing required columns: " + strings.Join(e.Missing, ", ")
}

// columnIndex holds the header position of each schema column.
type columnIndex struct {
	id, lat, lon, injured, deaths int
}

func (s Schema) resolve(header []string) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	var missing []string
	lookup := func(col string) int {
		i, ok := positions[col]
		if !ok {
			missing = append(missing, col)
			return -1
		}
		return i
	}

	idx := columnIndex{
		id:      lookup(s.ID),
		lat:     lookup(s.Latitude),
		lon:     lookup(s.Longitude),
		injured: lookup(s.Injured),
		deaths:  lookup(s.Deaths),
	}
	if len(missing) > 0 {
		return columnIndex{}, &MalformedInputError{Missing: missing}
	}
	return idx, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// LoadRecords reads a delimited table with a header row and maps each data row
// onto a RawRecord by column name. It fails with a *MalformedInputError before
// reading any data row when a schema column is absent from the header.
// Rows may be shorter or longer than the header; missing cells read as empty.
func LoadRecords(r io.Reader, schema Schema) ([]RawRecord, error) {
	cr := csv.NewReader(r)
	cr.Comma = schema.Delimiter
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &MalformedInputError{Missing: schema.columns()}
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx, err := schema.resolve(header)
	if err != nil {
		return nil, err
	}

	records := []RawRecord{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, RawRecord{
			Line:      line,
			ID:        cell(row, idx.id),
			Latitude:  cell(row, idx.lat),
			Longitude: cell(row, idx.lon),
			Injured:   cell(row, idx.injured),
			Deaths:    cell(row, idx.deaths),
		})
	}
	return records, nil
}
