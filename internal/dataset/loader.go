package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// Record is one labelled name from the training table.
type Record struct {
	Name   string `json:"name"`
	Origin string `json:"origin"`
}

// DataLoadError reports a training table that cannot be used at all.
type DataLoadError struct {
	Source string
	Reason string
}

func (e *DataLoadError) Error() string {
	if e.Source == "" {
		return "data load: " + e.Reason
	}
	return fmt.Sprintf("data load %s: %s", e.Source, e.Reason)
}

// Columns names the header cells holding the name and the origin label.
type Columns struct {
	Name   string
	Origin string
}

// DefaultColumns matches the names-origin.csv layout.
var DefaultColumns = Columns{Name: "name", Origin: "origin"}

// Load reads a CSV file of (name, origin) rows.
func Load(path string, cols Columns) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Source: path, Reason: err.Error()}
	}
	defer f.Close()

	records, err := Read(f, cols)
	var dle *DataLoadError
	if errors.As(err, &dle) && dle.Source == "" {
		dle.Source = path
	}
	return records, err
}

// Read parses CSV rows from r. The header row locates the columns; rows with
// a missing name or origin, or a name with no letters, are dropped.
func Read(r io.Reader, cols Columns) ([]Record, error) {
	if cols.Name == "" {
		cols.Name = DefaultColumns.Name
	}
	if cols.Origin == "" {
		cols.Origin = DefaultColumns.Origin
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &DataLoadError{Reason: "empty table"}
	}
	if err != nil {
		return nil, &DataLoadError{Reason: fmt.Sprintf("read header: %v", err)}
	}

	nameIdx, originIdx := -1, -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch {
		case strings.EqualFold(h, cols.Name):
			nameIdx = i
		case strings.EqualFold(h, cols.Origin):
			originIdx = i
		}
	}
	if nameIdx < 0 || originIdx < 0 {
		return nil, &DataLoadError{Reason: fmt.Sprintf("missing required columns %q and %q in header %v", cols.Name, cols.Origin, header)}
	}

	var out []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DataLoadError{Reason: fmt.Sprintf("read row: %v", err)}
		}
		if nameIdx >= len(row) || originIdx >= len(row) {
			continue
		}
		origin := strings.TrimSpace(row[originIdx])
		if isMissing(origin) || isMissing(row[nameIdx]) {
			continue
		}
		name := Clean(row[nameIdx])
		if name == "" {
			continue
		}
		out = append(out, Record{Name: name, Origin: origin})
	}

	if len(out) == 0 {
		return nil, &DataLoadError{Reason: "no usable rows after cleaning"}
	}
	return out, nil
}

func isMissing(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "NA", "NaN", "nan", "null", "NULL":
		return true
	}
	return false
}

// Clean lower-cases a name, keeps letters, spaces, apostrophes and hyphens,
// and collapses whitespace. A result without any letter is returned as "".
func Clean(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	space := false
	letters := 0
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			letters++
		case r == '\'' || r == '-':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	if letters == 0 {
		return ""
	}
	return b.String()
}

// Summary counts records per origin.
func Summary(records []Record) map[string]int {
	out := make(map[string]int)
	for _, r := range records {
		out[r.Origin]++
	}
	return out
}
