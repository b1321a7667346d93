package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCleanNormalisesNames(t *testing.T) {
	cases := map[string]string{
		"  John  ":     "john",
		"Mary   Ann":   "mary ann",
		"O'Brien":      "o'brien",
		"Jean-Luc":     "jean-luc",
		"José":         "josé",
		"R2D2":         "rd",
		"1234 !!":      "",
		"":             "",
		"\t--\n":       "",
		"Anne\tMarie ": "anne marie",
	}
	for in, want := range cases {
		if got := Clean(in); got != want {
			t.Fatalf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReadDropsMissingRows(t *testing.T) {
	src := "Name,Origin,extra\n" +
		"John,english,x\n" +
		",spanish,x\n" +
		"Yuki,,x\n" +
		"123,german,x\n" +
		"Jose,NaN,x\n" +
		"Yuki,japanese,x\n"
	recs, err := Read(strings.NewReader(src), Columns{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d: %v", len(recs), recs)
	}
	if recs[0] != (Record{Name: "john", Origin: "english"}) {
		t.Fatalf("unexpected first record %+v", recs[0])
	}
	if recs[1] != (Record{Name: "yuki", Origin: "japanese"}) {
		t.Fatalf("unexpected second record %+v", recs[1])
	}
}

func TestReadMissingColumn(t *testing.T) {
	_, err := Read(strings.NewReader("name,country\njohn,uk\n"), Columns{})
	var dle *DataLoadError
	if !errors.As(err, &dle) {
		t.Fatalf("expected DataLoadError, got %v", err)
	}
}

func TestReadEmptyAfterCleaning(t *testing.T) {
	_, err := Read(strings.NewReader("name,origin\n123,english\n,spanish\n"), Columns{})
	var dle *DataLoadError
	if !errors.As(err, &dle) {
		t.Fatalf("expected DataLoadError, got %v", err)
	}
	if _, err := Read(strings.NewReader(""), Columns{}); !errors.As(err, &dle) {
		t.Fatalf("expected DataLoadError for empty input, got %v", err)
	}
}

func TestLoadCustomColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "names.csv")
	if err := os.WriteFile(path, []byte("first_name,label\nAiko,japanese\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	recs, err := Load(path, Columns{Name: "first_name", Origin: "label"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(recs) != 1 || recs[0].Name != "aiko" {
		t.Fatalf("unexpected records %v", recs)
	}

	_, err = Load(filepath.Join(dir, "missing.csv"), DefaultColumns)
	var dle *DataLoadError
	if !errors.As(err, &dle) || dle.Source == "" {
		t.Fatalf("expected DataLoadError with source, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	got := Summary([]Record{{"a", "x"}, {"b", "x"}, {"c", "y"}})
	if got["x"] != 2 || got["y"] != 1 {
		t.Fatalf("unexpected summary %v", got)
	}
}
