package dataset

import (
	"fmt"
	"reflect"
	"testing"
)

func makeRecords(perOrigin map[string]int) []Record {
	var out []Record
	for origin, n := range perOrigin {
		for i := 0; i < n; i++ {
			out = append(out, Record{Name: fmt.Sprintf("%s%d", origin, i), Origin: origin})
		}
	}
	return out
}

func TestSplitStratified(t *testing.T) {
	recs := makeRecords(map[string]int{"english": 50, "japanese": 20, "spanish": 10})
	train, test := Split(recs, 0.2, 42)
	if len(train)+len(test) != len(recs) {
		t.Fatalf("lost records: %d + %d != %d", len(train), len(test), len(recs))
	}
	counts := Summary(test)
	if counts["english"] != 10 || counts["japanese"] != 4 || counts["spanish"] != 2 {
		t.Fatalf("split not stratified: %v", counts)
	}
}

func TestSplitKeepsSingletonsInTrain(t *testing.T) {
	recs := []Record{{"john", "english"}, {"yuki", "japanese"}, {"jose", "spanish"}}
	train, test := Split(recs, 0.5, 1)
	if len(test) != 0 || len(train) != 3 {
		t.Fatalf("expected all singletons in train, got train=%d test=%d", len(train), len(test))
	}
}

func TestSplitDeterministic(t *testing.T) {
	recs := makeRecords(map[string]int{"a": 30, "b": 30})
	tr1, te1 := Split(recs, 0.3, 7)
	tr2, te2 := Split(recs, 0.3, 7)
	if !reflect.DeepEqual(tr1, tr2) || !reflect.DeepEqual(te1, te2) {
		t.Fatalf("split is not deterministic for a fixed seed")
	}
}

func TestSplitZeroRatio(t *testing.T) {
	recs := makeRecords(map[string]int{"a": 3})
	train, test := Split(recs, 0, 1)
	if len(train) != 3 || test != nil {
		t.Fatalf("unexpected split %d/%d", len(train), len(test))
	}
}
