package features

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func fittedSequence(t *testing.T) *SequenceEncoder {
	t.Helper()
	enc := NewSequenceEncoder(DefaultSeqLen)
	if err := enc.Fit([]string{"john", "yuki", "jose"}); err != nil {
		t.Fatalf("fit: %v", err)
	}
	return enc
}

func TestSequenceVocabularyOrder(t *testing.T) {
	enc := NewSequenceEncoder(5)
	if err := enc.Fit([]string{"abb", "cbb"}); err != nil {
		t.Fatalf("fit: %v", err)
	}
	// b is most frequent, then a before c by first occurrence
	if enc.Index['b'] != 2 || enc.Index['a'] != 3 || enc.Index['c'] != 4 {
		t.Fatalf("unexpected index %v", enc.Index)
	}
	if enc.VocabSize() != 5 {
		t.Fatalf("expected vocab size 5, got %d", enc.VocabSize())
	}
}

func TestSequenceDeterministic(t *testing.T) {
	enc := fittedSequence(t)
	a, err := enc.Transform("josh")
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	b, _ := enc.Transform("josh")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("encoding differs: %v vs %v", a, b)
	}
}

func TestSequencePaddingAndTruncation(t *testing.T) {
	enc := fittedSequence(t)

	single, err := enc.Transform("j")
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if len(single) != DefaultSeqLen {
		t.Fatalf("expected length %d, got %d", DefaultSeqLen, len(single))
	}
	if single[0] != enc.Index['j'] {
		t.Fatalf("first code should be j, got %d", single[0])
	}
	for i := 1; i < len(single); i++ {
		if single[i] != PadCode {
			t.Fatalf("position %d should be padding, got %d", i, single[i])
		}
	}

	exact, _ := enc.Transform("johnjohnjohnjohnjohn")
	long, _ := enc.Transform("yukijohnjohnjohnjohnjohn")
	if len(exact) != DefaultSeqLen || len(long) != DefaultSeqLen {
		t.Fatalf("lengths %d and %d, want %d", len(exact), len(long), DefaultSeqLen)
	}
	if !reflect.DeepEqual(exact, long) {
		t.Fatalf("long name should keep its trailing characters: %v vs %v", exact, long)
	}
}

func TestSequenceOOV(t *testing.T) {
	enc := fittedSequence(t)
	s, err := enc.Transform("zz")
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if s[0] != OOVCode || s[1] != OOVCode || s[2] != PadCode {
		t.Fatalf("unexpected codes %v", s[:3])
	}
}

func TestSequenceEmptyInput(t *testing.T) {
	enc := fittedSequence(t)
	for _, in := range []string{"", "   ", "\t\n"} {
		_, err := enc.Transform(in)
		var empty *EmptyInputError
		if !errors.As(err, &empty) {
			t.Fatalf("%q: expected EmptyInputError, got %v", in, err)
		}
	}
	if _, err := NewSequenceEncoder(4).Transform("x"); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
}

func TestSequenceRestore(t *testing.T) {
	enc := fittedSequence(t)
	want, _ := enc.Transform("jose")
	restored := &SequenceEncoder{SeqLen: enc.SeqLen, Chars: enc.Chars}
	if err := restored.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, _ := restored.Transform("jose")
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("restored encoder differs: %v vs %v", got, want)
	}
}

func TestNGrams(t *testing.T) {
	v := NewTFIDFVectorizer(2, 3)
	got := v.NGrams("abc")
	want := []string{"ab", "bc", "abc"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NGrams = %v, want %v", got, want)
	}
	if got := v.NGrams("a"); len(got) != 0 {
		t.Fatalf("expected no n-grams for a single rune, got %v", got)
	}
}

func TestTFIDFWeights(t *testing.T) {
	v := NewTFIDFVectorizer(2, 2)
	if err := v.Fit([]string{"ab", "abc"}); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if !reflect.DeepEqual(v.Vocab, []string{"ab", "bc"}) {
		t.Fatalf("unexpected vocab %v", v.Vocab)
	}
	// smooth idf: ln((1+2)/(1+df)) + 1
	if math.Abs(v.IDF[0]-1) > 1e-12 {
		t.Fatalf("idf(ab) = %v, want 1", v.IDF[0])
	}
	wantBC := math.Log(3.0/2.0) + 1
	if math.Abs(v.IDF[1]-wantBC) > 1e-12 {
		t.Fatalf("idf(bc) = %v, want %v", v.IDF[1], wantBC)
	}

	vec, err := v.Transform("abc")
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	norm := 0.0
	for _, x := range vec.Values {
		norm += x * x
	}
	if math.Abs(norm-1) > 1e-9 {
		t.Fatalf("vector not L2 normalised: %v", norm)
	}
	if vec.At(1) <= vec.At(0) {
		t.Fatalf("rarer n-gram should weigh more: %v", vec)
	}
	if vec.At(99) != 0 {
		t.Fatalf("missing feature should be zero")
	}
}

func TestTFIDFUnseenAndEmpty(t *testing.T) {
	v := NewTFIDFVectorizer(2, 4)
	if err := v.Fit([]string{"john", "yuki", "jose"}); err != nil {
		t.Fatalf("fit: %v", err)
	}
	vec, err := v.Transform("zzzz")
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if vec.Len() != 0 {
		t.Fatalf("unseen n-grams should contribute nothing, got %v", vec)
	}
	var empty *EmptyInputError
	if _, err := v.Transform("  "); !errors.As(err, &empty) {
		t.Fatalf("expected EmptyInputError, got %v", err)
	}
	a, _ := v.Transform("john")
	b, _ := v.Transform("john")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("encoding is not deterministic")
	}
}

func TestTFIDFRestore(t *testing.T) {
	v := NewTFIDFVectorizer(2, 4)
	_ = v.Fit([]string{"maria", "mario"})
	want, _ := v.Transform("maria")

	decoded := &TFIDFVectorizer{MinN: v.MinN, MaxN: v.MaxN, Vocab: v.Vocab, IDF: v.IDF}
	if _, err := decoded.Transform("maria"); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted before Restore, got %v", err)
	}
	if err := decoded.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, _ := decoded.Transform("maria")
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("restored vectorizer differs")
	}

	bad := &TFIDFVectorizer{Vocab: []string{"ab"}, IDF: nil}
	if err := bad.Restore(); err == nil {
		t.Fatalf("expected error for mismatched idf length")
	}
}
