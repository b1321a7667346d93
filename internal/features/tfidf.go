package features

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Vector is a sparse feature row. Indices are strictly increasing.
type Vector struct {
	Indices []int
	Values  []float64
}

// At returns the value stored for feature f, or zero.
func (v Vector) At(f int) float64 {
	i := sort.SearchInts(v.Indices, f)
	if i < len(v.Indices) && v.Indices[i] == f {
		return v.Values[i]
	}
	return 0
}

// Len is the number of non-zero entries.
func (v Vector) Len() int { return len(v.Indices) }

// TFIDFVectorizer weights character n-grams by term frequency and smoothed
// inverse document frequency, then L2-normalises each row.
type TFIDFVectorizer struct {
	MinN  int
	MaxN  int
	Vocab []string
	IDF   []float64

	index map[string]int
}

// NewTFIDFVectorizer returns an unfitted vectorizer over n-grams of length
// minN..maxN.
func NewTFIDFVectorizer(minN, maxN int) *TFIDFVectorizer {
	if minN <= 0 {
		minN = 2
	}
	if maxN < minN {
		maxN = minN
	}
	return &TFIDFVectorizer{MinN: minN, MaxN: maxN}
}

// NGrams lists the character n-grams of a cleaned name, whitespace collapsed.
func (t *TFIDFVectorizer) NGrams(name string) []string {
	runes := []rune(strings.Join(strings.Fields(name), " "))
	var out []string
	for n := t.MinN; n <= t.MaxN; n++ {
		for i := 0; i+n <= len(runes); i++ {
			out = append(out, string(runes[i:i+n]))
		}
	}
	return out
}

// Fit learns the vocabulary and document frequencies.
func (t *TFIDFVectorizer) Fit(names []string) error {
	df := make(map[string]int)
	for _, name := range names {
		seen := make(map[string]struct{})
		for _, g := range t.NGrams(name) {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			df[g]++
		}
	}
	if len(df) == 0 {
		return &EmptyInputError{Input: strings.Join(names, ",")}
	}

	t.Vocab = make([]string, 0, len(df))
	for g := range df {
		t.Vocab = append(t.Vocab, g)
	}
	sort.Strings(t.Vocab)

	n := float64(len(names))
	t.IDF = make([]float64, len(t.Vocab))
	for i, g := range t.Vocab {
		t.IDF[i] = math.Log((1+n)/(1+float64(df[g]))) + 1
	}
	t.buildIndex()
	return nil
}

func (t *TFIDFVectorizer) buildIndex() {
	t.index = make(map[string]int, len(t.Vocab))
	for i, g := range t.Vocab {
		t.index[g] = i
	}
}

// Restore rebuilds lookup state after the exported fields were decoded.
func (t *TFIDFVectorizer) Restore() error {
	if len(t.Vocab) != len(t.IDF) {
		return fmt.Errorf("features: vocabulary has %d n-grams but %d idf weights", len(t.Vocab), len(t.IDF))
	}
	t.buildIndex()
	return nil
}

// Dim is the width of the produced vectors.
func (t *TFIDFVectorizer) Dim() int { return len(t.Vocab) }

// Transform encodes one cleaned name. N-grams outside the vocabulary are
// ignored, so a name made only of unseen n-grams yields an all-zero vector.
func (t *TFIDFVectorizer) Transform(name string) (Vector, error) {
	if t.index == nil {
		return Vector{}, ErrNotFitted
	}
	if strings.TrimSpace(name) == "" {
		return Vector{}, &EmptyInputError{Input: name}
	}

	tf := make(map[int]float64)
	for _, g := range t.NGrams(name) {
		if i, ok := t.index[g]; ok {
			tf[i]++
		}
	}
	v := Vector{Indices: make([]int, 0, len(tf)), Values: make([]float64, 0, len(tf))}
	for i := range tf {
		v.Indices = append(v.Indices, i)
	}
	sort.Ints(v.Indices)

	norm := 0.0
	for _, i := range v.Indices {
		w := tf[i] * t.IDF[i]
		v.Values = append(v.Values, w)
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for k := range v.Values {
			v.Values[k] /= norm
		}
	}
	return v, nil
}

// TransformAll encodes every name, failing on the first empty one.
func (t *TFIDFVectorizer) TransformAll(names []string) ([]Vector, error) {
	out := make([]Vector, len(names))
	for i, n := range names {
		v, err := t.Transform(n)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
