// Package features turns cleaned names into model inputs: fixed-length
// character index sequences for the recurrent model and sparse TF-IDF
// vectors over character n-grams for the forest.
package features

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Reserved sequence codes.
const (
	PadCode = 0
	OOVCode = 1
)

// DefaultSeqLen is the fixed sequence length used by the recurrent model.
const DefaultSeqLen = 20

// ErrNotFitted is returned when an encoder is used before Fit.
var ErrNotFitted = errors.New("features: encoder not fitted")

// EmptyInputError reports a name with no usable characters.
type EmptyInputError struct {
	Input string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("no usable characters in input %q", e.Input)
}

// Sequence is a fixed-length list of character codes.
type Sequence []int

// SequenceEncoder is a character-level tokenizer. Characters are ranked by
// training frequency and numbered from 2; 0 pads and 1 marks characters never
// seen during Fit.
type SequenceEncoder struct {
	SeqLen int
	Index  map[rune]int
	Chars  []rune
}

// NewSequenceEncoder returns an unfitted encoder producing seqLen codes.
func NewSequenceEncoder(seqLen int) *SequenceEncoder {
	if seqLen <= 0 {
		seqLen = DefaultSeqLen
	}
	return &SequenceEncoder{SeqLen: seqLen}
}

// Fit builds the character vocabulary from cleaned names.
func (e *SequenceEncoder) Fit(names []string) error {
	counts := make(map[rune]int)
	var order []rune
	for _, n := range names {
		for _, r := range n {
			if _, ok := counts[r]; !ok {
				order = append(order, r)
			}
			counts[r]++
		}
	}
	if len(order) == 0 {
		return &EmptyInputError{Input: strings.Join(names, ",")}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	e.Chars = order
	e.Index = make(map[rune]int, len(order))
	for i, r := range order {
		e.Index[r] = i + 2
	}
	return nil
}

// Restore rebuilds the lookup index from Chars after decoding.
func (e *SequenceEncoder) Restore() error {
	if len(e.Chars) == 0 {
		return ErrNotFitted
	}
	e.Index = make(map[rune]int, len(e.Chars))
	for i, r := range e.Chars {
		if _, dup := e.Index[r]; dup {
			return fmt.Errorf("features: duplicate character %q in vocabulary", r)
		}
		e.Index[r] = i + 2
	}
	return nil
}

// VocabSize is the number of distinct codes including pad and OOV.
func (e *SequenceEncoder) VocabSize() int {
	return len(e.Chars) + 2
}

// Transform encodes one cleaned name. Names longer than SeqLen keep their last
// SeqLen characters; shorter ones are right-padded with PadCode.
func (e *SequenceEncoder) Transform(name string) (Sequence, error) {
	if e.Index == nil {
		return nil, ErrNotFitted
	}
	if strings.TrimSpace(name) == "" {
		return nil, &EmptyInputError{Input: name}
	}
	runes := []rune(name)
	if len(runes) > e.SeqLen {
		runes = runes[len(runes)-e.SeqLen:]
	}
	out := make(Sequence, e.SeqLen)
	for i, r := range runes {
		if code, ok := e.Index[r]; ok {
			out[i] = code
		} else {
			out[i] = OOVCode
		}
	}
	return out, nil
}

// TransformAll encodes every name, failing on the first empty one.
func (e *SequenceEncoder) TransformAll(names []string) ([]Sequence, error) {
	out := make([]Sequence, len(names))
	for i, n := range names {
		s, err := e.Transform(n)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
