// Package labels maps origin labels to dense integer codes and back.
package labels

import (
	"fmt"
	"sort"
)

// UnknownLabelError reports a label or code outside the fitted set.
type UnknownLabelError struct {
	Label string
	Code  int
	Size  int
}

func (e *UnknownLabelError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("unknown label %q (encoder has %d classes)", e.Label, e.Size)
	}
	return fmt.Sprintf("unknown label code %d (valid range [0,%d))", e.Code, e.Size)
}

// Encoder is a bijection between origin strings and codes in [0, Len()).
// Classes are kept sorted so the same label set always yields the same codes.
type Encoder struct {
	classes []string
	index   map[string]int
}

// Fit builds an encoder from the distinct labels.
func Fit(labels []string) *Encoder {
	seen := make(map[string]struct{})
	var classes []string
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		classes = append(classes, l)
	}
	sort.Strings(classes)
	e, _ := FromClasses(classes)
	return e
}

// FromClasses restores an encoder from its persisted class list, where the
// position of a label is its code.
func FromClasses(classes []string) (*Encoder, error) {
	e := &Encoder{
		classes: append([]string(nil), classes...),
		index:   make(map[string]int, len(classes)),
	}
	for i, c := range classes {
		if _, dup := e.index[c]; dup {
			return nil, fmt.Errorf("labels: duplicate class %q", c)
		}
		e.index[c] = i
	}
	return e, nil
}

// Len is the number of classes.
func (e *Encoder) Len() int { return len(e.classes) }

// Classes returns a copy of the class list in code order.
func (e *Encoder) Classes() []string { return append([]string(nil), e.classes...) }

// Encode returns the code of label.
func (e *Encoder) Encode(label string) (int, error) {
	code, ok := e.index[label]
	if !ok {
		return 0, &UnknownLabelError{Label: label, Code: -1, Size: len(e.classes)}
	}
	return code, nil
}

// EncodeAll encodes every label, failing on the first unknown one.
func (e *Encoder) EncodeAll(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		c, err := e.Encode(l)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// Decode returns the label of code.
func (e *Encoder) Decode(code int) (string, error) {
	if code < 0 || code >= len(e.classes) {
		return "", &UnknownLabelError{Code: code, Size: len(e.classes)}
	}
	return e.classes[code], nil
}
