package pipeline

import (
	"fmt"

	"name-origin/internal/dataset"
	"name-origin/internal/features"
	"name-origin/internal/model"
)

// Prediction is the decoded result for one input name.
type Prediction struct {
	Input         string             `json:"input"`
	Cleaned       string             `json:"cleaned"`
	Origin        string             `json:"origin"`
	Code          int                `json:"code"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// Classify cleans, encodes and scores a single name.
func (b *Bundle) Classify(name string) (Prediction, error) {
	cleaned := dataset.Clean(name)
	if cleaned == "" {
		return Prediction{}, &features.EmptyInputError{Input: name}
	}
	probs, err := b.scores([]string{cleaned})
	if err != nil {
		return Prediction{}, err
	}
	return b.decode(name, cleaned, probs[0])
}

// ClassifyAll classifies every name independently. A failing name yields an
// error in its own slot and does not affect the others.
func (b *Bundle) ClassifyAll(names []string) ([]Prediction, []error) {
	preds := make([]Prediction, len(names))
	errs := make([]error, len(names))
	for i, n := range names {
		preds[i], errs[i] = b.Classify(n)
	}
	return preds, errs
}

// scores returns class probabilities for already cleaned names.
func (b *Bundle) scores(cleaned []string) ([][]float64, error) {
	switch b.Manifest.Variant {
	case VariantRecurrent:
		xs, err := b.seq.TransformAll(cleaned)
		if err != nil {
			return nil, err
		}
		return b.net.PredictProba(xs), nil
	case VariantForest:
		xs, err := b.tfidf.TransformAll(cleaned)
		if err != nil {
			return nil, err
		}
		return b.forest.PredictProba(xs), nil
	}
	return nil, b.mismatch("unknown variant %q", b.Manifest.Variant)
}

func (b *Bundle) decode(input, cleaned string, probs []float64) (Prediction, error) {
	if len(probs) == 0 {
		return Prediction{}, b.mismatch("model returned no class scores")
	}
	code := model.Argmax(probs)
	origin, err := b.labels.Decode(code)
	if err != nil {
		return Prediction{}, fmt.Errorf("decode prediction for %q: %w", input, err)
	}
	p := Prediction{
		Input:         input,
		Cleaned:       cleaned,
		Origin:        origin,
		Code:          code,
		Confidence:    probs[code],
		Probabilities: make(map[string]float64, len(probs)),
	}
	for c, v := range probs {
		if label, err := b.labels.Decode(c); err == nil {
			p.Probabilities[label] = v
		}
	}
	return p, nil
}
