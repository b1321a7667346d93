// Package model implements the two origin classifiers: a random forest over
// sparse n-gram vectors and a character-level recurrent network.
package model

import "errors"

var (
	errEmptyX    = errors.New("model: empty X")
	errMismatchY = errors.New("model: X and y length mismatch")
)

// Classifier is the contract shared by both model variants. X is the encoded
// sample type the model consumes.
type Classifier[X any] interface {
	Fit(xs []X, y []int) error
	PredictProba(xs []X) [][]float64
	NumClasses() int
	InputWidth() int
}

// Predict returns the most probable class code for every row.
func Predict[X any](c Classifier[X], xs []X) []int {
	probs := c.PredictProba(xs)
	out := make([]int, len(probs))
	for i, p := range probs {
		out[i] = Argmax(p)
	}
	return out
}

// Evaluate scores c on a labelled set.
func Evaluate[X any](c Classifier[X], xs []X, y []int, classNames []string) Report {
	return ClassificationReport(y, Predict(c, xs), classNames)
}

// Argmax returns the index of the largest value; ties go to the lowest index.
func Argmax(p []float64) int {
	best := 0
	for i := 1; i < len(p); i++ {
		if p[i] > p[best] {
			best = i
		}
	}
	return best
}

func checkXY(n, m int) error {
	if n == 0 {
		return errEmptyX
	}
	if n != m {
		return errMismatchY
	}
	return nil
}
