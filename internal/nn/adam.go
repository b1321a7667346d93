package nn

import (
	"math"
	"sort"
)

// Adam is the Adam optimiser with bias correction folded into the step size.
type Adam struct {
	LR    float64
	Beta1 float64
	Beta2 float64
	Eps   float64

	t int
	m map[string][]float64
	v map[string][]float64
}

// NewAdam returns an optimiser with the usual beta defaults.
func NewAdam(lr float64) *Adam {
	return &Adam{
		LR:    lr,
		Beta1: 0.9,
		Beta2: 0.999,
		Eps:   1e-7,
		m:     make(map[string][]float64),
		v:     make(map[string][]float64),
	}
}

// Step applies one update from the accumulated gradients, then clears them.
func (a *Adam) Step(params map[string]*Mat) {
	a.t++
	t := float64(a.t)
	lrT := a.LR * math.Sqrt(1-math.Pow(a.Beta2, t)) / (1 - math.Pow(a.Beta1, t))

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		p := params[k]
		m, ok := a.m[k]
		if !ok || len(m) != len(p.W) {
			m = make([]float64, len(p.W))
			a.m[k] = m
			a.v[k] = make([]float64, len(p.W))
		}
		v := a.v[k]
		for i, grad := range p.Dw {
			if math.IsNaN(grad) || math.IsInf(grad, 0) {
				grad = 0
			}
			m[i] = a.Beta1*m[i] + (1-a.Beta1)*grad
			v[i] = a.Beta2*v[i] + (1-a.Beta2)*grad*grad
			p.W[i] -= lrT * m[i] / (math.Sqrt(v[i]) + a.Eps)
		}
		p.ZeroGrads()
	}
}
