// Package nn holds the small reverse-mode autograd used by the recurrent
// origin model: column-batched matrices, a tape of backward closures, LSTM
// and dense layers, and the Adam optimiser.
package nn

import (
	"fmt"
	"math"
	"math/rand"
)

// Mat is a row-major N x D matrix with a gradient buffer of the same shape.
// Activations keep one batch item per column.
type Mat struct {
	N  int
	D  int
	W  []float64
	Dw []float64
}

// NewMat returns a zero matrix.
func NewMat(n, d int) *Mat {
	if n < 0 || d < 0 {
		panic(fmt.Sprintf("nn: negative matrix shape %dx%d", n, d))
	}
	return &Mat{N: n, D: d, W: make([]float64, n*d), Dw: make([]float64, n*d)}
}

// NewUniformMat fills a matrix from U(-limit, limit).
func NewUniformMat(rnd *rand.Rand, n, d int, limit float64) *Mat {
	m := NewMat(n, d)
	for i := range m.W {
		m.W[i] = (rnd.Float64()*2 - 1) * limit
	}
	return m
}

// NewGlorotMat uses the Glorot uniform limit sqrt(6/(fanIn+fanOut)).
func NewGlorotMat(rnd *rand.Rand, n, d int) *Mat {
	return NewUniformMat(rnd, n, d, math.Sqrt(6/float64(n+d)))
}

// Get returns the value at (row, col).
func (m *Mat) Get(row, col int) float64 {
	return m.W[row*m.D+col]
}

// Set stores v at (row, col).
func (m *Mat) Set(row, col int, v float64) {
	m.W[row*m.D+col] = v
}

// Col copies column col into a new slice.
func (m *Mat) Col(col int) []float64 {
	out := make([]float64, m.N)
	for i := 0; i < m.N; i++ {
		out[i] = m.W[i*m.D+col]
	}
	return out
}

// ZeroGrads clears the gradient buffer.
func (m *Mat) ZeroGrads() {
	for i := range m.Dw {
		m.Dw[i] = 0
	}
}

// Snapshot is the serialisable form of a Mat; gradients are not kept.
type Snapshot struct {
	N int
	D int
	W []float64
}

// Snapshot returns the weights of m.
func (m *Mat) Snapshot() Snapshot {
	return Snapshot{N: m.N, D: m.D, W: append([]float64(nil), m.W...)}
}

// FromSnapshot rebuilds a matrix, checking the weight count.
func FromSnapshot(s Snapshot) (*Mat, error) {
	if len(s.W) != s.N*s.D {
		return nil, fmt.Errorf("nn: snapshot %dx%d carries %d weights", s.N, s.D, len(s.W))
	}
	m := NewMat(s.N, s.D)
	copy(m.W, s.W)
	return m, nil
}
