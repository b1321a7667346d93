package nn

import (
	"fmt"
	"math"
)

// Graph records backward closures while the forward pass runs. Backward
// replays them in reverse. A Graph built with needsBackprop=false is a plain
// forward evaluator.
type Graph struct {
	NeedsBackprop bool
	backprop      []func()
}

// NewGraph returns an empty tape.
func NewGraph(needsBackprop bool) *Graph {
	return &Graph{NeedsBackprop: needsBackprop}
}

// Backward propagates the gradients stored on the outputs to every input.
func (g *Graph) Backward() {
	for i := len(g.backprop) - 1; i >= 0; i-- {
		g.backprop[i]()
	}
}

func (g *Graph) addBackward(f func()) {
	if g.NeedsBackprop {
		g.backprop = append(g.backprop, f)
	}
}

func mustShape(ok bool, format string, args ...any) {
	if !ok {
		panic(fmt.Sprintf("nn: "+format, args...))
	}
}

// Mul is the matrix product [n x k] * [k x b] -> [n x b].
func (g *Graph) Mul(m1, m2 *Mat) *Mat {
	mustShape(m1.D == m2.N, "Mul: %dx%d * %dx%d", m1.N, m1.D, m2.N, m2.D)
	n, k, b := m1.N, m1.D, m2.D
	out := NewMat(n, b)
	for i := 0; i < n; i++ {
		row := out.W[i*b : (i+1)*b]
		for l := 0; l < k; l++ {
			a := m1.W[i*k+l]
			if a == 0 {
				continue
			}
			src := m2.W[l*b : (l+1)*b]
			for j := range row {
				row[j] += a * src[j]
			}
		}
	}

	g.addBackward(func() {
		for i := 0; i < n; i++ {
			dout := out.Dw[i*b : (i+1)*b]
			for l := 0; l < k; l++ {
				a := m1.W[i*k+l]
				src := m2.W[l*b : (l+1)*b]
				dsrc := m2.Dw[l*b : (l+1)*b]
				grad := 0.0
				for j, d := range dout {
					grad += src[j] * d
					dsrc[j] += a * d
				}
				m1.Dw[i*k+l] += grad
			}
		}
	})
	return out
}

// Add sums two matrices of equal shape.
func (g *Graph) Add(m1, m2 *Mat) *Mat {
	mustShape(m1.N == m2.N && m1.D == m2.D, "Add: %dx%d + %dx%d", m1.N, m1.D, m2.N, m2.D)
	out := NewMat(m1.N, m1.D)
	for i := range m1.W {
		out.W[i] = m1.W[i] + m2.W[i]
	}
	g.addBackward(func() {
		for i := range m1.W {
			m1.Dw[i] += out.Dw[i]
			m2.Dw[i] += out.Dw[i]
		}
	})
	return out
}

// AddBroadcastCol adds the column vector col [n x 1] to every column of m.
func (g *Graph) AddBroadcastCol(m, col *Mat) *Mat {
	mustShape(m.N == col.N && col.D == 1, "AddBroadcastCol: %dx%d + %dx%d", m.N, m.D, col.N, col.D)
	n, b := m.N, m.D
	out := NewMat(n, b)
	for i := 0; i < n; i++ {
		for j := 0; j < b; j++ {
			out.W[i*b+j] = m.W[i*b+j] + col.W[i]
		}
	}
	g.addBackward(func() {
		for i := 0; i < n; i++ {
			for j := 0; j < b; j++ {
				d := out.Dw[i*b+j]
				m.Dw[i*b+j] += d
				col.Dw[i] += d
			}
		}
	})
	return out
}

// Eltmul is the element-wise product.
func (g *Graph) Eltmul(m1, m2 *Mat) *Mat {
	mustShape(m1.N == m2.N && m1.D == m2.D, "Eltmul: %dx%d * %dx%d", m1.N, m1.D, m2.N, m2.D)
	out := NewMat(m1.N, m1.D)
	for i := range m1.W {
		out.W[i] = m1.W[i] * m2.W[i]
	}
	g.addBackward(func() {
		for i := range m1.W {
			m1.Dw[i] += m2.W[i] * out.Dw[i]
			m2.Dw[i] += m1.W[i] * out.Dw[i]
		}
	})
	return out
}

func (g *Graph) activate(m *Mat, fn func(float64) float64, deriv func(x, y float64) float64) *Mat {
	out := NewMat(m.N, m.D)
	for i, x := range m.W {
		out.W[i] = fn(x)
	}
	g.addBackward(func() {
		for i := range m.W {
			m.Dw[i] += deriv(m.W[i], out.W[i]) * out.Dw[i]
		}
	})
	return out
}

// Tanh applies tanh element-wise.
func (g *Graph) Tanh(m *Mat) *Mat {
	return g.activate(m, math.Tanh, func(_, y float64) float64 { return 1 - y*y })
}

// Sigmoid applies the logistic function element-wise.
func (g *Graph) Sigmoid(m *Mat) *Mat {
	return g.activate(m, sigmoid, func(_, y float64) float64 { return y * (1 - y) })
}

// Relu applies max(0, x) element-wise.
func (g *Graph) Relu(m *Mat) *Mat {
	return g.activate(m, func(x float64) float64 { return math.Max(0, x) }, func(x, _ float64) float64 {
		if x > 0 {
			return 1
		}
		return 0
	})
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// Lookup gathers embedding rows for a batch of ids: emb is [vocab x dim],
// the result is [dim x len(ids)]. Ids outside the table embed to zeros.
func (g *Graph) Lookup(emb *Mat, ids []int) *Mat {
	dim, b := emb.D, len(ids)
	mustShape(b > 0, "Lookup: empty batch")
	out := NewMat(dim, b)
	for j, id := range ids {
		if id < 0 || id >= emb.N {
			continue
		}
		for i := 0; i < dim; i++ {
			out.W[i*b+j] = emb.W[id*dim+i]
		}
	}
	g.addBackward(func() {
		for j, id := range ids {
			if id < 0 || id >= emb.N {
				continue
			}
			for i := 0; i < dim; i++ {
				emb.Dw[id*dim+i] += out.Dw[i*b+j]
			}
		}
	})
	return out
}

// RowSlice returns rows [from, to) of m.
func (g *Graph) RowSlice(m *Mat, from, to int) *Mat {
	mustShape(0 <= from && from < to && to <= m.N, "RowSlice: [%d,%d) of %d rows", from, to, m.N)
	b := m.D
	out := NewMat(to-from, b)
	copy(out.W, m.W[from*b:to*b])
	g.addBackward(func() {
		dst := m.Dw[from*b : to*b]
		for i, d := range out.Dw {
			dst[i] += d
		}
	})
	return out
}

// ConcatRows stacks a on top of b; both must have the same column count.
func (g *Graph) ConcatRows(a, b *Mat) *Mat {
	mustShape(a.D == b.D, "ConcatRows: %dx%d over %dx%d", a.N, a.D, b.N, b.D)
	out := NewMat(a.N+b.N, a.D)
	copy(out.W, a.W)
	copy(out.W[len(a.W):], b.W)
	g.addBackward(func() {
		for i := range a.Dw {
			a.Dw[i] += out.Dw[i]
		}
		off := len(a.W)
		for i := range b.Dw {
			b.Dw[i] += out.Dw[off+i]
		}
	})
	return out
}

// SoftmaxCrossEntropy turns logits [classes x batch] into column
// probabilities and returns the mean negative log-likelihood of targets.
// Its backward writes d(loss)/d(logits) directly, so it must be the last op
// recorded before Backward.
func (g *Graph) SoftmaxCrossEntropy(logits *Mat, targets []int) (float64, *Mat) {
	c, b := logits.N, logits.D
	mustShape(len(targets) == b, "SoftmaxCrossEntropy: %d targets for batch of %d", len(targets), b)
	probs := Softmax(logits)
	loss := 0.0
	for j, t := range targets {
		mustShape(t >= 0 && t < c, "SoftmaxCrossEntropy: target %d outside %d classes", t, c)
		loss -= math.Log(probs.W[t*b+j] + 1e-12)
	}
	loss /= float64(b)

	g.addBackward(func() {
		inv := 1 / float64(b)
		for i := 0; i < c; i++ {
			for j := 0; j < b; j++ {
				d := probs.W[i*b+j]
				if targets[j] == i {
					d--
				}
				logits.Dw[i*b+j] += d * inv
			}
		}
	})
	return loss, probs
}

// Softmax normalises each column of m; it records nothing on a tape.
func Softmax(m *Mat) *Mat {
	c, b := m.N, m.D
	out := NewMat(c, b)
	for j := 0; j < b; j++ {
		maxVal := math.Inf(-1)
		for i := 0; i < c; i++ {
			if v := m.W[i*b+j]; v > maxVal {
				maxVal = v
			}
		}
		sum := 0.0
		for i := 0; i < c; i++ {
			e := math.Exp(m.W[i*b+j] - maxVal)
			out.W[i*b+j] = e
			sum += e
		}
		for i := 0; i < c; i++ {
			out.W[i*b+j] /= sum
		}
	}
	return out
}
