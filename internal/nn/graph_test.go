package nn

import (
	"math"
	"math/rand"
	"testing"
)

type tinyNet struct {
	emb   *Mat
	fwd   *LSTM
	bwd   *LSTM
	dense *Dense
}

func newTinyNet(rnd *rand.Rand) *tinyNet {
	return &tinyNet{
		emb:   NewUniformMat(rnd, 5, 3, 0.5),
		fwd:   NewLSTM(rnd, 3, 4),
		bwd:   NewLSTM(rnd, 3, 4),
		dense: NewDense(rnd, 8, 3),
	}
}

func (n *tinyNet) params() map[string]*Mat {
	p := map[string]*Mat{"emb": n.emb}
	n.fwd.Params("fwd", p)
	n.bwd.Params("bwd", p)
	n.dense.Params("dense", p)
	return p
}

// loss runs sequences of ids (one column per batch item) through the net.
func (n *tinyNet) loss(g *Graph, seqs [][]int, targets []int) float64 {
	steps := len(seqs[0])
	xs := make([]*Mat, steps)
	for t := 0; t < steps; t++ {
		ids := make([]int, len(seqs))
		for b, s := range seqs {
			ids[b] = s[t]
		}
		xs[t] = g.Lookup(n.emb, ids)
	}
	hf := n.fwd.Run(g, xs, false)
	hb := n.bwd.Run(g, xs, true)
	last := g.ConcatRows(hf[steps-1], hb[0])
	logits := n.dense.Forward(g, last)
	l, _ := g.SoftmaxCrossEntropy(logits, targets)
	return l
}

func TestGradientsMatchFiniteDifferences(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	net := newTinyNet(rnd)
	seqs := [][]int{{1, 2, 3}, {4, 0, 2}}
	targets := []int{2, 0}

	g := NewGraph(true)
	net.loss(g, seqs, targets)
	g.Backward()

	const eps = 1e-5
	for name, p := range net.params() {
		for i := range p.W {
			orig := p.W[i]
			p.W[i] = orig + eps
			plus := net.loss(NewGraph(false), seqs, targets)
			p.W[i] = orig - eps
			minus := net.loss(NewGraph(false), seqs, targets)
			p.W[i] = orig

			numeric := (plus - minus) / (2 * eps)
			if diff := math.Abs(numeric - p.Dw[i]); diff > 1e-6 {
				t.Fatalf("%s[%d]: analytic %.10f numeric %.10f", name, i, p.Dw[i], numeric)
			}
		}
	}
}

func TestReluAndSliceGradients(t *testing.T) {
	x := NewMat(4, 2)
	copy(x.W, []float64{0.5, -0.5, 1.5, -1, 0.25, 2, -0.75, 0.3})
	w := NewMat(3, 2)
	copy(w.W, []float64{0.2, -0.1, 0.4, 0.3, -0.6, 0.1})

	run := func(g *Graph) float64 {
		h := g.Relu(g.RowSlice(x, 1, 3)) // [2 x 2]
		logits := g.Mul(w, h)
		l, _ := g.SoftmaxCrossEntropy(logits, []int{1, 2})
		return l
	}

	g := NewGraph(true)
	run(g)
	g.Backward()

	const eps = 1e-6
	for _, m := range []*Mat{x, w} {
		for i := range m.W {
			orig := m.W[i]
			m.W[i] = orig + eps
			plus := run(NewGraph(false))
			m.W[i] = orig - eps
			minus := run(NewGraph(false))
			m.W[i] = orig
			numeric := (plus - minus) / (2 * eps)
			if math.Abs(numeric-m.Dw[i]) > 1e-6 {
				t.Fatalf("index %d: analytic %.10f numeric %.10f", i, m.Dw[i], numeric)
			}
		}
	}
	// rows outside the slice receive no gradient
	if x.Dw[0] != 0 || x.Dw[1] != 0 || x.Dw[6] != 0 || x.Dw[7] != 0 {
		t.Fatalf("unexpected gradient outside slice: %v", x.Dw)
	}
}

func TestSoftmaxColumnsSumToOne(t *testing.T) {
	m := NewMat(3, 2)
	copy(m.W, []float64{1, 1000, 2, 1001, 3, 999})
	p := Softmax(m)
	for j := 0; j < 2; j++ {
		sum := 0.0
		for _, v := range p.Col(j) {
			if math.IsNaN(v) {
				t.Fatalf("softmax produced NaN")
			}
			sum += v
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Fatalf("column %d sums to %v", j, sum)
		}
	}
}

func TestLookupIgnoresOutOfRangeIDs(t *testing.T) {
	emb := NewMat(2, 2)
	copy(emb.W, []float64{1, 2, 3, 4})
	g := NewGraph(true)
	out := g.Lookup(emb, []int{1, 7})
	if out.Get(0, 0) != 3 || out.Get(1, 0) != 4 || out.Get(0, 1) != 0 || out.Get(1, 1) != 0 {
		t.Fatalf("unexpected lookup %v", out.W)
	}
}

func TestAdamReducesLoss(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	d := NewDense(rnd, 3, 3)
	x := NewMat(3, 3)
	for i := 0; i < 3; i++ {
		x.Set(i, i, 1)
	}
	targets := []int{2, 0, 1}
	params := map[string]*Mat{}
	d.Params("d", params)

	step := func() float64 {
		g := NewGraph(true)
		l, _ := g.SoftmaxCrossEntropy(d.Forward(g, x), targets)
		g.Backward()
		return l
	}

	opt := NewAdam(0.05)
	first := step()
	opt.Step(params)
	var last float64
	for i := 0; i < 200; i++ {
		last = step()
		opt.Step(params)
	}
	if last >= first/10 {
		t.Fatalf("loss did not drop: first %v last %v", first, last)
	}
	for _, p := range params {
		for _, g := range p.Dw {
			if g != 0 {
				t.Fatalf("gradients not cleared after Step")
			}
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := NewUniformMat(rand.New(rand.NewSource(2)), 2, 3, 1)
	back, err := FromSnapshot(m.Snapshot())
	if err != nil {
		t.Fatalf("from snapshot: %v", err)
	}
	for i := range m.W {
		if m.W[i] != back.W[i] {
			t.Fatalf("weight %d differs", i)
		}
	}
	if _, err := FromSnapshot(Snapshot{N: 2, D: 2, W: []float64{1}}); err == nil {
		t.Fatalf("expected error for short snapshot")
	}
}
