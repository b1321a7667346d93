package nn

import "math/rand"

// LSTM is a single long short-term memory layer with fused gate weights in
// input, forget, cell, output order.
type LSTM struct {
	In     int
	Hidden int
	Wx     *Mat // [4H x In]
	Wh     *Mat // [4H x H]
	B      *Mat // [4H x 1]
}

// NewLSTM initialises weights with Glorot uniform and sets the forget gate
// bias to one.
func NewLSTM(rnd *rand.Rand, in, hidden int) *LSTM {
	l := &LSTM{
		In:     in,
		Hidden: hidden,
		Wx:     NewGlorotMat(rnd, 4*hidden, in),
		Wh:     NewGlorotMat(rnd, 4*hidden, hidden),
		B:      NewMat(4*hidden, 1),
	}
	for i := hidden; i < 2*hidden; i++ {
		l.B.W[i] = 1
	}
	return l
}

// Zero returns zero hidden and cell states for a batch.
func (l *LSTM) Zero(batch int) (h, c *Mat) {
	return NewMat(l.Hidden, batch), NewMat(l.Hidden, batch)
}

// Step advances the cell by one timestep. x is [In x B], h and c are [H x B].
func (l *LSTM) Step(g *Graph, x, h, c *Mat) (*Mat, *Mat) {
	z := g.AddBroadcastCol(g.Add(g.Mul(l.Wx, x), g.Mul(l.Wh, h)), l.B)
	H := l.Hidden
	i := g.Sigmoid(g.RowSlice(z, 0, H))
	f := g.Sigmoid(g.RowSlice(z, H, 2*H))
	cand := g.Tanh(g.RowSlice(z, 2*H, 3*H))
	o := g.Sigmoid(g.RowSlice(z, 3*H, 4*H))

	cNext := g.Add(g.Eltmul(f, c), g.Eltmul(i, cand))
	hNext := g.Eltmul(o, g.Tanh(cNext))
	return hNext, cNext
}

// Run feeds the sequence xs forward (or backward when reverse is set) and
// returns the hidden state at each input position, aligned with xs.
func (l *LSTM) Run(g *Graph, xs []*Mat, reverse bool) []*Mat {
	out := make([]*Mat, len(xs))
	if len(xs) == 0 {
		return out
	}
	h, c := l.Zero(xs[0].D)
	for k := range xs {
		t := k
		if reverse {
			t = len(xs) - 1 - k
		}
		h, c = l.Step(g, xs[t], h, c)
		out[t] = h
	}
	return out
}

// Params names the trainable matrices under prefix.
func (l *LSTM) Params(prefix string, into map[string]*Mat) {
	into[prefix+".wx"] = l.Wx
	into[prefix+".wh"] = l.Wh
	into[prefix+".b"] = l.B
}

// Dense is a fully connected layer y = W x + b.
type Dense struct {
	W *Mat // [out x in]
	B *Mat // [out x 1]
}

// NewDense initialises a dense layer with Glorot uniform weights.
func NewDense(rnd *rand.Rand, in, out int) *Dense {
	return &Dense{W: NewGlorotMat(rnd, out, in), B: NewMat(out, 1)}
}

// Forward applies the layer to x [in x B].
func (d *Dense) Forward(g *Graph, x *Mat) *Mat {
	return g.AddBroadcastCol(g.Mul(d.W, x), d.B)
}

// Params names the trainable matrices under prefix.
func (d *Dense) Params(prefix string, into map[string]*Mat) {
	into[prefix+".w"] = d.W
	into[prefix+".b"] = d.B
}
