package model

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"time"

	"name-origin/internal/features"
)

// DecisionTree is a CART classifier over sparse feature vectors. Leaf
// probabilities are indexed by class code, so trees grown on different
// bootstrap samples stay aligned with each other.
type DecisionTree struct {
	MaxDepth            int     // 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples in each child
	Criterion           string  // "gini" (default) or "entropy"
	MaxFeatures         int     // features examined per split, 0 => all
	MinImpurityDecrease float64 // smallest accepted gain
	RandomState         int64

	Features int
	Classes  int
	Nodes    []Node
}

// Node is one tree node; children are indices into DecisionTree.Nodes.
type Node struct {
	Leaf      bool
	Feature   int
	Threshold float64 // x <= Threshold goes left
	Left      int
	Right     int
	Samples   int
	Probas    []float64
}

// Option configures a DecisionTree.
type Option func(*DecisionTree)

func WithMaxDepth(d int) Option { return func(t *DecisionTree) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTree) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTree) { t.MinSamplesLeaf = n }
}
func WithCriterion(c string) Option { return func(t *DecisionTree) { t.Criterion = c } }
func WithMaxFeatures(k int) Option  { return func(t *DecisionTree) { t.MaxFeatures = k } }
func WithRandomState(seed int64) Option {
	return func(t *DecisionTree) { t.RandomState = seed }
}

// WithShape fixes the feature width and class count instead of inferring
// them from the training data.
func WithShape(features, classes int) Option {
	return func(t *DecisionTree) { t.Features, t.Classes = features, classes }
}

// NewDecisionTree returns a tree with sensible defaults.
func NewDecisionTree(opts ...Option) *DecisionTree {
	t := &DecisionTree{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Criterion:       "gini",
		RandomState:     time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Fit grows the tree on every row of X.
func (t *DecisionTree) Fit(X []features.Vector, y []int) error {
	if err := checkXY(len(X), len(y)); err != nil {
		return err
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.FitSample(X, y, idx)
}

// FitSample grows the tree on the rows listed in sample; rows may repeat,
// as they do in a bootstrap draw.
func (t *DecisionTree) FitSample(X []features.Vector, y []int, sample []int) error {
	if err := checkXY(len(X), len(y)); err != nil {
		return err
	}
	if len(sample) == 0 {
		return errors.New("dtree: empty sample")
	}
	inferShape(X, y, &t.Features, &t.Classes)
	for _, c := range y {
		if c < 0 || c >= t.Classes {
			return errors.New("dtree: class code outside configured range")
		}
	}

	impurity := giniFromCounts
	if t.Criterion == "entropy" {
		impurity = entropyFromCounts
	}
	b := &builder{
		tree:     t,
		X:        X,
		y:        y,
		rnd:      rand.New(rand.NewSource(t.RandomState)),
		impurity: impurity,
		feats:    make([]int, t.Features),
	}
	for i := range b.feats {
		b.feats[i] = i
	}
	t.Nodes = t.Nodes[:0]
	b.build(append([]int(nil), sample...), 0)
	return nil
}

func inferShape(X []features.Vector, y []int, nFeatures, nClasses *int) {
	if *nFeatures <= 0 {
		for _, v := range X {
			if n := len(v.Indices); n > 0 && v.Indices[n-1]+1 > *nFeatures {
				*nFeatures = v.Indices[n-1] + 1
			}
		}
	}
	if *nClasses <= 0 {
		for _, c := range y {
			if c+1 > *nClasses {
				*nClasses = c + 1
			}
		}
	}
}

// PredictProba returns per-class probabilities for every row.
func (t *DecisionTree) PredictProba(X []features.Vector) [][]float64 {
	out := make([][]float64, len(X))
	for i, x := range X {
		out[i] = t.predictOne(x)
	}
	return out
}

// NumClasses implements Classifier.
func (t *DecisionTree) NumClasses() int { return t.Classes }

// InputWidth implements Classifier.
func (t *DecisionTree) InputWidth() int { return t.Features }

// Depth returns the depth of the deepest leaf (root = 0).
func (t *DecisionTree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(i, d int) int
	walk = func(i, d int) int {
		n := t.Nodes[i]
		if n.Leaf {
			return d
		}
		l, r := walk(n.Left, d+1), walk(n.Right, d+1)
		if l > r {
			return l
		}
		return r
	}
	return walk(0, 0)
}

func (t *DecisionTree) predictOne(x features.Vector) []float64 {
	if len(t.Nodes) == 0 {
		p := make([]float64, t.Classes)
		for i := range p {
			p[i] = 1 / float64(len(p))
		}
		return p
	}
	n := t.Nodes[0]
	for !n.Leaf {
		if x.At(n.Feature) <= n.Threshold {
			n = t.Nodes[n.Left]
		} else {
			n = t.Nodes[n.Right]
		}
	}
	return n.Probas
}

type builder struct {
	tree     *DecisionTree
	X        []features.Vector
	y        []int
	rnd      *rand.Rand
	impurity func([]int) float64
	feats    []int
}

type splitResult struct {
	gain      float64
	feature   int
	threshold float64
}

// pair is a feature value and the row it came from.
type pair struct {
	v float64
	i int
}

func (b *builder) build(idx []int, depth int) int {
	t := b.tree
	counts := make([]int, t.Classes)
	for _, i := range idx {
		counts[b.y[i]]++
	}

	pos := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{Samples: len(idx)})

	leaf := isPure(counts) ||
		len(idx) < t.MinSamplesSplit ||
		len(idx) < 2*t.MinSamplesLeaf ||
		(t.MaxDepth > 0 && depth >= t.MaxDepth)

	var best splitResult
	if !leaf {
		best = b.bestSplit(idx, counts)
		leaf = best.feature < 0 || best.gain <= t.MinImpurityDecrease
	}
	if leaf {
		t.Nodes[pos].Leaf = true
		t.Nodes[pos].Probas = countsToProbas(counts)
		return pos
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i].At(best.feature) <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	t.Nodes[pos].Feature = best.feature
	t.Nodes[pos].Threshold = best.threshold
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	t.Nodes[pos].Left = l
	t.Nodes[pos].Right = r
	return pos
}

// bestSplit examines features in random order. It stops once MaxFeatures
// features have been looked at and a usable split is known; otherwise it
// keeps drawing until every feature has been tried.
func (b *builder) bestSplit(idx []int, counts []int) splitResult {
	t := b.tree
	p := len(b.feats)
	want := t.MaxFeatures
	if want <= 0 || want > p {
		want = p
	}
	parent := b.impurity(counts)
	best := splitResult{feature: -1}

	vals := make([]pair, len(idx))
	for k := 0; k < p; k++ {
		j := k + b.rnd.Intn(p-k)
		b.feats[k], b.feats[j] = b.feats[j], b.feats[k]
		f := b.feats[k]

		if r := b.splitFeature(idx, f, vals, parent); r.gain > best.gain {
			best = r
		}
		if k+1 >= want && best.feature >= 0 {
			break
		}
	}
	return best
}

func (b *builder) splitFeature(idx []int, f int, vals []pair, parent float64) splitResult {
	t := b.tree
	res := splitResult{feature: -1}
	allSame := true
	for k, i := range idx {
		vals[k] = pair{v: b.X[i].At(f), i: i}
		if k > 0 && vals[k].v != vals[0].v {
			allSame = false
		}
	}
	if allSame {
		return res
	}
	sort.Slice(vals, func(a, c int) bool { return vals[a].v < vals[c].v })

	n := len(vals)
	left := make([]int, t.Classes)
	right := make([]int, t.Classes)
	for _, pv := range vals {
		right[b.y[pv.i]]++
	}
	for s := 1; s < n; s++ {
		c := b.y[vals[s-1].i]
		left[c]++
		right[c]--
		if vals[s].v == vals[s-1].v {
			continue
		}
		if s < t.MinSamplesLeaf || n-s < t.MinSamplesLeaf {
			continue
		}
		weighted := (float64(s)*b.impurity(left) + float64(n-s)*b.impurity(right)) / float64(n)
		gain := parent - weighted
		if gain > res.gain+1e-12 {
			res = splitResult{gain: gain, feature: f, threshold: (vals[s-1].v + vals[s].v) / 2}
		}
	}
	return res
}

func giniFromCounts(counts []int) float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	if n == 0 {
		return 0
	}
	res := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		res -= p * p
	}
	return res
}

func entropyFromCounts(counts []int) float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(n)
		res -= p * math.Log2(p)
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProbas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	p := make([]float64, len(counts))
	if n == 0 {
		return p
	}
	for i, c := range counts {
		p[i] = float64(c) / float64(n)
	}
	return p
}
