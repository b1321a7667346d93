package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"name-origin/internal/features"
)

// RandomForest is a bagged ensemble of decision trees. Prediction averages
// the per-tree class probabilities.
type RandomForest struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 => sqrt(features)
	Criterion       string
	Bootstrap       bool
	RandomState     int64
	Workers         int

	Features int
	Classes  int
	Trees    []*DecisionTree
}

// RandomForestOption configures a RandomForest.
type RandomForestOption func(*RandomForest)

func WithNEstimators(n int) RandomForestOption { return func(rf *RandomForest) { rf.NEstimators = n } }
func WithBootstrap(b bool) RandomForestOption  { return func(rf *RandomForest) { rf.Bootstrap = b } }
func WithForestSeed(seed int64) RandomForestOption {
	return func(rf *RandomForest) { rf.RandomState = seed }
}
func WithForestMaxDepth(d int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxDepth = d }
}
func WithForestCriterion(c string) RandomForestOption {
	return func(rf *RandomForest) { rf.Criterion = c }
}
func WithWorkers(n int) RandomForestOption { return func(rf *RandomForest) { rf.Workers = n } }

// WithForestShape fixes the feature width and class count.
func WithForestShape(features, classes int) RandomForestOption {
	return func(rf *RandomForest) { rf.Features, rf.Classes = features, classes }
}

// NewRandomForest initializes the forest with sensible defaults.
func NewRandomForest(opts ...RandomForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Criterion:       "gini",
		Bootstrap:       true,
		RandomState:     time.Now().UnixNano(),
		Workers:         runtime.NumCPU(),
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Fit trains every tree on its own bootstrap sample. Trees are grown on a
// bounded number of goroutines; each goroutine owns its RNG and writes only
// its own slot in Trees.
func (rf *RandomForest) Fit(X []features.Vector, y []int) error {
	if err := checkXY(len(X), len(y)); err != nil {
		return err
	}
	if rf.NEstimators <= 0 {
		return errors.New("randomforest: NEstimators must be positive")
	}
	if rf.Criterion != "gini" && rf.Criterion != "entropy" {
		return fmt.Errorf("randomforest: unknown criterion %q", rf.Criterion)
	}
	inferShape(X, y, &rf.Features, &rf.Classes)

	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(rf.Features)))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}
	workers := rf.Workers
	if workers <= 0 {
		workers = 1
	}

	n := len(X)
	rf.Trees = make([]*DecisionTree, rf.NEstimators)
	errs := make([]error, rf.NEstimators)
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := 0; i < rf.NEstimators; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			seed := rf.RandomState + int64(idx)
			treeRand := rand.New(rand.NewSource(seed))
			sample := make([]int, n)
			for j := range sample {
				if rf.Bootstrap {
					sample[j] = treeRand.Intn(n)
				} else {
					sample[j] = j
				}
			}

			tree := NewDecisionTree(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMinSamplesLeaf(rf.MinSamplesLeaf),
				WithCriterion(rf.Criterion),
				WithMaxFeatures(maxFeatures),
				WithRandomState(seed),
				WithShape(rf.Features, rf.Classes),
			)
			if err := tree.FitSample(X, y, sample); err != nil {
				errs[idx] = err
				return
			}
			rf.Trees[idx] = tree
		}(i)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// PredictProba averages tree probabilities for every row.
func (rf *RandomForest) PredictProba(X []features.Vector) [][]float64 {
	out := make([][]float64, len(X))
	for i, x := range X {
		acc := make([]float64, rf.Classes)
		for _, t := range rf.Trees {
			for c, p := range t.predictOne(x) {
				acc[c] += p
			}
		}
		if len(rf.Trees) > 0 {
			inv := 1 / float64(len(rf.Trees))
			for c := range acc {
				acc[c] *= inv
			}
		}
		out[i] = acc
	}
	return out
}

// NumClasses implements Classifier.
func (rf *RandomForest) NumClasses() int { return rf.Classes }

// InputWidth implements Classifier.
func (rf *RandomForest) InputWidth() int { return rf.Features }

// Validate checks that a decoded forest is internally consistent.
func (rf *RandomForest) Validate() error {
	if len(rf.Trees) == 0 {
		return errors.New("randomforest: no trees")
	}
	for _, t := range rf.Trees {
		if t == nil || t.Classes != rf.Classes || t.Features != rf.Features {
			return errors.New("randomforest: tree shape differs from forest shape")
		}
		// Nodes are stored in pre-order, so children always follow their parent.
		for i, n := range t.Nodes {
			if n.Leaf && len(n.Probas) != rf.Classes {
				return errors.New("randomforest: leaf probabilities do not match class count")
			}
			if !n.Leaf && (n.Feature < 0 || n.Feature >= rf.Features ||
				n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes)) {
				return errors.New("randomforest: corrupt split node")
			}
		}
	}
	return nil
}
