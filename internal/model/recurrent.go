package model

import (
	"fmt"
	"log/slog"
	"math/rand"

	"name-origin/internal/features"
	"name-origin/internal/nn"
)

// RecurrentConfig holds the architecture and the fixed training budget.
type RecurrentConfig struct {
	SeqLen       int
	EmbeddingDim int
	BiUnits      int // per direction
	Units        int
	DenseUnits   int
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         int64
}

// DefaultRecurrentConfig is the production architecture and training budget.
func DefaultRecurrentConfig() RecurrentConfig {
	return RecurrentConfig{
		SeqLen:       features.DefaultSeqLen,
		EmbeddingDim: 64,
		BiUnits:      128,
		Units:        64,
		DenseUnits:   32,
		Epochs:       15,
		BatchSize:    32,
		LearningRate: 0.001,
		Seed:         42,
	}
}

// RecurrentNetwork is Embedding -> BiLSTM -> LSTM -> Dense(ReLU) -> softmax.
type RecurrentNetwork struct {
	Config    RecurrentConfig
	VocabSize int
	Classes   int

	emb    *nn.Mat // [vocab x embedding]
	fwd    *nn.LSTM
	bwd    *nn.LSTM
	lstm   *nn.LSTM
	hidden *nn.Dense
	out    *nn.Dense

	logger *slog.Logger
}

// NewRecurrentNetwork initialises a network for the given vocabulary and
// class count.
func NewRecurrentNetwork(cfg RecurrentConfig, vocabSize, classes int) *RecurrentNetwork {
	def := DefaultRecurrentConfig()
	if cfg.SeqLen <= 0 {
		cfg.SeqLen = def.SeqLen
	}
	if cfg.EmbeddingDim <= 0 {
		cfg.EmbeddingDim = def.EmbeddingDim
	}
	if cfg.BiUnits <= 0 {
		cfg.BiUnits = def.BiUnits
	}
	if cfg.Units <= 0 {
		cfg.Units = def.Units
	}
	if cfg.DenseUnits <= 0 {
		cfg.DenseUnits = def.DenseUnits
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = def.Epochs
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}

	rnd := rand.New(rand.NewSource(cfg.Seed))
	return &RecurrentNetwork{
		Config:    cfg,
		VocabSize: vocabSize,
		Classes:   classes,
		emb:       nn.NewUniformMat(rnd, vocabSize, cfg.EmbeddingDim, 0.05),
		fwd:       nn.NewLSTM(rnd, cfg.EmbeddingDim, cfg.BiUnits),
		bwd:       nn.NewLSTM(rnd, cfg.EmbeddingDim, cfg.BiUnits),
		lstm:      nn.NewLSTM(rnd, 2*cfg.BiUnits, cfg.Units),
		hidden:    nn.NewDense(rnd, cfg.Units, cfg.DenseUnits),
		out:       nn.NewDense(rnd, cfg.DenseUnits, classes),
		logger:    slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger used for per-epoch progress.
func (r *RecurrentNetwork) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

func (r *RecurrentNetwork) params() map[string]*nn.Mat {
	p := map[string]*nn.Mat{"embedding": r.emb}
	r.fwd.Params("bilstm.fwd", p)
	r.bwd.Params("bilstm.bwd", p)
	r.lstm.Params("lstm", p)
	r.hidden.Params("dense", p)
	r.out.Params("output", p)
	return p
}

// forward builds the graph for one batch and returns logits [classes x batch].
func (r *RecurrentNetwork) forward(g *nn.Graph, batch []features.Sequence) *nn.Mat {
	T := r.Config.SeqLen
	xs := make([]*nn.Mat, T)
	ids := make([]int, len(batch))
	for t := 0; t < T; t++ {
		for b, s := range batch {
			ids[b] = s[t]
		}
		xs[t] = g.Lookup(r.emb, append([]int(nil), ids...))
	}

	hf := r.fwd.Run(g, xs, false)
	hb := r.bwd.Run(g, xs, true)
	seq := make([]*nn.Mat, T)
	for t := range seq {
		seq[t] = g.ConcatRows(hf[t], hb[t])
	}
	h := r.lstm.Run(g, seq, false)
	dense := g.Relu(r.hidden.Forward(g, h[T-1]))
	return r.out.Forward(g, dense)
}

func (r *RecurrentNetwork) checkInputs(xs []features.Sequence) error {
	for i, s := range xs {
		if len(s) != r.Config.SeqLen {
			return fmt.Errorf("recurrent: sample %d has length %d, want %d", i, len(s), r.Config.SeqLen)
		}
	}
	return nil
}

// Fit trains with Adam on sparse categorical cross-entropy for the configured
// number of epochs. Samples are reshuffled every epoch.
func (r *RecurrentNetwork) Fit(xs []features.Sequence, y []int) error {
	if err := checkXY(len(xs), len(y)); err != nil {
		return err
	}
	if err := r.checkInputs(xs); err != nil {
		return err
	}
	for _, c := range y {
		if c < 0 || c >= r.Classes {
			return fmt.Errorf("recurrent: class code %d outside [0,%d)", c, r.Classes)
		}
	}

	params := r.params()
	opt := nn.NewAdam(r.Config.LearningRate)
	rnd := rand.New(rand.NewSource(r.Config.Seed + 1))
	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}

	bs := r.Config.BatchSize
	for epoch := 1; epoch <= r.Config.Epochs; epoch++ {
		rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		var lossSum float64
		correct := 0
		for start := 0; start < len(order); start += bs {
			end := start + bs
			if end > len(order) {
				end = len(order)
			}
			batch := make([]features.Sequence, 0, end-start)
			targets := make([]int, 0, end-start)
			for _, i := range order[start:end] {
				batch = append(batch, xs[i])
				targets = append(targets, y[i])
			}

			g := nn.NewGraph(true)
			loss, probs := g.SoftmaxCrossEntropy(r.forward(g, batch), targets)
			g.Backward()
			opt.Step(params)

			lossSum += loss * float64(len(batch))
			for j, t := range targets {
				if Argmax(probs.Col(j)) == t {
					correct++
				}
			}
		}
		r.logger.Info("epoch complete",
			"epoch", epoch,
			"epochs", r.Config.Epochs,
			"loss", lossSum/float64(len(xs)),
			"accuracy", float64(correct)/float64(len(xs)))
	}
	return nil
}

// PredictProba runs inference in batches of BatchSize.
func (r *RecurrentNetwork) PredictProba(xs []features.Sequence) [][]float64 {
	out := make([][]float64, 0, len(xs))
	if err := r.checkInputs(xs); err != nil {
		r.logger.Error("predict", "error", err)
		for range xs {
			out = append(out, make([]float64, r.Classes))
		}
		return out
	}
	bs := r.Config.BatchSize
	for start := 0; start < len(xs); start += bs {
		end := start + bs
		if end > len(xs) {
			end = len(xs)
		}
		probs := nn.Softmax(r.forward(nn.NewGraph(false), xs[start:end]))
		for j := 0; j < end-start; j++ {
			out = append(out, probs.Col(j))
		}
	}
	return out
}

// NumClasses implements Classifier.
func (r *RecurrentNetwork) NumClasses() int { return r.Classes }

// InputWidth implements Classifier; it is the embedding vocabulary size.
func (r *RecurrentNetwork) InputWidth() int { return r.VocabSize }

// RecurrentSnapshot is the gob-friendly form of a trained network.
type RecurrentSnapshot struct {
	Config    RecurrentConfig
	VocabSize int
	Classes   int
	Params    map[string]nn.Snapshot
}

// Snapshot captures the network weights.
func (r *RecurrentNetwork) Snapshot() RecurrentSnapshot {
	s := RecurrentSnapshot{
		Config:    r.Config,
		VocabSize: r.VocabSize,
		Classes:   r.Classes,
		Params:    make(map[string]nn.Snapshot),
	}
	for name, m := range r.params() {
		s.Params[name] = m.Snapshot()
	}
	return s
}

// RestoreRecurrent rebuilds a network from a snapshot, checking every
// parameter shape against the recorded architecture.
func RestoreRecurrent(s RecurrentSnapshot) (*RecurrentNetwork, error) {
	r := NewRecurrentNetwork(s.Config, s.VocabSize, s.Classes)
	if r.Config != s.Config {
		return nil, fmt.Errorf("recurrent: snapshot config is incomplete")
	}
	want := r.params()
	if len(want) != len(s.Params) {
		return nil, fmt.Errorf("recurrent: snapshot has %d parameters, want %d", len(s.Params), len(want))
	}
	for name, dst := range want {
		src, ok := s.Params[name]
		if !ok {
			return nil, fmt.Errorf("recurrent: snapshot missing parameter %q", name)
		}
		if src.N != dst.N || src.D != dst.D || len(src.W) != len(dst.W) {
			return nil, fmt.Errorf("recurrent: parameter %q is %dx%d, want %dx%d", name, src.N, src.D, dst.N, dst.D)
		}
		copy(dst.W, src.W)
	}
	return r, nil
}
