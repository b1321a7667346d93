package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"name-origin/internal/dataset"
	"name-origin/internal/features"
	"name-origin/internal/labels"
	"name-origin/internal/model"
)

// TrainOptions controls one training run.
type TrainOptions struct {
	Variant   Variant
	TestRatio float64
	Seed      int64

	// recurrent
	SeqLen    int
	Recurrent model.RecurrentConfig

	// forest
	NGramMin  int
	NGramMax  int
	Trees     int
	MaxDepth  int
	Criterion string // "gini" or "entropy"
	Bootstrap bool
	Workers   int
}

// DefaultTrainOptions returns the production settings: an
// 80/20 stratified split seeded with 42, 15 epochs for the network and 200
// trees for the forest.
func DefaultTrainOptions(v Variant) TrainOptions {
	return TrainOptions{
		Variant:   v,
		TestRatio: 0.2,
		Seed:      42,
		SeqLen:    features.DefaultSeqLen,
		Recurrent: model.DefaultRecurrentConfig(),
		NGramMin:  2,
		NGramMax:  4,
		Trees:     200,
		Criterion: "gini",
		Bootstrap: true,
		Workers:   runtime.NumCPU(),
	}
}

func (o TrainOptions) withDefaults() TrainOptions {
	def := DefaultTrainOptions(o.Variant)
	if o.Variant == "" {
		o.Variant = VariantForest
	}
	if o.TestRatio < 0 || o.TestRatio >= 1 {
		o.TestRatio = def.TestRatio
	}
	if o.SeqLen <= 0 {
		o.SeqLen = def.SeqLen
	}
	if o.Recurrent == (model.RecurrentConfig{}) {
		o.Recurrent = def.Recurrent
	}
	o.Recurrent.SeqLen = o.SeqLen
	if o.Recurrent.Seed == 0 {
		o.Recurrent.Seed = o.Seed
	}
	if o.NGramMin <= 0 {
		o.NGramMin = def.NGramMin
	}
	if o.NGramMax < o.NGramMin {
		o.NGramMax = o.NGramMin
	}
	if o.Trees <= 0 {
		o.Trees = def.Trees
	}
	if o.Criterion == "" {
		o.Criterion = def.Criterion
	}
	if o.Workers <= 0 {
		o.Workers = def.Workers
	}
	return o
}

// ComparisonRow is one line of the held-out comparison table.
type ComparisonRow struct {
	Name      string `json:"name"`
	Actual    string `json:"actual"`
	Predicted string `json:"predicted"`
}

// Evaluation is the outcome of scoring a bundle on labelled records.
type Evaluation struct {
	Report  model.Report    `json:"report"`
	Rows    []ComparisonRow `json:"rows"`
	Skipped int             `json:"skipped"`
}

// WriteComparisonCSV writes the name / actual / predicted table.
func (e *Evaluation) WriteComparisonCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Name", "Actual Origin", "Predicted Origin"}); err != nil {
		return err
	}
	for _, r := range e.Rows {
		if err := cw.Write([]string{r.Name, r.Actual, r.Predicted}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Train fits encoders and a model on records and evaluates the result on a
// held-out stratified split.
func Train(records []dataset.Record, opts TrainOptions, logger *slog.Logger) (*Bundle, *Evaluation, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts = opts.withDefaults()

	clean, err := validateRecords(records)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("dataset loaded", "records", len(clean), "origins", len(dataset.Summary(clean)))

	train, test := dataset.Split(clean, opts.TestRatio, opts.Seed)
	if len(test) == 0 {
		logger.Warn("split left no held-out rows, evaluating on training data")
		test = train
	}
	logger.Info("split", "train", len(train), "test", len(test), "variant", opts.Variant)

	enc := labels.Fit(dataset.Origins(clean))
	y, err := enc.EncodeAll(dataset.Origins(train))
	if err != nil {
		return nil, nil, err
	}

	b := &Bundle{
		Manifest: Manifest{
			ID:            uuid.NewString(),
			FormatVersion: FormatVersion,
			Variant:       opts.Variant,
			CreatedAt:     time.Now().UTC(),
			Classes:       enc.Classes(),
			TrainSize:     len(train),
			TestSize:      len(test),
		},
		labels: enc,
	}
	names := dataset.Names(train)

	start := time.Now()
	switch opts.Variant {
	case VariantRecurrent:
		seq := features.NewSequenceEncoder(opts.SeqLen)
		if err := seq.Fit(names); err != nil {
			return nil, nil, fmt.Errorf("fit sequence encoder: %w", err)
		}
		xs, err := seq.TransformAll(names)
		if err != nil {
			return nil, nil, err
		}
		net := model.NewRecurrentNetwork(opts.Recurrent, seq.VocabSize(), enc.Len())
		net.SetLogger(logger)
		if err := net.Fit(xs, y); err != nil {
			return nil, nil, fmt.Errorf("fit recurrent network: %w", err)
		}
		b.seq, b.net = seq, net
		b.Manifest.InputWidth = seq.VocabSize()
		b.Manifest.SeqLen = seq.SeqLen

	case VariantForest:
		vec := features.NewTFIDFVectorizer(opts.NGramMin, opts.NGramMax)
		if err := vec.Fit(names); err != nil {
			return nil, nil, fmt.Errorf("fit n-gram vectorizer: %w", err)
		}
		xs, err := vec.TransformAll(names)
		if err != nil {
			return nil, nil, err
		}
		rf := model.NewRandomForest(
			model.WithNEstimators(opts.Trees),
			model.WithForestSeed(opts.Seed),
			model.WithForestMaxDepth(opts.MaxDepth),
			model.WithForestCriterion(opts.Criterion),
			model.WithBootstrap(opts.Bootstrap),
			model.WithWorkers(opts.Workers),
			model.WithForestShape(vec.Dim(), enc.Len()),
		)
		if err := rf.Fit(xs, y); err != nil {
			return nil, nil, fmt.Errorf("fit random forest: %w", err)
		}
		b.tfidf, b.forest = vec, rf
		b.Manifest.InputWidth = vec.Dim()

	default:
		return nil, nil, fmt.Errorf("unknown model variant %q", opts.Variant)
	}
	logger.Info("model fitted", "variant", opts.Variant, "duration", time.Since(start).Round(time.Millisecond))

	if err := b.Validate(); err != nil {
		return nil, nil, err
	}
	eval, err := EvaluateBundle(b, test)
	if err != nil {
		return nil, nil, err
	}
	b.Manifest.Accuracy = eval.Report.Accuracy
	logger.Info("evaluation", "accuracy", eval.Report.Accuracy, "samples", eval.Report.Total)
	return b, eval, nil
}

// validateRecords cleans every record and rejects the set when any row is
// unusable or nothing is left.
func validateRecords(records []dataset.Record) ([]dataset.Record, error) {
	if len(records) == 0 {
		return nil, &dataset.DataLoadError{Reason: "no training records"}
	}
	out := make([]dataset.Record, 0, len(records))
	for i, r := range records {
		name := dataset.Clean(r.Name)
		origin := strings.TrimSpace(r.Origin)
		if name == "" || origin == "" {
			return nil, &dataset.DataLoadError{Reason: fmt.Sprintf("record %d has an empty name or origin", i)}
		}
		out = append(out, dataset.Record{Name: name, Origin: origin})
	}
	return out, nil
}

// EvaluateBundle scores b on labelled records. Records whose origin the
// bundle has never seen, or whose name cleans to nothing, are skipped and
// counted.
func EvaluateBundle(b *Bundle, records []dataset.Record) (*Evaluation, error) {
	eval := &Evaluation{}
	var names, raw []string
	var y []int
	for _, r := range records {
		cleaned := dataset.Clean(r.Name)
		code, err := b.labels.Encode(strings.TrimSpace(r.Origin))
		var unknown *labels.UnknownLabelError
		if errors.As(err, &unknown) || cleaned == "" {
			eval.Skipped++
			continue
		}
		if err != nil {
			return nil, err
		}
		names = append(names, cleaned)
		raw = append(raw, r.Name)
		y = append(y, code)
	}
	if len(names) == 0 {
		return nil, &dataset.DataLoadError{Reason: "no records match the bundle's origins"}
	}

	var pred []int
	switch b.Manifest.Variant {
	case VariantRecurrent:
		xs, err := b.seq.TransformAll(names)
		if err != nil {
			return nil, err
		}
		pred = model.Predict[features.Sequence](b.net, xs)
	case VariantForest:
		xs, err := b.tfidf.TransformAll(names)
		if err != nil {
			return nil, err
		}
		pred = model.Predict[features.Vector](b.forest, xs)
	default:
		return nil, b.mismatch("unknown variant %q", b.Manifest.Variant)
	}

	classes := b.labels.Classes()
	eval.Report = model.ClassificationReport(y, pred, classes)
	eval.Rows = make([]ComparisonRow, len(y))
	for i := range y {
		eval.Rows[i] = ComparisonRow{Name: raw[i], Actual: classes[y[i]], Predicted: classes[pred[i]]}
	}
	return eval, nil
}
