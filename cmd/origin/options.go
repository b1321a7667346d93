package main

import (
	"name-origin/internal/config"
	"name-origin/internal/dataset"
	"name-origin/internal/model"
	"name-origin/internal/pipeline"
)

// trainOptions maps the configured hyper-parameters onto a training run.
func trainOptions(cfg *config.Config, variant pipeline.Variant) pipeline.TrainOptions {
	t := cfg.Training
	opts := pipeline.DefaultTrainOptions(variant)
	opts.TestRatio = t.TestRatio
	opts.Seed = t.Seed
	opts.SeqLen = t.SeqLen
	opts.Recurrent = model.RecurrentConfig{
		SeqLen:       t.SeqLen,
		EmbeddingDim: t.EmbeddingDim,
		BiUnits:      t.BiUnits,
		Units:        t.Units,
		DenseUnits:   t.DenseUnits,
		Epochs:       t.Epochs,
		BatchSize:    t.BatchSize,
		LearningRate: t.LearningRate,
		Seed:         t.Seed,
	}
	opts.NGramMin = t.NGramMin
	opts.NGramMax = t.NGramMax
	opts.Trees = t.Trees
	opts.MaxDepth = t.MaxDepth
	opts.Criterion = t.Criterion
	opts.Bootstrap = t.Bootstrap
	opts.Workers = cfg.Workers
	return opts
}

func columns(cfg *config.Config) dataset.Columns {
	return dataset.Columns{Name: cfg.Training.NameColumn, Origin: cfg.Training.OriginColumn}
}
