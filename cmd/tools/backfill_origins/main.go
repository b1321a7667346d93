package main

import (
	"context"
	"flag"
	"log"

	"name-origin/internal/config"
	"name-origin/internal/pipeline"
	"name-origin/internal/storage"
)

func main() {
	var dryRun bool
	var limit int
	flag.BoolVar(&dryRun, "dry-run", true, "If true, do not persist updates; just print changes")
	flag.IntVar(&limit, "limit", 200, "Max number of candidates to process in one run")
	flag.Parse()

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	log.Printf("Loading model from %s", cfg.ModelPath)
	bundle, err := pipeline.Load(cfg.ModelPath)
	if err != nil {
		log.Fatalf("failed to load model: %v", err)
	}

	log.Printf("Connecting to DB...")
	db, err := storage.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	candidates, err := db.CandidatesMissingOrigin(ctx, limit)
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}
	log.Printf("Found %d candidates without an origin (limit %d)", len(candidates), limit)

	updated := 0
	for _, c := range candidates {
		pred, err := bundle.Classify(c.Name)
		if err != nil {
			log.Printf("Candidate %d (%q): %v, skipping", c.ID, c.Name, err)
			continue
		}
		log.Printf("Candidate %d (%q) -> %s (%.2f)", c.ID, c.Name, pred.Origin, pred.Confidence)

		if dryRun {
			log.Printf("[dry-run] Would update candidate %d: set origin='%s'", c.ID, pred.Origin)
			continue
		}

		if err := db.UpdateCandidateOrigin(ctx, c.ID, pred.Origin, pred.Confidence); err != nil {
			log.Printf("failed to update candidate %d: %v", c.ID, err)
			continue
		}
		rec := &storage.PredictionRecord{
			ModelID:    bundle.Manifest.ID,
			Input:      pred.Input,
			Origin:     pred.Origin,
			Confidence: pred.Confidence,
			Source:     "backfill",
		}
		if err := db.SavePrediction(ctx, rec); err != nil {
			log.Printf("failed to log prediction for candidate %d: %v", c.ID, err)
		}
		updated++
	}

	log.Printf("Backfill run complete: %d updated", updated)
}
