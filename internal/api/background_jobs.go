package api

import (
	"context"
	"log"
	"time"

	"name-origin/internal/pipeline"
	"name-origin/internal/storage"
)

// StartBackgroundWorkers starts the prediction logging worker when a
// database is configured.
func (a *API) StartBackgroundWorkers() {
	if a.db == nil {
		log.Println("[BackgroundJobs] No database configured, prediction logging disabled")
		return
	}
	a.workers.Add(1)
	go a.predictionWorker()

	log.Println("[BackgroundJobs] Workers started (prediction logging)")
}

// Close stops accepting prediction logs and waits for the queue to drain.
// Predictions logged afterwards are dropped. Calling Close twice is a no-op.
func (a *API) Close() {
	a.queueMu.Lock()
	if a.closed {
		a.queueMu.Unlock()
		return
	}
	a.closed = true
	close(a.predictionQueue)
	a.queueMu.Unlock()
	a.workers.Wait()
}

// logPrediction queues a prediction for storage without blocking the request.
func (a *API) logPrediction(p pipeline.Prediction, source string) {
	if a.db == nil {
		return
	}
	rec := storage.PredictionRecord{
		ModelID:    a.bundle.Manifest.ID,
		Input:      p.Input,
		Origin:     p.Origin,
		Confidence: p.Confidence,
		Source:     source,
	}
	a.enqueue(rec)
}

// enqueue hands rec to the worker, reporting false when it was dropped.
func (a *API) enqueue(rec storage.PredictionRecord) bool {
	a.queueMu.RLock()
	defer a.queueMu.RUnlock()
	if a.closed {
		log.Printf("[PredictionWorker] Shut down, dropping prediction for %q", rec.Input)
		return false
	}
	select {
	case a.predictionQueue <- rec:
		return true
	default:
		log.Printf("[PredictionWorker] Queue full, dropping prediction for %q", rec.Input)
		return false
	}
}

// predictionWorker writes queued predictions to the database
func (a *API) predictionWorker() {
	defer a.workers.Done()
	log.Println("[PredictionWorker] Started")

	saved, failed := 0, 0
	for rec := range a.predictionQueue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.db.SavePrediction(ctx, &rec); err != nil {
			log.Printf("[PredictionWorker] Failed to save prediction for %q: %v", rec.Input, err)
			failed++
		} else {
			saved++
		}
		cancel()
	}

	log.Printf("[PredictionWorker] Stopped: %d saved, %d failed", saved, failed)
}
