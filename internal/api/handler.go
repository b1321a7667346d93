package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"name-origin/internal/cv"
	"name-origin/internal/features"
	"name-origin/internal/pipeline"
	"name-origin/internal/storage"
)

// maxBatchNames bounds a single batch request.
const maxBatchNames = 1000

type API struct {
	db              *storage.DB // nil when running without a database
	bundle          *pipeline.Bundle
	cvParser        *cv.Parser
	links           *cv.LinkValidator
	predictionQueue chan storage.PredictionRecord // background prediction logging
	workers         sync.WaitGroup

	queueMu sync.RWMutex
	closed  bool
}

// Options configures NewAPI.
type Options struct {
	UploadsDir  string
	LinkTimeout time.Duration
	QueueSize   int
}

func NewAPI(db *storage.DB, bundle *pipeline.Bundle, opts Options) *API {
	if opts.UploadsDir == "" {
		opts.UploadsDir = "./uploads"
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}

	api := &API{
		db:              db,
		bundle:          bundle,
		cvParser:        cv.NewParser(opts.UploadsDir),
		links:           cv.NewLinkValidator(opts.LinkTimeout),
		predictionQueue: make(chan storage.PredictionRecord, opts.QueueSize),
	}

	// Start background workers
	api.StartBackgroundWorkers()

	return api
}

type PredictRequest struct {
	Name string `json:"name"`
}

type BatchRequest struct {
	Names []string `json:"names"`
}

type BatchItem struct {
	Input      string               `json:"input"`
	Prediction *pipeline.Prediction `json:"prediction,omitempty"`
	Error      string               `json:"error,omitempty"`
}

type BatchResponse struct {
	ModelID string      `json:"model_id"`
	Results []BatchItem `json:"results"`
}

// PredictHandler classifies a single name
// @Summary Predict name origin
// @Description Clean, encode and classify one personal name
// @Tags origin
// @Accept json
// @Produce json
// @Param request body PredictRequest true "Name to classify"
// @Success 200 {object} pipeline.Prediction
// @Failure 400 {string} string "invalid JSON body"
// @Failure 422 {string} string "name has no usable characters"
// @Failure 503 {string} string "no model loaded"
// @Router /origin/predict [post]
func (a *API) PredictHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.bundle == nil {
		http.Error(w, "no model loaded", http.StatusServiceUnavailable)
		return
	}
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	pred, err := a.bundle.Classify(req.Name)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	a.logPrediction(pred, "api")

	writeJSON(w, http.StatusOK, pred)
}

// BatchPredictHandler classifies several names, reporting failures per name
// @Summary Predict origins for a list of names
// @Description Each name is classified independently; invalid names carry an inline error
// @Tags origin
// @Accept json
// @Produce json
// @Param request body BatchRequest true "Names to classify"
// @Success 200 {object} BatchResponse
// @Failure 400 {string} string "invalid request"
// @Failure 503 {string} string "no model loaded"
// @Router /origin/batch [post]
func (a *API) BatchPredictHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.bundle == nil {
		http.Error(w, "no model loaded", http.StatusServiceUnavailable)
		return
	}
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(req.Names) == 0 || len(req.Names) > maxBatchNames {
		http.Error(w, "names must hold between 1 and 1000 entries", http.StatusBadRequest)
		return
	}

	preds, errs := a.bundle.ClassifyAll(req.Names)
	resp := BatchResponse{ModelID: a.bundle.Manifest.ID, Results: make([]BatchItem, len(req.Names))}
	for i, name := range req.Names {
		item := BatchItem{Input: name}
		if errs[i] != nil {
			item.Error = errs[i].Error()
		} else {
			p := preds[i]
			item.Prediction = &p
			a.logPrediction(p, "batch")
		}
		resp.Results[i] = item
	}
	log.Printf("Batch classified %d names", len(req.Names))

	writeJSON(w, http.StatusOK, resp)
}

// ModelHandler describes the loaded model
// @Summary Loaded model
// @Description Manifest of the artifact bundle serving predictions
// @Tags origin
// @Produce json
// @Success 200 {object} pipeline.Manifest
// @Failure 503 {string} string "no model loaded"
// @Router /origin/model [get]
func (a *API) ModelHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.bundle == nil {
		http.Error(w, "no model loaded", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, a.bundle.Manifest)
}

// statusFor maps classification errors to HTTP status codes.
func statusFor(err error) int {
	var empty *features.EmptyInputError
	if errors.As(err, &empty) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
