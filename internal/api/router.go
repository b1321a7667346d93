package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRouter(a *API) http.Handler {
	mux := http.NewServeMux()

	// Swagger documentation - must be registered first
	mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":       "healthy",
			"model_loaded": a.bundle != nil,
			"database":     a.db != nil,
		}
		if a.bundle != nil {
			status["model_id"] = a.bundle.Manifest.ID
		}
		writeJSON(w, http.StatusOK, status)
	})

	// Origin classification
	mux.HandleFunc("/api/origin/predict", a.PredictHandler)
	mux.HandleFunc("/api/origin/batch", a.BatchPredictHandler)
	mux.HandleFunc("/api/origin/model", a.ModelHandler)

	// CV endpoints
	mux.HandleFunc("/api/cv/upload", a.CVUploadHandler)

	return mux
}
