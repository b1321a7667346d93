package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "name-origin/docs" // Swagger docs
	"name-origin/internal/api"
	"name-origin/internal/config"
	"name-origin/internal/logging"
	"name-origin/internal/pipeline"
	"name-origin/internal/storage"
)

// @title Name Origin API
// @version 1.0
// @description Predicts the likely origin of personal names and extracts contact details from resumes

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @BasePath /api

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatal("config:", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logging.Install(logger)

	var db *storage.DB
	if cfg.DatabaseURL != "" {
		log.Println("Connecting to database...")
		db, err = storage.NewDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("db open:", err)
		}
		defer db.Close()

		if err := db.EnsureSchema(context.Background()); err != nil {
			log.Fatal("db schema:", err)
		}
		log.Println("Database connected successfully!")
	} else {
		log.Println("Warning: DATABASE_URL not set, predictions and CVs will not be persisted")
	}

	bundle, err := loadBundle(context.Background(), cfg, db)
	if err != nil {
		log.Printf("Warning: no model loaded: %v", err)
	} else {
		log.Printf("Model %s loaded (%s, %d classes)", bundle.Manifest.ID, bundle.Manifest.Variant, len(bundle.Manifest.Classes))
	}

	apiSrv := api.NewAPI(db, bundle, api.Options{UploadsDir: cfg.UploadsDir})
	defer apiSrv.Close()
	router := api.NewRouter(apiSrv)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second, // file uploads
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     logging.StdLogger(logger, slog.LevelError),
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Println("server shutdown:", err)
		}
		close(idleConnsClosed)
	}()

	log.Printf("API server listening on :%s\n", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}

	<-idleConnsClosed
}

// loadBundle prefers the artifact file and falls back to the active model in
// the registry.
func loadBundle(ctx context.Context, cfg *config.Config, db *storage.DB) (*pipeline.Bundle, error) {
	if cfg.ModelPath != "" {
		b, err := pipeline.Load(cfg.ModelPath)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, os.ErrNotExist) || db == nil {
			return nil, err
		}
		log.Printf("Model file %s not found, trying the registry", cfg.ModelPath)
	}
	if db == nil {
		return nil, errors.New("no model path and no database configured")
	}
	rec, blob, err := db.LoadActiveModel(ctx)
	if err != nil {
		return nil, err
	}
	b, err := pipeline.Decode(blob)
	if err != nil {
		return nil, err
	}
	if b.Manifest.ID != rec.ID {
		return nil, &pipeline.ArtifactMismatchError{BundleID: b.Manifest.ID, Reason: "registry id " + rec.ID}
	}
	return b, nil
}
