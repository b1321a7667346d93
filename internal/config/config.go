package config

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/klauspost/cpuid/v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL string `yaml:"databaseURL"`
	Port        string `yaml:"port"`
	UploadsDir  string `yaml:"uploadsDir"`

	// Model artifacts
	ModelPath   string `yaml:"modelPath"`
	DatasetPath string `yaml:"datasetPath"`
	Variant     string `yaml:"variant"` // "forest" or "recurrent"

	Workers   int    `yaml:"workers"`
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"` // "json" or "text"; empty leaves the choice to the binary

	Training Training `yaml:"training"`
}

// Training holds the hyper-parameters of a training run.
type Training struct {
	NameColumn   string  `yaml:"nameColumn"`
	OriginColumn string  `yaml:"originColumn"`
	TestRatio    float64 `yaml:"testRatio"`
	Seed         int64   `yaml:"seed"`

	SeqLen       int     `yaml:"seqLen"`
	EmbeddingDim int     `yaml:"embeddingDim"`
	BiUnits      int     `yaml:"biUnits"`
	Units        int     `yaml:"units"`
	DenseUnits   int     `yaml:"denseUnits"`
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batchSize"`
	LearningRate float64 `yaml:"learningRate"`

	NGramMin  int    `yaml:"ngramMin"`
	NGramMax  int    `yaml:"ngramMax"`
	Trees     int    `yaml:"trees"`
	MaxDepth  int    `yaml:"maxDepth"`
	Criterion string `yaml:"criterion"`
	Bootstrap bool   `yaml:"bootstrap"`
}

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() *Config {
	return &Config{
		Port:        "8080",
		UploadsDir:  "./uploads",
		ModelPath:   "./models/origin.gob",
		DatasetPath: "./names-origin.csv",
		Variant:     "forest",
		Workers:     DefaultWorkers(),
		LogLevel:    "info",
		Training: Training{
			NameColumn:   "name",
			OriginColumn: "origin",
			TestRatio:    0.2,
			Seed:         42,
			SeqLen:       20,
			EmbeddingDim: 64,
			BiUnits:      128,
			Units:        64,
			DenseUnits:   32,
			Epochs:       15,
			BatchSize:    32,
			LearningRate: 0.001,
			NGramMin:     2,
			NGramMax:     4,
			Trees:        200,
			Criterion:    "gini",
			Bootstrap:    true,
		},
	}
}

// DefaultWorkers is the number of logical cores reported by the CPU.
func DefaultWorkers() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// LoadConfig reads .env, then the optional YAML file at path, then
// environment overrides.
func LoadConfig(path string) (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
		log.Println("Attempting to load from parent directory...")
		err = godotenv.Load("../../.env")
		if err != nil {
			log.Println("Warning: Could not load .env file, using environment variables")
		}
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("ORIGIN_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers()
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"DATABASE_URL":      &cfg.DatabaseURL,
		"PORT":              &cfg.Port,
		"UPLOADS_DIR":       &cfg.UploadsDir,
		"ORIGIN_MODEL_PATH": &cfg.ModelPath,
		"ORIGIN_DATASET":    &cfg.DatasetPath,
		"ORIGIN_VARIANT":    &cfg.Variant,
		"LOG_LEVEL":         &cfg.LogLevel,
		"LOG_FORMAT":        &cfg.LogFormat,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("ORIGIN_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ORIGIN_WORKERS %q: %w", v, err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv("ORIGIN_EPOCHS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ORIGIN_EPOCHS %q: %w", v, err)
		}
		cfg.Training.Epochs = n
	}
	if v := os.Getenv("ORIGIN_TREES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ORIGIN_TREES %q: %w", v, err)
		}
		cfg.Training.Trees = n
	}
	return nil
}
