package storage

import "time"

// Candidate is a person extracted from an uploaded resume.
type Candidate struct {
	ID               int64    `json:"id,omitempty"`
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	Phone            string   `json:"phone,omitempty"`
	Location         string   `json:"location,omitempty"`
	GitHub           string   `json:"github,omitempty"`
	LinkedIn         string   `json:"linkedin,omitempty"`
	Origin           string   `json:"origin,omitempty"`
	OriginConfidence *float64 `json:"origin_confidence,omitempty"`
}

// ModelRecord is one registered artifact bundle.
type ModelRecord struct {
	ID            string    `json:"id"`
	Variant       string    `json:"variant"`
	FormatVersion int       `json:"format_version"`
	Classes       []string  `json:"classes"`
	Accuracy      float64   `json:"accuracy"`
	CreatedAt     time.Time `json:"created_at"`
	Active        bool      `json:"active"`
}

// PredictionRecord is one logged classification.
type PredictionRecord struct {
	ID         int64     `json:"id,omitempty"`
	ModelID    string    `json:"model_id"`
	Input      string    `json:"input"`
	Origin     string    `json:"origin"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"` // api, batch, cv, backfill
	CreatedAt  time.Time `json:"created_at"`
}
