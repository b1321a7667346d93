package storage

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/lib/pq" // PostgreSQL driver
)

// ErrNoActiveModel is returned when no bundle has been activated yet.
var ErrNoActiveModel = errors.New("storage: no active model")

type DB struct {
	connection *sql.DB
}

func NewDB(dataSourceName string) (*DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, err
	}

	// Connection pool tuning
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &DB{connection: db}, nil
}

func (db *DB) Close() {
	if err := db.connection.Close(); err != nil {
		log.Println("Error closing the database connection:", err)
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS origin_models (
    id             UUID PRIMARY KEY,
    variant        TEXT NOT NULL,
    format_version INT NOT NULL,
    classes        TEXT[] NOT NULL,
    accuracy       DOUBLE PRECISION NOT NULL DEFAULT 0,
    bundle         BYTEA NOT NULL,
    active         BOOLEAN NOT NULL DEFAULT FALSE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS origin_predictions (
    id         BIGSERIAL PRIMARY KEY,
    model_id   UUID,
    input      TEXT NOT NULL,
    origin     TEXT NOT NULL,
    confidence DOUBLE PRECISION NOT NULL,
    source     TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS candidates (
    id                BIGSERIAL PRIMARY KEY,
    name              TEXT NOT NULL,
    email             TEXT UNIQUE,
    phone             TEXT,
    location          TEXT,
    github            TEXT,
    linkedin          TEXT,
    origin            TEXT,
    origin_confidence DOUBLE PRECISION,
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS cv_files (
    id           BIGSERIAL PRIMARY KEY,
    candidate_id BIGINT REFERENCES candidates(id),
    filename     TEXT NOT NULL,
    file_path    TEXT NOT NULL,
    file_type    TEXT NOT NULL,
    file_size    BIGINT NOT NULL,
    parsed_text  TEXT,
    uploaded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_candidates_origin_missing ON candidates (id) WHERE origin IS NULL;
`

// EnsureSchema creates the tables used by the service when they are missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.connection.ExecContext(ctx, schema)
	return err
}

// SaveModel registers a serialized bundle. When activate is set the bundle
// becomes the only active one.
func (db *DB) SaveModel(ctx context.Context, m ModelRecord, bundle []byte, activate bool) error {
	tx, err := db.connection.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if activate {
		if _, err := tx.ExecContext(ctx, `UPDATE origin_models SET active = FALSE WHERE active`); err != nil {
			return err
		}
	}
	query := `INSERT INTO origin_models (id, variant, format_version, classes, accuracy, bundle, active, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = tx.ExecContext(ctx, query,
		m.ID,
		m.Variant,
		m.FormatVersion,
		pq.Array(m.Classes),
		m.Accuracy,
		bundle,
		activate,
		m.CreatedAt,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// ActivateModel marks the model with id as the active one.
func (db *DB) ActivateModel(ctx context.Context, id string) error {
	tx, err := db.connection.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE origin_models SET active = FALSE WHERE active`); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE origin_models SET active = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// LoadActiveModel returns the active bundle and its metadata.
func (db *DB) LoadActiveModel(ctx context.Context) (*ModelRecord, []byte, error) {
	query := `SELECT id, variant, format_version, classes, accuracy, created_at, bundle
              FROM origin_models WHERE active ORDER BY created_at DESC LIMIT 1`
	m := &ModelRecord{Active: true}
	var bundle []byte
	err := db.connection.QueryRowContext(ctx, query).Scan(
		&m.ID, &m.Variant, &m.FormatVersion, pq.Array(&m.Classes), &m.Accuracy, &m.CreatedAt, &bundle,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNoActiveModel
	}
	if err != nil {
		return nil, nil, err
	}
	return m, bundle, nil
}

// ListModels returns registered models, newest first, without their blobs.
func (db *DB) ListModels(ctx context.Context) ([]*ModelRecord, error) {
	query := `SELECT id, variant, format_version, classes, accuracy, created_at, active
              FROM origin_models ORDER BY created_at DESC`
	rows, err := db.connection.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*ModelRecord
	for rows.Next() {
		m := &ModelRecord{}
		if err := rows.Scan(&m.ID, &m.Variant, &m.FormatVersion, pq.Array(&m.Classes), &m.Accuracy, &m.CreatedAt, &m.Active); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// SavePrediction logs one classification.
func (db *DB) SavePrediction(ctx context.Context, p *PredictionRecord) error {
	query := `INSERT INTO origin_predictions (model_id, input, origin, confidence, source)
              VALUES ($1, $2, $3, $4, $5)
              RETURNING id, created_at`
	var modelID interface{}
	if p.ModelID != "" {
		modelID = p.ModelID
	}
	return db.connection.QueryRowContext(ctx, query,
		modelID, p.Input, p.Origin, p.Confidence, p.Source,
	).Scan(&p.ID, &p.CreatedAt)
}

// SaveCandidateContext upserts a candidate by email and returns its id.
func (db *DB) SaveCandidateContext(ctx context.Context, candidate *Candidate) (int64, error) {
	query := `INSERT INTO candidates (name, email, phone, location, github, linkedin, origin, origin_confidence, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
              ON CONFLICT (email) DO UPDATE
                SET name = EXCLUDED.name,
                    phone = EXCLUDED.phone,
                    location = EXCLUDED.location,
                    github = EXCLUDED.github,
                    linkedin = EXCLUDED.linkedin,
                    origin = COALESCE(EXCLUDED.origin, candidates.origin),
                    origin_confidence = COALESCE(EXCLUDED.origin_confidence, candidates.origin_confidence),
                    updated_at = NOW()
              RETURNING id`

	var id int64
	err := db.connection.QueryRowContext(ctx, query,
		candidate.Name,
		nullString(candidate.Email),
		nullString(candidate.Phone),
		nullString(candidate.Location),
		nullString(candidate.GitHub),
		nullString(candidate.LinkedIn),
		nullString(candidate.Origin),
		candidate.OriginConfidence,
	).Scan(&id)
	if err == nil {
		candidate.ID = id
	}
	return id, err
}

// CandidatesMissingOrigin returns up to limit candidates that have no
// predicted origin yet.
func (db *DB) CandidatesMissingOrigin(ctx context.Context, limit int) ([]*Candidate, error) {
	query := `SELECT id, name, COALESCE(email, '') FROM candidates WHERE origin IS NULL ORDER BY id LIMIT $1`
	rows, err := db.connection.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Candidate
	for rows.Next() {
		c := &Candidate{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Email); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// UpdateCandidateOrigin stores a predicted origin for a candidate.
func (db *DB) UpdateCandidateOrigin(ctx context.Context, id int64, origin string, confidence float64) error {
	query := `UPDATE candidates SET origin = $1, origin_confidence = $2, updated_at = NOW() WHERE id = $3`
	_, err := db.connection.ExecContext(ctx, query, origin, confidence, id)
	return err
}

// SaveCVFile saves CV file metadata and parsed text to database
func (db *DB) SaveCVFile(ctx context.Context, candidateID *int64, filename, filePath, fileType, parsedText string, fileSize int64) (int64, error) {
	var cvID int64
	query := `
        INSERT INTO cv_files (candidate_id, filename, file_path, file_type, file_size, parsed_text, uploaded_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        RETURNING id
    `
	err := db.connection.QueryRowContext(ctx, query,
		candidateID, filename, filePath, fileType, fileSize, parsedText,
	).Scan(&cvID)

	return cvID, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
