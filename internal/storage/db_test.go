package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNullString(t *testing.T) {
	if ns := nullString(""); ns.Valid {
		t.Fatalf("empty string should be NULL")
	}
	if ns := nullString("a"); !ns.Valid || ns.String != "a" {
		t.Fatalf("unexpected %+v", ns)
	}
}

// openTestDB connects to ORIGIN_TEST_DATABASE_URL or skips.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("ORIGIN_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ORIGIN_TEST_DATABASE_URL not set")
	}
	db, err := NewDB(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

func TestModelRegistry(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := ModelRecord{
		ID:            uuid.NewString(),
		Variant:       "forest",
		FormatVersion: 1,
		Classes:       []string{"english", "japanese"},
		Accuracy:      0.8,
		CreatedAt:     time.Now().UTC(),
	}
	if err := db.SaveModel(ctx, first, []byte("one"), true); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := first
	second.ID = uuid.NewString()
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	if err := db.SaveModel(ctx, second, []byte("two"), false); err != nil {
		t.Fatalf("save: %v", err)
	}

	m, blob, err := db.LoadActiveModel(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.ID != first.ID || string(blob) != "one" || len(m.Classes) != 2 {
		t.Fatalf("unexpected active model %+v %q", m, blob)
	}

	if err := db.ActivateModel(ctx, second.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	m, _, err = db.LoadActiveModel(ctx)
	if err != nil || m.ID != second.ID {
		t.Fatalf("active after switch: %+v %v", m, err)
	}
	if err := db.ActivateModel(ctx, uuid.NewString()); err == nil {
		t.Fatalf("expected error for unknown model")
	}

	pred := &PredictionRecord{ModelID: second.ID, Input: "john", Origin: "english", Confidence: 0.9, Source: "test"}
	if err := db.SavePrediction(ctx, pred); err != nil || pred.ID == 0 {
		t.Fatalf("save prediction: %v (id %d)", err, pred.ID)
	}
}

func TestCandidateOriginBackfill(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	c := &Candidate{Name: "Yuki Tanaka", Email: uuid.NewString() + "@example.com"}
	id, err := db.SaveCandidateContext(ctx, c)
	if err != nil {
		t.Fatalf("save candidate: %v", err)
	}
	missing, err := db.CandidatesMissingOrigin(ctx, 1000)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, m := range missing {
		found = found || m.ID == id
	}
	if !found {
		t.Fatalf("candidate %d not reported as missing origin", id)
	}
	if err := db.UpdateCandidateOrigin(ctx, id, "japanese", 0.95); err != nil {
		t.Fatal(err)
	}
	if _, err := db.SaveCVFile(ctx, &id, "cv.txt", "/tmp/cv.txt", ".txt", "Yuki Tanaka", 11); err != nil {
		t.Fatalf("save cv: %v", err)
	}
}
