package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"name-origin/internal/dataset"
	"name-origin/internal/pipeline"
	"name-origin/internal/storage"
)

func newTestAPI(t *testing.T, withModel bool) (*API, http.Handler) {
	t.Helper()
	var bundle *pipeline.Bundle
	if withModel {
		opts := pipeline.DefaultTrainOptions(pipeline.VariantForest)
		opts.TestRatio = 0
		opts.Trees = 15
		b, _, err := pipeline.Train([]dataset.Record{
			{Name: "john", Origin: "english"},
			{Name: "maria", Origin: "spanish"},
			{Name: "yuki", Origin: "japanese"},
		}, opts, nil)
		if err != nil {
			t.Fatalf("train: %v", err)
		}
		bundle = b
	}
	a := NewAPI(nil, bundle, Options{UploadsDir: t.TempDir()})
	t.Cleanup(a.Close)
	return a, NewRouter(a)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	_, h := newTestAPI(t, true)
	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" || body["model_loaded"] != true {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestPredict(t *testing.T) {
	_, h := newTestAPI(t, true)

	rec := do(t, h, http.MethodPost, "/api/origin/predict", `{"name":"John"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var pred pipeline.Prediction
	if err := json.Unmarshal(rec.Body.Bytes(), &pred); err != nil {
		t.Fatal(err)
	}
	if pred.Cleaned != "john" {
		t.Fatalf("cleaned %q", pred.Cleaned)
	}
	switch pred.Origin {
	case "english", "spanish", "japanese":
	default:
		t.Fatalf("origin %q", pred.Origin)
	}

	cases := []struct {
		method, body string
		want         int
	}{
		{http.MethodPost, `{"name":""}`, http.StatusUnprocessableEntity},
		{http.MethodPost, `{"name":"123"}`, http.StatusUnprocessableEntity},
		{http.MethodPost, `{name`, http.StatusBadRequest},
		{http.MethodGet, ``, http.StatusMethodNotAllowed},
	}
	for _, c := range cases {
		if rec := do(t, h, c.method, "/api/origin/predict", c.body); rec.Code != c.want {
			t.Fatalf("%s %q: status %d, want %d", c.method, c.body, rec.Code, c.want)
		}
	}
}

func TestPredictWithoutModel(t *testing.T) {
	_, h := newTestAPI(t, false)
	for _, path := range []string{"/api/origin/predict", "/api/origin/batch"} {
		if rec := do(t, h, http.MethodPost, path, `{"name":"john"}`); rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
	}
	if rec := do(t, h, http.MethodGet, "/api/origin/model", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("model: status %d", rec.Code)
	}
}

func TestBatch(t *testing.T) {
	a, h := newTestAPI(t, true)
	rec := do(t, h, http.MethodPost, "/api/origin/batch", `{"names":["yuki","","maria"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp BatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ModelID != a.bundle.Manifest.ID || len(resp.Results) != 3 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Results[0].Prediction == nil || resp.Results[2].Prediction == nil {
		t.Fatalf("valid names should be classified: %+v", resp.Results)
	}
	if resp.Results[1].Error == "" || resp.Results[1].Prediction != nil {
		t.Fatalf("empty name should carry an inline error: %+v", resp.Results[1])
	}

	if rec := do(t, h, http.MethodPost, "/api/origin/batch", `{"names":[]}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty batch status %d", rec.Code)
	}
}

func TestModel(t *testing.T) {
	a, h := newTestAPI(t, true)
	rec := do(t, h, http.MethodGet, "/api/origin/model", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var m pipeline.Manifest
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	if m.ID != a.bundle.Manifest.ID || m.Variant != pipeline.VariantForest || len(m.Classes) != 3 {
		t.Fatalf("unexpected manifest %+v", m)
	}
}

func upload(t *testing.T, h http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/cv/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCVUpload(t *testing.T) {
	_, h := newTestAPI(t, true)
	rec := upload(t, h, "resume.txt", "Yuki Tanaka\nyuki.tanaka@example.com\n+81 9012345678\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp CVUploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.File == nil || resp.File.Contact.Name != "Yuki Tanaka" || resp.File.Contact.Email != "yuki.tanaka@example.com" {
		t.Fatalf("unexpected file %+v", resp.File)
	}
	if resp.Origin == nil || resp.Origin.Cleaned != "yuki tanaka" {
		t.Fatalf("expected an origin prediction, got %+v (%s)", resp.Origin, resp.OriginError)
	}
	if resp.Links != nil {
		t.Fatalf("links are only checked on request")
	}

	if rec := upload(t, h, "resume.exe", "x"); rec.Code != http.StatusBadRequest {
		t.Fatalf("unsupported type status %d", rec.Code)
	}
}

func TestPredictionQueueAfterClose(t *testing.T) {
	a := NewAPI(nil, nil, Options{UploadsDir: t.TempDir(), QueueSize: 4})
	rec := storage.PredictionRecord{Input: "john", Origin: "english"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.enqueue(rec)
		}()
	}
	a.Close()
	wg.Wait()

	if a.enqueue(rec) {
		t.Fatalf("enqueue after Close should drop the record")
	}
	a.Close()
}
