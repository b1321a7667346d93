package cv

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const resume = `Maria Fernanda Lopez
senior engineer
221B Baker Street, London, United Kingdom
Phone: +44 7911123456 / +44 7700900123
maria.lopez@example.com
https://github.com/mlopez
https://www.linkedin.com/in/maria-lopez_1
`

func TestExtractContact(t *testing.T) {
	c := ExtractContact(resume)
	if c.Name != "Maria Fernanda Lopez" {
		t.Fatalf("name %q", c.Name)
	}
	if c.Email != "maria.lopez@example.com" {
		t.Fatalf("email %q", c.Email)
	}
	if c.PrimaryPhone != "+44 7911123456" || c.SecondaryPhone != "+44 7700900123" {
		t.Fatalf("phones %q %q", c.PrimaryPhone, c.SecondaryPhone)
	}
	if c.GitHub != "https://github.com/mlopez" {
		t.Fatalf("github %q", c.GitHub)
	}
	if c.LinkedIn != "https://www.linkedin.com/in/maria-lopez_1" {
		t.Fatalf("linkedin %q", c.LinkedIn)
	}
	if !strings.Contains(c.Address, "London") {
		t.Fatalf("address %q", c.Address)
	}
}

func TestExtractContactCollectsEveryProfileLink(t *testing.T) {
	text := resume + "Older work: https://github.com/mlopez-old and https://github.com/mlopez\n"
	c := ExtractContact(text)
	want := []string{"https://github.com/mlopez", "https://github.com/mlopez-old"}
	if !reflect.DeepEqual(c.GitHubLinks, want) {
		t.Fatalf("github links %v, want %v", c.GitHubLinks, want)
	}
	if len(c.LinkedInLinks) != 1 || c.LinkedInLinks[0] != c.LinkedIn {
		t.Fatalf("linkedin links %v", c.LinkedInLinks)
	}
}

func TestExtractContactEmpty(t *testing.T) {
	if c := ExtractContact("nothing to see here"); !reflect.DeepEqual(c, Contact{}) {
		t.Fatalf("expected empty contact, got %+v", c)
	}
}

func TestLinkValidator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/get-only" {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
			}
			return
		}
		if r.Method != http.MethodHead {
			t.Errorf("method %s", r.Method)
		}
		if r.URL.Path == "/ok" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	v := NewLinkValidator(time.Second)
	ctx := context.Background()
	if got := v.Check(ctx, srv.URL+"/ok"); got != LinkValid {
		t.Fatalf("ok link: %s", got)
	}
	if got := v.Check(ctx, srv.URL+"/get-only"); got != LinkValid {
		t.Fatalf("get-only link: %s", got)
	}
	if got := v.Check(ctx, srv.URL+"/gone"); got != LinkInvalid {
		t.Fatalf("missing page: %s", got)
	}
	if got := v.Check(ctx, ""); got != LinkMissing {
		t.Fatalf("empty url: %s", got)
	}
	if got := v.Check(ctx, "http://127.0.0.1:1/nothing"); got != LinkInvalid {
		t.Fatalf("unreachable: %s", got)
	}
	links := v.CheckContact(ctx, Contact{GitHub: srv.URL + "/ok"})
	if links.GitHub != LinkValid || links.LinkedIn != LinkMissing {
		t.Fatalf("links %+v", links)
	}

	all := v.CheckAll(ctx, Contact{GitHubLinks: []string{srv.URL + "/ok", srv.URL + "/gone"}})
	want := []LinkResult{{URL: srv.URL + "/ok", Status: LinkValid}, {URL: srv.URL + "/gone", Status: LinkInvalid}}
	if !reflect.DeepEqual(all.GitHub, want) || len(all.LinkedIn) != 0 {
		t.Fatalf("all links %+v", all)
	}
}

func TestParsePathText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "maria.txt")
	if err := os.WriteFile(path, []byte(resume), 0o644); err != nil {
		t.Fatal(err)
	}
	parsed, err := NewParser(dir).ParsePath(path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.FileType != ".txt" || parsed.FileSize != int64(len(resume)) {
		t.Fatalf("unexpected metadata %+v", parsed)
	}
	if parsed.Contact.Email != "maria.lopez@example.com" {
		t.Fatalf("contact %+v", parsed.Contact)
	}
}

func TestParseFileStoresUpload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	p := NewParser(dir)
	parsed, err := p.ParseFile("../../cv.txt", strings.NewReader(resume))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Filename != "cv.txt" {
		t.Fatalf("filename %q", parsed.Filename)
	}
	if _, err := os.Stat(filepath.Join(dir, "cv.txt")); err != nil {
		t.Fatalf("upload not stored in uploads dir: %v", err)
	}
	if _, err := p.ParseFile("cv.exe", strings.NewReader("x")); err == nil {
		t.Fatalf("expected unsupported type error")
	}
}

func TestProcessFilesOrderAndIsolation(t *testing.T) {
	paths := make([]string, 20)
	for i := range paths {
		paths[i] = fmt.Sprintf("file-%02d.txt", i)
	}
	var calls atomic.Int32
	results := ProcessFiles(context.Background(), paths, 4, func(_ context.Context, p string) (string, error) {
		calls.Add(1)
		switch p {
		case "file-03.txt":
			return "", errors.New("corrupt")
		case "file-07.txt":
			panic("boom")
		}
		return strings.ToUpper(p), nil
	})

	if int(calls.Load()) != len(paths) {
		t.Fatalf("fn called %d times", calls.Load())
	}
	for i, r := range results {
		if r.Index != i || r.Path != paths[i] {
			t.Fatalf("result %d out of order: %+v", i, r)
		}
		switch i {
		case 3:
			if r.Err == nil {
				t.Fatalf("expected error for %s", r.Path)
			}
		case 7:
			var pe *PanicError
			if !errors.As(r.Err, &pe) {
				t.Fatalf("expected panic error, got %v", r.Err)
			}
		default:
			if r.Err != nil || r.Value != strings.ToUpper(paths[i]) {
				t.Fatalf("result %d: %+v", i, r)
			}
		}
	}
}

func TestProcessFilesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := ProcessFiles(ctx, []string{"a", "b"}, 0, func(context.Context, string) (int, error) {
		return 1, nil
	})
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Fatalf("expected cancellation, got %+v", r)
		}
	}
	if got := ProcessFiles(context.Background(), nil, 3, func(context.Context, string) (int, error) { return 0, nil }); len(got) != 0 {
		t.Fatalf("expected no results")
	}
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b.docx", "a.pdf", "notes.md", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755); err != nil {
		t.Fatal(err)
	}
	files, err := CollectFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.pdf", "b.docx", "c.txt"}
	if len(files) != len(want) {
		t.Fatalf("files %v", files)
	}
	for i, f := range files {
		if filepath.Base(f) != want[i] {
			t.Fatalf("files %v", files)
		}
	}
	single, err := CollectFiles(filepath.Join(dir, "c.txt"))
	if err != nil || len(single) != 1 {
		t.Fatalf("single file: %v %v", single, err)
	}
}
