package cv

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// Result is the outcome for one input path. Index is the path's position in
// the input slice.
type Result[T any] struct {
	Index int
	Path  string
	Value T
	Err   error
}

type fileJob struct {
	index int
	path  string
}

// DefaultWorkers is the logical core count, at least 1.
func DefaultWorkers() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return 1
}

// ProcessFiles runs fn over every path on a fixed pool of workers. A failing
// file only fails its own result. Results come back in input order. Paths not
// yet started when ctx is cancelled get ctx's error.
func ProcessFiles[T any](ctx context.Context, paths []string, workers int, fn func(context.Context, string) (T, error)) []Result[T] {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	jobs := make(chan fileJob, len(paths))
	results := make(chan Result[T], len(paths))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- run(ctx, job, fn)
			}
		}()
	}

	for i, p := range paths {
		jobs <- fileJob{index: i, path: p}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]Result[T], len(paths))
	for r := range results {
		out[r.Index] = r
	}
	return out
}

func run[T any](ctx context.Context, job fileJob, fn func(context.Context, string) (T, error)) (res Result[T]) {
	res = Result[T]{Index: job.index, Path: job.path}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	defer func() {
		if r := recover(); r != nil {
			res.Err = &PanicError{Path: job.path, Value: r}
		}
	}()
	res.Value, res.Err = fn(ctx, job.path)
	return res
}

// PanicError wraps a panic raised while processing one file.
type PanicError struct {
	Path  string
	Value any
}

func (e *PanicError) Error() string {
	return "panic while processing " + e.Path
}

// CollectFiles returns the supported documents at path: the file itself, or
// the supported files directly inside a directory, sorted by name.
func CollectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(path, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
