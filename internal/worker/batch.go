package worker

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/groundcheck/internal/model"
)

// Verifier defines the interface for verifying one response
type Verifier interface {
	Verify(ctx context.Context, text string, store model.DocumentStore) (*model.VerificationResult, error)
}

// Response is one response text to verify
type Response struct {
	Name string // File path or caller-chosen label
	Text string
}

// VerifyJob represents one response verification
type VerifyJob struct {
	Response Response
	Verifier Verifier
	Store    model.DocumentStore
	Timeout  time.Duration
}

// Execute executes the verification job
func (j *VerifyJob) Execute(ctx context.Context) Result {
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	start := time.Now()
	result, err := j.Verifier.Verify(ctx, j.Response.Text, j.Store)
	return &VerifyResult{
		Name:     j.Response.Name,
		Result:   result,
		Error:    err,
		Duration: time.Since(start),
	}
}

// VerifyResult represents the result of a verification job
type VerifyResult struct {
	Name     string
	Result   *model.VerificationResult
	Error    error
	Duration time.Duration
}

// GetError returns the error from the verification
func (r *VerifyResult) GetError() error {
	return r.Error
}

// BatchProcessor verifies many responses concurrently against one store
type BatchProcessor struct {
	verifier    Verifier
	store       model.DocumentStore
	concurrency int
	timeout     time.Duration
}

// NewBatchProcessor creates a new batch processor. A positive timeout bounds
// each verification separately.
func NewBatchProcessor(verifier Verifier, store model.DocumentStore, concurrency int, timeout time.Duration) *BatchProcessor {
	return &BatchProcessor{
		verifier:    verifier,
		store:       store,
		concurrency: concurrency,
		timeout:     timeout,
	}
}

// ProcessResponses verifies every response; results follow input order.
// Responses not reached before ctx ends report the context error.
func (b *BatchProcessor) ProcessResponses(ctx context.Context, responses []Response) []*VerifyResult {
	if len(responses) == 0 {
		return []*VerifyResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, r := range responses {
		job := &VerifyJob{
			Response: r,
			Verifier: b.verifier,
			Store:    b.store,
			Timeout:  b.timeout,
		}
		if !pool.Submit(job) {
			break
		}
	}

	results := pool.Wait()

	out := make([]*VerifyResult, len(responses))
	for i := range out {
		if i < len(results) && results[i] != nil {
			out[i] = results[i].(*VerifyResult)
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out[i] = &VerifyResult{Name: responses[i].Name, Error: err}
	}

	failed := 0
	for _, r := range out {
		if r.Error != nil {
			failed++
		}
	}
	zap.L().Info("batch: done",
		zap.Int("responses", len(out)),
		zap.Int("failed", failed),
		zap.Int("workers", b.concurrency),
	)
	return out
}

// ProcessPath reads responses from a directory or a list file and verifies them
func (b *BatchProcessor) ProcessPath(ctx context.Context, path string) ([]*VerifyResult, error) {
	responses, err := ReadResponses(path)
	if err != nil {
		return nil, fmt.Errorf("read responses: %w", err)
	}

	return b.ProcessResponses(ctx, responses), nil
}

// ReadResponses loads response texts. A directory contributes every .txt and
// .md file below it, sorted by path; any other file is a list of response
// file paths, one per line, relative to the list's directory.
func ReadResponses(path string) ([]Response, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, model.Inputf("batch.read", "%s: %v", path, err)
	}

	var files []string
	if info.IsDir() {
		files, err = responseFiles(path)
	} else {
		files, err = ReadListFile(path)
	}
	if err != nil {
		return nil, err
	}

	responses := make([]Response, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, model.Inputf("batch.read", "read %s: %v", f, err)
		}
		responses = append(responses, Response{Name: f, Text: string(data)})
	}
	return responses, nil
}

func responseFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, model.Inputf("batch.read", "walk %s: %v", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// ReadListFile reads file paths from a list file (one per line). Blank lines
// and # comments are skipped, duplicates dropped.
func ReadListFile(listPath string) ([]string, error) {
	file, err := os.Open(listPath)
	if err != nil {
		return nil, model.Inputf("batch.list", "open %s: %v", listPath, err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(listPath)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, model.Inputf("batch.list", "scan %s: %v", listPath, err)
	}

	return paths, nil
}
