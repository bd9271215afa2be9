package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/store"
)

// mockVerifier implements Verifier
type mockVerifier struct {
	failOn string
	delay  time.Duration
}

func (m *mockVerifier) Verify(ctx context.Context, text string, s model.DocumentStore) (*model.VerificationResult, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.failOn != "" && strings.Contains(text, m.failOn) {
		return nil, errors.New("verify error")
	}
	return &model.VerificationResult{ResponseText: text, DocumentStoreRef: model.StoreRef(s), ConfidenceScore: 1}, nil
}

func testStore(t *testing.T) model.DocumentStore {
	t.Helper()
	s, err := store.NewMemory("batch", model.DocumentChunk{ID: "a", SourceDocument: "a.txt", Text: "Acme was founded in 1999."})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestBatchProcessor_ProcessResponses(t *testing.T) {
	processor := NewBatchProcessor(&mockVerifier{failOn: "bad"}, testStore(t), 3, 0)

	var responses []Response
	for _, text := range []string{"one", "two", "bad three", "four", "five"} {
		responses = append(responses, Response{Name: text, Text: text})
	}

	results := processor.ProcessResponses(context.Background(), responses)
	if len(results) != len(responses) {
		t.Fatalf("expected %d results, got %d", len(responses), len(results))
	}

	for i, res := range results {
		if res.Name != responses[i].Name {
			t.Errorf("result %d: expected %q, got %q", i, responses[i].Name, res.Name)
		}
		if res.Name == "bad three" {
			if res.Error == nil || res.Result != nil {
				t.Errorf("expected failure for %q", res.Name)
			}
			continue
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Name, res.Error)
			continue
		}
		if res.Result.ResponseText != res.Name {
			t.Errorf("result %d verified the wrong text %q", i, res.Result.ResponseText)
		}
		if res.Result.DocumentStoreRef != "memory:batch" {
			t.Errorf("unexpected store ref %q", res.Result.DocumentStoreRef)
		}
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockVerifier{}, testStore(t), 2, 0)

	results := processor.ProcessResponses(context.Background(), nil)
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", results)
	}
}

func TestBatchProcessor_PerResponseTimeout(t *testing.T) {
	processor := NewBatchProcessor(&mockVerifier{delay: time.Second}, testStore(t), 2, 20*time.Millisecond)

	results := processor.ProcessResponses(context.Background(), []Response{{Name: "slow", Text: "slow"}})
	if !errors.Is(results[0].Error, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", results[0].Error)
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	processor := NewBatchProcessor(&mockVerifier{}, testStore(t), 2, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := processor.ProcessResponses(ctx, []Response{{Name: "a", Text: "a"}, {Name: "b", Text: "b"}})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Error == nil && r.Result == nil {
			t.Errorf("%s: expected a result or an error", r.Name)
		}
	}
	if results[1].Name != "b" {
		t.Errorf("expected order to be kept, got %q", results[1].Name)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadResponses_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "second")
	writeFile(t, filepath.Join(dir, "a", "first.md"), "first")
	writeFile(t, filepath.Join(dir, ".hidden", "x.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "notes.json"), "ignored")

	responses, err := ReadResponses(dir)
	if err != nil {
		t.Fatalf("ReadResponses failed: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if responses[0].Text != "first" || responses[1].Text != "second" {
		t.Errorf("unexpected order: %+v", responses)
	}
}

func TestReadListFile(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "abs.txt")
	content := "one.txt\n# comment\n  two.txt  \n\none.txt\n" + abs + "\n"
	list := filepath.Join(dir, "responses.list")
	writeFile(t, list, content)

	paths, err := ReadListFile(list)
	if err != nil {
		t.Fatalf("ReadListFile failed: %v", err)
	}

	expected := []string{filepath.Join(dir, "one.txt"), filepath.Join(dir, "two.txt"), abs}
	if len(paths) != len(expected) {
		t.Fatalf("expected %d paths, got %d", len(expected), len(paths))
	}
	for i, p := range paths {
		if p != expected[i] {
			t.Errorf("expected path %s at index %d, got %s", expected[i], i, p)
		}
	}
}

func TestReadListFile_NonExistent(t *testing.T) {
	_, err := ReadListFile("non_existent_file.txt")
	if !model.IsKind(err, model.KindInput) {
		t.Errorf("expected input error for non-existent file, got %v", err)
	}
}

func TestBatchProcessor_ProcessPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one.txt"), "Acme was founded in 1999.")
	writeFile(t, filepath.Join(dir, "two.txt"), "Zorb was founded in 1887.")
	list := filepath.Join(dir, "batch.list")
	writeFile(t, list, "two.txt\none.txt\n")

	processor := NewBatchProcessor(&mockVerifier{}, testStore(t), 2, 0)

	results, err := processor.ProcessPath(context.Background(), list)
	if err != nil {
		t.Fatalf("ProcessPath failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Result.ResponseText != "Zorb was founded in 1887." {
		t.Errorf("list order not kept: %q", results[0].Result.ResponseText)
	}

	_, err = processor.ProcessPath(context.Background(), filepath.Join(dir, "missing.list"))
	if !model.IsKind(err, model.KindInput) {
		t.Errorf("expected input error, got %v", err)
	}

	writeFile(t, list, "missing.txt\n")
	_, err = processor.ProcessPath(context.Background(), list)
	if !model.IsKind(err, model.KindInput) {
		t.Errorf("expected input error for a missing listed file, got %v", err)
	}
}

func TestVerifyResult_GetError(t *testing.T) {
	r1 := &VerifyResult{Name: "a"}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("verify failed")
	r2 := &VerifyResult{Name: "b", Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}
