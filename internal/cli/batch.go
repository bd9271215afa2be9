package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/report"
	"github.com/ppiankov/groundcheck/internal/score"
	"github.com/ppiankov/groundcheck/internal/worker"
)

var (
	concurrency     int
	outputDir       string
	batchTimeout    time.Duration
	responseTimeout time.Duration
	batchFormat     string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir|list-file>",
	Short: "Verify many responses in parallel against one document set",
	Long: `Batch verifies many responses concurrently:
- Read responses from a directory (*.txt, *.md) or a list file (one path per line)
- Load the document set once and share it across workers
- Write one report per response plus a summary of patterns across all of them

Example:
  groundcheck batch ./answers --docs ./corpus
  groundcheck batch answers.list --db corpus.db --concurrency 8 --output-dir ./reports
  groundcheck batch ./answers --docs ./corpus --format json --timeout 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	addStoreFlags(batchCmd)
	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./groundcheck-reports", "output directory for reports")
	batchCmd.Flags().StringVarP(&batchFormat, "format", "f", "markdown", "report format: json, yaml, markdown, text")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().DurationVar(&responseTimeout, "response-timeout", time.Minute, "timeout for individual verifications")
}

func runBatch(cmd *cobra.Command, args []string) error {
	input := args[0]
	format, err := report.ParseFormat(batchFormat)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  groundcheck Batch Verification\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input:        %s\n", input)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Strategy:     %s\n", appCfg.Intervention.Strategy)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	responses, err := worker.ReadResponses(input)
	if err != nil {
		return fmt.Errorf("read responses: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d responses\n", len(responses))

	analyzer, err := newAnalyzer(appCfg)
	if err != nil {
		return err
	}
	p, err := newProcessor(appCfg, analyzer)
	if err != nil {
		return err
	}
	docs, closeStore, err := openStore(ctx, appCfg, analyzer, dbPath, docSources)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	fmt.Fprintf(os.Stderr, "⚙️  Verifying with %d workers...\n", concurrency)
	fmt.Fprintf(os.Stderr, "\n")

	processor := worker.NewBatchProcessor(p, docs, concurrency, responseTimeout)
	results := processor.ProcessResponses(ctx, responses)

	successCount := 0
	failureCount := 0
	flaggedCount := 0
	var verified []*model.VerificationResult
	ext := extension(format)

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Name, result.Error)
			continue
		}

		path := filepath.Join(outputDir, reportName(input, result.Name)+ext)
		if err := report.WriteFile(path, result.Result, format); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write report: %v\n", result.Name, err)
			continue
		}

		successCount++
		verified = append(verified, result.Result)
		mark := "✓"
		if result.Result.Flagged {
			flaggedCount++
			mark = "⚠"
		}
		fmt.Fprintf(os.Stderr, "%s %s (claims: %d, hallucination: %.2f)\n",
			mark, result.Name, len(result.Result.Claims), result.Result.HallucinationScore)
	}

	summaryPath := filepath.Join(outputDir, "summary"+ext)
	if err := writeSummary(summaryPath, p.Analyze(verified), format); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d responses\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Flagged:   %d\n", flaggedCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

func writeSummary(path string, sum score.Summary, format report.Format) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return report.RenderSummary(f, sum, format)
}

func extension(f report.Format) string {
	switch f {
	case report.FormatJSON:
		return ".json"
	case report.FormatYAML:
		return ".yaml"
	case report.FormatMarkdown:
		return ".md"
	}
	return ".txt"
}

// reportName derives a file name from the response path relative to the input
func reportName(input, name string) string {
	if rel, err := filepath.Rel(input, name); err == nil && !strings.HasPrefix(rel, "..") && rel != "." {
		name = rel
	} else if rel, err := filepath.Rel(filepath.Dir(input), name); err == nil && !strings.HasPrefix(rel, "..") {
		name = rel
	}
	return sanitizeFilename(strings.TrimSuffix(name, filepath.Ext(name)))
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	s = filenameReplacer.Replace(filepath.ToSlash(filepath.Clean(s)))
	s = strings.Trim(s, "._")
	if s == "" {
		s = "response"
	}

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}

	return s
}
