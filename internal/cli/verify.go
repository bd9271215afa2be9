package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/groundcheck/internal/analysis"
	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/report"
)

var (
	responseFile string
	docSources   []string
	dbPath       string
	formatName   string
	outPath      string
	correct      bool
	strategy     string
	timeout      time.Duration
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [response-file]",
	Short: "Verify the claims of one response against source documents",
	Long: `Verify checks a single response:
- Extract checkable claims (numeric, entity relations, dates, quotations)
- Align each claim with the best supporting document chunks
- Score calibrated confidence per claim and a hallucination score overall
- Choose a pass / flag / rewrite intervention per claim

Documents come from files, directories, http(s) URLs (--docs) or a SQLite
index built with 'groundcheck index' (--db). Use "-" to read the response
from stdin.

Example:
  groundcheck verify answer.txt --docs ./corpus
  groundcheck verify answer.txt --docs https://en.wikipedia.org/wiki/Eiffel_Tower --format markdown --out report.md
  groundcheck verify answer.txt --db corpus.db --correct --strategy conservative`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVarP(&responseFile, "response", "r", "", "response file (or pass it as the argument; - for stdin)")
	addStoreFlags(verifyCmd)
	verifyCmd.Flags().StringVarP(&formatName, "format", "f", "", "report format: json, yaml, markdown, text (default: from --out extension, else text)")
	verifyCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the report to a file instead of stdout")
	verifyCmd.Flags().BoolVar(&correct, "correct", false, "print the corrected response to stdout (report goes to --out only)")
	verifyCmd.Flags().StringVar(&strategy, "strategy", "", "intervention strategy: conservative, balanced, aggressive (default from config)")
	verifyCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout including document loading")
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&docSources, "docs", "d", nil, "document sources: files, directories or http(s) URLs (repeatable)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite chunk index (default: store.db from config)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	source := responseFile
	if len(args) == 1 {
		if source != "" {
			return usageErrorf("pass the response either as an argument or with --response, not both")
		}
		source = args[0]
	}
	if source == "" {
		return usageErrorf("no response given: pass a file, --response FILE or - for stdin")
	}

	format, err := resolveFormat(formatName, outPath)
	if err != nil {
		return err
	}
	if strategy != "" {
		if _, err := model.ParseStrategy(strategy); err != nil {
			return err
		}
		appCfg.Intervention.Strategy = strategy
	}

	text, err := readResponse(cmd.InOrStdin(), source)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Verifying: %s\n", source)
		fmt.Fprintf(os.Stderr, "Strategy: %s\n", appCfg.Intervention.Strategy)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintln(os.Stderr)
	}

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

	result, err := p.Verify(ctx, text, docs)
	if err != nil {
		return fmt.Errorf("verify failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Extracted %d claims\n", len(result.Claims))
		fmt.Fprintf(os.Stderr, "✓ Supported %d/%d\n", result.Supported(), len(result.Claims))
		fmt.Fprintf(os.Stderr, "✓ Confidence %.2f, hallucination %.2f\n", result.ConfidenceScore, result.HallucinationScore)
		if result.Flagged {
			fmt.Fprintf(os.Stderr, "✗ Hallucination above threshold %.2f\n", appCfg.Intervention.HallucinationThreshold)
		}
		if c, ok := analyzer.(*analysis.Cached); ok {
			if st, ok := c.Stats(); ok {
				fmt.Fprintf(os.Stderr, "  Entity cache: %d hits, %d misses\n", st.Hits, st.Misses)
			}
		}
		fmt.Fprintln(os.Stderr)
	}

	if outPath != "" {
		if err := report.WriteFile(outPath, result, format); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Report written to %s\n", outPath)
		}
	}

	out := cmd.OutOrStdout()
	if correct {
		corrected, err := p.Correct(result, "")
		if err != nil {
			return fmt.Errorf("correct failed: %w", err)
		}
		_, err = fmt.Fprintln(out, corrected)
		return err
	}
	if outPath == "" {
		if err := report.Render(out, result, format); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
	}
	return nil
}

// resolveFormat prefers an explicit flag, then the output file extension
func resolveFormat(name, path string) (report.Format, error) {
	if name != "" {
		return report.ParseFormat(name)
	}
	return report.FormatFor(path, report.FormatText), nil
}

func readResponse(stdin io.Reader, source string) (string, error) {
	var (
		data []byte
		err  error
	)
	if source == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return "", model.Inputf("cli.response", "read %s: %v", source, err)
	}
	return string(data), nil
}
