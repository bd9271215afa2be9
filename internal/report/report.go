// Package report renders verification results for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/score"
)

// Format names an output encoding
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat accepts a format name or a common alias
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "":
		return FormatText, nil
	}
	return "", model.Inputf("report.format", "unknown format %q (supported: json, yaml, markdown, text)", s)
}

// FormatFor guesses the format from a file extension, falling back to def
func FormatFor(path string, def Format) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".md", ".markdown":
		return FormatMarkdown
	case ".txt":
		return FormatText
	}
	return def
}

// Render writes result to w in the given format
func Render(w io.Writer, result *model.VerificationResult, format Format) error {
	if result == nil {
		return model.Inputf("report.render", "nil result")
	}
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatYAML:
		return writeYAML(w, result)
	case FormatMarkdown:
		return renderMarkdown(w, result)
	case FormatText:
		return renderText(w, result)
	}
	return model.Inputf("report.render", "unknown format %q", format)
}

// RenderSummary writes a cross-result summary to w
func RenderSummary(w io.Writer, sum score.Summary, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, sum)
	case FormatYAML:
		return writeYAML(w, sum)
	case FormatMarkdown:
		return summaryMarkdown(w, sum)
	case FormatText:
		return summaryText(w, sum)
	}
	return model.Inputf("report.summary", "unknown format %q", format)
}

// WriteFile renders result into path, creating parent directories
func WriteFile(path string, result *model.VerificationResult, format Format) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close report: %w", closeErr)
		}
	}()
	return Render(f, result, format)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// actions maps claim IDs to the action chosen for them
func actions(result *model.VerificationResult) map[string]model.Intervention {
	out := make(map[string]model.Intervention, len(result.Interventions))
	for _, iv := range result.Interventions {
		out[iv.ClaimID] = iv
	}
	return out
}

// highlight rebuilds the response with every claim wrapped by mark.
// Text outside claims is copied unchanged.
func highlight(result *model.VerificationResult, mark func(text string, action model.Action) string) string {
	byID := actions(result)
	var b strings.Builder
	pos := 0
	for _, c := range result.Claims {
		if c.Span.Start < pos || !c.Span.Within(len(result.ResponseText)) {
			continue
		}
		b.WriteString(result.ResponseText[pos:c.Span.Start])
		action := model.ActionPass
		if iv, ok := byID[c.ID]; ok {
			action = iv.Action
		}
		b.WriteString(mark(result.ResponseText[c.Span.Start:c.Span.End], action))
		pos = c.Span.End
	}
	b.WriteString(result.ResponseText[pos:])
	return b.String()
}

func symbol(action model.Action) string {
	switch action {
	case model.ActionFlag:
		return "⚠"
	case model.ActionRewrite:
		return "✗"
	}
	return "✓"
}

func bestExcerpt(c model.Claim) (string, string) {
	if best := c.BestSource(); best != nil {
		return best.ChunkID, best.TextExcerpt
	}
	return "", ""
}
