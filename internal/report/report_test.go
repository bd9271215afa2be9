package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/score"
)

func sample() *model.VerificationResult {
	text := "Acme was founded in 1999. Zorb earned $50M."
	return &model.VerificationResult{
		ResponseText: text,
		Claims: []model.Claim{
			{
				ID: "c1", Text: "Acme was founded in 1999.", Type: model.ClaimTemporal,
				Span:            model.Span{Start: 0, End: 25},
				Sources:         []model.SourceMatch{{DocumentID: "acme.txt", ChunkID: "acme.txt#0", AlignmentScore: 0.9, TextExcerpt: "Acme was founded in 1999 in Paris."}},
				ConfidenceScore: 0.9, HasSource: true, Candidates: 1,
			},
			{
				ID: "c2", Text: "Zorb earned $50M.", Type: model.ClaimNumeric,
				Span:            model.Span{Start: 26, End: 43},
				ConfidenceScore: 0.05, Candidates: 2,
			},
		},
		ConfidenceScore:    0.5,
		HallucinationScore: 0.4,
		DocumentStoreRef:   "memory:test",
		Strategy:           "balanced",
		Interventions: []model.Intervention{
			{ClaimID: "c1", Action: model.ActionPass, Confidence: 0.9, Explanation: "supported"},
			{ClaimID: "c2", Action: model.ActionRewrite, Confidence: 0.05, Replacement: "hedge", Explanation: "no source"},
		},
		Signals: []model.Signal{{Type: model.SignalNumericMismatch, Severity: model.SeverityWarning, Description: "1 numeric claim contradicted"}},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"json", FormatJSON},
		{"YAML", FormatYAML},
		{"yml", FormatYAML},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{"", FormatText},
		{"text", FormatText},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseFormat("pdf")
	assert.True(t, model.IsKind(err, model.KindInput))
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFor("out/report.json", FormatText))
	assert.Equal(t, FormatMarkdown, FormatFor("report.MD", FormatText))
	assert.Equal(t, FormatYAML, FormatFor("r.yml", FormatText))
	assert.Equal(t, FormatText, FormatFor("report", FormatText))
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sample(), FormatJSON))

	var back model.VerificationResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, *sample(), back)
}

func TestRender_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sample(), FormatYAML))

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, 0.4, back["hallucination_score"])
	assert.Equal(t, "memory:test", back["document_store_ref"])
}

func TestRender_Markdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sample(), FormatMarkdown))
	out := buf.String()

	assert.Contains(t, out, "# Verification Report")
	assert.Contains(t, out, "**Acme was founded in 1999.** ~~Zorb earned $50M.~~ ✗")
	assert.Contains(t, out, "| 2 | Zorb earned $50M. | numeric | 0.05 | ✗ rewrite | none |")
	assert.Contains(t, out, "`acme.txt#0`: Acme was founded in 1999 in Paris.")
	assert.Contains(t, out, "## Interventions")
	assert.Contains(t, out, "replacement: hedge")
	assert.Contains(t, out, "`numeric_mismatch` (warning)")
}

func TestRender_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sample(), FormatText))
	out := buf.String()

	assert.Contains(t, out, "[✓ Acme was founded in 1999.] [✗ Zorb earned $50M.]")
	assert.Contains(t, out, "Hallucination:  0.40")
	assert.Contains(t, out, "source: acme.txt#0 (0.90)")
	assert.Contains(t, out, "[warning] numeric_mismatch")
}

func TestRender_ZeroClaims(t *testing.T) {
	r := &model.VerificationResult{Claims: []model.Claim{}, ConfidenceScore: 1, ResponseText: "Hi!", Strategy: "balanced"}
	for _, f := range []Format{FormatMarkdown, FormatText} {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, r, f))
		assert.Contains(t, buf.String(), "Hi!")
		assert.NotContains(t, buf.String(), "## Claims")
	}
}

func TestRender_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, model.IsKind(Render(&buf, nil, FormatJSON), model.KindInput))
	assert.True(t, model.IsKind(Render(&buf, sample(), Format("pdf")), model.KindInput))
}

func TestHighlight_SkipsBadSpans(t *testing.T) {
	r := sample()
	r.Claims[1].Span = model.Span{Start: 10, End: 500}
	got := highlight(r, func(text string, _ model.Action) string { return "<" + text + ">" })
	assert.Equal(t, "<Acme was founded in 1999.> Zorb earned $50M.", got)
}

func TestRenderSummary(t *testing.T) {
	sum := score.Analyze([]*model.VerificationResult{sample()})

	var md bytes.Buffer
	require.NoError(t, RenderSummary(&md, sum, FormatMarkdown))
	assert.Contains(t, md.String(), "| numeric | 1 | 1 |")
	assert.Contains(t, md.String(), "✗ rewrite: 1")

	var txt bytes.Buffer
	require.NoError(t, RenderSummary(&txt, sum, FormatText))
	assert.True(t, strings.Contains(txt.String(), "Claims:         2 (1 supported)"))

	var js bytes.Buffer
	require.NoError(t, RenderSummary(&js, sum, FormatJSON))
	assert.Contains(t, js.String(), `"hallucination_rate": 0.5`)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.md")
	require.NoError(t, WriteFile(path, sample(), FormatFor(path, FormatText)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Verification Report"))
}
