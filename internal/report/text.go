package report

import (
	"fmt"
	"io"

	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/score"
)

const rule = "═══════════════════════════════════════════════════════════"

func renderText(w io.Writer, r *model.VerificationResult) (err error) {
	printf := func(format string, a ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, format, a...)
	}

	printf("%s\n  Verification Report\n%s\n\n", rule, rule)
	printf("  Confidence:     %.2f\n", r.ConfidenceScore)
	printf("  Hallucination:  %.2f\n", r.HallucinationScore)
	printf("  Claims:         %d (%d supported)\n", len(r.Claims), r.Supported())
	printf("  Strategy:       %s\n", r.Strategy)
	printf("  Flagged:        %s\n", yesNo(r.Flagged))
	if r.DocumentStoreRef != "" {
		printf("  Store:          %s\n", r.DocumentStoreRef)
	}
	printf("\n")

	printf("Response:\n\n%s\n\n", highlight(r, func(text string, action model.Action) string {
		return "[" + symbol(action) + " " + text + "]"
	}))

	byID := actions(r)
	for i, c := range r.Claims {
		action := byID[c.ID].Action
		if action == "" {
			action = model.ActionPass
		}
		printf("%s %d. %s\n", symbol(action), i+1, c.Text)
		printf("     type: %s  confidence: %.2f  candidates: %d  action: %s\n", c.Type, c.ConfidenceScore, c.Candidates, action)
		if chunk, excerpt := bestExcerpt(c); chunk != "" {
			printf("     source: %s (%.2f) %q\n", chunk, c.Sources[0].AlignmentScore, excerpt)
		}
		if iv, ok := byID[c.ID]; ok && iv.Replacement != "" {
			printf("     replacement: %s\n", iv.Replacement)
		}
		if c.Notes != "" {
			printf("     note: %s\n", c.Notes)
		}
	}
	if len(r.Claims) > 0 {
		printf("\n")
	}

	for _, s := range r.Signals {
		printf("  [%s] %s: %s\n", s.Severity, s.Type, s.Description)
	}
	if len(r.Signals) > 0 {
		printf("\n")
	}
	return err
}

func summaryText(w io.Writer, sum score.Summary) (err error) {
	printf := func(format string, a ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, format, a...)
	}

	printf("%s\n  Verification Summary\n%s\n\n", rule, rule)
	printf("  Results:        %d (%d flagged)\n", sum.Results, sum.Flagged)
	printf("  Claims:         %d (%d supported)\n", sum.Claims, sum.Supported)
	printf("  Confidence:     %.2f avg\n", sum.AverageConfidence)
	printf("  Hallucination:  %.2f avg, rate %.2f\n", sum.AverageHallucination, sum.HallucinationRate)
	for _, t := range sortedTypes(sum.ByType) {
		printf("    %-18s %d claims, %d unsupported\n", t, sum.ByType[t], sum.UnsupportedByType[t])
	}
	printf("\n")
	return err
}
