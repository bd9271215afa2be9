package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/score"
)

func renderMarkdown(w io.Writer, r *model.VerificationResult) (err error) {
	printf := func(format string, a ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, format, a...)
	}

	printf("# Verification Report\n\n")
	printf("| | |\n|---|---|\n")
	printf("| Confidence | %.2f |\n", r.ConfidenceScore)
	printf("| Hallucination | %.2f |\n", r.HallucinationScore)
	printf("| Claims | %d (%d supported) |\n", len(r.Claims), r.Supported())
	printf("| Strategy | %s |\n", r.Strategy)
	printf("| Flagged | %s |\n", yesNo(r.Flagged))
	if r.DocumentStoreRef != "" {
		printf("| Store | `%s` |\n", r.DocumentStoreRef)
	}
	printf("\n")

	printf("## Response\n\n")
	printf("%s\n\n", highlight(r, func(text string, action model.Action) string {
		switch action {
		case model.ActionFlag:
			return "_" + text + "_ ⚠"
		case model.ActionRewrite:
			return "~~" + text + "~~ ✗"
		}
		return "**" + text + "**"
	}))
	printf("Legend: **supported**, _uncertain_ ⚠, ~~unsupported~~ ✗\n\n")

	if len(r.Claims) > 0 {
		byID := actions(r)
		printf("## Claims\n\n")
		printf("| # | Claim | Type | Confidence | Action | Best source |\n")
		printf("|---|---|---|---|---|---|\n")
		for i, c := range r.Claims {
			chunk, excerpt := bestExcerpt(c)
			source := "none"
			if chunk != "" {
				source = fmt.Sprintf("`%s`: %s", cell(chunk), cell(excerpt))
			} else if c.Notes != "" {
				source = "none (" + cell(c.Notes) + ")"
			}
			action := byID[c.ID].Action
			if action == "" {
				action = model.ActionPass
			}
			printf("| %d | %s | %s | %.2f | %s %s | %s |\n",
				i+1, cell(c.Text), c.Type, c.ConfidenceScore, symbol(action), action, source)
		}
		printf("\n")
	}

	var changes []model.Intervention
	for _, iv := range r.Interventions {
		if iv.Action != model.ActionPass {
			changes = append(changes, iv)
		}
	}
	if len(changes) > 0 {
		printf("## Interventions\n\n")
		for _, iv := range changes {
			claim := r.Claim(iv.ClaimID)
			text := iv.ClaimID
			if claim != nil {
				text = claim.Text
			}
			printf("- **%s** %q: %s\n", iv.Action, text, iv.Explanation)
			if iv.Replacement != "" {
				printf("  - replacement: %s\n", iv.Replacement)
			}
		}
		printf("\n")
	}

	if len(r.Signals) > 0 {
		printf("## Signals\n\n")
		for _, s := range r.Signals {
			printf("- `%s` (%s): %s\n", s.Type, s.Severity, s.Description)
		}
		printf("\n")
	}
	return err
}

func summaryMarkdown(w io.Writer, sum score.Summary) (err error) {
	printf := func(format string, a ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, format, a...)
	}

	printf("# Verification Summary\n\n")
	printf("| | |\n|---|---|\n")
	printf("| Results | %d (%d flagged) |\n", sum.Results, sum.Flagged)
	printf("| Claims | %d (%d supported) |\n", sum.Claims, sum.Supported)
	printf("| Average confidence | %.2f |\n", sum.AverageConfidence)
	printf("| Average hallucination | %.2f |\n", sum.AverageHallucination)
	printf("| Hallucination rate | %.2f |\n\n", sum.HallucinationRate)

	if len(sum.ByType) > 0 {
		printf("## Claims by type\n\n")
		printf("| Type | Claims | Unsupported |\n|---|---|---|\n")
		for _, t := range sortedTypes(sum.ByType) {
			printf("| %s | %d | %d |\n", t, sum.ByType[t], sum.UnsupportedByType[t])
		}
		printf("\n")
	}
	if len(sum.ByAction) > 0 {
		printf("## Actions\n\n")
		for _, a := range []model.Action{model.ActionPass, model.ActionFlag, model.ActionRewrite} {
			if n := sum.ByAction[a]; n > 0 {
				printf("- %s %s: %d\n", symbol(a), a, n)
			}
		}
		printf("\n")
	}
	return err
}

func sortedTypes(m map[model.ClaimType]int) []model.ClaimType {
	out := make([]model.ClaimType, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// cell makes text safe inside a table cell
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
