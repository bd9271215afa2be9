package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/groundcheck/internal/llm"
	"github.com/ppiankov/groundcheck/internal/model"
)

const entityPrompt = `List every named entity, date, monetary amount, percentage, quantity and count that appears verbatim in the text below.

Return a JSON object of the form {"entities": [{"text": "...", "label": "..."}]}.
Labels: PERSON, ORG, GPE, LOC, PRODUCT, DATE, MONEY, PERCENT, QUANTITY, CARDINAL.
Copy "text" exactly as it appears. Do not add entities that are not in the text.

Text:
%s`

// LLM extracts entities through an LLM provider and tokenizes with the
// pattern rules. Entities the model invents (absent from the text) are dropped.
type LLM struct {
	provider llm.Provider
}

// NewLLM creates an LLM-backed analyzer
func NewLLM(provider llm.Provider) *LLM {
	return &LLM{provider: provider}
}

// Tokenize splits text into lowercased word and number tokens
func (a *LLM) Tokenize(_ context.Context, text string) ([]string, error) {
	return Tokens(text), nil
}

type llmEntities struct {
	Entities []struct {
		Text  string `json:"text"`
		Label string `json:"label"`
	} `json:"entities"`
}

// ExtractEntities asks the provider for entity mentions and locates each one
// in text. Provider failures and unparsable replies are temporary.
func (a *LLM) ExtractEntities(ctx context.Context, text string) ([]model.Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		System: "You are a precise information-extraction engine.",
		Prompt: fmt.Sprintf(entityPrompt, text),
		JSON:   true,
	})
	if err != nil {
		return nil, model.Unavailable("analysis.llm_entities", err)
	}

	var parsed llmEntities
	if err := json.Unmarshal([]byte(stripFence(resp.Text)), &parsed); err != nil {
		return nil, model.Unavailable("analysis.llm_entities", eris.Wrap(err, "decode reply"))
	}

	var cands []model.Entity
	cursor := 0
	for _, e := range parsed.Entities {
		mention := strings.TrimSpace(e.Text)
		if mention == "" {
			continue
		}
		start := strings.Index(text[cursor:], mention)
		if start >= 0 {
			start += cursor
		} else if start = strings.Index(text, mention); start < 0 {
			continue
		}
		end := start + len(mention)
		cands = append(cands, model.Entity{
			Text:  mention,
			Label: normalizeLabel(e.Label),
			Span:  model.Span{Start: start, End: end},
		})
		cursor = end
	}
	return resolveOverlaps(cands), nil
}

func normalizeLabel(label string) model.EntityLabel {
	switch l := model.EntityLabel(strings.ToUpper(strings.TrimSpace(label))); l {
	case model.LabelPerson, model.LabelOrg, model.LabelGPE, model.LabelLoc, model.LabelProduct,
		model.LabelDate, model.LabelMoney, model.LabelPercent, model.LabelQuantity, model.LabelCardinal:
		return l
	case "ORGANIZATION":
		return model.LabelOrg
	case "LOCATION":
		return model.LabelLoc
	case "TIME":
		return model.LabelDate
	default:
		return model.LabelEntity
	}
}

// stripFence removes a markdown code fence some models wrap JSON in
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
