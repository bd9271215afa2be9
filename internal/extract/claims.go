package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/groundcheck/internal/analysis"
	"github.com/ppiankov/groundcheck/internal/model"
)

// ClaimExtractor segments response text into typed, atomic claims
type ClaimExtractor struct {
	cfg      model.ExtractorConfig
	analyzer analysis.Analyzer
}

// NewClaimExtractor creates a new claim extractor. A nil analyzer falls back
// to the pattern rules.
func NewClaimExtractor(cfg model.ExtractorConfig, analyzer analysis.Analyzer) *ClaimExtractor {
	if analyzer == nil {
		analyzer = analysis.NewPattern()
	}
	return &ClaimExtractor{cfg: cfg, analyzer: analyzer}
}

// Extract returns the claims in text in response order. Empty or whitespace
// input yields no claims. Only an analyzer failure returns an error.
func (e *ClaimExtractor) Extract(ctx context.Context, text string) ([]model.Claim, error) {
	if strings.TrimSpace(text) == "" {
		return []model.Claim{}, nil
	}

	claims := []model.Claim{}
	for _, sent := range sentences(text) {
		segs := []model.Span{sent}
		if e.cfg.SplitClauses {
			segs = clauses(text, sent, e.cfg.MinClauseWords)
		}
		for _, span := range segs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			segText := text[span.Start:span.End]
			if reason := e.skipReason(segText); reason != "" {
				zap.L().Debug("segment skipped", zap.String("reason", reason), zap.String("text", segText))
				continue
			}

			entities, err := e.analyzer.ExtractEntities(ctx, segText)
			if err != nil {
				if model.KindOf(err) == "" {
					err = model.Unavailable("extract.entities", err)
				}
				return nil, err
			}
			for i := range entities {
				entities[i].Span.Start += span.Start
				entities[i].Span.End += span.Start
			}

			claims = append(claims, model.Claim{
				ID:       claimID(span, segText),
				Text:     segText,
				Type:     classify(segText, entities),
				Span:     span,
				Entities: entities,
				Sources:  []model.SourceMatch{},
			})
		}
	}
	return claims, nil
}

// claimID is stable for the same text at the same offsets
func claimID(span model.Span, text string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%d:%d:%s", span.Start, span.End, text))).String()
}

var (
	greetingPhrases = []string{
		"hope this helps", "let me know", "feel free", "happy to help", "glad to help",
		"great question", "good question", "is there anything else", "hello", "hi there", "thanks", "thank you",
	}
	discourseOnly    = toSet(`sure okay ok yes no well so hello hi hey thanks thank you great indeed certainly absolutely of course in summary conclusion overall however also additionally finally first firstly second secondly lastly`)
	imperativeVerbs  = toSet(`go do make try use find get see let take note remember consider check click visit read ask imagine keep look`)
	firstPersonLeads = []string{"i ", "i'", "i’", "my ", "in my opinion", "in my view", "personally,", "we think", "we believe", "we feel"}
	copulaAux        = toSet(`is are was were be been being am has have had does did will would can could may might must shall should`)
	verbLike         = regexp.MustCompile(`(?i)\b[a-z]{3,}(?:ed|es)\b`)

	relationVerbs = toSet(`is are was were became becomes founded co-founded acquired acquires bought buys sold sells owns owned created
		creates invented discovered developed develops built builds launched launches released releases published publishes
		wrote writes directed directs designed designs led leads headed heads born married died won wins located based
		headquartered established merged partnered employed employs hired hires appointed elected signed announced
		reported produced produces manufactured manufactures makes made joined left moved lives lived works worked served
		serves operates operated runs ran controls controlled invested invests raised raises earned earns paid pays
		received receives discovered contains contained includes included represents represented succeeded replaced`)

	percentOrCurrency = regexp.MustCompile(`(?i)[$€£¥]\s?\d|\d\s?%|\b\d+(?:\.\d+)?\s?(?:percent|per cent|thousand|million|billion|trillion|dozen)\b`)
	numberToken       = regexp.MustCompile(`\b\d[\d,]*(?:\.\d+)?\b`)
	yearLike          = regexp.MustCompile(`^(?:1[0-9]|20)\d{2}$`)
	temporalWords     = regexp.MustCompile(`(?i)\b(?:yesterday|today|tomorrow|last (?:year|month|week|decade|century)|next (?:year|month|week)|decade|century|centuries|annually|since|until)\b`)
	monthWord         = regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\b`)
	quotedSpan        = regexp.MustCompile(`"[^"]+"|“[^”]+”`)
)

// skipReason names why a segment is not a claim, or returns ""
func (e *ClaimExtractor) skipReason(seg string) string {
	n := utf8.RuneCountInString(seg)
	if n < e.cfg.MinClaimLength {
		return "too_short"
	}
	if n > e.cfg.MaxClaimLength {
		return "too_long"
	}
	if strings.HasSuffix(strings.TrimRight(seg, `"'”’)`), "?") {
		return "question"
	}

	lower := strings.ToLower(seg)
	for _, g := range greetingPhrases {
		if strings.HasPrefix(lower, g) {
			return "greeting"
		}
	}

	words := analysis.Tokens(seg)
	if len(words) == 0 {
		return "no_words"
	}
	onlyDiscourse := true
	for _, w := range words {
		if !discourseOnly[w] && !analysis.IsStopword(w) {
			onlyDiscourse = false
			break
		}
	}
	if onlyDiscourse {
		return "discourse"
	}

	if imperativeVerbs[words[0]] && !startsWithSubject(words) {
		return "imperative"
	}
	if e.cfg.SkipFirstPerson {
		for _, lead := range firstPersonLeads {
			if strings.HasPrefix(lower, lead) {
				return "first_person"
			}
		}
	}
	if !hasPredicate(seg, words) {
		return "no_predicate"
	}
	return ""
}

// startsWithSubject catches "Make of the car is..." style openers where the
// leading verb form is really a noun followed by a copula
func startsWithSubject(words []string) bool {
	for _, w := range words[1:min(len(words), 4)] {
		if copulaAux[w] {
			return true
		}
	}
	return false
}

func hasPredicate(seg string, words []string) bool {
	for _, w := range words {
		if copulaAux[w] || relationVerbs[w] {
			return true
		}
	}
	return verbLike.MatchString(seg)
}

// classify assigns exactly one claim type; earlier rules win
func classify(seg string, entities []model.Entity) model.ClaimType {
	if isNumeric(seg, entities) {
		return model.ClaimNumeric
	}

	named := false
	for _, e := range entities {
		if e.Named() {
			named = true
			break
		}
	}
	if named && hasRelationVerb(seg) {
		return model.ClaimEntityRelation
	}

	for _, e := range entities {
		if e.Label == model.LabelDate {
			return model.ClaimTemporal
		}
	}
	if temporalWords.MatchString(seg) || monthWord.MatchString(seg) {
		return model.ClaimTemporal
	}

	for _, q := range quotedSpan.FindAllString(seg, -1) {
		if len(strings.Fields(q)) >= 2 {
			return model.ClaimQuotation
		}
	}
	return model.ClaimGeneral
}

// isNumeric is true for percentages, currency, magnitudes and counts; a bare
// year alone makes a claim temporal, not numeric
func isNumeric(seg string, entities []model.Entity) bool {
	for _, e := range entities {
		if e.Label.Numeric() {
			return true
		}
	}
	if percentOrCurrency.MatchString(seg) {
		return true
	}
	for _, loc := range numberToken.FindAllStringIndex(seg, -1) {
		if inDateEntity(loc[0], entities, seg) {
			continue
		}
		if !yearLike.MatchString(seg[loc[0]:loc[1]]) {
			return true
		}
	}
	return false
}

// inDateEntity reports whether the byte at segment offset i lies inside a DATE
// entity. Entity spans are already rebased on the response, so compare text.
func inDateEntity(i int, entities []model.Entity, seg string) bool {
	for _, e := range entities {
		if e.Label != model.LabelDate {
			continue
		}
		if idx := strings.Index(seg, e.Text); idx >= 0 && i >= idx && i < idx+len(e.Text) {
			return true
		}
	}
	return false
}

func hasRelationVerb(seg string) bool {
	for _, w := range analysis.Tokens(seg) {
		if relationVerbs[w] {
			return true
		}
	}
	return false
}
