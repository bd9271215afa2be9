package analysis

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/ppiankov/groundcheck/internal/model"
)

var (
	tokenPattern = regexp.MustCompile(`\p{N}+(?:[.,]\p{N}+)+|[\p{L}\p{N}]+(?:['’]\p{L}+)?`)

	moneyPattern = regexp.MustCompile(`(?i)[$€£¥]\s?\d[\d,]*(?:\.\d+)?(?:\s?(?:k|m|mn|mm|b|bn|thousand|million|billion|trillion)\b)?|\b\d[\d,]*(?:\.\d+)?\s?(?:(?:thousand|million|billion|trillion)\s)?(?:dollars|euros|pounds sterling|usd|eur|gbp)\b`)

	percentPattern = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?(?:%|percent\b|per cent\b|percentage points?\b)`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}(?:st|nd|rd|th)?\s+(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{4}\b`),
		regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\.?(?:\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?|,?\s+\d{4})\b`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)\s+century\b`),
		regexp.MustCompile(`\b(?:1[0-9]|20)\d{2}s\b`),
	}

	yearPattern = regexp.MustCompile(`\b(?:1[0-9]|20)\d{2}\b`)

	quantityPattern = regexp.MustCompile(`(?i)\b\d[\d,]*(?:\.\d+)?\s?(?:km|kilomet(?:er|re)s?|miles?|met(?:er|re)s?|cm|mm|kg|kilograms?|grams?|tons?|tonnes?|lbs?|ft|feet|inches|lit(?:er|re)s?|gallons?|hours?|minutes?|seconds?|days?|weeks?|months?|years?|mph|km/h|gb|mb|tb|ghz|mhz|degrees|°[cf])\b`)

	cardinalPattern = regexp.MustCompile(`(?i)\b\d[\d,]*(?:\.\d+)?(?:\s?(?:thousand|million|billion|trillion)\b)?`)

	acronymPattern = regexp.MustCompile(`\b(?:[A-Z]\.){2,}`)

	namePattern = regexp.MustCompile(`\b[\p{Lu}][\p{L}\p{N}&'’-]*(?:\s+(?:of|the|de|du|von|van|for|and|&)\s+[\p{Lu}][\p{L}\p{N}&'’-]*|\s+[\p{Lu}][\p{L}\p{N}&'’-]*)*`)
)

// Words before a bare four-digit number that make it a year
var yearLeads = toSet(`in since by from until till during before after circa around early late mid year through`)

// Pattern is the rule-based analyzer. It needs no external service and never fails.
type Pattern struct{}

// NewPattern creates the rule-based analyzer
func NewPattern() *Pattern {
	return &Pattern{}
}

// Tokenize splits text into lowercased word and number tokens
func (p *Pattern) Tokenize(_ context.Context, text string) ([]string, error) {
	return Tokens(text), nil
}

// Tokens is Tokenize without the capability plumbing
func Tokens(text string) []string {
	raw := tokenPattern.FindAllString(text, -1)
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(t)
		t = strings.TrimSuffix(strings.TrimSuffix(t, "'s"), "’s")
		out = append(out, t)
	}
	return out
}

// ExtractEntities finds money, percentages, dates, quantities, counts and
// capitalized names. Earlier rules win where matches overlap.
func (p *Pattern) ExtractEntities(_ context.Context, text string) ([]model.Entity, error) {
	return Entities(text), nil
}

// Entities is ExtractEntities without the capability plumbing
func Entities(text string) []model.Entity {
	var cands []model.Entity
	add := func(re *regexp.Regexp, label model.EntityLabel) {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			cands = append(cands, entity(text, loc[0], loc[1], label))
		}
	}

	add(moneyPattern, model.LabelMoney)
	add(percentPattern, model.LabelPercent)
	for _, re := range datePatterns {
		add(re, model.LabelDate)
	}
	for _, loc := range yearPattern.FindAllStringIndex(text, -1) {
		if isYear(text, loc[0], loc[1]) {
			cands = append(cands, entity(text, loc[0], loc[1], model.LabelDate))
		}
	}
	add(quantityPattern, model.LabelQuantity)
	add(acronymPattern, model.LabelOrg)
	for _, loc := range namePattern.FindAllStringIndex(text, -1) {
		if e, ok := nameEntity(text, loc[0], loc[1]); ok {
			cands = append(cands, e)
		}
	}
	add(cardinalPattern, model.LabelCardinal)

	return resolveOverlaps(cands)
}

func entity(text string, start, end int, label model.EntityLabel) model.Entity {
	for end > start && (text[end-1] == ' ' || text[end-1] == ',') {
		end--
	}
	return model.Entity{Text: text[start:end], Label: label, Span: model.Span{Start: start, End: end}}
}

// isYear accepts a bare four-digit number as a year when a temporal word
// precedes it or nothing but punctuation follows it
func isYear(text string, start, end int) bool {
	before := strings.Fields(strings.ToLower(text[:start]))
	if len(before) > 0 && yearLeads[strings.Trim(before[len(before)-1], ",(")] {
		return true
	}
	rest := strings.TrimLeft(text[end:], " ")
	if rest == "" {
		return true
	}
	r := rune(rest[0])
	return unicode.IsPunct(r) && r != '%'
}

// nameEntity trims sentence openers, stopwords, months and weekdays off the
// front of a capitalized run and labels what is left
func nameEntity(text string, start, end int) (model.Entity, bool) {
	span := text[start:end]
	for {
		word, rest, found := strings.Cut(span, " ")
		lw := strings.ToLower(word)
		if !(stopwords[lw] || sentenceOpeners[lw] || IsMonth(lw) || dayNames[lw]) || lw == "" {
			break
		}
		if !found {
			return model.Entity{}, false
		}
		trimmed := strings.TrimLeft(rest, " ")
		start += len(span) - len(trimmed)
		span = trimmed
	}
	words := strings.Fields(span)
	for len(words) > 0 && stopwords[strings.ToLower(words[len(words)-1])] {
		words = words[:len(words)-1]
	}
	if len(words) == 0 {
		return model.Entity{}, false
	}
	span = strings.Join(words, " ")
	if !strings.HasPrefix(text[start:], span) {
		// Collapsed whitespace; keep the original slice
		span = strings.TrimSpace(text[start:end])
	}

	label := model.LabelEntity
	for _, w := range words {
		if orgSuffixes[strings.ToLower(w)] {
			label = model.LabelOrg
			break
		}
	}
	return model.Entity{Text: span, Label: label, Span: model.Span{Start: start, End: start + len(span)}}, true
}
