package intervene

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/groundcheck/internal/model"
)

const terminal = `.!?"'”’`

// Corrector rewrites a verified response under a strategy
type Corrector struct {
	cfg model.InterventionConfig
}

// NewCorrector creates a corrector using the marker and hedge text from cfg
func NewCorrector(cfg model.InterventionConfig) *Corrector {
	return &Corrector{cfg: cfg}
}

// Correct returns the response with every non-passing claim annotated,
// replaced or removed. Text outside claims is kept byte for byte. Claims
// that already carry the marker or already read as the hedge are left
// alone, so correcting a corrected response changes nothing.
func (c *Corrector) Correct(result *model.VerificationResult, strategy string) (string, error) {
	if result == nil {
		return "", model.Inputf("intervene.correct", "nil result")
	}
	sel, err := NewSelectorFor(c.cfg, strategy)
	if err != nil {
		return "", err
	}

	text := result.ResponseText
	claims := make([]model.Claim, len(result.Claims))
	copy(claims, result.Claims)
	sort.SliceStable(claims, func(i, j int) bool { return claims[i].Span.Start > claims[j].Span.Start })

	for _, claim := range claims {
		s := claim.Span
		if !s.Within(len(text)) || text[s.Start:s.End] != claim.Text {
			continue
		}
		if c.settled(claim.Text) {
			continue
		}

		iv := sel.Select(claim)
		switch iv.Action {
		case model.ActionFlag:
			text = text[:s.Start] + c.annotate(claim.Text) + text[s.End:]
		case model.ActionRewrite:
			if iv.Replacement == "" {
				text = excise(text, s)
				continue
			}
			text = text[:s.Start] + adapt(claim.Text, iv.Replacement) + text[s.End:]
		}
	}
	return text, nil
}

// settled reports whether a claim is already the product of a correction
func (c *Corrector) settled(claim string) bool {
	if c.cfg.UncertaintyMarker != "" && strings.Contains(claim, c.cfg.UncertaintyMarker) {
		return true
	}
	return c.cfg.HedgePhrase != "" && strings.EqualFold(core(claim), core(c.cfg.HedgePhrase))
}

// annotate puts the marker before the claim's closing punctuation
func (c *Corrector) annotate(claim string) string {
	body := core(claim)
	return body + " " + c.cfg.UncertaintyMarker + claim[len(body):]
}

// adapt fits a replacement into the claim's slot: same first-letter case,
// same closing punctuation
func adapt(claim, replacement string) string {
	body := strings.TrimSpace(core(replacement))
	if body == "" {
		return claim
	}
	cr, _ := utf8.DecodeRuneInString(claim)
	rr, size := utf8.DecodeRuneInString(body)
	switch {
	case unicode.IsUpper(cr) && unicode.IsLower(rr):
		body = string(unicode.ToUpper(rr)) + body[size:]
	case unicode.IsLower(cr) && unicode.IsUpper(rr) && !acronymStart(body):
		body = string(unicode.ToLower(rr)) + body[size:]
	}
	return body + claim[len(core(claim)):]
}

// acronymStart keeps "NASA ..." and "I ..." capitalized mid-sentence
func acronymStart(s string) bool {
	word, _, _ := strings.Cut(s, " ")
	if len(word) == 1 {
		return true
	}
	r, size := utf8.DecodeRuneInString(word[1:])
	return size > 0 && unicode.IsUpper(r)
}

// Joiners that tie one clause to the next, longest first
var joiners = []string{", however,", ", although", ", whereas", ", while", ", but", ", yet", ";"}

// excise removes the span together with what ties it to its neighbours: the
// joiner before a trailing clause, the joiner after a leading clause, or the
// sentence punctuation a bare clause leaves behind. Whitespace after the span
// goes too, or before it when the span ends the text.
func excise(text string, s model.Span) string {
	body := s.Start + len(core(text[s.Start:s.End]))

	before := strings.TrimRight(text[:s.Start], " \t")
	if j := joinerSuffix(before); j != "" {
		// "A, but B." keeps "A."
		return text[:len(before)-len(j)] + text[body:]
	}
	if j := joinerPrefix(text[s.End:]); j != "" {
		// "A, but b." keeps "B."
		rest := strings.TrimLeft(text[s.End+len(j):], " \t")
		return text[:s.Start] + capitalize(rest)
	}

	end := s.End
	if body == s.End && sentenceStart(text, s.Start) {
		for end < len(text) {
			r, size := utf8.DecodeRuneInString(text[end:])
			if !strings.ContainsRune(terminal, r) {
				break
			}
			end += size
		}
	}
	for end < len(text) && (text[end] == ' ' || text[end] == '\t') {
		end++
	}
	start := s.Start
	if end == len(text) {
		for start > 0 && unicode.IsSpace(rune(text[start-1])) {
			start--
		}
	}
	return text[:start] + text[end:]
}

// joinerSuffix returns the joiner ending prefix when clause text precedes it
func joinerSuffix(prefix string) string {
	lower := strings.ToLower(prefix)
	for _, j := range joiners {
		if strings.HasSuffix(lower, j) && strings.TrimSpace(prefix[:len(prefix)-len(j)]) != "" {
			return j
		}
	}
	return ""
}

// joinerPrefix returns the joiner that starts rest
func joinerPrefix(rest string) string {
	lower := strings.ToLower(rest)
	for _, j := range joiners {
		if strings.HasPrefix(lower, j) && (len(rest) == len(j) || rest[len(j)] == ' ' || rest[len(j)] == '\t') {
			return j
		}
	}
	return ""
}

// sentenceStart reports whether i begins the text or follows a finished sentence
func sentenceStart(text string, i int) bool {
	prefix := strings.TrimRightFunc(text[:i], unicode.IsSpace)
	// A line break also starts one
	if prefix == "" || len(prefix) < len(strings.TrimRight(text[:i], " \t")) {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(prefix)
	return strings.ContainsRune(terminal, r)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if !unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func core(s string) string {
	return strings.TrimRight(s, terminal)
}
