package mapping

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/groundcheck/internal/analysis"
	"github.com/ppiankov/groundcheck/internal/extract"
	"github.com/ppiankov/groundcheck/internal/model"
)

// Alignment is the scored fit of one chunk segment to one claim
type Alignment struct {
	Score   float64 `json:"score"`
	Lexical float64 `json:"lexical"`
	Entity  float64 `json:"entity"`
	Numeric float64 `json:"numeric"`
	Excerpt string  `json:"excerpt"`
}

// features are the claim-side inputs, computed once per claim
type features struct {
	claimType  model.ClaimType
	tokens     []string
	entities   []string // Lowercased named entity mentions
	quantities []quantity
	quotes     []string // Normalized quoted passages
}

var quotedPassage = regexp.MustCompile(`"([^"]+)"|“([^”]+)”`)

// Aligner scores claims against chunks
type Aligner struct {
	cfg      model.MapperConfig
	analyzer analysis.Analyzer
}

// NewAligner creates an aligner; a nil analyzer uses the pattern rules
func NewAligner(cfg model.MapperConfig, analyzer analysis.Analyzer) *Aligner {
	if analyzer == nil {
		analyzer = analysis.NewPattern()
	}
	return &Aligner{cfg: cfg, analyzer: analyzer}
}

func (a *Aligner) features(ctx context.Context, claim *model.Claim) (features, error) {
	toks, err := a.analyzer.Tokenize(ctx, claim.Text)
	if err != nil {
		return features{}, err
	}
	f := features{
		claimType:  claim.Type,
		tokens:     analysis.ContentTokens(toks),
		quantities: quantities(claim.Text),
	}
	seen := map[string]bool{}
	for _, e := range model.EntityTexts(claim.Entities) {
		lower := strings.ToLower(e)
		if !seen[lower] {
			seen[lower] = true
			f.entities = append(f.entities, lower)
		}
	}
	for _, m := range quotedPassage.FindAllStringSubmatch(claim.Text, -1) {
		q := m[1] + m[2]
		if len(strings.Fields(q)) >= 2 {
			f.quotes = append(f.quotes, normalize(q))
		}
	}
	return f, nil
}

// Align scores every candidate segment of the chunk and returns the best.
// Segments are the chunk's sentences plus the whole chunk; a whole chunk
// longer than the excerpt limit is quoted as a window around the claim's
// terms. Ties go to the shorter excerpt.
func (a *Aligner) Align(ctx context.Context, claim *model.Claim, chunk model.DocumentChunk) (Alignment, error) {
	f, err := a.features(ctx, claim)
	if err != nil {
		return Alignment{}, err
	}
	return a.align(ctx, f, chunk)
}

func (a *Aligner) align(ctx context.Context, f features, chunk model.DocumentChunk) (Alignment, error) {
	var best Alignment
	found := false
	for _, seg := range a.segments(f, chunk.Text) {
		cur, err := a.score(ctx, f, chunk, seg)
		if err != nil {
			return Alignment{}, err
		}
		if !found || cur.Score > best.Score || (cur.Score == best.Score && len(cur.Excerpt) < len(best.Excerpt)) {
			best = cur
			found = true
		}
	}
	return best, nil
}

// segment is a scored region of a chunk and the part of it quoted
type segment struct {
	scored  model.Span
	excerpt model.Span
}

func (a *Aligner) segments(f features, text string) []segment {
	spans := extract.Sentences(text)
	out := make([]segment, 0, len(spans)+1)
	for _, s := range spans {
		out = append(out, segment{scored: s, excerpt: s})
	}
	if len(spans) == 1 {
		return out
	}
	whole, ok := trimmed(text)
	if !ok {
		return out
	}
	seg := segment{scored: whole, excerpt: whole}
	if a.cfg.MaxExcerptLength > 0 && whole.Len() > a.cfg.MaxExcerptLength {
		seg.excerpt = window(f, text, spans, whole, a.cfg.MaxExcerptLength)
	}
	return append(out, seg)
}

func trimmed(text string) (model.Span, bool) {
	start := len(text) - len(strings.TrimLeftFunc(text, unicode.IsSpace))
	end := len(strings.TrimRightFunc(text, unicode.IsSpace))
	return model.Span{Start: start, End: end}, start < end
}

// window covers the sentences from the first to the last claim term found
// in text, cut to limit bytes on a word boundary
func window(f features, text string, spans []model.Span, whole model.Span, limit int) model.Span {
	lower := foldSameWidth(text)
	first, last := -1, -1
	for _, terms := range [][]string{f.tokens, f.entities} {
		for _, t := range terms {
			i := indexWord(lower, t)
			if i < 0 {
				continue
			}
			if first < 0 || i < first {
				first = i
			}
			last = max(last, i+len(t))
		}
	}

	w := whole
	if len(spans) > 0 {
		w = spans[0]
	}
	if first >= 0 {
		w = model.Span{Start: first, End: last}
		for _, s := range spans {
			if s.Start <= first && first < s.End {
				w.Start = s.Start
			}
			if s.Start < last && last <= s.End {
				w.End = s.End
			}
		}
	}
	return clipSpan(text, w, limit)
}

// clipSpan shortens s to at most limit bytes, ending on a word boundary
func clipSpan(text string, s model.Span, limit int) model.Span {
	if s.Len() <= limit {
		return s
	}
	end := s.Start + limit
	for end > s.Start && !utf8.RuneStart(text[end]) {
		end--
	}
	if cut := strings.LastIndexFunc(text[s.Start:end], unicode.IsSpace); cut > 0 {
		end = s.Start + cut
	}
	return model.Span{Start: s.Start, End: end}
}

// foldSameWidth lowercases text without moving byte offsets
func foldSameWidth(s string) string {
	folded := strings.Map(func(r rune) rune {
		if l := unicode.ToLower(r); utf8.RuneLen(l) == utf8.RuneLen(r) {
			return l
		}
		return r
	}, s)
	if len(folded) != len(s) {
		return s
	}
	return folded
}

func (a *Aligner) score(ctx context.Context, f features, chunk model.DocumentChunk, s segment) (Alignment, error) {
	seg := s.scored
	text := chunk.Text[seg.Start:seg.End]
	toks, err := a.analyzer.Tokenize(ctx, text)
	if err != nil {
		return Alignment{}, err
	}

	out := Alignment{Excerpt: chunk.Text[s.excerpt.Start:s.excerpt.End]}
	out.Lexical = coverage(f.tokens, toks)

	weights := a.cfg.LexicalWeight
	sum := a.cfg.LexicalWeight * out.Lexical
	if len(f.entities) > 0 {
		out.Entity = entityCoverage(f.entities, text, chunk.Entities, seg)
		weights += a.cfg.EntityWeight
		sum += a.cfg.EntityWeight * out.Entity
	}
	if len(f.quantities) > 0 {
		out.Numeric = numericCoverage(f.quantities, quantities(text), a.cfg.NumericTolerance)
		weights += a.cfg.NumericWeight
		sum += a.cfg.NumericWeight * out.Numeric
	}
	if weights > 0 {
		out.Score = clip(sum / weights)
	}

	// Exact values override lexical similarity
	gated := f.claimType == model.ClaimNumeric || (f.claimType == model.ClaimTemporal && a.cfg.GateTemporal)
	if gated && len(f.quantities) > 0 {
		out.Score *= out.Numeric
	}

	if len(f.quotes) > 0 {
		norm := normalize(text)
		for _, q := range f.quotes {
			if strings.Contains(norm, q) {
				continue
			}
			out.Score *= a.cfg.QuoteMismatchFactor * coverage(strings.Fields(q), strings.Fields(norm))
		}
	}
	return out, nil
}

// coverage is the fraction of want tokens present in have
func coverage(want, have []string) float64 {
	if len(want) == 0 {
		return 0
	}
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[strings.ToLower(h)] = true
	}
	n := 0
	for _, w := range want {
		if set[w] {
			n++
		}
	}
	return float64(n) / float64(len(want))
}

// entityCoverage counts claim entities mentioned in the segment text or
// annotated on the chunk inside the segment
func entityCoverage(entities []string, text string, annotated []model.Entity, seg model.Span) float64 {
	lower := strings.ToLower(text)
	n := 0
	for _, e := range entities {
		if containsWord(lower, e) {
			n++
			continue
		}
		for _, ann := range annotated {
			if seg.Contains(ann.Span) && strings.EqualFold(ann.Text, e) {
				n++
				break
			}
		}
	}
	return float64(n) / float64(len(entities))
}

// containsWord finds needle in s on word boundaries
func containsWord(s, needle string) bool {
	return indexWord(s, needle) >= 0
}

// indexWord returns the offset of the first word-bounded needle in s, or -1
func indexWord(s, needle string) int {
	if needle == "" {
		return -1
	}
	for from := 0; from < len(s); {
		i := strings.Index(s[from:], needle)
		if i < 0 {
			return -1
		}
		start := from + i
		end := start + len(needle)
		if boundary(s, start-1) && boundary(s, end) {
			return start
		}
		from = start + 1
	}
	return -1
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := rune(s[i])
	return !(unicode.IsLetter(c) || unicode.IsDigit(c)) || c >= 0x80
}

// normalize lowercases, drops punctuation and collapses whitespace
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func clip(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
