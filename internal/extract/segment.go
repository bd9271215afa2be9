package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/groundcheck/internal/model"
)

// Abbreviations that never end a sentence
var titleAbbreviations = toSet(`mr mrs ms dr prof sr jr st gen col lt sgt rev hon fig no vol approx vs cf e.g i.e ca`)

// Abbreviations that end a sentence only when the next word is capitalized
var trailingAbbreviations = toSet(`inc ltd co corp llc plc etc u.s u.k u.n e.u a.m p.m jan feb mar apr jun jul aug sep sept oct nov dec est dept univ`)

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|#{1,6}|\d{1,3}[.)])\s+`)

var blankLine = regexp.MustCompile(`\n[ \t\r]*\n`)

// Contrastive connectives that separate two independent clauses
var clauseConnectives = []string{", but ", ", however, ", ", whereas ", ", although ", ", while ", ", yet "}

func toSet(words string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}

// Sentences exposes the sentence splitter for source excerpts
func Sentences(text string) []model.Span {
	return sentences(text)
}

// sentences returns trimmed, non-empty sentence spans in text order.
// It does not split inside quotes, decimals, abbreviations or initials, and
// treats blank lines and list items as hard boundaries.
func sentences(text string) []model.Span {
	var spans []model.Span
	start := 0
	inQuote := false
	lineIsItem := listMarker.MatchString(text)

	emit := func(end int) {
		if s, ok := trimSpan(text, start, end); ok {
			spans = append(spans, s)
		}
		start = end
	}

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		next := i + size

		switch {
		case r == '\n':
			rest := text[next:]
			blank := strings.HasPrefix(strings.TrimLeft(rest, " \t\r"), "\n")
			item := listMarker.MatchString(firstLine(rest))
			if blank || item || lineIsItem {
				emit(i)
				inQuote = false
			}
			lineIsItem = item

		case r == '"':
			if !inQuote {
				// An unmatched or inch mark opens nothing
				inQuote = !inchMark(text, i) && closedInParagraph(text, next)
				break
			}
			inQuote = false
			if endsWithTerminator(text[:i]) && boundaryAfter(text, next) {
				emit(next)
			}

		case r == '“':
			inQuote = true

		case r == '”':
			inQuote = false
			if endsWithTerminator(text[:i]) && boundaryAfter(text, next) {
				emit(next)
			}

		case (r == '.' || r == '!' || r == '?') && !inQuote:
			end := next
			for end < len(text) {
				c, sz := utf8.DecodeRuneInString(text[end:])
				if !strings.ContainsRune(".!?)]’'", c) {
					break
				}
				end += sz
			}
			if r == '.' && !sentenceEndingPeriod(text, i, end) {
				i = end
				continue
			}
			if boundaryAfter(text, end) {
				emit(end)
			}
			i = end
			continue
		}
		i = next
	}
	emit(len(text))
	return spans
}

// sentenceEndingPeriod decides whether the period at i closes a sentence
func sentenceEndingPeriod(text string, i, end int) bool {
	word := lastWord(text[:i])
	lw := strings.ToLower(word)
	nextWord := strings.TrimLeftFunc(text[end:], unicode.IsSpace)

	if titleAbbreviations[lw] {
		return false
	}
	if isInitial(text[:i], word, nextWord) {
		return false
	}
	if trailingAbbreviations[lw] || strings.Count(word, ".") > 0 {
		if nextWord == "" {
			return true
		}
		nr, _ := utf8.DecodeRuneInString(nextWord)
		return unicode.IsUpper(nr)
	}
	return true
}

// isInitial matches "J. K. Rowling" and "John F. Kennedy" but not "called X. It"
func isInitial(prefix, word, nextWord string) bool {
	r, size := utf8.DecodeRuneInString(word)
	fields := strings.Fields(nextWord)
	if size != len(word) || !unicode.IsUpper(r) || len(fields) == 0 {
		return false
	}
	next := fields[0]
	if nr, sz := utf8.DecodeRuneInString(next); unicode.IsUpper(nr) && next[sz:] == "." {
		return true
	}
	prev := lastWord(strings.TrimRight(prefix[:len(prefix)-len(word)], " "))
	pr, _ := utf8.DecodeRuneInString(prev)
	nr, _ := utf8.DecodeRuneInString(next)
	return prev != "" && unicode.IsUpper(pr) && unicode.IsUpper(nr)
}

// boundaryAfter reports whether a sentence may end right before position i
func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsSpace(r)
}

// inchMark reports whether the straight quote at i follows a digit, as in 6'2"
func inchMark(text string, i int) bool {
	return i > 0 && text[i-1] >= '0' && text[i-1] <= '9'
}

// closedInParagraph reports whether a closing straight quote follows from
// before the next blank line
func closedInParagraph(text string, from int) bool {
	para := text[from:]
	if loc := blankLine.FindStringIndex(para); loc != nil {
		para = para[:loc[0]]
	}
	for i := 0; i < len(para); i++ {
		if para[i] == '"' && !inchMark(para, i) {
			return true
		}
	}
	return false
}

func endsWithTerminator(prefix string) bool {
	prefix = strings.TrimRight(prefix, "’'")
	return strings.HasSuffix(prefix, ".") || strings.HasSuffix(prefix, "!") || strings.HasSuffix(prefix, "?")
}

// lastWord returns the run of non-space characters ending at the prefix end
func lastWord(prefix string) string {
	idx := strings.LastIndexFunc(prefix, func(r rune) bool {
		return unicode.IsSpace(r) || r == '(' || r == '"' || r == '“'
	})
	return prefix[idx+1:]
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// trimSpan shrinks [start,end) past surrounding whitespace and list markers
func trimSpan(text string, start, end int) (model.Span, bool) {
	seg := text[start:end]
	if loc := listMarker.FindStringIndex(seg); loc != nil {
		start += loc[1]
		seg = text[start:end]
	}
	lead := len(seg) - len(strings.TrimLeftFunc(seg, unicode.IsSpace))
	trail := len(seg) - len(strings.TrimRightFunc(seg, unicode.IsSpace))
	start += lead
	end -= trail
	if start >= end {
		return model.Span{}, false
	}
	return model.Span{Start: start, End: end}, true
}

// clauseCut marks where a left clause ends and the right clause begins
type clauseCut struct{ leftEnd, rightStart int }

// clauses splits one sentence span at semicolons and contrastive connectives
// outside quotes when both sides keep at least minWords words
func clauses(text string, sent model.Span, minWords int) []model.Span {
	seg := text[sent.Start:sent.End]
	quoted := quoteRanges(seg)

	var cuts []clauseCut
	for i := 0; i < len(seg); i++ {
		if inRanges(quoted, i) {
			continue
		}
		if seg[i] == ';' {
			cuts = append(cuts, clauseCut{i, i + 1})
			continue
		}
		if seg[i] != ',' {
			continue
		}
		lower := strings.ToLower(seg[i:])
		for _, conn := range clauseConnectives {
			if strings.HasPrefix(lower, conn) {
				cuts = append(cuts, clauseCut{i, i + len(conn)})
				break
			}
		}
	}
	if len(cuts) == 0 {
		return []model.Span{sent}
	}

	var out []model.Span
	from := 0
	for _, c := range cuts {
		left := seg[from:c.leftEnd]
		right := seg[c.rightStart:]
		if len(strings.Fields(left)) < minWords || len(strings.Fields(nextClause(right, cuts, c))) < minWords {
			continue
		}
		if s, ok := trimSpan(text, sent.Start+from, sent.Start+c.leftEnd); ok {
			out = append(out, s)
		}
		from = c.rightStart
	}
	if s, ok := trimSpan(text, sent.Start+from, sent.End); ok {
		out = append(out, s)
	}
	return out
}

// nextClause returns the text between cut c and the following cut
func nextClause(right string, cuts []clauseCut, c clauseCut) string {
	for _, other := range cuts {
		if other.leftEnd > c.leftEnd {
			if n := other.leftEnd - c.rightStart; n >= 0 && n <= len(right) {
				return right[:n]
			}
		}
	}
	return right
}

// quoteRanges returns byte ranges covered by straight or curly double quotes
func quoteRanges(s string) []model.Span {
	var out []model.Span
	open := -1
	for i, r := range s {
		switch {
		case r == '"' && open < 0:
			if !inchMark(s, i) && closedInParagraph(s, i+1) {
				open = i
			}
		case r == '“':
			open = i
		case (r == '"' || r == '”') && open >= 0:
			out = append(out, model.Span{Start: open, End: i + utf8.RuneLen(r)})
			open = -1
		}
	}
	return out
}

func inRanges(ranges []model.Span, i int) bool {
	for _, r := range ranges {
		if i >= r.Start && i < r.End {
			return true
		}
	}
	return false
}
