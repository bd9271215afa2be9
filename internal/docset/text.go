package docset

import (
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/groundcheck/internal/extract"
	"github.com/ppiankov/groundcheck/internal/model"
)

// TextParser splits plain text and markdown into paragraph chunks
type TextParser struct {
	maxChunk int
}

// NewTextParser creates the fallback parser
func NewTextParser(maxChunk int) *TextParser {
	return &TextParser{maxChunk: maxChunk}
}

// Name returns the parser name
func (p *TextParser) Name() string {
	return "text"
}

// CanHandle always returns true (fallback parser)
func (p *TextParser) CanHandle(source string, contentType string) bool {
	return true
}

// Parse emits one chunk per paragraph. Markdown headings become the
// "section" metadata of the paragraphs under them.
func (p *TextParser) Parse(document string, body []byte) ([]model.DocumentChunk, error) {
	if !utf8.Valid(body) {
		return nil, model.Inputf("docset.text", "%s is not valid UTF-8", document)
	}
	var (
		out     []model.DocumentChunk
		section string
	)
	for _, para := range paragraphs(string(body)) {
		if strings.HasPrefix(para, "#") {
			section = strings.TrimSpace(strings.TrimLeft(para, "#"))
			continue
		}
		var meta map[string]any
		if section != "" {
			meta = map[string]any{"section": section}
		}
		out = appendChunks(out, document, para, p.maxChunk, meta)
	}
	return out, nil
}

// paragraphs splits on blank lines, joining wrapped lines with spaces
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var (
		out   []string
		lines []string
	)
	flush := func() {
		if len(lines) > 0 {
			out = append(out, strings.Join(lines, " "))
			lines = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "#"):
			flush()
			out = append(out, line)
		default:
			lines = append(lines, line)
		}
	}
	flush()
	return out
}

// appendChunks adds text as one chunk, or as several sentence-aligned
// chunks when it exceeds maxChunk bytes
func appendChunks(out []model.DocumentChunk, document, text string, maxChunk int, meta map[string]any) []model.DocumentChunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return out
	}
	for _, piece := range pack(text, maxChunk) {
		out = append(out, model.DocumentChunk{
			ID:             chunkID(document, len(out)),
			Text:           piece,
			SourceDocument: document,
			Metadata:       meta,
		})
	}
	return out
}

// pack groups consecutive sentences into pieces of at most maxChunk bytes.
// A single sentence longer than maxChunk is kept whole.
func pack(text string, maxChunk int) []string {
	if maxChunk <= 0 || len(text) <= maxChunk {
		return []string{text}
	}
	var (
		out   []string
		start = -1
		end   int
	)
	for _, s := range extract.Sentences(text) {
		if start >= 0 && s.End-start > maxChunk {
			out = append(out, text[start:end])
			start = -1
		}
		if start < 0 {
			start = s.Start
		}
		end = s.End
	}
	if start >= 0 {
		out = append(out, text[start:end])
	}
	return out
}
