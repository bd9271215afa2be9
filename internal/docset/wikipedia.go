package docset

import (
	"strings"

	"golang.org/x/net/html"
)

// NewWikipediaParser reads article prose from Wikipedia pages, dropping
// citation markers, infoboxes, navigation boxes and edit links.
func NewWikipediaParser(maxChunk int) Parser {
	p := NewHTMLParser(maxChunk)
	p.parserName = "wikipedia"
	p.skipClass = []string{
		"reference", "infobox", "navbox", "mw-editsection", "hatnote", "metadata",
		"reflist", "references", "sidebar", "thumb", "mw-empty-elt", "noprint",
	}
	p.skipIDs = []string{"toc", "catlinks", "siteSub", "jump-to-nav"}
	generic := p.root
	p.root = func(doc *html.Node) *html.Node {
		content := FindFirst(doc, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "div" &&
				(HasClass(n, "mw-parser-output") || GetAttribute(n, "id") == "mw-content-text")
		})
		if content == nil {
			return generic(doc)
		}
		return content
	}
	return &wikipediaParser{HTMLParser: p}
}

type wikipediaParser struct {
	*HTMLParser
}

// CanHandle checks if this is a Wikipedia page
func (p *wikipediaParser) CanHandle(source string, contentType string) bool {
	return strings.Contains(strings.ToLower(source), "wikipedia.org") && !isStructured(source, contentType)
}
