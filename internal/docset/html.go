package docset

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/groundcheck/internal/model"
)

// skipTags never contribute text
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"nav": true, "header": true, "footer": true, "aside": true, "form": true,
	"svg": true, "iframe": true, "button": true,
}

// blockTags each become one chunk
var blockTags = map[string]bool{
	"p": true, "li": true, "blockquote": true, "dd": true, "td": true, "figcaption": true, "pre": true,
}

var headingTags = map[string]bool{"h1": true, "h2": true, "h3": true, "h4": true}

// HTMLParser extracts visible block text from HTML pages
type HTMLParser struct {
	maxChunk   int
	root       func(doc *html.Node) *html.Node
	skipClass  []string
	skipIDs    []string
	parserName string
}

// NewHTMLParser creates the generic HTML parser. It reads from <main> or
// <article> when the page has one, else from <body>.
func NewHTMLParser(maxChunk int) *HTMLParser {
	p := &HTMLParser{maxChunk: maxChunk, parserName: "html"}
	p.root = func(doc *html.Node) *html.Node {
		if n := FindFirst(doc, func(n *html.Node) bool { return isElement(n, "main") || isElement(n, "article") }); n != nil {
			return n
		}
		if n := FindFirst(doc, func(n *html.Node) bool { return isElement(n, "body") }); n != nil {
			return n
		}
		return doc
	}
	return p
}

// Name returns the parser name
func (p *HTMLParser) Name() string {
	return p.parserName
}

// CanHandle checks for an HTML content type or extension
func (p *HTMLParser) CanHandle(source string, contentType string) bool {
	mt := mediaType(contentType)
	if mt == "text/html" || mt == "application/xhtml+xml" {
		return true
	}
	e := ext(source)
	return e == ".html" || e == ".htm" || e == ".xhtml"
}

// Parse emits one chunk per block element, tagged with the nearest heading
func (p *HTMLParser) Parse(document string, body []byte) ([]model.DocumentChunk, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, model.Inputf("docset.html", "%s: %v", document, err)
	}

	var (
		out     []model.DocumentChunk
		section string
		title   = Title(doc)
	)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if p.skip(n) {
				return
			}
			switch {
			case headingTags[n.Data]:
				section = ExtractText(n, p.skip)
				return
			case blockTags[n.Data] && !hasBlockChild(n):
				meta := map[string]any{}
				if section != "" {
					meta["section"] = section
				}
				if title != "" {
					meta["title"] = title
				}
				if len(meta) == 0 {
					meta = nil
				}
				out = appendChunks(out, document, ExtractText(n, p.skip), p.maxChunk, meta)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(p.root(doc))
	return out, nil
}

func (p *HTMLParser) skip(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if skipTags[n.Data] {
		return true
	}
	for _, c := range p.skipClass {
		if HasClass(n, c) {
			return true
		}
	}
	id := GetAttribute(n, "id")
	for _, s := range p.skipIDs {
		if id == s {
			return true
		}
	}
	return false
}

func hasBlockChild(n *html.Node) bool {
	return FindFirst(n, func(c *html.Node) bool {
		return c != n && c.Type == html.ElementNode && blockTags[c.Data]
	}) != nil
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

// Title returns the document <title>, if any
func Title(doc *html.Node) string {
	if t := FindFirst(doc, func(n *html.Node) bool { return isElement(n, "title") }); t != nil {
		return ExtractText(t, nil)
	}
	return ""
}

// ExtractText returns the visible text of a node with whitespace collapsed.
// Subtrees for which skip reports true are left out.
func ExtractText(n *html.Node, skip func(*html.Node) bool) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if skip != nil && skip(node) {
			return
		}
		if node.Type == html.TextNode {
			buf.WriteString(node.Data)
			return
		}
		if isElement(node, "br") {
			buf.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

// HasClass checks if a node has a specific CSS class
func HasClass(n *html.Node, className string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, class := range strings.Fields(GetAttribute(n, "class")) {
		if class == className {
			return true
		}
	}
	return false
}

// GetAttribute gets an attribute value from a node
func GetAttribute(n *html.Node, attrKey string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrKey {
			return attr.Val
		}
	}
	return ""
}

// FindFirst finds the first node matching a predicate in document order
func FindFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	if predicate(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := FindFirst(c, predicate); found != nil {
			return found
		}
	}
	return nil
}
