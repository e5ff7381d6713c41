// Package markdown converts a chat application's conversation DOM into Markdown.
//
// The converter encodes heuristics for one host application's markup: message
// blocks are article elements tagged with data-message-author-role, code is
// rendered inside pre > code with language-* classes, and math goes through
// KaTeX wrappers carrying a TeX annotation. It is deliberately not a
// general-purpose HTML-to-Markdown library.
package markdown

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// roleAttr marks one conversation turn's author inside a message block.
const roleAttr = "data-message-author-role"

// contentClass is the class of a message block's primary content container.
const contentClass = ".markdown"

var excessiveNewlines = regexp.MustCompile(`\n{3,}`)

// Options configures conversion behavior.
type Options struct {
	// DedupAdjacentImages suppresses an img whose URL matches the image
	// emitted immediately before it. Off by default: legitimately repeated
	// images would be dropped too.
	DedupAdjacentImages bool
}

// Converter turns a parsed conversation document into Markdown text.
// Conversion is pure and deterministic; unexpected markup degrades to a
// generic recursive walk instead of failing the whole document.
type Converter struct {
	opts     Options
	handlers map[string]handler
}

// New creates a Converter with the given options.
func New(opts Options) *Converter {
	c := &Converter{opts: opts}
	c.handlers = map[string]handler{
		"pre":        handlePre,
		"h1":         handleHeading,
		"h2":         handleHeading,
		"h3":         handleHeading,
		"h4":         handleHeading,
		"h5":         handleHeading,
		"h6":         handleHeading,
		"p":          handleParagraph,
		"ul":         handleUnorderedList,
		"ol":         handleOrderedList,
		"li":         handleListItem,
		"a":          handleAnchor,
		"code":       handleInlineCode,
		"em":         handleEmphasis,
		"i":          handleEmphasis,
		"strong":     handleStrong,
		"b":          handleStrong,
		"del":        handleStrike,
		"s":          handleStrike,
		"img":        handleImage,
		"table":      handleTable,
		"br":         handleBreak,
		"hr":         handleRule,
		"div":        handleContainer,
		"span":       handleContainer,
		"section":    handleContainer,
		"article":    handleContainer,
		"math":       handleMath,
		"button":     handleButton,
		"blockquote": handleBlockquote,
	}
	return c
}

// ConvertHTML parses raw HTML and converts it.
func (c *Converter) ConvertHTML(htmlStr string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	return c.Convert(doc), nil
}

// Convert walks every message block of the document in order and emits a
// role heading, the converted content and a horizontal-rule separator per
// block. Documents without message blocks are converted whole, scoped to
// main (or body as a last resort).
func (c *Converter) Convert(doc *goquery.Document) string {
	w := &walker{conv: c}
	var b strings.Builder

	articles := doc.Find("article")
	if articles.Length() == 0 {
		scope := doc.Find("main").First()
		if scope.Length() == 0 {
			scope = doc.Find("body").First()
		}
		if scope.Length() == 0 {
			return ""
		}
		b.WriteString(w.walk(scope.Get(0)))
	} else {
		articles.Each(func(_ int, article *goquery.Selection) {
			// Image dedup tracking does not cross message blocks.
			w.lastImageSrc = ""

			roleSel := article.Find("[" + roleAttr + "]").First()
			role := "user"
			if roleSel.Length() > 0 {
				role = roleSel.AttrOr(roleAttr, "user")
			}
			b.WriteString("# " + capitalize(role) + "\n\n")

			node := contentNode(article, roleSel)
			b.WriteString(strings.TrimSpace(w.walk(node)) + "\n\n---\n\n")
		})
	}

	out := normalizeBoldSpacing(b.String())
	out = excessiveNewlines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// contentNode locates the block's primary content container. When the
// content-class element is absent, walking up from the role marker to its
// grandparent is a workable heuristic for the host's markup.
func contentNode(article, roleSel *goquery.Selection) *html.Node {
	if content := article.Find(contentClass).First(); content.Length() > 0 {
		return content.Get(0)
	}
	articleNode := article.Get(0)
	if roleSel.Length() > 0 {
		n := roleSel.Get(0)
		for i := 0; i < 2; i++ {
			if n.Parent == nil {
				return articleNode
			}
			n = n.Parent
		}
		return n
	}
	return articleNode
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// walker carries per-conversion traversal state.
type walker struct {
	conv         *Converter
	lastImageSrc string
}

// blockTags are structural tags whose direct whitespace-only text children
// are DOM formatting artifacts, not content.
var blockTags = map[string]bool{
	"div": true, "section": true, "article": true, "aside": true,
	"header": true, "footer": true, "ul": true, "ol": true,
	"pre": true, "blockquote": true, "table": true, "tbody": true,
	"thead": true, "tr": true,
}

// walk converts the children of n in document order. Unknown tags recurse
// generically so unexpected markup never aborts a conversion.
func (w *walker) walk(n *html.Node) string {
	if n == nil {
		return ""
	}
	parentTag := ""
	if n.Type == html.ElementNode {
		parentTag = n.Data
	}

	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.TextNode:
			if blockTags[parentTag] && strings.TrimSpace(child.Data) == "" {
				continue
			}
			b.WriteString(child.Data)
		case html.ElementNode:
			if isHidden(child) {
				continue
			}
			if h, ok := w.conv.handlers[child.Data]; ok {
				b.WriteString(h(w, child))
			} else {
				b.WriteString(w.walk(child))
			}
		}
	}
	return b.String()
}
