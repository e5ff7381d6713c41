package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// handler converts one element. Handlers are pure; traversal state lives on
// the walker.
type handler func(w *walker, n *html.Node) string

// blankRuns collapses blank lines inside list item content.
var blankRuns = regexp.MustCompile(`\n{2,}`)

var imageURLParens = strings.NewReplacer("(", "%28", ")", "%29")

// thinkingPrefixes match ephemeral "model is thinking" UI text that must not
// leak into the conversation content.
var thinkingPrefixes = []string{"Thinking time:", "思考時間:"}

func isThinkingIndicator(text string) bool {
	if text == "Thinking..." {
		return true
	}
	for _, p := range thinkingPrefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

func handlePre(_ *walker, n *html.Node) string {
	if code := findTag(n, "code"); code != nil {
		return "\n```" + codeLanguage(code) + "\n" + textContent(code) + "\n```\n\n"
	}
	return "\n```\n" + textContent(n) + "\n```\n\n"
}

// codeLanguage extracts the language tag from a language-<lang> class.
func codeLanguage(n *html.Node) string {
	for _, class := range classes(n) {
		if strings.HasPrefix(class, "language-") {
			return strings.TrimPrefix(class, "language-")
		}
	}
	return ""
}

func handleHeading(w *walker, n *html.Node) string {
	level := int(n.Data[1] - '0')
	content := strings.TrimSpace(w.walk(n))
	if content == "" {
		return ""
	}
	return strings.Repeat("#", level) + " " + content + "\n\n"
}

func handleParagraph(w *walker, n *html.Node) string {
	content := strings.TrimSpace(w.walk(n))
	if content == "" {
		return ""
	}
	return content + "\n\n"
}

func handleUnorderedList(w *walker, n *html.Node) string {
	return w.processList(n, false)
}

func handleOrderedList(w *walker, n *html.Node) string {
	return w.processList(n, true)
}

// handleListItem covers a stray li outside any ul/ol.
func handleListItem(w *walker, n *html.Node) string {
	content := strings.TrimSpace(w.walk(n))
	if content == "" {
		return ""
	}
	return "- " + content + "\n"
}

// processList iterates direct li children only; nested lists are handled by
// the recursive walk of each item. Continuation lines are indented two
// spaces so multi-line content nests under the marker.
func (w *walker) processList(n *html.Node, ordered bool) string {
	var b strings.Builder
	index := 1
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode || child.Data != "li" {
			continue
		}
		marker := "- "
		if ordered {
			marker = fmt.Sprintf("%d. ", index)
		}
		content := strings.TrimSpace(w.walk(child))
		content = blankRuns.ReplaceAllString(content, "\n")
		if strings.Contains(content, "\n") {
			content = strings.ReplaceAll(content, "\n", "\n  ")
		}
		b.WriteString(marker + content + "\n")
		index++
	}
	return b.String() + "\n"
}

func handleAnchor(w *walker, n *html.Node) string {
	href := attr(n, "href")
	label := strings.TrimSpace(w.walk(n))
	if label == "" {
		label = href
	}
	if href == "" {
		return label
	}
	return "[" + label + "](" + href + ")"
}

func handleInlineCode(_ *walker, n *html.Node) string {
	// Code under pre is consumed by the pre handler.
	if n.Parent != nil && n.Parent.Type == html.ElementNode && n.Parent.Data == "pre" {
		return ""
	}
	code := textContent(n)
	if code == "" {
		return ""
	}
	return "`" + strings.ReplaceAll(code, "`", "\\`") + "`"
}

func handleEmphasis(w *walker, n *html.Node) string {
	return "*" + w.walk(n) + "*"
}

// handleStrong emits bare markers; the normalization pass inserts spacing
// where a bold run would otherwise fuse with adjacent inline text.
func handleStrong(w *walker, n *html.Node) string {
	return "**" + w.walk(n) + "**"
}

func handleStrike(w *walker, n *html.Node) string {
	return "~~" + w.walk(n) + "~~"
}

func handleImage(w *walker, n *html.Node) string {
	src := attr(n, "src")
	// Injected browser-extension icons are UI chrome, not content.
	if strings.HasPrefix(src, "chrome-extension://") || strings.HasPrefix(src, "moz-extension://") {
		return ""
	}
	if src == "" {
		return ""
	}
	// Literal parentheses would break the Markdown link syntax.
	src = imageURLParens.Replace(src)
	if w.conv.opts.DedupAdjacentImages && src == w.lastImageSrc {
		return ""
	}
	w.lastImageSrc = src
	return "![" + attr(n, "alt") + "](" + src + ")"
}

func handleTable(w *walker, n *html.Node) string {
	w.lastImageSrc = "" // structural boundary
	table := processTable(n)
	if table == "" {
		return ""
	}
	return table + "\n\n"
}

// processTable renders the first row as the header, a --- separator, then
// one data row per remaining tr. No column alignment is attempted.
func processTable(n *html.Node) string {
	rows := findTags(n, "tr")
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	headers := findTags(rows[0], "th", "td")
	b.WriteString("|")
	for _, h := range headers {
		b.WriteString(" " + strings.TrimSpace(textContent(h)) + " |")
	}
	b.WriteString("\n|")
	for range headers {
		b.WriteString(" --- |")
	}

	for _, row := range rows[1:] {
		b.WriteString("\n|")
		for _, cell := range findTags(row, "td") {
			b.WriteString(" " + strings.TrimSpace(textContent(cell)) + " |")
		}
	}
	return b.String()
}

func handleBreak(_ *walker, _ *html.Node) string {
	return "\n"
}

func handleRule(_ *walker, _ *html.Node) string {
	return "\n---\n\n"
}

// handleContainer covers the generic block/inline wrappers. Leaf wrappers
// holding only a thinking indicator are ephemeral UI state and are dropped;
// KaTeX wrappers yield their TeX source; everything else recurses.
func handleContainer(w *walker, n *html.Node) string {
	if (n.Data == "div" || n.Data == "span") && !hasElementChildren(n) {
		if isThinkingIndicator(strings.TrimSpace(textContent(n))) {
			return ""
		}
	}
	if hasClass(n, "katex") {
		if latex, ok := texAnnotation(n); ok {
			if isDisplayMath(n) {
				return "\n$$\n" + latex + "\n$$\n"
			}
			return "$" + strings.TrimSpace(strings.ReplaceAll(latex, "\n", " ")) + "$"
		}
	}
	return w.walk(n)
}

// handleMath covers a raw math element outside the usual KaTeX wrapper.
func handleMath(_ *walker, n *html.Node) string {
	if latex, ok := texAnnotation(n); ok {
		return "$" + strings.TrimSpace(latex) + "$"
	}
	return textContent(n)
}

// handleButton recurses only into buttons that wrap an image (inline
// reference images); plain buttons are label chrome.
func handleButton(w *walker, n *html.Node) string {
	if findTag(n, "img") == nil {
		return ""
	}
	return w.walk(n)
}

func handleBlockquote(w *walker, n *html.Node) string {
	content := strings.TrimSpace(w.walk(n))
	var quoted []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		quoted = append(quoted, "> "+line)
	}
	if len(quoted) == 0 {
		return ""
	}
	return "\n" + strings.Join(quoted, "\n") + "\n\n"
}

// texAnnotation extracts the TeX source from an embedded
// annotation[encoding="application/x-tex"] element.
func texAnnotation(n *html.Node) (string, bool) {
	annotation := findDescendant(n, func(d *html.Node) bool {
		return d.Data == "annotation" && attr(d, "encoding") == "application/x-tex"
	})
	if annotation == nil {
		return "", false
	}
	return textContent(annotation), true
}

// isDisplayMath detects block math via the display class marker on the
// node, its class list, or its parent.
func isDisplayMath(n *html.Node) bool {
	if hasClass(n, "katex-display") {
		return true
	}
	if n.Data == "div" && hasClass(n, "math-display") {
		return true
	}
	return n.Parent != nil && hasClass(n.Parent, "katex-display")
}
