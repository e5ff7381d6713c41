package markdown

import (
	"strings"

	"golang.org/x/net/html"
)

// attr returns the value of the named attribute, or "" when absent.
func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}

func classes(n *html.Node) []string {
	return strings.Fields(attr(n, "class"))
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

// textContent returns the concatenated text of the subtree, like the DOM
// textContent property.
func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(d *html.Node) {
		if d.Type == html.TextNode {
			b.WriteString(d.Data)
			return
		}
		for child := d.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(n)
	return b.String()
}

// findDescendant returns the first descendant element, in document order,
// matching fn. The node itself is not considered.
func findDescendant(n *html.Node, fn func(*html.Node) bool) *html.Node {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			if fn(child) {
				return child
			}
			if found := findDescendant(child, fn); found != nil {
				return found
			}
		}
	}
	return nil
}

func findTag(n *html.Node, tag string) *html.Node {
	return findDescendant(n, func(d *html.Node) bool { return d.Data == tag })
}

// findTags collects every descendant element with one of the given tags, in
// document order.
func findTags(n *html.Node, tags ...string) []*html.Node {
	var out []*html.Node
	var visit func(*html.Node)
	visit = func(d *html.Node) {
		for child := d.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != html.ElementNode {
				continue
			}
			for _, tag := range tags {
				if child.Data == tag {
					out = append(out, child)
					break
				}
			}
			visit(child)
		}
	}
	visit(n)
	return out
}

func hasElementChildren(n *html.Node) bool {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			return true
		}
	}
	return false
}

// isHidden reports whether the element is statically hidden via the hidden
// attribute or an inline display:none style. Computed styles are not
// available outside a live browser; captured DOM carries hidden state
// inline.
func isHidden(n *html.Node) bool {
	if hasAttr(n, "hidden") {
		return true
	}
	style := strings.ReplaceAll(strings.ToLower(attr(n, "style")), " ", "")
	return strings.Contains(style, "display:none")
}
