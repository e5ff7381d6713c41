package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(role, inner string) string {
	return `<article><div data-message-author-role="` + role + `"><div class="markdown">` + inner + `</div></div></article>`
}

func convert(t *testing.T, htmlStr string) string {
	t.Helper()
	out, err := New(Options{}).ConvertHTML(htmlStr)
	require.NoError(t, err)
	return out
}

func TestConvertSimpleConversation(t *testing.T) {
	htmlStr := message("user", "<p>Hello</p>") + message("assistant", "<p>Hi there</p>")

	result := convert(t, htmlStr)

	expected := "# User\n\nHello\n\n---\n\n# Assistant\n\nHi there\n\n---"
	assert.Equal(t, expected, result)
}

func TestConvertMissingRoleDefaultsToUser(t *testing.T) {
	result := convert(t, `<article><div class="markdown"><p>orphan</p></div></article>`)

	assert.Equal(t, "# User\n\norphan\n\n---", result)
}

func TestConvertNoArticlesFallsBackToMain(t *testing.T) {
	result := convert(t, `<html><body><nav>menu</nav><main><p>Standalone content</p></main></body></html>`)

	assert.Equal(t, "Standalone content", result)
}

func TestConvertEmptyDocument(t *testing.T) {
	result := convert(t, "")
	assert.Equal(t, "", result)
}

func TestConvertCodeBlock(t *testing.T) {
	htmlStr := message("assistant",
		`<pre><code class="language-go">fmt.Println("hi")</code></pre>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "```go\nfmt.Println(\"hi\")\n```")
}

func TestConvertCodeBlockWithoutLanguage(t *testing.T) {
	htmlStr := message("assistant", `<pre><code>plain code</code></pre>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "```\nplain code\n```")
}

func TestConvertInlineCode(t *testing.T) {
	htmlStr := message("assistant", `<p>use <code>go build</code> here</p>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "use `go build` here")
}

func TestConvertInlineCodeEscapesBackticks(t *testing.T) {
	htmlStr := message("assistant", "<p><code>a`b</code></p>")

	result := convert(t, htmlStr)

	assert.Contains(t, result, "`a\\`b`")
}

func TestConvertHeadings(t *testing.T) {
	htmlStr := message("assistant", `<h2>Section</h2><h3>Subsection</h3>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "## Section")
	assert.Contains(t, result, "### Subsection")
}

func TestConvertUnorderedList(t *testing.T) {
	htmlStr := message("assistant", `<ul><li>first</li><li>second</li></ul>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "- first\n- second")
}

func TestConvertOrderedList(t *testing.T) {
	htmlStr := message("assistant", `<ol><li>first</li><li>second</li></ol>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "1. first\n2. second")
}

func TestConvertNestedListIndentsContinuation(t *testing.T) {
	htmlStr := message("assistant",
		`<ul><li><p>parent</p><ul><li><p>child</p></li></ul></li></ul>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "- parent\n  - child")
}

func TestConvertTable(t *testing.T) {
	htmlStr := message("assistant",
		`<table><tbody><tr><th>Name</th><th>Age</th></tr><tr><td>Ada</td><td>36</td></tr></tbody></table>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "| Name | Age |")
	assert.Contains(t, result, "| --- | --- |")
	assert.Contains(t, result, "| Ada | 36 |")
}

func TestConvertAnchor(t *testing.T) {
	htmlStr := message("assistant", `<p>see <a href="https://example.com">the docs</a></p>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "[the docs](https://example.com)")
}

func TestConvertImageEscapesParentheses(t *testing.T) {
	htmlStr := message("assistant", `<p><img src="https://cdn.example.com/a(1).png" alt="shot"></p>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "![shot](https://cdn.example.com/a%281%29.png)")
}

func TestConvertSkipsExtensionInjectedImages(t *testing.T) {
	htmlStr := message("assistant", `<p>text<img src="chrome-extension://abc/icon.png"></p>`)

	result := convert(t, htmlStr)

	assert.NotContains(t, result, "chrome-extension")
	assert.Contains(t, result, "text")
}

func TestConvertAdjacentImageDedup(t *testing.T) {
	htmlStr := message("assistant",
		`<p><img src="https://x.test/a.png"><img src="https://x.test/a.png"></p>`)

	dedup, err := New(Options{DedupAdjacentImages: true}).ConvertHTML(htmlStr)
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(dedup, "https://x.test/a.png"))

	// Off by default: repeated images are kept.
	plain := convert(t, htmlStr)
	assert.Equal(t, 2, countOccurrences(plain, "https://x.test/a.png"))
}

func TestConvertSkipsHiddenElements(t *testing.T) {
	htmlStr := message("assistant",
		`<p>visible</p><p hidden>gone</p><p style="display: none">also gone</p>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "visible")
	assert.NotContains(t, result, "gone")
}

func TestConvertSkipsThinkingIndicators(t *testing.T) {
	htmlStr := message("assistant",
		`<div>Thinking...</div><div>Thinking time: 12s</div><div>思考時間: 12秒</div><p>answer</p>`)

	result := convert(t, htmlStr)

	assert.NotContains(t, result, "Thinking")
	assert.NotContains(t, result, "思考時間")
	assert.Contains(t, result, "answer")
}

func TestConvertInlineMath(t *testing.T) {
	htmlStr := message("assistant",
		`<p>formula <span class="katex"><math><semantics><annotation encoding="application/x-tex">x^2</annotation></semantics></math></span></p>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "formula $x^2$")
}

func TestConvertDisplayMath(t *testing.T) {
	htmlStr := message("assistant",
		`<div class="katex-display"><span class="katex"><math><semantics><annotation encoding="application/x-tex">\int_0^1 x</annotation></semantics></math></span></div>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "$$\n\\int_0^1 x\n$$")
}

func TestConvertBlockquote(t *testing.T) {
	htmlStr := message("assistant", `<blockquote><p>first line</p><p>second line</p></blockquote>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "> first line\n> second line")
}

func TestConvertStrikethrough(t *testing.T) {
	htmlStr := message("assistant", `<p><del>wrong</del> right</p>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "~~wrong~~ right")
}

func TestConvertEmphasis(t *testing.T) {
	htmlStr := message("assistant", `<p><em>soft</em> and <strong>hard</strong></p>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "*soft* and **hard**")
}

func TestConvertPlainButtonDropped(t *testing.T) {
	htmlStr := message("assistant", `<p>text<button>Copy code</button></p>`)

	result := convert(t, htmlStr)

	assert.NotContains(t, result, "Copy code")
}

func TestConvertButtonWrappingImageKept(t *testing.T) {
	htmlStr := message("assistant", `<p><button><img src="https://x.test/ref.png" alt="ref"></button></p>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "![ref](https://x.test/ref.png)")
}

func TestConvertCollapsesExcessBlankLines(t *testing.T) {
	htmlStr := message("assistant", `<p>one</p><div></div><div></div><p>two</p>`)

	result := convert(t, htmlStr)

	assert.NotContains(t, result, "\n\n\n")
	assert.Contains(t, result, "one\n\ntwo")
}

func TestConvertDropsInterElementWhitespace(t *testing.T) {
	htmlStr := message("assistant", "<ul>\n  <li>item</li>\n</ul>")

	result := convert(t, htmlStr)

	assert.Contains(t, result, "- item")
}

func TestConvertUnknownTagsRecurse(t *testing.T) {
	htmlStr := message("assistant", `<p><mark>highlighted</mark> text</p>`)

	result := convert(t, htmlStr)

	assert.Contains(t, result, "highlighted text")
}

func TestConvertDeterministic(t *testing.T) {
	htmlStr := message("user", "<p>same <strong>input</strong></p>") +
		message("assistant", `<ul><li>same</li><li>output</li></ul>`)

	first := convert(t, htmlStr)
	second := convert(t, htmlStr)

	assert.Equal(t, first, second)
}

func countOccurrences(s, sub string) int {
	return strings.Count(s, sub)
}
