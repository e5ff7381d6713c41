package markdown

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	fencedCodeSpan = regexp.MustCompile("(?s)```.*?```")
	inlineCodeSpan = regexp.MustCompile("`[^`]*`")
)

// normalizeBoldSpacing repairs spacing around **bold** runs emitted flush
// against surrounding inline text. Code is never mutated: fenced blocks and
// inline spans are passed through untouched.
func normalizeBoldSpacing(text string) string {
	return applyOutsideFences(text, fixBoldSpacing)
}

func applyOutsideFences(text string, fn func(string) string) string {
	var b strings.Builder
	last := 0
	for _, m := range fencedCodeSpan.FindAllStringIndex(text, -1) {
		b.WriteString(applyOutsideInlineCode(text[last:m[0]], fn))
		b.WriteString(text[m[0]:m[1]])
		last = m[1]
	}
	b.WriteString(applyOutsideInlineCode(text[last:], fn))
	return b.String()
}

func applyOutsideInlineCode(text string, fn func(string) string) string {
	var b strings.Builder
	last := 0
	for _, m := range inlineCodeSpan.FindAllStringIndex(text, -1) {
		b.WriteString(fn(text[last:m[0]]))
		b.WriteString(text[m[0]:m[1]])
		last = m[1]
	}
	b.WriteString(fn(text[last:]))
	return b.String()
}

// fixBoldSpacing inserts a space before an opening ** whose preceding
// character is alphanumeric, and after a closing ** whose following
// character is alphanumeric.
func fixBoldSpacing(text string) string {
	out := make([]byte, 0, len(text))
	i := 0
	for i < len(text) {
		if i+1 < len(text) && text[i] == '*' && text[i+1] == '*' {
			rel := strings.Index(text[i+2:], "**")
			if rel == -1 {
				out = append(out, text[i:]...)
				break
			}
			end := i + 2 + rel
			prev, _ := utf8.DecodeLastRune(out)
			next, _ := utf8.DecodeRuneInString(text[end+2:])
			if isAlnum(prev) {
				out = append(out, ' ')
			}
			out = append(out, text[i:end+2]...)
			if isAlnum(next) {
				out = append(out, ' ')
			}
			i = end + 2
			continue
		}
		out = append(out, text[i])
		i++
	}
	return string(out)
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
