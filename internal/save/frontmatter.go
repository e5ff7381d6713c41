package save

import (
	"regexp"
	"strings"

	"github.com/jonathan/chat-exporter/internal/types"
)

var (
	// Bullet items require whitespace after the dash so a closing ---
	// delimiter line is never mistaken for a list entry.
	tagsListPattern   = regexp.MustCompile(`tags:\s*(\n[ \t]*-[ \t]+.*)+`)
	tagsInlinePattern = regexp.MustCompile(`(?m)^tags:.*$`)
)

// substitute resolves the closed set of template variables in a single
// pass, which keeps substitution idempotent and order-independent.
func substitute(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// RenderFrontmatter fills the front-matter template with the file's
// metadata. Tags come from the defaultTags setting: substituted with the same
// variables, comma-split, trimmed, and rendered as a bracketed list. A
// template that never mentions {tags} still receives them when tag values
// exist (see injectTagsKey).
func RenderFrontmatter(template, defaultTags, folder string, meta types.FrontmatterData) string {
	vars := map[string]string{
		"folder": folder,
		"title":  meta.Title,
		"url":    meta.URL,
		"date":   meta.Date,
		"time":   meta.Time,
	}

	tags := splitTags(substitute(defaultTags, vars))

	active := template
	if !strings.Contains(active, "{tags}") && len(tags) > 0 {
		active = injectTagsKey(active)
	}

	vars["tags"] = "[" + strings.Join(tags, ", ") + "]"
	return substitute(active, vars)
}

func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// injectTagsKey rewrites a template that lacks a {tags} placeholder so tag
// values are not silently dropped: an existing tags: key (inline scalar or
// YAML bullet list) is replaced, otherwise the key is inserted before the
// final delimiter line, or appended when no delimiter exists.
func injectTagsKey(template string) string {
	if tagsListPattern.MatchString(template) {
		return tagsListPattern.ReplaceAllString(template, "tags: {tags}")
	}
	if tagsInlinePattern.MatchString(template) {
		return tagsInlinePattern.ReplaceAllString(template, "tags: {tags}")
	}
	if last := strings.LastIndex(template, "---"); last > 3 {
		return template[:last] + "tags: {tags}\n" + template[last:]
	}
	return template + "\ntags: {tags}"
}
