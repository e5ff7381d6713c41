// Package types provides type definitions for structured data used throughout the chat-exporter system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// ConversationRef identifies one discoverable conversation in the host
// page's conversation list. The ID is the final path segment of the href;
// refs are deduplicated by ID during collection.
type ConversationRef struct {
	ID    string `json:"id"`
	Href  string `json:"href"`
	Title string `json:"title"`
}

// FrontmatterData holds the metadata substituted into a front-matter
// template when a converted conversation is written to disk.
type FrontmatterData struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date"` // ISO calendar date, e.g. 2026-08-30
	Time  string `json:"time"` // 24h HHMMSS, colons stripped
}

// ExportResult is one converted conversation awaiting finalization.
// Content is raw Markdown with images still inline (data URIs or remote
// URLs); finalize externalizes them and rewrites the links.
type ExportResult struct {
	Filename    string          `json:"filename"`
	Content     string          `json:"content"`
	Frontmatter FrontmatterData `json:"frontmatter_data"`
}

// Settings holds the user-configurable export options. They are captured
// into the run state at export start so a later settings change cannot
// corrupt an in-flight run.
type Settings struct {
	FilenamePattern     string `json:"filename_pattern" validate:"required"`
	FrontmatterTemplate string `json:"frontmatter_template"`
	DefaultTags         string `json:"default_tags"`
}

// ProjectEntry is one selectable export source discovered on the host
// page, e.g. a project workspace holding its own conversation list.
type ProjectEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
