// Package projects discovers project workspaces in the host page's sidebar
// so an export can be scoped to one project's conversation list.
package projects

import (
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/chat-exporter/internal/types"
)

var projectHrefRe = regexp.MustCompile(`/g/([^/]+)/project`)

// ParseProjects extracts project entries from document markup. The name is
// taken from the link's truncated label element when present, otherwise
// from the link text, otherwise the ID stands in.
func ParseProjects(htmlStr string) ([]types.ProjectEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var entries []types.ProjectEntry

	doc.Find(`a[href*="/project"]`).Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		m := projectHrefRe.FindStringSubmatch(href)
		if m == nil || seen[m[1]] {
			return
		}
		seen[m[1]] = true

		name := strings.TrimSpace(s.Find(".truncate").First().Text())
		if name == "" {
			name = strings.TrimSpace(s.Text())
		}
		if name == "" {
			name = m[1]
		}
		entries = append(entries, types.ProjectEntry{ID: m[1], Name: name})
	})

	return entries, nil
}

// Feed accumulates discovered projects across repeated page scans and
// notifies subscribers of new ones. Scans overlap (the sidebar re-renders
// constantly), so entries are deduplicated by ID.
type Feed struct {
	mu          sync.Mutex
	seen        map[string]types.ProjectEntry
	order       []string
	subscribers []func(types.ProjectEntry)
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{seen: make(map[string]types.ProjectEntry)}
}

// Subscribe registers a callback for newly discovered projects. Already
// known entries are replayed immediately so late subscribers miss nothing.
func (f *Feed) Subscribe(fn func(types.ProjectEntry)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribers = append(f.subscribers, fn)
	for _, id := range f.order {
		fn(f.seen[id])
	}
}

// Publish records an entry, notifying subscribers if it is new.
func (f *Feed) Publish(entry types.ProjectEntry) {
	if entry.ID == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.seen[entry.ID]; ok {
		return
	}
	f.seen[entry.ID] = entry
	f.order = append(f.order, entry.ID)
	for _, fn := range f.subscribers {
		fn(entry)
	}
}

// ScanDocument parses the markup and publishes every project found.
func (f *Feed) ScanDocument(htmlStr string) error {
	entries, err := ParseProjects(htmlStr)
	if err != nil {
		return err
	}
	for _, e := range entries {
		f.Publish(e)
	}
	return nil
}

// GetAll returns the known projects in discovery order.
func (f *Feed) GetAll() []types.ProjectEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.ProjectEntry, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.seen[id])
	}
	return out
}
