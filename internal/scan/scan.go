// Package scan discovers conversations in the host page's virtualized list
// by scrolling it to the bottom until no new items appear, then harvesting
// the conversation links.
package scan

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/jonathan/chat-exporter/internal/types"
)

// ConversationLinkSelector matches conversation links in the list.
const ConversationLinkSelector = `a[href*="/c/"]`

const (
	// DefaultMaxRounds caps the scroll loop so a page that never
	// stabilizes cannot loop forever.
	DefaultMaxRounds = 40
	// DefaultSettle is the wait after each scroll for the virtualized
	// list to render newly revealed items. Polling with a fixed delay is
	// the only option; the host offers no push notification.
	DefaultSettle = time.Second
	// stableRounds is how many consecutive no-growth scrolls end the loop.
	stableRounds = 3
)

// Scroller drives the live page. The production implementation sits on a
// browser session; tests substitute a fake.
type Scroller interface {
	// ScrollToBottom scrolls the conversation list container to its
	// current bottom and returns the container's scroll height.
	ScrollToBottom(ctx context.Context) (int64, error)
	// OuterHTML captures the current document markup.
	OuterHTML(ctx context.Context) (string, error)
}

// Progress reports link discovery after each scroll round.
type Progress func(round, found int)

// Collector runs the scroll-and-harvest loop.
type Collector struct {
	scroller   Scroller
	settle     time.Duration
	maxRounds  int
	onProgress Progress
	log        zerolog.Logger
}

// NewCollector creates a Collector with the default scroll budget.
func NewCollector(scroller Scroller, log zerolog.Logger) *Collector {
	return &Collector{
		scroller:  scroller,
		settle:    DefaultSettle,
		maxRounds: DefaultMaxRounds,
		log:       log,
	}
}

// WithSettle overrides the post-scroll settle delay.
func (c *Collector) WithSettle(d time.Duration) *Collector {
	c.settle = d
	return c
}

// WithMaxRounds overrides the scroll budget.
func (c *Collector) WithMaxRounds(n int) *Collector {
	c.maxRounds = n
	return c
}

// WithProgress registers a progress callback.
func (c *Collector) WithProgress(fn Progress) *Collector {
	c.onProgress = fn
	return c
}

// Collect scrolls the list until it stops growing (or the budget runs
// out), then returns the discovered conversations deduplicated by ID in
// first-seen order.
func (c *Collector) Collect(ctx context.Context) ([]types.ConversationRef, error) {
	var prevHeight int64
	noGrowth := 0

	for round := 0; round < c.maxRounds; round++ {
		height, err := c.scroller.ScrollToBottom(ctx)
		if err != nil {
			// No scrollable container; harvest whatever is visible.
			c.log.Debug().Err(err).Msg("scroll unavailable, harvesting visible links only")
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.settle):
		}

		if c.onProgress != nil {
			if html, err := c.scroller.OuterHTML(ctx); err == nil {
				refs, _ := HarvestLinks(html)
				c.onProgress(round+1, len(refs))
			}
		}

		if height == prevHeight {
			noGrowth++
			if noGrowth >= stableRounds {
				break
			}
		} else {
			noGrowth = 0
		}
		prevHeight = height
	}

	html, err := c.scroller.OuterHTML(ctx)
	if err != nil {
		return nil, err
	}
	refs, err := HarvestLinks(html)
	if err != nil {
		return nil, err
	}
	c.log.Info().Int("conversations", len(refs)).Msg("scan complete")
	return refs, nil
}

// HarvestLinks extracts conversation references from the document markup:
// the ID is the href's final path segment, the title the first line of the
// link's visible text. Duplicates (virtualized lists repeat items) are
// dropped by ID, preserving first-seen order.
func HarvestLinks(htmlStr string) ([]types.ConversationRef, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var refs []types.ConversationRef

	doc.Find(ConversationLinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		id := lastPathSegment(href)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true

		title := firstLine(strings.TrimSpace(s.Text()))
		if title == "" {
			title = strings.TrimSpace(s.AttrOr("aria-label", ""))
		}
		if title == "" {
			title = "Untitled"
		}

		refs = append(refs, types.ConversationRef{ID: id, Href: href, Title: title})
	})

	return refs, nil
}

func lastPathSegment(href string) string {
	path := href
	if parsed, err := url.Parse(href); err == nil {
		path = parsed.Path
	}
	path = strings.TrimSuffix(path, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}
