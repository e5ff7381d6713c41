package projects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/chat-exporter/internal/types"
)

func TestParseProjects(t *testing.T) {
	html := `<nav>
		<a href="/g/p-alpha/project"><div class="truncate">Alpha Project</div></a>
		<a href="/g/p-beta/project">Beta</a>
		<a href="/g/p-alpha/project"><div class="truncate">Alpha duplicate</div></a>
		<a href="/c/conv-1">Not a project</a>
		<a href="/g/p-gamma/project"></a>
	</nav>`

	entries, err := ParseProjects(html)
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, types.ProjectEntry{ID: "p-alpha", Name: "Alpha Project"}, entries[0])
	assert.Equal(t, types.ProjectEntry{ID: "p-beta", Name: "Beta"}, entries[1])
	assert.Equal(t, types.ProjectEntry{ID: "p-gamma", Name: "p-gamma"}, entries[2], "ID stands in for a missing name")
}

func TestFeedDeduplicatesAcrossScans(t *testing.T) {
	feed := NewFeed()

	var published []string
	feed.Subscribe(func(e types.ProjectEntry) {
		published = append(published, e.ID)
	})

	require.NoError(t, feed.ScanDocument(`<a href="/g/one/project">One</a>`))
	require.NoError(t, feed.ScanDocument(`<a href="/g/one/project">One</a><a href="/g/two/project">Two</a>`))

	assert.Equal(t, []string{"one", "two"}, published)
	require.Len(t, feed.GetAll(), 2)
	assert.Equal(t, "one", feed.GetAll()[0].ID)
}

func TestFeedReplaysToLateSubscribers(t *testing.T) {
	feed := NewFeed()
	feed.Publish(types.ProjectEntry{ID: "early", Name: "Early"})

	var seen []string
	feed.Subscribe(func(e types.ProjectEntry) {
		seen = append(seen, e.ID)
	})

	assert.Equal(t, []string{"early"}, seen)
}

func TestFeedIgnoresEmptyID(t *testing.T) {
	feed := NewFeed()
	feed.Publish(types.ProjectEntry{Name: "nameless"})
	assert.Empty(t, feed.GetAll())
}
