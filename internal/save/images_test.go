package save

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalizeImagesRewritesReferences(t *testing.T) {
	dir := newFakeDir("exports")
	fetcher := &fakeFetcher{data: []byte("imgbytes"), contentType: "image/png"}
	saver := testSaver(fetcher)

	markdown := "before\n![shot](https://cdn.example.com/file.png?u=sig&w=640)\nafter"
	result := saver.externalizeImages(context.Background(), dir, markdown, "chat.md")

	assert.Contains(t, result, "![shot](images/chat_img0.png)")
	assert.NotContains(t, result, "cdn.example.com")

	images := dir.subs["images"]
	require.NotNil(t, images)
	assert.Equal(t, []byte("imgbytes"), images.files["chat_img0.png"])

	// The ephemeral signing parameter is stripped, other parameters stay.
	require.Len(t, fetcher.requested, 1)
	assert.Equal(t, "https://cdn.example.com/file.png?w=640", fetcher.requested[0])
}

func TestExternalizeImagesNumbersSkipFailures(t *testing.T) {
	dir := newFakeDir("exports")
	fetcher := &flakyFetcher{failOn: 1}
	saver := testSaver(fetcher)

	markdown := "![a](https://x.test/a.png)\n![b](https://x.test/b.png)\n![c](https://x.test/c.png)"
	result := saver.externalizeImages(context.Background(), dir, markdown, "chat.md")

	// The failed fetch leaves its reference inline and does not consume a
	// sequence number.
	assert.Contains(t, result, "![a](images/chat_img0.png)")
	assert.Contains(t, result, "![b](https://x.test/b.png)")
	assert.Contains(t, result, "![c](images/chat_img1.png)")
}

func TestExternalizeImagesIdempotent(t *testing.T) {
	dir := newFakeDir("exports")
	fetcher := &fakeFetcher{data: []byte("x")}
	saver := testSaver(fetcher)

	markdown := "![shot](images/chat_img0.png)"
	result := saver.externalizeImages(context.Background(), dir, markdown, "chat.md")

	assert.Equal(t, markdown, result)
	assert.Empty(t, fetcher.requested, "already-local references must not be fetched again")
}

func TestExternalizeImagesNoImages(t *testing.T) {
	dir := newFakeDir("exports")
	fetcher := &fakeFetcher{}
	saver := testSaver(fetcher)

	result := saver.externalizeImages(context.Background(), dir, "plain text", "chat.md")

	assert.Equal(t, "plain text", result)
	assert.Empty(t, dir.subs)
}

func TestExternalizeImagesContentTypeExtension(t *testing.T) {
	dir := newFakeDir("exports")
	fetcher := &fakeFetcher{data: []byte("j"), contentType: "image/jpeg"}
	saver := testSaver(fetcher)

	result := saver.externalizeImages(context.Background(), dir, "![p](https://x.test/raw)", "chat.md")

	assert.Contains(t, result, "![p](images/chat_img0.jpg)")
}

func TestCleanImageURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Strips ephemeral params", "https://x.test/a.png?u=1&h=2&c=3&p=4", "https://x.test/a.png"},
		{"Keeps other params", "https://x.test/a.png?u=1&size=big", "https://x.test/a.png?size=big"},
		{"No params", "https://x.test/a.png", "https://x.test/a.png"},
		{"Data URI untouched", "data:image/png;base64,aGk=", "data:image/png;base64,aGk="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cleanImageURL(tt.input))
		})
	}
}

func TestImageExtension(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		expected    string
	}{
		{"jpg from URL", "https://x.test/photo.jpg", "", "jpg"},
		{"jpeg from URL", "https://x.test/photo.JPEG?v=1", "", "jpg"},
		{"webp from URL", "https://x.test/a.webp", "", "webp"},
		{"gif from URL", "https://x.test/a.gif", "", "gif"},
		{"jpeg data URI", "data:image/jpeg;base64,xx", "", "jpg"},
		{"content type fallback", "https://x.test/raw", "image/webp", "webp"},
		{"default png", "https://x.test/raw", "application/octet-stream", "png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, imageExtension(tt.url, tt.contentType))
		})
	}
}

// flakyFetcher fails the request at index failOn and succeeds otherwise.
type flakyFetcher struct {
	calls  int
	failOn int
}

func (f *flakyFetcher) Fetch(_ context.Context, _ string) ([]byte, string, error) {
	call := f.calls
	f.calls++
	if call == f.failOn {
		return nil, "", errors.New("upstream 403")
	}
	return []byte("data"), "image/png", nil
}
