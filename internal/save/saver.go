// Package save writes converted conversations to a user-chosen directory,
// externalizing embedded images and applying front-matter metadata.
package save

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/chat-exporter/internal/types"
)

// SaveOptions configures one file's save.
type SaveOptions struct {
	FrontmatterTemplate string
	DefaultTags         string
	Metadata            types.FrontmatterData
}

// Saver persists Markdown files with their images.
type Saver struct {
	fetcher Fetcher
	log     zerolog.Logger
}

// NewSaver creates a Saver. A nil fetcher falls back to the HTTP fetcher.
func NewSaver(fetcher Fetcher, log zerolog.Logger) *Saver {
	if fetcher == nil {
		fetcher = NewHTTPFetcher()
	}
	return &Saver{fetcher: fetcher, log: log}
}

// SaveMarkdown externalizes images, prepends front matter, and writes the
// file under dir. The steps run strictly in that order: link rewriting has
// to happen before the content is frozen into the final file. Image
// failures degrade (content keeps the inline reference); only a write
// failure that also fails the fallback name is returned as an error.
func (s *Saver) SaveMarkdown(ctx context.Context, dir Dir, filename, content string, opts SaveOptions) error {
	content = s.externalizeImages(ctx, dir, content, filename)

	if strings.TrimSpace(opts.FrontmatterTemplate) != "" {
		content = RenderFrontmatter(opts.FrontmatterTemplate, opts.DefaultTags, dir.Name(), opts.Metadata) + content
	}

	return s.writeWithFallback(dir, filename, content)
}

// writeWithFallback retries a failed write under a generated safe name,
// recording the originally intended filename in a leading comment so the
// content is never silently lost.
func (s *Saver) writeWithFallback(dir Dir, filename, content string) error {
	err := dir.WriteFile(filename, []byte(content))
	if err == nil {
		return nil
	}
	s.log.Warn().Err(err).Str("filename", filename).Msg("write failed, retrying with fallback name")

	// Clean up a partial entry before the retry; failure here is fine.
	if rmErr := dir.Remove(filename); rmErr != nil {
		s.log.Debug().Err(rmErr).Str("filename", filename).Msg("cleanup of failed write skipped")
	}

	fallback := fmt.Sprintf("backup_%d%s", time.Now().UnixMilli(), Extension)
	backup := "<!-- Original Filename: " + filename + " -->\n" + content
	if err := dir.WriteFile(fallback, []byte(backup)); err != nil {
		return fmt.Errorf("write failed for %s and fallback %s: %w", filename, fallback, err)
	}
	s.log.Info().Str("filename", filename).Str("fallback", fallback).Msg("saved under fallback name")
	return nil
}
