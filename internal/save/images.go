package save

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// imagePattern matches standard Markdown image syntax ![alt](url).
var imagePattern = regexp.MustCompile(`!\[(.*?)\]\((.+?)\)`)

// ephemeralParams are short-lived signing/resizing query parameters the
// host's CDN appends to image URLs. They must be stripped for fetches to
// succeed outside the authenticated page context.
var ephemeralParams = []string{"u", "h", "c", "p"}

// localImagePrefix marks an already-externalized reference; re-running a
// save over rewritten content performs no further fetches.
const localImagePrefix = "images/"

// externalizeImages writes every embedded image to the images/
// subdirectory and rewrites the Markdown to reference the local relative
// path. One image failing never aborts the others; the reference is left
// as-is and the failure is logged.
func (s *Saver) externalizeImages(ctx context.Context, dir Dir, markdown, filename string) string {
	matches := imagePattern.FindAllStringSubmatch(markdown, -1)
	if len(matches) == 0 {
		return markdown
	}

	baseName := strings.TrimSuffix(filename, Extension)
	var imagesDir Dir
	count := 0

	for _, m := range matches {
		full, alt, rawURL := m[0], m[1], m[2]
		if strings.HasPrefix(rawURL, localImagePrefix) {
			continue
		}

		if imagesDir == nil {
			sub, err := dir.Sub("images")
			if err != nil {
				s.log.Error().Err(err).Msg("could not create images directory")
				return markdown
			}
			imagesDir = sub
		}

		cleaned := cleanImageURL(rawURL)
		data, contentType, err := s.fetcher.Fetch(ctx, cleaned)
		if err != nil {
			s.log.Warn().Err(err).Msg("image fetch failed, leaving reference inline")
			continue
		}

		imgName := fmt.Sprintf("%s_img%d.%s", baseName, count, imageExtension(rawURL, contentType))
		if err := imagesDir.WriteFile(imgName, data); err != nil {
			s.log.Warn().Err(err).Str("image", imgName).Msg("image write failed")
			continue
		}

		markdown = strings.Replace(markdown, full, "!["+alt+"]("+localImagePrefix+imgName+")", 1)
		count++
	}
	return markdown
}

// cleanImageURL strips the ephemeral query parameters from a remote URL.
// URLs that do not parse (data URIs) are returned unchanged.
func cleanImageURL(raw string) string {
	if strings.HasPrefix(raw, "data:") {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	query := parsed.Query()
	for _, param := range ephemeralParams {
		query.Del(param)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// imageExtension derives a file extension from the URL or the MIME hint,
// defaulting to png.
func imageExtension(rawURL, contentType string) string {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, ".jpg"), strings.Contains(lower, ".jpeg"),
		strings.HasPrefix(lower, "data:image/jpeg"):
		return "jpg"
	case strings.Contains(lower, ".webp"), strings.HasPrefix(lower, "data:image/webp"):
		return "webp"
	case strings.Contains(lower, ".gif"), strings.HasPrefix(lower, "data:image/gif"):
		return "gif"
	}
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	}
	return "png"
}
