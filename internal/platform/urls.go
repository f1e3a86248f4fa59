package platform

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned for submissions that cannot identify a media page
var ErrInvalidURL = errors.New("invalid media URL")

// URL templates
const (
	YouTubeWatchURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// NormalizeURL validates a submitted URL and rewrites the YouTube short forms
// (youtu.be links and /shorts/ paths) to the canonical watch?v= form. For
// watch URLs only the video id parameter is kept. URLs for other sites pass
// through unchanged.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	host := strings.ToLower(u.Host)

	if strings.Contains(host, "youtu.be") {
		if vid := firstPathSegment(u.Path); vid != "" {
			return fmt.Sprintf(YouTubeWatchURLTemplate, vid), nil
		}
		return raw, nil
	}

	if strings.Contains(host, "youtube.com") {
		if strings.HasPrefix(u.Path, "/shorts/") {
			if vid := secondPathSegment(u.Path); vid != "" {
				return fmt.Sprintf(YouTubeWatchURLTemplate, vid), nil
			}
		}
		if strings.HasPrefix(u.Path, "/watch") {
			if vid := u.Query().Get("v"); vid != "" {
				return fmt.Sprintf(YouTubeWatchURLTemplate, vid), nil
			}
		}
	}

	return raw, nil
}

// IsYouTubeURL reports whether the URL points at YouTube, which gets a
// Referer header and single-fragment downloads to reduce 403 responses.
func IsYouTubeURL(u string) bool {
	return strings.Contains(u, "youtu.be") || strings.Contains(u, "youtube.com")
}

func firstPathSegment(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > 0 {
		return parts[0]
	}
	return ""
}

func secondPathSegment(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > 1 {
		return parts[1]
	}
	return ""
}
