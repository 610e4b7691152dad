package genclient

import (
	"net/url"
	"strings"
)

// ResolveVideoURL turns the video_url reported by the service into a
// locator the caller can fetch. Backslashes from Windows render hosts are
// normalized, absolute URLs are kept and relative ones are appended to base.
func ResolveVideoURL(base, videoURL string) string {
	videoURL = strings.TrimSpace(strings.ReplaceAll(videoURL, "\\", "/"))
	if videoURL == "" {
		return ""
	}
	if u, err := url.Parse(videoURL); err == nil && u.IsAbs() {
		return videoURL
	}
	base = strings.TrimRight(base, "/")
	if base == "" {
		return videoURL
	}
	if !strings.HasPrefix(videoURL, "/") {
		videoURL = "/" + videoURL
	}
	return base + videoURL
}
