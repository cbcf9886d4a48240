package sanitize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/giantswarm/sitegate/internal/util"
)

// MaxURLLength bounds the URLs the YouTube helpers will parse.
const MaxURLLength = 2048

var youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var youtubeHosts = map[string]bool{
	"youtube.com":     true,
	"www.youtube.com": true,
	"m.youtube.com":   true,
}

const shortHost = "youtu.be"

// ExtractYouTubeID returns the 11-character video ID from a YouTube URL.
//
// The host is matched exactly against the parsed URL's host component, so
// look-alike domains (www.youtube.com.evil.com) and YouTube URLs smuggled into
// another site's path or query are rejected. Accepted shapes:
//
//	https://youtu.be/<id>
//	https://www.youtube.com/watch?v=<id>
//	https://www.youtube.com/embed/<id>
//	https://www.youtube.com/v/<id>
func ExtractYouTubeID(raw string) (string, bool) {
	if len(raw) > MaxURLLength || util.ContainsControl(raw) {
		return "", false
	}

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	// Hostname strips any port and ignores userinfo, so
	// https://youtube.com@evil.com/ resolves to evil.com.
	host := strings.ToLower(u.Hostname())

	var id string
	switch {
	case host == shortHost:
		id = firstSegment(u.Path)
	case youtubeHosts[host]:
		id = youtubePathID(u)
	default:
		return "", false
	}

	if !ValidYouTubeID(id) {
		return "", false
	}
	return id, true
}

// ValidateYouTubeURL reports whether raw is a YouTube URL with a valid video ID.
func ValidateYouTubeURL(raw string) bool {
	_, ok := ExtractYouTubeID(raw)
	return ok
}

// ValidYouTubeID reports whether id has the shape of a YouTube video ID.
func ValidYouTubeID(id string) bool {
	return youtubeIDPattern.MatchString(id)
}

// YouTubeEmbedURL returns the privacy-enhanced embed URL for id, or "" when id
// is not a valid video ID.
func YouTubeEmbedURL(id string) string {
	if !ValidYouTubeID(id) {
		return ""
	}
	return "https://www.youtube-nocookie.com/embed/" + id + "?controls=0&rel=0&modestbranding=1"
}

// YouTubeThumbnailURL returns the high-quality thumbnail URL for id, or "".
func YouTubeThumbnailURL(id string) string {
	if !ValidYouTubeID(id) {
		return ""
	}
	return "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"
}

// YouTubeWatchURL returns the canonical watch URL for id, or "".
func YouTubeWatchURL(id string) string {
	if !ValidYouTubeID(id) {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + id
}

func youtubePathID(u *url.URL) string {
	path := u.Path
	switch {
	case path == "/watch":
		return u.Query().Get("v")
	case strings.HasPrefix(path, "/embed/"):
		return firstSegment(strings.TrimPrefix(path, "/embed"))
	case strings.HasPrefix(path, "/v/"):
		return firstSegment(strings.TrimPrefix(path, "/v"))
	default:
		return ""
	}
}

// firstSegment returns the first non-empty path segment of p.
func firstSegment(p string) string {
	p = strings.TrimPrefix(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}
