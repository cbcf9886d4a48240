package sanitize

import (
	"strings"
	"unicode"

	"github.com/giantswarm/sitegate/internal/util"
)

var allowedURLSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
	"tel":    true,
}

var allowedImageSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"blob":  true,
}

// IsSafeURL reports whether raw may be used as a link target.
//
// Any control character anywhere rejects the string, since browsers strip
// them while parsing and "java\nscript:" would otherwise slip past a scheme
// check. Relative paths, fragments and query-only references are accepted.
// Absolute URLs are accepted only for http, https, mailto and tel.
func IsSafeURL(raw string) bool {
	if util.ContainsControl(raw) {
		return false
	}
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return false
	}

	scheme, ok := schemeOf(normalized)
	if !ok {
		return true
	}
	if strings.ContainsFunc(scheme, unicode.IsSpace) {
		return false
	}
	return allowedURLSchemes[scheme]
}

// IsSafeImageSrc reports whether raw may be used as an image source.
//
// Relative paths, http, https and blob URLs are accepted, as are data URLs
// with a raster image media type. SVG data URLs are rejected because they can
// carry script.
func IsSafeImageSrc(raw string) bool {
	if util.ContainsControl(raw) {
		return false
	}
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return false
	}

	scheme, ok := schemeOf(normalized)
	if !ok {
		return true
	}
	if scheme == "data" {
		mediaType := strings.TrimPrefix(normalized, "data:")
		if end := strings.IndexAny(mediaType, ";,"); end >= 0 {
			mediaType = mediaType[:end]
		}
		return strings.HasPrefix(mediaType, "image/") && mediaType != "image/svg+xml"
	}
	return allowedImageSchemes[scheme]
}

// schemeOf returns the text before the first colon when that colon comes
// before any '/', '?' or '#'. A colon later in the string belongs to a path,
// query or fragment of a relative reference.
func schemeOf(s string) (string, bool) {
	colon := strings.IndexByte(s, ':')
	if colon < 0 {
		return "", false
	}
	if delim := strings.IndexAny(s, "/?#"); delim >= 0 && delim < colon {
		return "", false
	}
	return s[:colon], true
}
