package thumbnail

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// MinDimension is the smallest width or height accepted for a thumbnail.
const MinDimension = 100

var (
	rejectedWords   = regexp.MustCompile(`(?:^|[/_\-.?=&])(?:avatars?|icons?|logos?|favicons?|emojis?|profiles?|badges?|spinner|pixel|spacer|blank\.gif)(?:$|[/_\-.?=&])`)
	rejectedHosts   = []string{"gravatar.com", "feedburner.com", "feeds.feedblitz.com"}
	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".avif": true,
	}
	nonImageExtensions = map[string]bool{
		".svg": true, ".ico": true, ".js": true, ".css": true, ".html": true, ".htm": true,
		".mp4": true, ".mp3": true, ".pdf": true, ".zip": true,
	}
	dimensionInPath = regexp.MustCompile(`(\d{1,4})[xX×](\d{1,4})`)
	sizeParams      = []string{"w", "width", "h", "height", "s", "size", "sz"}
)

// NormalizeURL resolves protocol-relative and relative urls against base and
// returns "" when the result is not http(s).
func NormalizeURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if !u.IsAbs() && base != "" {
		b, err := url.Parse(base)
		if err != nil {
			return ""
		}
		u = b.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// IsValidImageURL rejects urls that look like avatars, icons, logos, tracking
// pixels or undersized images. Urls without an extension are accepted, most
// image CDNs serve without one.
func IsValidImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	for _, h := range rejectedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return false
		}
	}
	if rejectedWords.MatchString(strings.ToLower(u.Path + "?" + u.RawQuery)) {
		return false
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if nonImageExtensions[ext] {
		return false
	}

	for _, m := range dimensionInPath.FindAllStringSubmatch(u.Path, -1) {
		w, _ := strconv.Atoi(m[1])
		h, _ := strconv.Atoi(m[2])
		if w < MinDimension && h < MinDimension {
			return false
		}
	}

	q := u.Query()
	for _, p := range sizeParams {
		if v := q.Get(p); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n < MinDimension {
				return false
			}
		}
	}

	return true
}

// hasImageExtension is used by strategies that scan free text, where an
// extension is the only signal that a url is an image.
func hasImageExtension(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}

// undersized reports whether html width/height attributes say the image is
// too small. Missing or unparsable attributes say nothing.
func undersized(width, height string) bool {
	for _, v := range []string{width, height} {
		v = strings.TrimSuffix(strings.TrimSpace(v), "px")
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < MinDimension {
			return true
		}
	}
	return false
}
