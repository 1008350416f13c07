package normalizer

import (
	"math"
	"net/url"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

const (
	DefaultExcerptLength = 200
	wordsPerMinute       = 200
)

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "fbclid", "gclid"}

// CanonicalURL resolves raw against base and strips what does not identify
// the document: fragment, tracking parameters, default ports, trailing slash.
func CanonicalURL(raw, base string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrMissingURL
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(ErrMissingURL, err.Error())
	}
	if !u.IsAbs() {
		if base == "" {
			return "", errors.Wrapf(ErrMissingURL, "relative url %q without base", raw)
		}
		b, err := url.Parse(base)
		if err != nil {
			return "", errors.Wrap(ErrMissingURL, err.Error())
		}
		u = b.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.Wrapf(ErrMissingURL, "unsupported scheme in %q", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Host = strings.TrimSuffix(strings.TrimSuffix(u.Host, ":80"), ":443")
	u.Fragment = ""
	u.RawFragment = ""

	q := u.Query()
	for _, p := range trackingParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()

	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
		u.RawPath = ""
	}
	return u.String(), nil
}

// HtmlToText flattens an html fragment to plain text with collapsed
// whitespace. Plain text input is returned trimmed.
func HtmlToText(html string) string {
	if !strings.Contains(html, "<") {
		return collapseSpaces(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return collapseSpaces(html)
	}
	doc.Find("script, style, noscript").Remove()
	// goquery Text() concatenates blocks without separators
	doc.Find("br, p, div, li, tr, blockquote, pre, h1, h2, h3, h4, h5, h6").AfterHtml("\n")
	return collapseSpaces(doc.Text())
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Excerpt cuts text at n runes on a word boundary when one is close.
func Excerpt(text string, n int) string {
	if n <= 0 {
		n = DefaultExcerptLength
	}
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	cut := n
	for i := n; i > n*4/5; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut])) + "…"
}

// ReadingTime estimates minutes to read text, at least 1.
func ReadingTime(text string) int {
	words := len(strings.Fields(text))
	return int(math.Max(1, math.Ceil(float64(words)/wordsPerMinute)))
}

// NormalizeTags lower-cases, trims, de-duplicates and sorts tags.
func NormalizeTags(raw []string) []string {
	seen := map[string]bool{}
	tags := []string{}
	for _, t := range raw {
		for _, part := range strings.Split(t, ",") {
			tag := strings.ToLower(collapseSpaces(strings.TrimPrefix(strings.TrimSpace(part), "#")))
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}
