// Package thumbnail picks a representative image for a collected item. It
// tries an ordered list of named strategies and takes the first url that
// passes IsValidImageURL.
package thumbnail

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Luismorlan/honeybee/collector"
)

// Input is everything the strategies may look at.
type Input struct {
	Link       string
	BaseURL    string
	ImageURL   string
	Enclosures []collector.Enclosure
	Media      []collector.MediaContent
	Body       string
}

type Strategy struct {
	Name    string
	Extract func(in Input) []string
}

const (
	StrategyEnclosure  = "enclosure"
	StrategyMedia      = "media"
	StrategyBodyImage  = "body-img"
	StrategyCdnPattern = "cdn-pattern"
)

// DefaultStrategies is the extraction order.
var DefaultStrategies = []Strategy{
	{Name: StrategyEnclosure, Extract: FromEnclosure},
	{Name: StrategyMedia, Extract: FromMedia},
	{Name: StrategyBodyImage, Extract: FromBodyImage},
	{Name: StrategyCdnPattern, Extract: FromCdnPattern},
}

// Extract runs DefaultStrategies. It returns "" when nothing usable was found.
func Extract(in Input) (url string, strategy string) {
	return ExtractWith(DefaultStrategies, in)
}

func ExtractWith(strategies []Strategy, in Input) (string, string) {
	for _, s := range strategies {
		for _, candidate := range s.Extract(in) {
			u := NormalizeURL(candidate, in.BaseURL)
			if u != "" && IsValidImageURL(u) {
				return u, s.Name
			}
		}
	}
	return "", ""
}

// FromEnclosure returns image enclosures.
func FromEnclosure(in Input) []string {
	res := []string{}
	for _, e := range in.Enclosures {
		if strings.HasPrefix(strings.ToLower(e.Type), "image/") ||
			(e.Type == "" && hasImageExtension(e.URL)) {
			res = append(res, e.URL)
		}
	}
	return res
}

// FromMedia returns media namespace images, largest declared first, then the
// parser's item image.
func FromMedia(in Input) []string {
	media := make([]collector.MediaContent, 0, len(in.Media))
	for _, m := range in.Media {
		if m.Medium != "" && m.Medium != "image" {
			continue
		}
		if m.Type != "" && !strings.HasPrefix(strings.ToLower(m.Type), "image/") {
			continue
		}
		if (m.Width > 0 && m.Width < MinDimension) || (m.Height > 0 && m.Height < MinDimension) {
			continue
		}
		media = append(media, m)
	}
	// stable insertion sort by area, lists are tiny
	for i := 1; i < len(media); i++ {
		for j := i; j > 0 && media[j].Width*media[j].Height > media[j-1].Width*media[j-1].Height; j-- {
			media[j], media[j-1] = media[j-1], media[j]
		}
	}
	res := []string{}
	for _, m := range media {
		res = append(res, m.URL)
	}
	if in.ImageURL != "" {
		res = append(res, in.ImageURL)
	}
	return res
}

var lazySrcAttrs = []string{"src", "data-src", "data-lazy-src", "data-original"}

// FromBodyImage returns <img> sources of the body in document order, skipping
// images whose width or height attribute is too small.
func FromBodyImage(in Input) []string {
	if strings.TrimSpace(in.Body) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(in.Body))
	if err != nil {
		return nil
	}
	res := []string{}
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if undersized(s.AttrOr("width", ""), s.AttrOr("height", "")) {
			return
		}
		for _, attr := range lazySrcAttrs {
			if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
				res = append(res, v)
				return
			}
		}
	})
	return res
}

var (
	cdnPatterns = []*regexp.Regexp{
		regexp.MustCompile(`https://miro\.medium\.com/[^\s"'<>()]+`),
		regexp.MustCompile(`https://cdn-images-\d\.medium\.com/[^\s"'<>()]+`),
		regexp.MustCompile(`https://velog\.velcdn\.com/images/[^\s"'<>()]+`),
		regexp.MustCompile(`https://blog\.kakaocdn\.net/dn/[^\s"'<>()]+`),
		regexp.MustCompile(`https?://[\w.-]*daumcdn\.net/[^\s"'<>()]+`),
		regexp.MustCompile(`https?://[\w.-]*pstatic\.net/[^\s"'<>()]+`),
		regexp.MustCompile(`https://i\.ytimg\.com/vi/[\w-]+/[\w]+\.jpg`),
	}
	youtubeID = regexp.MustCompile(`(?:youtube\.com/(?:watch\?v=|embed/|shorts/)|youtu\.be/)([\w-]{11})`)
)

// FromCdnPattern finds known image CDN urls anywhere in the body, then
// derives a YouTube thumbnail from the link.
func FromCdnPattern(in Input) []string {
	res := []string{}
	for _, p := range cdnPatterns {
		res = append(res, p.FindAllString(in.Body, -1)...)
	}
	for _, text := range []string{in.Link, in.Body} {
		if m := youtubeID.FindStringSubmatch(text); m != nil {
			res = append(res, "https://i.ytimg.com/vi/"+m[1]+"/hqdefault.jpg")
			break
		}
	}
	return res
}
