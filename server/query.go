package server

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Luismorlan/honeybee/model"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ArticleQuery filters and pages the corpus. Empty fields match everything.
type ArticleQuery struct {
	Platform    string
	Category    model.Category
	ContentType model.ContentType
	Tag         string
	Text        string
	Limit       int
	Offset      int
	Fresh       bool
}

// ParseArticleQuery reads the listing query string. Malformed values are
// errors, unknown parameters are ignored.
func ParseArticleQuery(values url.Values) (ArticleQuery, error) {
	q := ArticleQuery{
		Platform: strings.TrimSpace(values.Get("platform")),
		Tag:      strings.ToLower(strings.TrimSpace(values.Get("tag"))),
		Text:     strings.ToLower(strings.TrimSpace(values.Get("q"))),
		Limit:    DefaultPageLimit,
	}

	if v := values.Get("category"); v != "" {
		q.Category = model.Category(v)
		if !q.Category.IsValid() {
			return q, errors.Errorf("unknown category %q", v)
		}
	}
	if v := values.Get("type"); v != "" {
		q.ContentType = model.ContentType(v)
		if !q.ContentType.IsValid() {
			return q, errors.Errorf("unknown content type %q", v)
		}
	}

	var err error
	if q.Limit, err = intParam(values, "limit", DefaultPageLimit, 1, MaxPageLimit); err != nil {
		return q, err
	}
	if q.Offset, err = intParam(values, "offset", 0, 0, -1); err != nil {
		return q, err
	}
	if v := values.Get("fresh"); v != "" {
		if q.Fresh, err = strconv.ParseBool(v); err != nil {
			return q, errors.Errorf("fresh must be a boolean, got %q", v)
		}
	}
	return q, nil
}

// intParam parses an integer parameter within [min, max]. A negative max means
// no upper bound.
func intParam(values url.Values, name string, fallback, min, max int) (int, error) {
	raw := values.Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Errorf("%s must be an integer, got %q", name, raw)
	}
	if v < min || (max >= 0 && v > max) {
		if max >= 0 {
			return 0, errors.Errorf("%s must be between %d and %d, got %d", name, min, max, v)
		}
		return 0, errors.Errorf("%s must be at least %d, got %d", name, min, v)
	}
	return v, nil
}

func (q ArticleQuery) Matches(a model.Article) bool {
	if q.Platform != "" && a.Platform.ID != q.Platform {
		return false
	}
	if q.Category != "" && a.Category != q.Category {
		return false
	}
	if q.ContentType != "" && a.ContentType != q.ContentType {
		return false
	}
	if q.Tag != "" && !containsTag(a.Tags, q.Tag) {
		return false
	}
	if q.Text != "" && !matchesText(a, q.Text) {
		return false
	}
	return true
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.ToLower(t) == tag {
			return true
		}
	}
	return false
}

// matchesText is a case-insensitive substring match over title, excerpt and
// tags. text is already lower-cased.
func matchesText(a model.Article, text string) bool {
	if strings.Contains(strings.ToLower(a.Title), text) || strings.Contains(strings.ToLower(a.Excerpt), text) {
		return true
	}
	for _, t := range a.Tags {
		if strings.Contains(strings.ToLower(t), text) {
			return true
		}
	}
	return false
}

// Apply filters articles, keeping corpus order, and returns the requested page
// plus the number of matches.
func (q ArticleQuery) Apply(articles []model.Article) ([]model.Article, int) {
	matched := []model.Article{}
	for _, a := range articles {
		if q.Matches(a) {
			matched = append(matched, a)
		}
	}
	total := len(matched)
	if q.Offset >= total {
		return []model.Article{}, total
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return matched[q.Offset:end], total
}
