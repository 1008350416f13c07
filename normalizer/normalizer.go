// Package normalizer turns the raw records adapters produce into canonical
// articles. Defaults, applied when a source does not report a field:
//
//   - author: the platform name, with no author id
//   - published time: the collection time, flagged PublishedAtFallback
//   - category: keyword inference, then the source category, then general
//   - content type: the source content type, else article (lecture for courses)
//   - engagement: nil, or synthetic counters when Options.SyntheticMetrics
//   - thumbnail: first hit of thumbnail.DefaultStrategies, else empty
package normalizer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Luismorlan/honeybee/collector"
	"github.com/Luismorlan/honeybee/collector/thumbnail"
	"github.com/Luismorlan/honeybee/model"
	"github.com/Luismorlan/honeybee/utils"
)

var (
	ErrMissingURL    = errors.New("record has no usable url")
	ErrMissingTitle  = errors.New("record has no title")
	ErrUnknownRecord = errors.New("unknown raw record type")
)

// IDScheme decides how article ids are derived.
type IDScheme string

const (
	// <platform>-<first 12 hex of md5(canonical url)>, stable across runs.
	IDSchemeURL IDScheme = "url"
	// <platform>-<position in the source batch>, only stable while the
	// source keeps its ordering.
	IDSchemePositional IDScheme = "positional"
)

const (
	idHashLength = 12
	// Views at which a recent article is marked trending.
	trendingViews  = 10000
	trendingWindow = 7 * 24 * time.Hour

	syntheticMedianViews = 1200
	syntheticViewsSigma  = 0.9
)

type Options struct {
	IDScheme         IDScheme
	SyntheticMetrics bool
	ExcerptLength    int
}

type Normalizer struct {
	opts Options
}

func New(opts Options) *Normalizer {
	if opts.IDScheme == "" {
		opts.IDScheme = IDSchemeURL
	}
	if opts.ExcerptLength <= 0 {
		opts.ExcerptLength = DefaultExcerptLength
	}
	return &Normalizer{opts: opts}
}

// Normalize converts one raw record of source. position is the record's index
// in its batch. now is the collection time.
func (n *Normalizer) Normalize(source model.Source, record collector.RawRecord, position int, now time.Time) (model.Article, error) {
	var (
		article model.Article
		err     error
	)
	switch r := record.(type) {
	case collector.RssRecord:
		article, err = n.fromRss(source, r, now)
	case collector.BrowserRecord:
		article, err = n.fromBrowser(source, r, now)
	case collector.CourseRecord:
		article, err = n.fromCourse(source, r, now)
	default:
		return model.Article{}, errors.Wrapf(ErrUnknownRecord, "%T", record)
	}
	if err != nil {
		return model.Article{}, errors.Wrapf(err, "source %s item %d", source.ID, position)
	}

	article.ID = n.articleID(source.ID, article.URL, position)
	article.Platform = source.Platform.Ref()
	article.CollectedAt = now
	if article.Author.Name == "" {
		article.Author.Name = source.Name
	}
	article.Author.PlatformID = source.ID
	article.Category = InferCategory(article.Title, article.Tags, source.Category)
	if article.Engagement == nil && n.opts.SyntheticMetrics {
		article.Engagement = SyntheticEngagement(article.URL)
	}
	article.IsTrending = isTrending(article, now)
	return article, nil
}

func (n *Normalizer) articleID(platformID, canonicalURL string, position int) string {
	if n.opts.IDScheme == IDSchemePositional {
		return PositionalID(platformID, position)
	}
	return ArticleID(platformID, canonicalURL)
}

// ArticleID is the url scheme id.
func ArticleID(platformID, canonicalURL string) string {
	hash, _ := utils.TextToMd5Hash(canonicalURL)
	return platformID + "-" + hash[:idHashLength]
}

func PositionalID(platformID string, position int) string {
	return platformID + "-" + strconv.Itoa(position)
}

func (n *Normalizer) fromRss(source model.Source, r collector.RssRecord, now time.Time) (model.Article, error) {
	link := r.Link
	if link == "" && strings.HasPrefix(r.GUID, "http") {
		link = r.GUID
	}
	canon, err := CanonicalURL(link, source.BaseURL)
	if err != nil {
		return model.Article{}, err
	}
	title := collapseSpaces(HtmlToText(r.Title))
	if title == "" {
		return model.Article{}, ErrMissingTitle
	}

	body := r.Content
	if body == "" {
		body = r.Description
	}
	text := HtmlToText(body)
	summary := text
	if r.Description != "" {
		summary = HtmlToText(r.Description)
	}

	article := model.Article{
		Title:              title,
		Content:            text,
		Excerpt:            Excerpt(summary, n.opts.ExcerptLength),
		URL:                canon,
		Author:             model.AuthorRef{Name: strings.TrimSpace(r.Author)},
		Tags:               NormalizeTags(r.Categories),
		ContentType:        contentType(source, model.ContentTypeArticle),
		ReadingTimeMinutes: ReadingTime(text),
	}
	article.PublishedAt, article.PublishedAtFallback = publishedAt(r.Published, r.PublishedText, "", now)
	article.Thumbnail, _ = thumbnail.Extract(thumbnail.Input{
		Link:       canon,
		BaseURL:    source.BaseURL,
		ImageURL:   r.ImageURL,
		Enclosures: r.Enclosures,
		Media:      r.Media,
		Body:       r.Content + r.Description,
	})
	if article.ContentType == model.ContentTypeVideo {
		article.Video = &model.VideoDetails{ChannelName: source.ChannelName}
	}
	return article, nil
}

func (n *Normalizer) fromBrowser(source model.Source, r collector.BrowserRecord, now time.Time) (model.Article, error) {
	base := source.ListingURL
	if base == "" {
		base = source.BaseURL
	}
	canon, err := CanonicalURL(r.Link, base)
	if err != nil {
		return model.Article{}, err
	}
	title := collapseSpaces(r.Title)
	if title == "" {
		return model.Article{}, ErrMissingTitle
	}
	summary := HtmlToText(r.Summary)

	layout := ""
	if source.Selectors != nil {
		layout = source.Selectors.DateLayout
	}
	article := model.Article{
		Title:              title,
		Content:            summary,
		Excerpt:            Excerpt(summary, n.opts.ExcerptLength),
		URL:                canon,
		Author:             model.AuthorRef{Name: collapseSpaces(r.Author)},
		Tags:               NormalizeTags(r.Tags),
		ContentType:        contentType(source, model.ContentTypeArticle),
		ReadingTimeMinutes: ReadingTime(summary),
	}
	article.PublishedAt, article.PublishedAtFallback = publishedAt(nil, r.DateText, layout, now)

	views, hasViews := ParseCount(r.ViewsText)
	likes, hasLikes := ParseCount(r.LikesText)
	if hasViews || hasLikes {
		article.Engagement = &model.Engagement{}
		if hasViews {
			article.Engagement.Views = model.IntPtr(views)
		}
		if hasLikes {
			article.Engagement.Likes = model.IntPtr(likes)
		}
	}

	article.Thumbnail, _ = thumbnail.Extract(thumbnail.Input{
		Link:     canon,
		BaseURL:  base,
		ImageURL: r.Thumbnail,
		Body:     r.HTML,
	})

	if article.ContentType == model.ContentTypeVideo {
		seconds, _ := ParseClockDuration(r.Duration)
		article.Video = &model.VideoDetails{DurationSeconds: seconds, ChannelName: source.ChannelName}
	}
	return article, nil
}

func (n *Normalizer) fromCourse(source model.Source, r collector.CourseRecord, now time.Time) (model.Article, error) {
	base := source.ListingURL
	if base == "" {
		base = source.BaseURL
	}
	canon, err := CanonicalURL(r.Link, base)
	if err != nil {
		return model.Article{}, err
	}
	title := collapseSpaces(r.Title)
	if title == "" {
		return model.Article{}, ErrMissingTitle
	}
	summary := HtmlToText(r.Summary)

	course := &model.CourseDetails{Instructor: collapseSpaces(r.Instructor)}
	if price, currency, ok := ParsePrice(r.PriceText); ok {
		course.Price = model.IntPtr(price)
		course.Currency = currency
	}
	if rating, ok := ParseRating(r.RatingText); ok {
		course.Rating = model.FloatPtr(rating)
	}
	if students, ok := ParseCount(r.StudentsText); ok {
		course.StudentCount = model.IntPtr(students)
	}
	course.DurationMinutes, _ = ParseMinutes(r.DurationText)

	article := model.Article{
		Title:       title,
		Content:     summary,
		Excerpt:     Excerpt(summary, n.opts.ExcerptLength),
		URL:         canon,
		Author:      model.AuthorRef{Name: course.Instructor},
		Tags:        NormalizeTags(r.Tags),
		ContentType: model.ContentTypeLecture,
		Course:      course,
		// Listings carry no publish date.
		PublishedAt:         now,
		PublishedAtFallback: true,
		ReadingTimeMinutes:  ReadingTime(summary),
	}
	article.Thumbnail, _ = thumbnail.Extract(thumbnail.Input{
		Link:     canon,
		BaseURL:  base,
		ImageURL: r.Thumbnail,
	})
	return article, nil
}

func contentType(source model.Source, fallback model.ContentType) model.ContentType {
	if source.ContentType.IsValid() {
		return source.ContentType
	}
	return fallback
}

// publishedAt returns the publish time and whether it fell back to now.
func publishedAt(parsed *time.Time, text, layout string, now time.Time) (time.Time, bool) {
	if parsed != nil && !parsed.IsZero() {
		if t, ok := checkSkew(*parsed, now); ok {
			return t.UTC(), false
		}
	}
	if t, ok := ParseDate(text, layout, now); ok {
		return t.UTC(), false
	}
	return now, true
}

func isTrending(a model.Article, now time.Time) bool {
	if a.Engagement == nil || a.Engagement.Synthetic || a.Engagement.Views == nil {
		return false
	}
	return *a.Engagement.Views >= trendingViews && now.Sub(a.PublishedAt) <= trendingWindow
}

// SyntheticEngagement generates plausible counters seeded by the url, so the
// same article gets the same numbers on every run. Views are log-normal
// around syntheticMedianViews, likes and comments are fractions of them.
func SyntheticEngagement(canonicalURL string) *model.Engagement {
	src := rand.NewSource(utils.StableSeed(canonicalURL))
	views := distuv.LogNormal{Mu: math.Log(syntheticMedianViews), Sigma: syntheticViewsSigma, Src: src}.Rand()
	likeRate := distuv.Uniform{Min: 0.01, Max: 0.06, Src: src}.Rand()
	commentRate := distuv.Uniform{Min: 0.05, Max: 0.2, Src: src}.Rand()

	v := int(math.Round(views))
	l := int(math.Round(views * likeRate))
	c := int(math.Round(float64(l) * commentRate))
	return &model.Engagement{
		Views:     model.IntPtr(v),
		Likes:     model.IntPtr(l),
		Comments:  model.IntPtr(c),
		Synthetic: true,
	}
}
