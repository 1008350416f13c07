package validation

import (
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Luismorlan/honeybee/model"
)

// Publish times further ahead than this are rejected.
const maxFutureSkew = 24 * time.Hour

// Validate an article before it enters the corpus.
// Validators run in order, the first failure is returned. An invalid article
// must not be merged.
func ValidateArticle(source model.Source, article *model.Article, now time.Time) error {
	validators := []func(model.Source, *model.Article, time.Time) error{
		articleFieldValidation,
		articleTimeValidation,
		crossSourceArticleValidation,
	}

	for _, v := range validators {
		if err := v(source, article, now); err != nil {
			return errors.Wrapf(err, "article %q of %s", article.URL, source.ID)
		}
	}
	return nil
}

// Article fields are set correctly. This type of validation only looks at
// the article itself. It's a stateless validation.
func articleFieldValidation(_ model.Source, article *model.Article, _ time.Time) error {
	fieldValidators := []func(*model.Article) error{
		validateArticleIdentity,
		validateArticleTaxonomy,
		validateArticleDetails,
	}
	for _, v := range fieldValidators {
		if err := v(article); err != nil {
			return err
		}
	}
	return nil
}

// An article is identifiable iff:
// - It has an id
// - It has a title
// - Its url is absolute http(s)
func validateArticleIdentity(article *model.Article) error {
	if article.ID == "" {
		return errors.New("article must have an id")
	}
	if strings.TrimSpace(article.Title) == "" {
		return errors.New("article must have a title")
	}
	u, err := url.Parse(article.URL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("article url must be absolute http(s)")
	}
	return nil
}

func validateArticleTaxonomy(article *model.Article) error {
	if !article.Category.IsValid() {
		return errors.Errorf("unknown category %q", article.Category)
	}
	if !article.ContentType.IsValid() {
		return errors.Errorf("unknown content type %q", article.ContentType)
	}
	return nil
}

// Detail blocks must match the content type, and counters can't be negative.
func validateArticleDetails(article *model.Article) error {
	if article.Course != nil && article.ContentType != model.ContentTypeLecture {
		return errors.New("only lectures carry course details")
	}
	if article.Video != nil && article.ContentType != model.ContentTypeVideo {
		return errors.New("only videos carry video details")
	}
	if e := article.Engagement; e != nil {
		for _, c := range []*int{e.Views, e.Likes, e.Comments} {
			if c != nil && *c < 0 {
				return errors.New("engagement counters must not be negative")
			}
		}
	}
	if article.ReadingTimeMinutes < 1 {
		return errors.New("reading time must be at least one minute")
	}
	return nil
}

// An article is placed in time iff:
// - It has a publish and a collect time
// - It is not published in the future
func articleTimeValidation(_ model.Source, article *model.Article, now time.Time) error {
	if article.PublishedAt.IsZero() {
		return errors.New("article must have a publish time")
	}
	if article.CollectedAt.IsZero() {
		return errors.New("article must have a collect time")
	}
	if article.PublishedAt.After(now.Add(maxFutureSkew)) {
		return errors.New("article must not be published in the future")
	}
	return nil
}

// The article indeed belongs to the source that collected it.
func crossSourceArticleValidation(source model.Source, article *model.Article, _ time.Time) error {
	if article.Platform.ID != source.ID {
		return errors.Errorf("article platform %s mismatch source %s", article.Platform.ID, source.ID)
	}
	if article.Author.PlatformID != source.ID {
		return errors.New("article author must belong to the source platform")
	}
	if !strings.HasPrefix(article.ID, source.ID+"-") {
		return errors.New("article id must be prefixed with its platform id")
	}
	return nil
}
