package collector

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Luismorlan/honeybee/browser"
	"github.com/Luismorlan/honeybee/model"
)

// Source-level failure classes. Adapters wrap one of these so the orchestrator
// and the monitor can report why a source contributed nothing.
var (
	ErrSourceUnreachable = errors.New("source unreachable")
	ErrSourceTimeout     = errors.New("source timed out")
	ErrSourceParse       = errors.New("source returned unparsable content")
	ErrSourceEmpty       = errors.New("source returned no items")
	ErrSourceMisconfig   = errors.New("source is misconfigured")
)

// SourceAdapter knows how to fetch and parse one family of sources. Collect
// returns at most limit records and must give up when ctx is done.
type SourceAdapter interface {
	Name() string
	Method() model.CollectionMethod
	Collect(ctx context.Context, source model.Source, limit int) ([]RawRecord, error)
}

// RawRecord is the tagged union of what adapters produce. Only the types in
// this package implement it, the normalizer switches over them exhaustively.
type RawRecord interface {
	rawRecord()
}

// Enclosure is a feed-attached media file.
type Enclosure struct {
	URL    string
	Type   string
	Length string
}

// MediaContent is one entry of the media RSS namespace (media:content,
// media:thumbnail).
type MediaContent struct {
	URL    string
	Medium string
	Type   string
	Width  int
	Height int
}

// RssRecord is one feed item.
type RssRecord struct {
	GUID        string
	Title       string
	Link        string
	Description string
	Content     string
	Published   *time.Time
	// Raw date text when the parser could not read it.
	PublishedText string
	Author        string
	Categories    []string
	ImageURL      string
	Enclosures    []Enclosure
	Media         []MediaContent
}

// BrowserRecord is one card scraped from a rendered listing page.
type BrowserRecord struct {
	Title     string
	Link      string
	Summary   string
	Author    string
	DateText  string
	Thumbnail string
	Tags      []string
	ViewsText string
	LikesText string
	Duration  string
	// HTML of the card, used for thumbnail fallbacks.
	HTML string
}

// CourseRecord is one course card of a paginated listing.
type CourseRecord struct {
	Title        string
	Link         string
	Summary      string
	Instructor   string
	PriceText    string
	RatingText   string
	StudentsText string
	DurationText string
	Thumbnail    string
	Tags         []string
	Page         int
}

func (RssRecord) rawRecord()     {}
func (BrowserRecord) rawRecord() {}
func (CourseRecord) rawRecord()  {}

// ClassifyError maps an adapter error onto one of the failure classes.
// Context expiry counts as a timeout.
func ClassifyError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return ErrSourceTimeout
	case errors.Is(err, browser.ErrPoolExhausted):
		return browser.ErrPoolExhausted
	case errors.Is(err, ErrSourceTimeout),
		errors.Is(err, ErrSourceUnreachable),
		errors.Is(err, ErrSourceParse),
		errors.Is(err, ErrSourceEmpty),
		errors.Is(err, ErrSourceMisconfig):
		return errors.Cause(err)
	default:
		return ErrSourceUnreachable
	}
}
