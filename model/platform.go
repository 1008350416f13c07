package model

import (
	"time"
)

/*

Platform is a statically configured content provider, for example a company
tech blog, a video channel or a course site.

ID: globally unique, referenced by every article the platform produced
Type: corporate, educational, media, community or personal
Active: operator switch, inactive platforms are skipped entirely
ChannelName: set for multi-channel platforms (several channels under one id)
*/

type Platform struct {
	ID            string       `json:"id" yaml:"id"`
	Name          string       `json:"name" yaml:"name"`
	Type          PlatformType `json:"type" yaml:"type"`
	BaseURL       string       `json:"baseUrl" yaml:"base_url"`
	Active        bool         `json:"active" yaml:"active"`
	LastCrawledAt *time.Time   `json:"lastCrawledAt,omitempty" yaml:"-"`
	ChannelName   string       `json:"channelName,omitempty" yaml:"channel_name"`
}

type PlatformType string

const (
	PlatformCorporate   PlatformType = "corporate"
	PlatformEducational PlatformType = "educational"
	PlatformMedia       PlatformType = "media"
	PlatformCommunity   PlatformType = "community"
	PlatformPersonal    PlatformType = "personal"
)

func (t PlatformType) IsValid() bool {
	switch t {
	case PlatformCorporate, PlatformEducational, PlatformMedia, PlatformCommunity, PlatformPersonal:
		return true
	}
	return false
}

// PlatformRef is the copy of platform identity embedded in each article.
type PlatformRef struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Type        PlatformType `json:"type"`
	ChannelName string       `json:"channelName,omitempty"`
}

func (p Platform) Ref() PlatformRef {
	return PlatformRef{ID: p.ID, Name: p.Name, Type: p.Type, ChannelName: p.ChannelName}
}

type CollectionMethod string

const (
	MethodRss     CollectionMethod = "rss"
	MethodCrawler CollectionMethod = "crawler"
	// Paginated course listings are the only api-style sources.
	MethodApi CollectionMethod = "api"
)

func (m CollectionMethod) IsValid() bool {
	switch m {
	case MethodRss, MethodCrawler, MethodApi:
		return true
	}
	return false
}

// SelectorProfile tells the browser crawler where fields live on a rendered
// listing page. Every selector is relative to Item except Item itself.
type SelectorProfile struct {
	WaitFor     string `yaml:"wait_for"`
	Item        string `yaml:"item"`
	Title       string `yaml:"title"`
	Link        string `yaml:"link"`
	Summary     string `yaml:"summary"`
	Author      string `yaml:"author"`
	Date        string `yaml:"date"`
	DateLayout  string `yaml:"date_layout"`
	Thumbnail   string `yaml:"thumbnail"`
	Tags        string `yaml:"tags"`
	Views       string `yaml:"views"`
	Likes       string `yaml:"likes"`
	Duration    string `yaml:"duration"`
	ScrollTimes int    `yaml:"scroll_times"`
}

// PaginationProfile describes a course listing: which query parameter selects
// the page and where course fields live on each card.
type PaginationProfile struct {
	PageParam   string `yaml:"page_param"`
	FirstPage   int    `yaml:"first_page"`
	MaxPages    int    `yaml:"max_pages"`
	Item        string `yaml:"item"`
	Title       string `yaml:"title"`
	Link        string `yaml:"link"`
	Summary     string `yaml:"summary"`
	Instructor  string `yaml:"instructor"`
	Price       string `yaml:"price"`
	Rating      string `yaml:"rating"`
	Students    string `yaml:"students"`
	Duration    string `yaml:"duration"`
	Thumbnail   string `yaml:"thumbnail"`
	Tags        string `yaml:"tags"`
	PageDelayMs int    `yaml:"page_delay_ms"`
}

/*

Source is one row of the platform table: the platform identity plus how to
collect it. Adding a platform is adding a Source.

Method: which adapter family collects it
FeedURL: rss method
CrawlerID / ListingURL / Selectors: crawler method
ListingURL / Pagination: api (course listing) method
Limit: per-source item cap, 0 means the run default
TimeoutSeconds: per-attempt timeout, 0 means the run default
Retry: extra attempts after the first failure
*/

type Source struct {
	Platform       `yaml:",inline"`
	Method         CollectionMethod   `yaml:"method"`
	FeedURL        string             `yaml:"feed_url"`
	CrawlerID      string             `yaml:"crawler_id"`
	ListingURL     string             `yaml:"listing_url"`
	Selectors      *SelectorProfile   `yaml:"selectors"`
	Pagination     *PaginationProfile `yaml:"pagination"`
	Limit          int                `yaml:"limit"`
	TimeoutSeconds int                `yaml:"timeout_seconds"`
	Retry          int                `yaml:"retry"`
	Category       Category           `yaml:"category"`
	ContentType    ContentType        `yaml:"content_type"`
}

// Target returns the url the adapter starts from.
func (s Source) Target() string {
	switch s.Method {
	case MethodRss:
		return s.FeedURL
	default:
		return s.ListingURL
	}
}

func (s Source) Timeout(fallback time.Duration) time.Duration {
	if s.TimeoutSeconds <= 0 {
		return fallback
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// ActiveSources filters the table down to the sources that should run.
func ActiveSources(sources []Source) []Source {
	res := []Source{}
	for _, s := range sources {
		if s.Active {
			res = append(res, s)
		}
	}
	return res
}
