package model

import (
	"time"
)

/*

Article is the canonical unit of the corpus, every source is normalized into it

ID: deterministic id, see normalizer.IDScheme
URL: canonical url, the identity of an article. The corpus never contains two
	articles with the same URL.
Author: weak author reference (name + platform), see AuthorKey
Platform: the platform that produced the article
Category: one of the fixed taxonomy values
Tags: unordered, lower-cased, de-duplicated
PublishedAt: publish time reported by the source. When the source has none,
	PublishedAt is the collection time and PublishedAtFallback is true.
ContentType: article, video or lecture
Engagement: nil when the source reports nothing. Synthetic counters are marked.
Video / Course: only set when ContentType warrants them
Thumbnail: empty when no strategy found a usable image
ReadingTimeMinutes: derived from content length
*/

type Article struct {
	ID                  string         `json:"id"`
	Title               string         `json:"title"`
	Content             string         `json:"content"`
	Excerpt             string         `json:"excerpt"`
	URL                 string         `json:"url"`
	Author              AuthorRef      `json:"author"`
	Platform            PlatformRef    `json:"platform"`
	Category            Category       `json:"category"`
	Tags                []string       `json:"tags"`
	PublishedAt         time.Time      `json:"publishedAt"`
	PublishedAtFallback bool           `json:"publishedAtFallback,omitempty"`
	CollectedAt         time.Time      `json:"collectedAt"`
	ContentType         ContentType    `json:"contentType"`
	Engagement          *Engagement    `json:"engagement,omitempty"`
	Video               *VideoDetails  `json:"video,omitempty"`
	Course              *CourseDetails `json:"course,omitempty"`
	Thumbnail           string         `json:"thumbnail,omitempty"`
	IsTrending          bool           `json:"isTrending"`
	IsFeatured          bool           `json:"isFeatured"`
	ReadingTimeMinutes  int            `json:"readingTime"`
}

type ContentType string

const (
	ContentTypeArticle ContentType = "article"
	ContentTypeVideo   ContentType = "video"
	ContentTypeLecture ContentType = "lecture"
)

func (c ContentType) IsValid() bool {
	switch c {
	case ContentTypeArticle, ContentTypeVideo, ContentTypeLecture:
		return true
	}
	return false
}

type Category string

const (
	CategoryFrontend Category = "frontend"
	CategoryBackend  Category = "backend"
	CategoryMobile   Category = "mobile"
	CategoryAI       Category = "ai-ml"
	CategoryDevOps   Category = "devops"
	CategoryData     Category = "data"
	CategorySecurity Category = "security"
	CategoryCareer   Category = "career"
	CategoryGeneral  Category = "general"
)

// Categories lists the taxonomy in display order.
var Categories = []Category{
	CategoryFrontend,
	CategoryBackend,
	CategoryMobile,
	CategoryAI,
	CategoryDevOps,
	CategoryData,
	CategorySecurity,
	CategoryCareer,
	CategoryGeneral,
}

func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Engagement counters. A nil counter means the source did not report it.
// Synthetic is true when the numbers were generated rather than collected;
// analytics must not treat them as ground truth.
type Engagement struct {
	Views     *int `json:"views,omitempty"`
	Likes     *int `json:"likes,omitempty"`
	Comments  *int `json:"comments,omitempty"`
	Synthetic bool `json:"synthetic"`
}

type VideoDetails struct {
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	ChannelName     string `json:"channelName,omitempty"`
}

type CourseDetails struct {
	// minor unit of Currency: cents for USD and EUR, won for KRW
	Price           *int     `json:"price,omitempty"`
	Currency        string   `json:"currency,omitempty"`
	Instructor      string   `json:"instructor,omitempty"`
	Rating          *float64 `json:"rating,omitempty"`
	DurationMinutes int      `json:"durationMinutes,omitempty"`
	StudentCount    *int     `json:"studentCount,omitempty"`
}

// IntPtr is a small helper for optional counters.
func IntPtr(v int) *int {
	return &v
}

func FloatPtr(v float64) *float64 {
	return &v
}
