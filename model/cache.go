package model

import (
	"time"

	"gorm.io/datatypes"
)

// CorpusSnapshot is the single cached record: the whole corpus plus the time
// it was written. It is always replaced wholesale.
type CorpusSnapshot struct {
	Articles    []Article `json:"articles"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// CacheInfo describes the age of the cached corpus. Present is false when
// nothing was ever written or the cache was cleared.
type CacheInfo struct {
	Present          bool       `json:"present"`
	LastUpdated      *time.Time `json:"lastUpdated,omitempty"`
	HoursSinceUpdate float64    `json:"hoursSinceUpdate"`
	ArticleCount     int        `json:"articleCount"`
}

/*

CacheEntry is the relational form of a cache record, used by the postgres
cache backend.

Key: fixed record key, e.g. "articles"
Payload: serialized CorpusSnapshot
*/

type CacheEntry struct {
	Key       string         `gorm:"primaryKey"`
	Payload   datatypes.JSON
	UpdatedAt time.Time
}

func (CacheEntry) TableName() string {
	return "cache_entries"
}
