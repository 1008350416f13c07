package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Luismorlan/honeybee/model"
	"github.com/pkg/errors"
)

const (
	// ArticlesKey is the fixed key of the corpus record.
	ArticlesKey = "articles"
)

// Client is the collection pipeline's view of the cache: one record holding
// {articles, lastUpdated}. Staleness policy is not decided here.
type Client struct {
	store Store
	key   string
	now   func() time.Time
}

func NewClient(store Store) *Client {
	return &Client{store: store, key: ArticlesKey, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

func (c *Client) readSnapshot(ctx context.Context) (*model.CorpusSnapshot, error) {
	raw, found, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	var snapshot model.CorpusSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, errors.Wrap(err, "cached corpus is not readable")
	}
	return &snapshot, nil
}

// GetCachedArticles returns the cached corpus, or an empty slice when there is
// none.
func (c *Client) GetCachedArticles(ctx context.Context) ([]model.Article, error) {
	snapshot, err := c.readSnapshot(ctx)
	if err != nil {
		return []model.Article{}, err
	}
	if snapshot == nil || snapshot.Articles == nil {
		return []model.Article{}, nil
	}
	return snapshot.Articles, nil
}

// SetCachedArticles replaces the record wholesale and stamps it with now.
func (c *Client) SetCachedArticles(ctx context.Context, articles []model.Article) error {
	if articles == nil {
		articles = []model.Article{}
	}
	payload, err := json.Marshal(model.CorpusSnapshot{
		Articles:    articles,
		LastUpdated: c.now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "fail to serialize corpus")
	}
	return c.store.Set(ctx, c.key, payload)
}

func (c *Client) ClearCache(ctx context.Context) error {
	return c.store.Delete(ctx, c.key)
}

// GetCacheInfo reports when the cache was written and how many hours ago.
func (c *Client) GetCacheInfo(ctx context.Context) (model.CacheInfo, error) {
	snapshot, err := c.readSnapshot(ctx)
	if err != nil {
		return model.CacheInfo{}, err
	}
	if snapshot == nil {
		return model.CacheInfo{}, nil
	}
	lastUpdated := snapshot.LastUpdated
	return model.CacheInfo{
		Present:          true,
		LastUpdated:      &lastUpdated,
		HoursSinceUpdate: c.now().Sub(lastUpdated).Hours(),
		ArticleCount:     len(snapshot.Articles),
	}, nil
}
