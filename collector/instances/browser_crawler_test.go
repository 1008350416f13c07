package collector_instances

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luismorlan/honeybee/browser"
	"github.com/Luismorlan/honeybee/collector"
	"github.com/Luismorlan/honeybee/model"
)

const listingHtml = `<html><body>
<ul class="posts">
  <li class="post">
    <a class="post-link" href="/helloworld/1234"><h3>대규모 트래픽 처리</h3></a>
    <p class="desc">캐시 이야기</p>
    <span class="writer">김네이버</span>
    <time datetime="2024-03-01T09:00:00+09:00">3월 1일</time>
    <img src="https://d2.naver.com/content/images/cover-1200x630.png">
    <span class="tag">backend</span><span class="tag">cache</span>
    <span class="views">1,234</span>
  </li>
  <li class="post">
    <a class="post-link" href="/helloworld/5678"><h3>두번째 글</h3></a>
  </li>
  <li class="post">
    <span>링크 없는 카드</span>
  </li>
</ul>
</body></html>`

type fixturePage struct {
	navigateErr error
	html        string
}

func (p *fixturePage) Navigate(ctx context.Context, url string) error     { return p.navigateErr }
func (p *fixturePage) WaitFor(ctx context.Context, selector string) error { return nil }
func (p *fixturePage) Scroll(ctx context.Context, times int) error        { return nil }
func (p *fixturePage) HTML(ctx context.Context) (string, error)           { return p.html, nil }
func (p *fixturePage) Close() error                                       { return nil }

type fixtureInstance struct {
	page   *fixturePage
	closed *int32
}

func (i *fixtureInstance) NewPage(ctx context.Context) (browser.Page, error) { return i.page, nil }
func (i *fixtureInstance) Close() error {
	atomic.AddInt32(i.closed, 1)
	return nil
}

type fixtureLauncher struct {
	page   *fixturePage
	closed int32
}

func (l *fixtureLauncher) Launch(ctx context.Context) (browser.Instance, error) {
	return &fixtureInstance{page: l.page, closed: &l.closed}, nil
}

func naverSource() model.Source {
	return model.Source{
		Platform:   model.Platform{ID: "naver-d2", Name: "NAVER D2", BaseURL: "https://d2.naver.com", Active: true},
		Method:     model.MethodCrawler,
		ListingURL: "https://d2.naver.com/helloworld",
		Selectors: &model.SelectorProfile{
			Item:    "li.post",
			Title:   "h3",
			Link:    "a.post-link",
			Summary: ".desc",
			Author:  ".writer",
			Date:    "time",
			Tags:    ".tag",
			Views:   ".views",
		},
	}
}

func TestBrowserCrawlerCollect(t *testing.T) {
	l := &fixtureLauncher{page: &fixturePage{html: listingHtml}}
	pool := browser.NewPool(l, browser.PoolConfig{MaxInstances: 1})
	defer pool.Shutdown()

	records, err := NewBrowserCrawler(pool).Collect(context.Background(), naverSource(), 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0].(collector.BrowserRecord)
	assert.Equal(t, "대규모 트래픽 처리", first.Title)
	assert.Equal(t, "/helloworld/1234", first.Link)
	assert.Equal(t, "캐시 이야기", first.Summary)
	assert.Equal(t, "김네이버", first.Author)
	assert.Equal(t, "2024-03-01T09:00:00+09:00", first.DateText)
	assert.Equal(t, "https://d2.naver.com/content/images/cover-1200x630.png", first.Thumbnail)
	assert.Equal(t, []string{"backend", "cache"}, first.Tags)
	assert.Equal(t, "1,234", first.ViewsText)
	assert.Contains(t, first.HTML, "post-link")

	// released back to the pool
	assert.Equal(t, browser.Status{Idle: 1, Live: 1, Max: 1}, pool.Status())
}

func TestBrowserCrawlerNavigationFailureDiscardsInstance(t *testing.T) {
	l := &fixtureLauncher{page: &fixturePage{navigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}}
	pool := browser.NewPool(l, browser.PoolConfig{MaxInstances: 1})
	defer pool.Shutdown()

	_, err := NewBrowserCrawler(pool).Collect(context.Background(), naverSource(), 0)
	assert.ErrorIs(t, err, collector.ErrSourceUnreachable)
	assert.Equal(t, 0, pool.Status().Live)
	assert.Equal(t, int32(1), atomic.LoadInt32(&l.closed))
}

func TestBrowserCrawlerMisconfigured(t *testing.T) {
	pool := browser.NewPool(&fixtureLauncher{page: &fixturePage{}}, browser.PoolConfig{MaxInstances: 1})
	defer pool.Shutdown()

	src := naverSource()
	src.Selectors = nil
	_, err := NewBrowserCrawler(pool).Collect(context.Background(), src, 0)
	assert.ErrorIs(t, err, collector.ErrSourceMisconfig)
	assert.Equal(t, 0, pool.Status().Live)
}

func TestBrowserCrawlerPoolClosed(t *testing.T) {
	pool := browser.NewPool(&fixtureLauncher{page: &fixturePage{html: listingHtml}}, browser.PoolConfig{MaxInstances: 1})
	pool.Shutdown()

	_, err := NewBrowserCrawler(pool).Collect(context.Background(), naverSource(), 0)
	assert.ErrorIs(t, err, browser.ErrPoolClosed)
}

func TestParseListingLimitAndEmpty(t *testing.T) {
	b := BrowserCrawler{}
	records, err := b.ParseListing(naverSource(), "https://d2.naver.com/helloworld", listingHtml, 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = b.ParseListing(naverSource(), "https://d2.naver.com/helloworld", "<html><body></body></html>", 0)
	assert.ErrorIs(t, err, collector.ErrSourceEmpty)
}
