package collector_instances

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luismorlan/honeybee/collector"
	"github.com/Luismorlan/honeybee/collector/clients"
	"github.com/Luismorlan/honeybee/model"
)

const blogFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
  <title>토스 기술 블로그</title>
  <link>https://toss.tech</link>
  <item>
    <title>Kotlin 코루틴 파헤치기</title>
    <link>https://toss.tech/article/coroutine</link>
    <guid>https://toss.tech/article/coroutine</guid>
    <description>&lt;p&gt;코루틴 이야기&lt;/p&gt;</description>
    <pubDate>Fri, 01 Mar 2024 09:00:00 +0900</pubDate>
    <dc:creator>김토스</dc:creator>
    <category>Backend</category>
    <category>Kotlin</category>
    <media:content url="https://static.toss.im/cover.png" medium="image" width="1200" height="630"/>
    <enclosure url="https://static.toss.im/cover-enc.jpg" type="image/jpeg" length="1234"/>
  </item>
  <item>
    <title>날짜 없는 글</title>
    <link>https://toss.tech/article/undated</link>
    <description>본문</description>
  </item>
  <item>
    <title></title>
    <link>https://toss.tech/article/untitled</link>
  </item>
</channel>
</rss>`

const youtubeFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
  <title>토스</title>
  <entry>
    <id>yt:video:dQw4w9WgXcQ</id>
    <title>SLASH 24 - 대규모 트래픽</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=dQw4w9WgXcQ"/>
    <author><name>토스</name></author>
    <published>2024-03-02T10:00:00+00:00</published>
    <media:group>
      <media:title>SLASH 24</media:title>
      <media:thumbnail url="https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg" width="480" height="360"/>
      <media:description>세션 설명</media:description>
    </media:group>
  </entry>
</feed>`

func feedServer(t *testing.T, body string) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func rssSource(feedUrl string) model.Source {
	return model.Source{
		Platform: model.Platform{ID: "toss", Name: "토스", Active: true},
		Method:   model.MethodRss,
		FeedURL:  feedUrl,
	}
}

func TestRssCollectorBlogFeed(t *testing.T) {
	srv := feedServer(t, blogFeed)
	records, err := NewRssCollector(clients.NewDefaultHttpClient()).Collect(context.Background(), rssSource(srv.URL), 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first, ok := records[0].(collector.RssRecord)
	require.True(t, ok)
	assert.Equal(t, "Kotlin 코루틴 파헤치기", first.Title)
	assert.Equal(t, "https://toss.tech/article/coroutine", first.Link)
	assert.Equal(t, "<p>코루틴 이야기</p>", first.Description)
	assert.Equal(t, "김토스", first.Author)
	assert.Equal(t, []string{"Backend", "Kotlin"}, first.Categories)
	require.NotNil(t, first.Published)
	assert.True(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Equal(*first.Published))
	assert.Equal(t, []collector.Enclosure{{URL: "https://static.toss.im/cover-enc.jpg", Type: "image/jpeg", Length: "1234"}}, first.Enclosures)
	assert.Equal(t, []collector.MediaContent{{URL: "https://static.toss.im/cover.png", Medium: "image", Width: 1200, Height: 630}}, first.Media)

	second := records[1].(collector.RssRecord)
	assert.Nil(t, second.Published)
	assert.Equal(t, "", second.PublishedText)
}

func TestRssCollectorLimit(t *testing.T) {
	srv := feedServer(t, blogFeed)
	records, err := NewRssCollector(clients.NewDefaultHttpClient()).Collect(context.Background(), rssSource(srv.URL), 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRssCollectorYoutubeMediaGroup(t *testing.T) {
	srv := feedServer(t, youtubeFeed)
	records, err := NewRssCollector(clients.NewDefaultHttpClient()).Collect(context.Background(), rssSource(srv.URL), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0].(collector.RssRecord)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", r.Link)
	assert.Equal(t, "토스", r.Author)
	assert.Equal(t, "세션 설명", r.Description)
	require.Len(t, r.Media, 1)
	assert.Equal(t, collector.MediaContent{URL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg", Medium: "image", Width: 480, Height: 360}, r.Media[0])
}

func TestRssCollectorFailures(t *testing.T) {
	c := NewRssCollector(clients.NewDefaultHttpClient())

	_, err := c.Collect(context.Background(), rssSource(""), 0)
	assert.ErrorIs(t, err, collector.ErrSourceMisconfig)

	srv := feedServer(t, "this is not a feed")
	_, err = c.Collect(context.Background(), rssSource(srv.URL), 0)
	assert.ErrorIs(t, err, collector.ErrSourceParse)

	empty := feedServer(t, `<rss version="2.0"><channel><title>x</title></channel></rss>`)
	_, err = c.Collect(context.Background(), rssSource(empty.URL), 0)
	assert.ErrorIs(t, err, collector.ErrSourceEmpty)

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()
	_, err = c.Collect(context.Background(), rssSource(down.URL), 0)
	assert.ErrorIs(t, err, collector.ErrSourceUnreachable)
}
