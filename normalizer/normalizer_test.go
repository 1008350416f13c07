package normalizer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luismorlan/honeybee/collector"
	"github.com/Luismorlan/honeybee/model"
)

var now = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func tossSource() model.Source {
	return model.Source{
		Platform: model.Platform{ID: "toss", Name: "토스", Type: model.PlatformCorporate, BaseURL: "https://toss.tech", Active: true},
		Method:   model.MethodRss,
		FeedURL:  "https://toss.tech/rss.xml",
	}
}

func TestRssRecordWithoutPubDateFallsBackToNow(t *testing.T) {
	n := New(Options{})
	a, err := n.Normalize(tossSource(), collector.RssRecord{
		Title:       "Kotlin 코루틴 파헤치기",
		Link:        "https://toss.tech/article/coroutine?utm_source=rss#intro",
		Description: "<p>코루틴 <b>이야기</b></p>",
	}, 0, now)
	require.NoError(t, err)

	assert.Equal(t, now, a.PublishedAt)
	assert.True(t, a.PublishedAtFallback)
	assert.Equal(t, now, a.CollectedAt)
	assert.Equal(t, "https://toss.tech/article/coroutine", a.URL)
	assert.Equal(t, "코루틴 이야기", a.Excerpt)
	assert.Equal(t, "토스", a.Author.Name)
	assert.Equal(t, "toss", a.Author.PlatformID)
	assert.Equal(t, model.PlatformRef{ID: "toss", Name: "토스", Type: model.PlatformCorporate}, a.Platform)
	assert.Equal(t, model.ContentTypeArticle, a.ContentType)
	assert.Equal(t, 1, a.ReadingTimeMinutes)
	assert.Nil(t, a.Engagement)
	assert.True(t, strings.HasPrefix(a.ID, "toss-"))
	assert.Len(t, a.ID, len("toss-")+12)
}

func TestRssRecordKeepsReportedDate(t *testing.T) {
	published := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a, err := New(Options{}).Normalize(tossSource(), collector.RssRecord{
		Title:      "Spring Batch 성능 개선",
		Link:       "https://toss.tech/article/batch",
		Published:  &published,
		Categories: []string{"Backend", " spring ", "backend"},
		Author:     "김토스",
	}, 3, now)
	require.NoError(t, err)

	assert.Equal(t, published, a.PublishedAt)
	assert.False(t, a.PublishedAtFallback)
	assert.Equal(t, []string{"backend", "spring"}, a.Tags)
	assert.Equal(t, model.CategoryBackend, a.Category)
	assert.Equal(t, "김토스", a.Author.Name)
}

func TestRssRecordParsesDateText(t *testing.T) {
	a, err := New(Options{}).Normalize(tossSource(), collector.RssRecord{
		Title:         "제목",
		Link:          "https://toss.tech/article/x",
		PublishedText: "2024년 3월 5일",
	}, 0, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), a.PublishedAt)
	assert.False(t, a.PublishedAtFallback)
}

func TestIdsAreStableAndSchemeDependent(t *testing.T) {
	rec := collector.RssRecord{Title: "a", Link: "https://toss.tech/article/a/"}
	first, err := New(Options{}).Normalize(tossSource(), rec, 0, now)
	require.NoError(t, err)
	second, err := New(Options{}).Normalize(tossSource(), rec, 7, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, ArticleID("toss", "https://toss.tech/article/a"), first.ID)

	positional, err := New(Options{IDScheme: IDSchemePositional}).Normalize(tossSource(), rec, 7, now)
	require.NoError(t, err)
	assert.Equal(t, "toss-7", positional.ID)
}

func TestMissingUrlOrTitleIsRejected(t *testing.T) {
	n := New(Options{})
	_, err := n.Normalize(tossSource(), collector.RssRecord{Title: "no link"}, 0, now)
	assert.ErrorIs(t, err, ErrMissingURL)

	_, err = n.Normalize(tossSource(), collector.RssRecord{Link: "https://toss.tech/a", Title: "  "}, 0, now)
	assert.ErrorIs(t, err, ErrMissingTitle)

	_, err = n.Normalize(tossSource(), nil, 0, now)
	assert.ErrorIs(t, err, ErrUnknownRecord)
}

func TestGuidUsedWhenLinkMissing(t *testing.T) {
	a, err := New(Options{}).Normalize(tossSource(), collector.RssRecord{
		Title: "guid only",
		GUID:  "https://toss.tech/article/guid",
	}, 0, now)
	require.NoError(t, err)
	assert.Equal(t, "https://toss.tech/article/guid", a.URL)
}

func TestRssThumbnailFromBody(t *testing.T) {
	a, err := New(Options{}).Normalize(tossSource(), collector.RssRecord{
		Title:   "thumb",
		Link:    "https://toss.tech/article/thumb",
		Content: `<img src="https://cdn.example.com/u/kim-16x16.png" width="16" height="16">` +
			`<p>본문</p><img src="https://cdn.example.com/posts/cover-1200x800.jpg" width="1200" height="800">`,
	}, 0, now)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/posts/cover-1200x800.jpg", a.Thumbnail)
}

func TestVideoSourceGetsVideoDetails(t *testing.T) {
	src := tossSource()
	src.ContentType = model.ContentTypeVideo
	src.ChannelName = "SLASH"
	a, err := New(Options{}).Normalize(src, collector.RssRecord{
		Title: "SLASH 24 세션",
		Link:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	}, 0, now)
	require.NoError(t, err)
	require.NotNil(t, a.Video)
	assert.Equal(t, "SLASH", a.Video.ChannelName)
	assert.Equal(t, "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg", a.Thumbnail)
}

func TestBrowserRecord(t *testing.T) {
	src := model.Source{
		Platform:   model.Platform{ID: "naver-d2", Name: "NAVER D2", Type: model.PlatformCorporate, BaseURL: "https://d2.naver.com", Active: true},
		Method:     model.MethodCrawler,
		ListingURL: "https://d2.naver.com/helloworld",
		Selectors:  &model.SelectorProfile{DateLayout: "2006.01.02"},
	}
	a, err := New(Options{}).Normalize(src, collector.BrowserRecord{
		Title:     "  대규모  트래픽 처리 ",
		Link:      "/helloworld/1234",
		Summary:   "요약",
		DateText:  "2024.03.01",
		ViewsText: "조회수 1.2K",
		LikesText: "35",
	}, 0, now)
	require.NoError(t, err)

	assert.Equal(t, "대규모 트래픽 처리", a.Title)
	assert.Equal(t, "https://d2.naver.com/helloworld/1234", a.URL)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), a.PublishedAt)
	require.NotNil(t, a.Engagement)
	assert.Equal(t, 1200, *a.Engagement.Views)
	assert.Equal(t, 35, *a.Engagement.Likes)
	assert.Nil(t, a.Engagement.Comments)
	assert.False(t, a.Engagement.Synthetic)
}

func TestCourseRecord(t *testing.T) {
	src := model.Source{
		Platform:   model.Platform{ID: "inflearn", Name: "인프런", Type: model.PlatformEducational, BaseURL: "https://www.inflearn.com", Active: true},
		Method:     model.MethodApi,
		ListingURL: "https://www.inflearn.com/courses",
	}
	a, err := New(Options{}).Normalize(src, collector.CourseRecord{
		Title:        "스프링 핵심 원리",
		Link:         "/course/spring-core",
		Instructor:   "김영한",
		PriceText:    "₩88,000 ₩55,000",
		RatingText:   "4.9",
		StudentsText: "12,345명",
		DurationText: "12시간 30분",
	}, 0, now)
	require.NoError(t, err)

	assert.Equal(t, model.ContentTypeLecture, a.ContentType)
	assert.True(t, a.PublishedAtFallback)
	assert.Equal(t, "김영한", a.Author.Name)
	require.NotNil(t, a.Course)
	assert.Equal(t, 55000, *a.Course.Price)
	assert.Equal(t, "KRW", a.Course.Currency)
	assert.Equal(t, 4.9, *a.Course.Rating)
	assert.Equal(t, 12345, *a.Course.StudentCount)
	assert.Equal(t, 750, a.Course.DurationMinutes)
	assert.Equal(t, 1, a.ReadingTimeMinutes)
}

func TestSyntheticMetricsAreDeterministicAndMarked(t *testing.T) {
	n := New(Options{SyntheticMetrics: true})
	rec := collector.RssRecord{Title: "a", Link: "https://toss.tech/article/a"}
	first, err := n.Normalize(tossSource(), rec, 0, now)
	require.NoError(t, err)
	second, err := n.Normalize(tossSource(), rec, 0, now)
	require.NoError(t, err)

	require.NotNil(t, first.Engagement)
	assert.True(t, first.Engagement.Synthetic)
	assert.Equal(t, *first.Engagement.Views, *second.Engagement.Views)
	assert.Equal(t, *first.Engagement.Likes, *second.Engagement.Likes)
	assert.GreaterOrEqual(t, *first.Engagement.Views, *first.Engagement.Likes)
	assert.False(t, first.IsTrending)
}

func TestTrendingNeedsRealRecentViews(t *testing.T) {
	src := model.Source{Platform: model.Platform{ID: "p", BaseURL: "https://p.dev"}}
	a, err := New(Options{}).Normalize(src, collector.BrowserRecord{
		Title: "hot", Link: "/hot", ViewsText: "25,000", DateText: "2일 전",
	}, 0, now)
	require.NoError(t, err)
	assert.True(t, a.IsTrending)

	old, err := New(Options{}).Normalize(src, collector.BrowserRecord{
		Title: "old", Link: "/old", ViewsText: "25,000", DateText: "3개월 전",
	}, 0, now)
	require.NoError(t, err)
	assert.False(t, old.IsTrending)
}
