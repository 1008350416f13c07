package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luismorlan/honeybee/aggregator"
	"github.com/Luismorlan/honeybee/cache"
	"github.com/Luismorlan/honeybee/model"
	"github.com/Luismorlan/honeybee/monitor"
	"github.com/Luismorlan/honeybee/server/middlewares"
)

const testAdminToken = "s3cret"

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeCorpus struct {
	view    *aggregator.CorpusView
	err     error
	runErr  error
	forced  int
	fresh   int
	courses int
}

func (f *fakeCorpus) GetCorpus(ctx context.Context, forceFresh bool) (*aggregator.CorpusView, error) {
	if forceFresh {
		f.forced++
	}
	return f.view, f.err
}

func (f *fakeCorpus) run(kind string) *aggregator.Result {
	return &aggregator.Result{Report: &model.RunReport{RunID: "run-1", Kind: kind}}
}

func (f *fakeCorpus) CollectFresh(ctx context.Context) (*aggregator.Result, error) {
	f.fresh++
	return f.run(aggregator.RunKindFresh), f.runErr
}

func (f *fakeCorpus) CollectCourses(ctx context.Context) (*aggregator.Result, error) {
	f.courses++
	return f.run(aggregator.RunKindCourses), f.runErr
}

func (f *fakeCorpus) Platforms() []model.Platform {
	return []model.Platform{{ID: "toss", Name: "Toss", Type: model.PlatformCorporate, Active: true}}
}

func testArticles() []model.Article {
	return []model.Article{
		{
			ID:          "toss-1",
			Title:       "Kubernetes at Toss",
			Excerpt:     "how we run clusters",
			URL:         "https://toss.tech/1",
			Platform:    model.PlatformRef{ID: "toss", Name: "Toss"},
			Category:    model.CategoryDevOps,
			Tags:        []string{"kubernetes", "infra"},
			ContentType: model.ContentTypeArticle,
			PublishedAt: now,
			Author:      model.AuthorRef{Name: "kim", PlatformID: "toss"},
		},
		{
			ID:          "kakao-1",
			Title:       "React Server Components",
			Excerpt:     "frontend rendering",
			URL:         "https://tech.kakao.com/1",
			Platform:    model.PlatformRef{ID: "kakao", Name: "Kakao"},
			Category:    model.CategoryFrontend,
			Tags:        []string{"react"},
			ContentType: model.ContentTypeArticle,
			PublishedAt: now.Add(-time.Hour),
			Author:      model.AuthorRef{Name: "park", PlatformID: "kakao"},
		},
		{
			ID:          "inflearn-1",
			Title:       "Go for backend engineers",
			Excerpt:     "a course",
			URL:         "https://www.inflearn.com/course/go",
			Platform:    model.PlatformRef{ID: "inflearn", Name: "Inflearn"},
			Category:    model.CategoryBackend,
			Tags:        []string{"go", "kubernetes"},
			ContentType: model.ContentTypeLecture,
			PublishedAt: now.Add(-2 * time.Hour),
		},
	}
}

type testServer struct {
	router  *gin.Engine
	corpus  *fakeCorpus
	cache   *cache.Client
	store   *cache.MemoryStore
	monitor *monitor.Monitor
}

func newTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)
	corpus := &fakeCorpus{view: &aggregator.CorpusView{Articles: testArticles(), FromCache: true}}
	store := cache.NewMemoryStore()
	cacheClient := cache.NewClient(store)
	mon := monitor.New(10, nil)
	h := NewHandlers(corpus, cacheClient, mon, nil)
	h.now = func() time.Time { return now }
	return &testServer{
		router:  NewRouter(h, "honeybee-test", testAdminToken),
		corpus:  corpus,
		cache:   cacheClient,
		store:   store,
		monitor: mon,
	}
}

func (s *testServer) do(t *testing.T, method, path string, header http.Header) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w, body
}

func articleIDs(body map[string]interface{}) []string {
	ids := []string{}
	for _, a := range body["articles"].([]interface{}) {
		ids = append(ids, a.(map[string]interface{})["id"].(string))
	}
	return ids
}

func adminHeader() http.Header {
	return http.Header{middlewares.AdminTokenHeader: []string{testAdminToken}}
}

func TestPing(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", body["message"])
}

func TestListArticlesFilters(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		query    string
		expected []string
		total    int
	}{
		{query: "", expected: []string{"toss-1", "kakao-1", "inflearn-1"}, total: 3},
		{query: "platform=kakao", expected: []string{"kakao-1"}, total: 1},
		{query: "category=devops", expected: []string{"toss-1"}, total: 1},
		{query: "type=lecture", expected: []string{"inflearn-1"}, total: 1},
		{query: "tag=kubernetes", expected: []string{"toss-1", "inflearn-1"}, total: 2},
		{query: "q=REACT", expected: []string{"kakao-1"}, total: 1},
		{query: "q=clusters", expected: []string{"toss-1"}, total: 1},
		{query: "limit=1&offset=1", expected: []string{"kakao-1"}, total: 3},
		{query: "offset=10", expected: []string{}, total: 3},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			w, body := s.do(t, http.MethodGet, "/api/articles?"+tc.query, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.expected, articleIDs(body))
			assert.Equal(t, float64(tc.total), body["total"])
			assert.Equal(t, true, body["fromCache"])
		})
	}
}

func TestListArticlesRejectsMalformedParams(t *testing.T) {
	s := newTestServer(t)
	for _, query := range []string{"limit=0", "limit=101", "limit=abc", "offset=-1", "category=gaming", "type=podcast", "fresh=maybe"} {
		t.Run(query, func(t *testing.T) {
			w, body := s.do(t, http.MethodGet, "/api/articles?"+query, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, ErrorInvalidParam, body["code"])
		})
	}
}

func TestListArticlesFresh(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodGet, "/api/articles?fresh=true", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, s.corpus.forced)
}

func TestListArticlesServesStaleWithWarning(t *testing.T) {
	s := newTestServer(t)
	s.corpus.view.Stale = true
	s.corpus.err = aggregator.ErrAllSourcesFailed

	w, body := s.do(t, http.MethodGet, "/api/articles", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["stale"])
	assert.Equal(t, aggregator.ErrAllSourcesFailed.Error(), body["warning"])
}

func TestListArticlesUnavailable(t *testing.T) {
	s := newTestServer(t)
	s.corpus.view = nil
	s.corpus.err = aggregator.ErrAllSourcesFailed

	w, body := s.do(t, http.MethodGet, "/api/articles", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, ErrorCorpusUnavailable, body["code"])
}

func TestGetArticle(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, http.MethodGet, "/api/articles/kakao-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "React Server Components", body["title"])

	w, body = s.do(t, http.MethodGet, "/api/articles/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrorNotFound, body["code"])
}

func TestAnalyticsEndpoints(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodGet, "/api/analytics/platforms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["platforms"], 3)

	w, body = s.do(t, http.MethodGet, "/api/analytics/tags?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tags := body["tags"].([]interface{})
	require.Len(t, tags, 2)
	assert.Equal(t, "kubernetes", tags[0].(map[string]interface{})["tag"])

	w, body = s.do(t, http.MethodGet, "/api/analytics/authors?synthetic=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["authors"], 2)

	w, _ = s.do(t, http.MethodGet, "/api/analytics/authors?synthetic=perhaps", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMonitorEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.monitor.RecordSuccess("toss", time.Second, 5)
	s.monitor.RecordFailure("naver-d2", 2*time.Second, errors.New("boom"))

	w, body := s.do(t, http.MethodGet, "/api/monitor/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["attempts"])

	w, body = s.do(t, http.MethodGet, "/api/monitor/sources", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["sources"], 2)

	w, body = s.do(t, http.MethodGet, "/api/monitor/errors?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["errors"], 1)

	w, body = s.do(t, http.MethodGet, "/api/monitor/trends?hours=6", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["trends"], 6)

	w, _ = s.do(t, http.MethodGet, "/api/monitor/trends?hours=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBrowserStatusWithoutPool(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, http.MethodGet, "/api/browser/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["enabled"])
}

func TestMonitorRoutesWithoutMonitor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(&fakeCorpus{}, cache.NewClient(cache.NewMemoryStore()), nil, nil)
	router := NewRouter(h, "honeybee-test", testAdminToken)

	for _, path := range []string{"/api/monitor/stats", "/api/monitor/sources", "/api/monitor/errors", "/api/monitor/trends"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		body := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, ErrorMonitorDisabled, body["code"], path)
	}
}

func TestCacheInfo(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, http.MethodGet, "/api/cache", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["present"])

	s.store.FailWith = errors.New("redis down")
	w, body = s.do(t, http.MethodGet, "/api/cache", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, ErrorCacheUnavailable, body["code"])
}

func TestAdminRequiresToken(t *testing.T) {
	s := newTestServer(t)
	for _, header := range []http.Header{nil, {middlewares.AdminTokenHeader: []string{"wrong"}}} {
		w, body := s.do(t, http.MethodPost, "/api/admin/refresh", header)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, middlewares.ErrorAdminAuthFail, body["code"])
	}
	assert.Equal(t, 0, s.corpus.fresh)
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(NewHandlers(&fakeCorpus{}, cache.NewClient(cache.NewMemoryStore()), nil, nil), "honeybee-test", "")
	req := httptest.NewRequest(http.MethodPost, "/api/admin/refresh", nil)
	req.Header.Set(middlewares.AdminTokenHeader, "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminRefresh(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, http.MethodPost, "/api/admin/refresh", adminHeader())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, s.corpus.fresh)
	assert.Equal(t, aggregator.RunKindFresh, body["report"].(map[string]interface{})["kind"])

	w, _ = s.do(t, http.MethodPost, "/api/admin/courses/refresh", adminHeader())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, s.corpus.courses)

	s.corpus.runErr = aggregator.ErrAllSourcesFailed
	w, body = s.do(t, http.MethodPost, "/api/admin/refresh", adminHeader())
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, ErrorRunFailed, body["code"])
	assert.NotNil(t, body["report"])
}

func TestAdminClearCache(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.cache.SetCachedArticles(context.Background(), testArticles()))

	w, body := s.do(t, http.MethodDelete, "/api/admin/cache", adminHeader())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["cleared"])

	info, err := s.cache.GetCacheInfo(context.Background())
	require.NoError(t, err)
	assert.False(t, info.Present)
}

func TestParseArticleQueryDefaults(t *testing.T) {
	q, err := ParseArticleQuery(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageLimit, q.Limit)
	assert.Equal(t, 0, q.Offset)
	assert.False(t, q.Fresh)
}
