package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/Luismorlan/honeybee/aggregator"
	"github.com/Luismorlan/honeybee/analytics"
	"github.com/Luismorlan/honeybee/browser"
	"github.com/Luismorlan/honeybee/cache"
	"github.com/Luismorlan/honeybee/model"
	"github.com/Luismorlan/honeybee/monitor"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

const (
	ErrorInvalidParam      = "INVALID_PARAM"
	ErrorNotFound          = "NOT_FOUND"
	ErrorCorpusUnavailable = "CORPUS_UNAVAILABLE"
	ErrorRunFailed         = "RUN_FAILED"
	ErrorCacheUnavailable  = "CACHE_UNAVAILABLE"
	ErrorMonitorDisabled   = "MONITOR_DISABLED"
)

// Corpus is what the api needs from the aggregator.
type Corpus interface {
	GetCorpus(ctx context.Context, forceFresh bool) (*aggregator.CorpusView, error)
	CollectFresh(ctx context.Context) (*aggregator.Result, error)
	CollectCourses(ctx context.Context) (*aggregator.Result, error)
	Platforms() []model.Platform
}

// Handlers serves the read api and the admin api. Monitor and Pool may be nil.
type Handlers struct {
	Corpus  Corpus
	Cache   *cache.Client
	Monitor *monitor.Monitor
	Pool    *browser.Pool

	now func() time.Time
}

func NewHandlers(corpus Corpus, cacheClient *cache.Client, mon *monitor.Monitor, pool *browser.Pool) *Handlers {
	return &Handlers{Corpus: corpus, Cache: cacheClient, Monitor: mon, Pool: pool, now: time.Now}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code": ErrorInvalidParam,
		"msg":  err.Error(),
	})
}

// corpus reads the corpus and answers the request itself when nothing can be
// served.
func (h *Handlers) corpus(c *gin.Context, forceFresh bool) (*aggregator.CorpusView, string, bool) {
	view, err := h.Corpus.GetCorpus(c.Request.Context(), forceFresh)
	if view == nil {
		if err == nil {
			err = errors.New("empty corpus")
		}
		Logger.Log.Errorf("fail to serve corpus: %s", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code": ErrorCorpusUnavailable,
			"msg":  err.Error(),
		})
		return nil, "", false
	}
	warning := ""
	if err != nil {
		warning = err.Error()
	}
	return view, warning, true
}

func (h *Handlers) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

func (h *Handlers) ListArticles(c *gin.Context) {
	q, err := ParseArticleQuery(c.Request.URL.Query())
	if err != nil {
		badRequest(c, err)
		return
	}
	view, warning, ok := h.corpus(c, q.Fresh)
	if !ok {
		return
	}
	page, total := q.Apply(view.Articles)
	body := gin.H{
		"articles":  page,
		"total":     total,
		"limit":     q.Limit,
		"offset":    q.Offset,
		"fromCache": view.FromCache,
		"stale":     view.Stale,
		"cache":     view.Info,
	}
	if warning != "" {
		body["warning"] = warning
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handlers) GetArticle(c *gin.Context) {
	view, _, ok := h.corpus(c, false)
	if !ok {
		return
	}
	id := c.Param("id")
	for _, a := range view.Articles {
		if a.ID == id {
			c.JSON(http.StatusOK, a)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{
		"code": ErrorNotFound,
		"msg":  "no article " + id,
	})
}

func (h *Handlers) ListPlatforms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"platforms": h.Corpus.Platforms()})
}

func queryInt(c *gin.Context, name string, fallback, min, max int) (int, bool) {
	v, err := intParam(c.Request.URL.Query(), name, fallback, min, max)
	if err != nil {
		badRequest(c, err)
		return 0, false
	}
	return v, true
}

func (h *Handlers) PlatformStats(c *gin.Context) {
	view, _, ok := h.corpus(c, false)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"platforms": analytics.PlatformStats(view.Articles)})
}

func (h *Handlers) TrendingTags(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 20, 1, MaxPageLimit)
	if !ok {
		return
	}
	view, _, ok := h.corpus(c, false)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": analytics.TrendingTags(view.Articles, limit, h.now())})
}

func (h *Handlers) AuthorRanking(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 20, 1, MaxPageLimit)
	if !ok {
		return
	}
	includeSynthetic := false
	if v := c.Query("synthetic"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, errors.Errorf("synthetic must be a boolean, got %q", v))
			return
		}
		includeSynthetic = parsed
	}
	view, _, ok := h.corpus(c, false)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"authors": analytics.AuthorRanking(view.Articles, limit, includeSynthetic)})
}

// monitorEnabled answers 503 when the process runs without a monitor.
func (h *Handlers) monitorEnabled(c *gin.Context) bool {
	if h.Monitor != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"code": ErrorMonitorDisabled,
		"msg":  "source monitoring is not enabled",
	})
	return false
}

func (h *Handlers) MonitorStats(c *gin.Context) {
	if !h.monitorEnabled(c) {
		return
	}
	c.JSON(http.StatusOK, h.Monitor.Statistics())
}

func (h *Handlers) MonitorSources(c *gin.Context) {
	if !h.monitorEnabled(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": h.Monitor.CrawlerStatistics()})
}

func (h *Handlers) MonitorErrors(c *gin.Context) {
	if !h.monitorEnabled(c) {
		return
	}
	limit, ok := queryInt(c, "limit", 20, 1, monitor.DefaultCapacity)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"errors": h.Monitor.RecentErrors(limit)})
}

func (h *Handlers) MonitorTrends(c *gin.Context) {
	if !h.monitorEnabled(c) {
		return
	}
	hours, ok := queryInt(c, "hours", 24, 1, 24*7)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"trends": h.Monitor.PerformanceTrends(hours)})
}

func (h *Handlers) BrowserStatus(c *gin.Context) {
	if h.Pool == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true, "status": h.Pool.Status()})
}

func (h *Handlers) CacheInfo(c *gin.Context) {
	info, err := h.Cache.GetCacheInfo(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code": ErrorCacheUnavailable,
			"msg":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, info)
}

func runResponse(c *gin.Context, result *aggregator.Result, err error) {
	var report *model.RunReport
	if result != nil {
		report = result.Report
	}
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, aggregator.ErrCacheUnavailable) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"code":   ErrorRunFailed,
			"msg":    err.Error(),
			"report": report,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (h *Handlers) Refresh(c *gin.Context) {
	result, err := h.Corpus.CollectFresh(c.Request.Context())
	runResponse(c, result, err)
}

func (h *Handlers) RefreshCourses(c *gin.Context) {
	result, err := h.Corpus.CollectCourses(c.Request.Context())
	runResponse(c, result, err)
}

func (h *Handlers) ClearCache(c *gin.Context) {
	if err := h.Cache.ClearCache(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code": ErrorCacheUnavailable,
			"msg":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
