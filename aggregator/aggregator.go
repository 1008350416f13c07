// Package aggregator runs collection over the platform table: fan out the
// source adapters, normalize and validate what they return, merge the result
// into one corpus and keep the cache in step.
package aggregator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Luismorlan/honeybee/cache"
	"github.com/Luismorlan/honeybee/collector"
	"github.com/Luismorlan/honeybee/collector/sink"
	"github.com/Luismorlan/honeybee/model"
	"github.com/Luismorlan/honeybee/monitor"
	"github.com/Luismorlan/honeybee/normalizer"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

const (
	DefaultNetworkConcurrency = 8
	DefaultRunBudget          = 5 * time.Minute
	DefaultSourceTimeout      = 30 * time.Second
	DefaultRetryBackoff       = 2 * time.Second
	DefaultPerSourceLimit     = 20
	DefaultStaleAfterHours    = 24

	RunKindCollect = "collect"
	RunKindFresh   = "fresh"
	RunKindCourses = "courses"
)

// Run-level errors. Source failures never surface as one of these, they are
// recorded as outcomes of the run.
var (
	ErrAllSourcesFailed = errors.New("all sources failed")
	ErrCacheUnavailable = errors.New("cache unavailable")
	ErrNoActiveSources  = errors.New("no active sources")
)

// IsRunLevel tells run-level errors apart from anything else.
func IsRunLevel(err error) bool {
	return errors.Is(err, ErrAllSourcesFailed) ||
		errors.Is(err, ErrCacheUnavailable) ||
		errors.Is(err, ErrNoActiveSources)
}

// AdapterResolver finds the adapter that collects a source.
type AdapterResolver interface {
	AdapterFor(source model.Source) (collector.SourceAdapter, error)
}

type Config struct {
	NetworkConcurrency int
	RunBudget          time.Duration
	SourceTimeout      time.Duration
	RetryBackoff       time.Duration
	PerSourceLimit     int
	StaleAfterHours    float64
	Normalizer         normalizer.Options
}

func DefaultConfig() Config {
	return Config{
		NetworkConcurrency: DefaultNetworkConcurrency,
		RunBudget:          DefaultRunBudget,
		SourceTimeout:      DefaultSourceTimeout,
		RetryBackoff:       DefaultRetryBackoff,
		PerSourceLimit:     DefaultPerSourceLimit,
		StaleAfterHours:    DefaultStaleAfterHours,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.NetworkConcurrency <= 0 {
		c.NetworkConcurrency = d.NetworkConcurrency
	}
	if c.RunBudget <= 0 {
		c.RunBudget = d.RunBudget
	}
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = d.SourceTimeout
	}
	if c.RetryBackoff < 0 {
		c.RetryBackoff = 0
	}
	if c.PerSourceLimit <= 0 {
		c.PerSourceLimit = d.PerSourceLimit
	}
	if c.StaleAfterHours <= 0 {
		c.StaleAfterHours = d.StaleAfterHours
	}
	return c
}

// Result is the merged corpus of one run plus its report.
type Result struct {
	Articles []model.Article
	Report   *model.RunReport
}

// CorpusView is what readers get. Stale is set when a fresh run was needed,
// failed, and the previous corpus is served instead.
type CorpusView struct {
	Articles  []model.Article `json:"articles"`
	Info      model.CacheInfo `json:"cache"`
	FromCache bool            `json:"fromCache"`
	Stale     bool            `json:"stale"`
}

type Aggregator struct {
	config     Config
	sources    []model.Source
	adapters   AdapterResolver
	cache      *cache.Client
	monitor    *monitor.Monitor
	sinks      []sink.RunReportSink
	normalizer *normalizer.Normalizer
	now        func() time.Time

	// Serializes every run that writes the cache.
	freshMu sync.Mutex

	crawledMu   sync.RWMutex
	lastCrawled map[string]time.Time
}

// New builds an aggregator. monitor and sinks may be nil.
func New(config Config, sources []model.Source, adapters AdapterResolver, cacheClient *cache.Client, mon *monitor.Monitor, sinks []sink.RunReportSink) *Aggregator {
	config = config.withDefaults()
	return &Aggregator{
		config:      config,
		sources:     sources,
		adapters:    adapters,
		cache:       cacheClient,
		monitor:     mon,
		sinks:       sinks,
		normalizer:  normalizer.New(config.Normalizer),
		now:         time.Now,
		lastCrawled: map[string]time.Time{},
	}
}

// WithClock replaces the time source, for tests.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

func (a *Aggregator) Config() Config {
	return a.config
}

// Platforms returns the configured platforms with the time each was last
// collected successfully.
func (a *Aggregator) Platforms() []model.Platform {
	a.crawledMu.RLock()
	defer a.crawledMu.RUnlock()
	res := make([]model.Platform, 0, len(a.sources))
	for _, s := range a.sources {
		p := s.Platform
		if t, ok := a.lastCrawled[s.ID]; ok {
			crawled := t
			p.LastCrawledAt = &crawled
		}
		res = append(res, p)
	}
	return res
}

func (a *Aggregator) markCrawled(report *model.RunReport) {
	a.crawledMu.Lock()
	defer a.crawledMu.Unlock()
	for _, o := range report.Outcomes {
		if o.Success {
			a.lastCrawled[o.SourceID] = report.FinishedAt
		}
	}
}

// CollectAll runs every active source once and returns the merged corpus. The
// cache is not touched.
func (a *Aggregator) CollectAll(ctx context.Context, sources []model.Source, perSourceLimit int) (*Result, error) {
	result, err := a.run(ctx, RunKindCollect, sources, perSourceLimit)
	return a.finish(result, err)
}

// CollectFresh collects every configured source and replaces the cache with
// the result. A failed run leaves the cache untouched.
func (a *Aggregator) CollectFresh(ctx context.Context) (*Result, error) {
	a.freshMu.Lock()
	defer a.freshMu.Unlock()
	return a.collectFreshLocked(ctx)
}

// collectFreshLocked expects freshMu to be held. The corpus record is
// overwritten in place, so a failed write leaves the previous one readable.
func (a *Aggregator) collectFreshLocked(ctx context.Context) (*Result, error) {
	result, err := a.run(ctx, RunKindFresh, a.sources, a.config.PerSourceLimit)
	if err != nil {
		return a.finish(result, err)
	}
	if err := a.cache.SetCachedArticles(ctx, result.Articles); err != nil {
		return a.finish(result, errors.Wrap(ErrCacheUnavailable, err.Error()))
	}
	return a.finish(result, nil)
}

// CollectCourses collects only course-listing sources and adds what is new to
// the cached corpus. Articles already cached keep their place.
func (a *Aggregator) CollectCourses(ctx context.Context) (*Result, error) {
	a.freshMu.Lock()
	defer a.freshMu.Unlock()

	courses := []model.Source{}
	for _, s := range a.sources {
		if s.Method == model.MethodApi {
			courses = append(courses, s)
		}
	}
	result, err := a.run(ctx, RunKindCourses, courses, a.config.PerSourceLimit)
	if err != nil {
		return a.finish(result, err)
	}

	cached, err := a.cache.GetCachedArticles(ctx)
	if err != nil {
		return a.finish(result, errors.Wrap(ErrCacheUnavailable, err.Error()))
	}
	merged, duplicates := mergeArticles([][]model.Article{cached, result.Articles})
	sortArticles(merged)
	result.Report.DuplicatesRemoved = duplicates
	result.Report.CorpusSize = len(merged)
	if err := a.cache.SetCachedArticles(ctx, merged); err != nil {
		return a.finish(result, errors.Wrap(ErrCacheUnavailable, err.Error()))
	}
	result.Articles = merged
	return a.finish(result, nil)
}

// freshCachedView returns the cached corpus when it does not need an update,
// nil otherwise.
func (a *Aggregator) freshCachedView(ctx context.Context) *CorpusView {
	info, err := a.cache.GetCacheInfo(ctx)
	if err != nil {
		Logger.Log.Warnf("fail to read cache info, collecting fresh: %s", err)
		return nil
	}
	if a.NeedsUpdate(info) {
		return nil
	}
	articles, err := a.cache.GetCachedArticles(ctx)
	if err != nil {
		Logger.Log.Warnf("fail to read cached articles, collecting fresh: %s", err)
		return nil
	}
	return &CorpusView{Articles: articles, Info: info, FromCache: true}
}

// NeedsUpdate reports whether the cached corpus should be refreshed.
func (a *Aggregator) NeedsUpdate(info model.CacheInfo) bool {
	return !info.Present || info.HoursSinceUpdate >= a.config.StaleAfterHours
}

// GetCorpus serves the cached corpus when it is fresh enough, and runs a fresh
// collection otherwise. When that run fails the previous corpus, if any, is
// served with Stale set, and the run error is returned with it.
//
// Readers that find the cache stale at the same time share one collection:
// whoever waited on the running one serves what it cached.
func (a *Aggregator) GetCorpus(ctx context.Context, forceFresh bool) (*CorpusView, error) {
	if !forceFresh {
		if view := a.freshCachedView(ctx); view != nil {
			return view, nil
		}
	}

	a.freshMu.Lock()
	if !forceFresh {
		if view := a.freshCachedView(ctx); view != nil {
			a.freshMu.Unlock()
			return view, nil
		}
	}
	result, runErr := a.collectFreshLocked(ctx)
	a.freshMu.Unlock()

	if runErr == nil {
		info, err := a.cache.GetCacheInfo(ctx)
		if err != nil {
			info = model.CacheInfo{}
		}
		return &CorpusView{Articles: result.Articles, Info: info}, nil
	}

	// Collected fine but could not be cached: serve the fresh corpus.
	if errors.Is(runErr, ErrCacheUnavailable) && result != nil && len(result.Articles) > 0 {
		return &CorpusView{Articles: result.Articles}, runErr
	}

	info, err := a.cache.GetCacheInfo(ctx)
	if err != nil || !info.Present {
		return nil, runErr
	}
	articles, err := a.cache.GetCachedArticles(ctx)
	if err != nil {
		return nil, runErr
	}
	return &CorpusView{Articles: articles, Info: info, FromCache: true, Stale: true}, runErr
}

// finish stamps the report, pushes it to the sinks and hands the result back.
func (a *Aggregator) finish(result *Result, err error) (*Result, error) {
	if result == nil || result.Report == nil {
		return result, err
	}
	report := result.Report
	report.FinishedAt = a.now()
	if err != nil {
		report.Error = err.Error()
	} else {
		a.markCrawled(report)
	}
	sink.PushReportToSinks(a.sinks, report)
	return result, err
}

// run collects the given sources and merges them. Run-level errors are
// returned together with a partially filled result so the report still goes
// out.
func (a *Aggregator) run(ctx context.Context, kind string, sources []model.Source, perSourceLimit int) (*Result, error) {
	report := &model.RunReport{
		RunID:     uuid.New().String(),
		Kind:      kind,
		StartedAt: a.now(),
		Outcomes:  []model.SourceOutcome{},
	}
	result := &Result{Articles: []model.Article{}, Report: report}

	active := model.ActiveSources(sources)
	if len(active) == 0 {
		return result, ErrNoActiveSources
	}
	if perSourceLimit <= 0 {
		perSourceLimit = a.config.PerSourceLimit
	}

	logger := Logger.ForRun(report.RunID, kind)
	logger.Infof("=== run started over %d sources ===", len(active))
	runCtx, cancel := context.WithTimeout(ctx, a.config.RunBudget)
	defer cancel()

	results := a.fanOut(runCtx, active, perSourceLimit)

	perSource := make([][]model.Article, 0, len(results))
	for _, r := range results {
		report.Outcomes = append(report.Outcomes, r.outcome)
		perSource = append(perSource, r.articles)
	}
	merged, duplicates := mergeArticles(perSource)
	sortArticles(merged)
	result.Articles = merged
	report.CorpusSize = len(merged)
	report.DuplicatesRemoved = duplicates

	logger.Infof("=== run collected %d articles, %d/%d sources succeeded, %d duplicates removed ===",
		len(merged), report.Succeeded(), len(active), duplicates)

	if report.AllFailed() {
		return result, ErrAllSourcesFailed
	}
	return result, nil
}

// mergeArticles walks the groups in order and keeps the first article seen
// for each URL.
func mergeArticles(groups [][]model.Article) ([]model.Article, int) {
	seen := map[string]bool{}
	merged := []model.Article{}
	duplicates := 0
	for _, group := range groups {
		for _, article := range group {
			if seen[article.URL] {
				duplicates++
				continue
			}
			seen[article.URL] = true
			merged = append(merged, article)
		}
	}
	return merged, duplicates
}

// sortArticles orders newest first, ties by URL so the order is total.
func sortArticles(articles []model.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		if !articles[i].PublishedAt.Equal(articles[j].PublishedAt) {
			return articles[i].PublishedAt.After(articles[j].PublishedAt)
		}
		return articles[i].URL < articles[j].URL
	})
}
