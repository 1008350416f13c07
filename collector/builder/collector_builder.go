package collector_builder

import (
	"github.com/pkg/errors"

	"github.com/Luismorlan/honeybee/browser"
	"github.com/Luismorlan/honeybee/collector"
	"github.com/Luismorlan/honeybee/collector/clients"
	"github.com/Luismorlan/honeybee/collector/instances"
	"github.com/Luismorlan/honeybee/model"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

type CollectorBuilder struct{}

// Rss Collectors
func (CollectorBuilder) NewRssCollector(client *clients.HttpClient) collector.SourceAdapter {
	return collector_instances.NewRssCollector(client)
}

// Crawler Collectors
func (CollectorBuilder) NewBrowserCrawler(pool *browser.Pool) collector.SourceAdapter {
	return collector_instances.NewBrowserCrawler(pool)
}

// Api Collectors
func (CollectorBuilder) NewCourseCollector(limiter *clients.DomainLimiter) collector.SourceAdapter {
	return collector_instances.NewCourseCollector(limiter)
}

// Registry resolves the adapter of a source: first by the source's
// crawler_id, then by its collection method.
type Registry struct {
	byMethod    map[model.CollectionMethod]collector.SourceAdapter
	byCrawlerID map[string]collector.SourceAdapter
}

func NewRegistry() *Registry {
	return &Registry{
		byMethod:    map[model.CollectionMethod]collector.SourceAdapter{},
		byCrawlerID: map[string]collector.SourceAdapter{},
	}
}

// Register makes adapter the default for its method. A later registration for
// the same method wins.
func (r *Registry) Register(adapter collector.SourceAdapter) *Registry {
	if adapter == nil {
		return r
	}
	if _, ok := r.byMethod[adapter.Method()]; ok {
		Logger.Log.Warnf("adapter %s replaces the registered %s adapter", adapter.Name(), adapter.Method())
	}
	r.byMethod[adapter.Method()] = adapter
	return r
}

// RegisterCrawler binds a site-specific adapter to a crawler id.
func (r *Registry) RegisterCrawler(crawlerID string, adapter collector.SourceAdapter) *Registry {
	if adapter == nil || crawlerID == "" {
		return r
	}
	r.byCrawlerID[crawlerID] = adapter
	return r
}

func (r *Registry) AdapterFor(source model.Source) (collector.SourceAdapter, error) {
	if source.CrawlerID != "" {
		if adapter, ok := r.byCrawlerID[source.CrawlerID]; ok {
			return adapter, nil
		}
	}
	if !source.Method.IsValid() {
		return nil, errors.Wrapf(collector.ErrSourceMisconfig, "source %s has unknown method %q", source.ID, source.Method)
	}
	adapter, ok := r.byMethod[source.Method]
	if !ok {
		return nil, errors.Wrapf(collector.ErrSourceMisconfig, "no %s adapter registered for source %s", source.Method, source.ID)
	}
	return adapter, nil
}

// BuildDefaultRegistry wires the three adapter families. Without a pool the
// crawler method stays unregistered and crawler sources fail as misconfigured.
func BuildDefaultRegistry(pool *browser.Pool, client *clients.HttpClient, limiter *clients.DomainLimiter) *Registry {
	builder := CollectorBuilder{}
	registry := NewRegistry().
		Register(builder.NewRssCollector(client)).
		Register(builder.NewCourseCollector(limiter))
	if pool != nil {
		registry.Register(builder.NewBrowserCrawler(pool))
	}
	return registry
}
