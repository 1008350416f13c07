package app_config

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/pkg/errors"

	"github.com/Luismorlan/honeybee/aggregator"
	"github.com/Luismorlan/honeybee/browser"
	"github.com/Luismorlan/honeybee/cache"
	"github.com/Luismorlan/honeybee/collector"
	collector_builder "github.com/Luismorlan/honeybee/collector/builder"
	"github.com/Luismorlan/honeybee/collector/clients"
	"github.com/Luismorlan/honeybee/collector/sink"
	"github.com/Luismorlan/honeybee/model"
	"github.com/Luismorlan/honeybee/monitor"
	"github.com/Luismorlan/honeybee/utils"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

const (
	CacheBucketEnvKey  = "HONEYBEE_CACHE_BUCKET"
	TriggerQueueEnvKey = "HONEYBEE_TRIGGER_QUEUE"

	redisKeyPrefix = "honeybee:"
	s3KeyPrefix    = "corpus"
)

// Components is everything a binary needs to run collections and serve the
// corpus. Pool is nil when no active platform needs a browser.
type Components struct {
	Config     HoneybeeAppConfig
	Aggregator *aggregator.Aggregator
	Cache      *cache.Client
	Monitor    *monitor.Monitor
	Pool       *browser.Pool
}

// NewCacheStore opens the configured cache backend.
func (c HoneybeeAppConfig) NewCacheStore(ctx context.Context) (cache.Store, error) {
	switch c.CacheBackend() {
	case CacheBackendMemory:
		return cache.NewMemoryStore(), nil
	case CacheBackendRedis:
		client, err := utils.GetRedisClient(ctx)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisStore(client, redisKeyPrefix, 0), nil
	case CacheBackendPostgres:
		db, err := utils.GetDBConnection()
		if err != nil {
			return nil, errors.Wrap(err, "fail to connect to postgres")
		}
		if err := utils.DatabaseSetupAndMigration(db); err != nil {
			return nil, errors.Wrap(err, "fail to migrate cache table")
		}
		return cache.NewPostgresStore(db), nil
	case CacheBackendS3:
		bucket := os.Getenv(CacheBucketEnvKey)
		if bucket == "" {
			if utils.IsProdEnv() {
				return nil, errors.Errorf("%s must be set in prod", CacheBucketEnvKey)
			}
			bucket = cache.DevS3CacheBucket
		}
		return cache.NewS3Store(bucket, s3KeyPrefix, utils.AwsRegion())
	case CacheBackendFile:
		return cache.NewLocalFileStore(c.CACHE_FILE_DIR)
	}
	return nil, errors.Errorf("unknown CACHE_BACKEND %q", c.CACHE_BACKEND)
}

// NewSinks builds the run report sinks, stderr only when none is configured.
func (c HoneybeeAppConfig) NewSinks() ([]sink.RunReportSink, error) {
	names := c.SINKS
	if len(names) == 0 {
		names = []string{SinkStdErr}
	}
	res := []sink.RunReportSink{}
	for _, name := range names {
		switch name {
		case SinkStdErr:
			res = append(res, sink.NewStdErrSink())
		case SinkSns:
			s, err := sink.NewSnsSink()
			if err != nil {
				return nil, err
			}
			res = append(res, s)
		default:
			return nil, errors.Errorf("unknown sink %q", name)
		}
	}
	return res, nil
}

// TriggerQueue is the SQS queue of manual triggers. The environment wins over
// the config file.
func (c HoneybeeAppConfig) TriggerQueue() string {
	if q := os.Getenv(TriggerQueueEnvKey); q != "" {
		return q
	}
	return c.TRIGGER_QUEUE
}

func needsBrowser(sources []model.Source) bool {
	for _, s := range model.ActiveSources(sources) {
		if s.Method == model.MethodCrawler {
			return true
		}
	}
	return false
}

// BuildComponents wires the cache, the monitor, the browser pool, the adapter
// registry and the aggregator. statsdClient may be nil.
func BuildComponents(ctx context.Context, config HoneybeeAppConfig, statsdClient statsd.ClientInterface) (*Components, error) {
	store, err := config.NewCacheStore(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to open %s cache", config.CacheBackend())
	}
	sinks, err := config.NewSinks()
	if err != nil {
		return nil, err
	}

	var pool *browser.Pool
	if needsBrowser(config.PLATFORMS) {
		launcher := browser.NewRodLauncher()
		launcher.Bin = config.BROWSER_BIN
		pool = browser.NewPool(launcher, config.PoolConfig())
	}

	limiter := config.DomainLimiter()
	client := clients.NewHttpClient(collector.GetDefaultCrawlerHeader(), []http.Cookie{}, limiter)
	registry := collector_builder.BuildDefaultRegistry(pool, client, limiter)

	cacheClient := cache.NewClient(store)
	mon := monitor.New(config.MONITOR_CAPACITY, statsdClient)
	agg := aggregator.New(config.AggregatorConfig(), config.PLATFORMS, registry, cacheClient, mon, sinks)

	Logger.Log.Infof("components ready: %d platforms, %s cache, browser pool enabled: %t",
		len(config.PLATFORMS), config.CacheBackend(), pool != nil)
	return &Components{
		Config:     config,
		Aggregator: agg,
		Cache:      cacheClient,
		Monitor:    mon,
		Pool:       pool,
	}, nil
}

// Close releases the browser pool.
func (c *Components) Close() {
	if c.Pool != nil {
		c.Pool.Shutdown()
	}
}

// NewDogStatsdClient connects to the local datadog agent.
func NewDogStatsdClient() (*statsd.Client, error) {
	client, err := statsd.New("127.0.0.1:8125")
	if err != nil {
		return nil, errors.Wrap(err, "fail to create statsd client")
	}
	return client, nil
}

// OneShotTimeout bounds a one-shot collection, a little over the run budget.
func (c HoneybeeAppConfig) OneShotTimeout() time.Duration {
	return c.AggregatorConfig().RunBudget + time.Minute
}
