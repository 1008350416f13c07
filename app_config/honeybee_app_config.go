package app_config

import (
	"io/ioutil"
	"net/url"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/Luismorlan/honeybee/aggregator"
	"github.com/Luismorlan/honeybee/browser"
	"github.com/Luismorlan/honeybee/collector/clients"
	"github.com/Luismorlan/honeybee/model"
	"github.com/Luismorlan/honeybee/normalizer"
)

const (
	CacheBackendMemory   = "memory"
	CacheBackendRedis    = "redis"
	CacheBackendPostgres = "postgres"
	CacheBackendS3       = "s3"
	CacheBackendFile     = "file"

	SinkStdErr = "stderr"
	SinkSns    = "sns"
)

// This is the app config shared by the api server, the collector and panoptic.
// Zero values fall back to the package defaults of the component they feed.
type HoneybeeAppConfig struct {
	// Number of browsers alive at a given time.
	BROWSER_MAX_INSTANCES int `yaml:"BROWSER_MAX_INSTANCES"`
	// Idle browsers older than this are recycled.
	BROWSER_IDLE_RETENTION_SECOND int64 `yaml:"BROWSER_IDLE_RETENTION_SECOND"`
	// Browser life span in second. Any browser that exceeds this value is
	// closed on release and replaced by a new one.
	BROWSER_LIFE_SPAN_SECOND       int64 `yaml:"BROWSER_LIFE_SPAN_SECOND"`
	BROWSER_ACQUIRE_TIMEOUT_SECOND int64 `yaml:"BROWSER_ACQUIRE_TIMEOUT_SECOND"`
	// Maintain the browser pool every other interval.
	MAINTAIN_EVERY_SECOND int64 `yaml:"MAINTAIN_EVERY_SECOND"`
	// Chromium binary, empty to let rod download one.
	BROWSER_BIN string `yaml:"BROWSER_BIN"`

	NETWORK_CONCURRENCY int `yaml:"NETWORK_CONCURRENCY"`
	// Requests per second allowed against one host.
	DOMAIN_RPS                float64 `yaml:"DOMAIN_RPS"`
	RUN_BUDGET_SECOND         int64   `yaml:"RUN_BUDGET_SECOND"`
	SOURCE_TIMEOUT_SECOND     int64   `yaml:"SOURCE_TIMEOUT_SECOND"`
	RETRY_BACKOFF_MILLISECOND int64   `yaml:"RETRY_BACKOFF_MILLISECOND"`
	PER_SOURCE_LIMIT          int     `yaml:"PER_SOURCE_LIMIT"`
	STALE_AFTER_HOURS         float64 `yaml:"STALE_AFTER_HOURS"`

	// "url" or "positional"
	ID_SCHEME string `yaml:"ID_SCHEME"`
	// Generate engagement numbers for sources that report none.
	SYNTHETIC_METRICS bool `yaml:"SYNTHETIC_METRICS"`

	// memory, redis, postgres, s3 or file
	CACHE_BACKEND    string `yaml:"CACHE_BACKEND"`
	CACHE_FILE_DIR   string `yaml:"CACHE_FILE_DIR"`
	MONITOR_CAPACITY int    `yaml:"MONITOR_CAPACITY"`

	// Local time of the daily collection, "HH:MM".
	DAILY_COLLECT_AT string `yaml:"DAILY_COLLECT_AT"`
	TIMEZONE         string `yaml:"TIMEZONE"`
	// SQS queue for manual triggers, empty disables the queue trigger.
	TRIGGER_QUEUE string   `yaml:"TRIGGER_QUEUE"`
	SINKS         []string `yaml:"SINKS"`

	PLATFORMS []model.Source `yaml:"PLATFORMS"`
}

func ParseHoneybeeAppConfig(path string) (HoneybeeAppConfig, error) {
	c := HoneybeeAppConfig{}
	yamlFile, err := ioutil.ReadFile(path)
	if err != nil {
		return c, errors.Wrapf(err, "fail to read app config %s", path)
	}
	if err := yaml.Unmarshal(yamlFile, &c); err != nil {
		return c, errors.Wrapf(err, "fail to unmarshal app config %s", path)
	}
	if err := c.Validate(); err != nil {
		return c, errors.Wrapf(err, "invalid app config %s", path)
	}
	return c, nil
}

// Validate checks the platform table. Platform ids must be unique and every
// source must carry what its method needs.
func (c HoneybeeAppConfig) Validate() error {
	seen := map[string]bool{}
	for _, s := range c.PLATFORMS {
		if s.ID == "" {
			return errors.Errorf("platform %q has no id", s.Name)
		}
		if seen[s.ID] {
			return errors.Errorf("platform id %s is not unique", s.ID)
		}
		seen[s.ID] = true
		if !s.Type.IsValid() {
			return errors.Errorf("platform %s has unknown type %q", s.ID, s.Type)
		}
		if s.Category != "" && !s.Category.IsValid() {
			return errors.Errorf("platform %s has unknown category %q", s.ID, s.Category)
		}
		if s.ContentType != "" && !s.ContentType.IsValid() {
			return errors.Errorf("platform %s has unknown content type %q", s.ID, s.ContentType)
		}
		if s.Retry < 0 || s.Limit < 0 || s.TimeoutSeconds < 0 {
			return errors.Errorf("platform %s has a negative retry, limit or timeout_seconds", s.ID)
		}
		if err := validateMethod(s); err != nil {
			return err
		}
	}
	switch normalizer.IDScheme(c.ID_SCHEME) {
	case "", normalizer.IDSchemeURL, normalizer.IDSchemePositional:
	default:
		return errors.Errorf("unknown ID_SCHEME %q", c.ID_SCHEME)
	}
	switch c.CacheBackend() {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendPostgres, CacheBackendS3, CacheBackendFile:
	default:
		return errors.Errorf("unknown CACHE_BACKEND %q", c.CACHE_BACKEND)
	}
	for _, s := range c.SINKS {
		if s != SinkStdErr && s != SinkSns {
			return errors.Errorf("unknown sink %q", s)
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, _, err := c.DailyCollectAt(); err != nil {
		return err
	}
	return nil
}

func validateMethod(s model.Source) error {
	switch s.Method {
	case model.MethodRss:
		return validateUrl(s.ID, "feed_url", s.FeedURL)
	case model.MethodCrawler:
		if s.Selectors == nil && s.CrawlerID == "" {
			return errors.Errorf("crawler platform %s needs selectors or a crawler_id", s.ID)
		}
		return validateUrl(s.ID, "listing_url", s.ListingURL)
	case model.MethodApi:
		if s.Pagination == nil {
			return errors.Errorf("course platform %s needs a pagination profile", s.ID)
		}
		return validateUrl(s.ID, "listing_url", s.ListingURL)
	default:
		return errors.Errorf("platform %s has unknown method %q", s.ID, s.Method)
	}
}

func validateUrl(id, field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return errors.Errorf("platform %s has invalid %s %q", id, field, raw)
	}
	return nil
}

func seconds(s int64) time.Duration {
	return time.Duration(s) * time.Second
}

func (c HoneybeeAppConfig) PoolConfig() browser.PoolConfig {
	config := browser.DefaultPoolConfig()
	if c.BROWSER_MAX_INSTANCES > 0 {
		config.MaxInstances = c.BROWSER_MAX_INSTANCES
	}
	if c.BROWSER_IDLE_RETENTION_SECOND > 0 {
		config.IdleRetention = seconds(c.BROWSER_IDLE_RETENTION_SECOND)
	}
	if c.BROWSER_LIFE_SPAN_SECOND > 0 {
		config.MaxLifetime = seconds(c.BROWSER_LIFE_SPAN_SECOND)
	}
	if c.BROWSER_ACQUIRE_TIMEOUT_SECOND > 0 {
		config.AcquireTimeout = seconds(c.BROWSER_ACQUIRE_TIMEOUT_SECOND)
	}
	if c.MAINTAIN_EVERY_SECOND > 0 {
		config.MaintainEvery = seconds(c.MAINTAIN_EVERY_SECOND)
	}
	return config
}

func (c HoneybeeAppConfig) DomainLimiter() *clients.DomainLimiter {
	if c.DOMAIN_RPS <= 0 {
		return clients.NewDefaultDomainLimiter()
	}
	return clients.NewDomainLimiter(clients.MaxConcurrencyPerDomain, time.Duration(float64(time.Second)/c.DOMAIN_RPS))
}

func (c HoneybeeAppConfig) AggregatorConfig() aggregator.Config {
	config := aggregator.DefaultConfig()
	if c.NETWORK_CONCURRENCY > 0 {
		config.NetworkConcurrency = c.NETWORK_CONCURRENCY
	}
	if c.RUN_BUDGET_SECOND > 0 {
		config.RunBudget = seconds(c.RUN_BUDGET_SECOND)
	}
	if c.SOURCE_TIMEOUT_SECOND > 0 {
		config.SourceTimeout = seconds(c.SOURCE_TIMEOUT_SECOND)
	}
	if c.RETRY_BACKOFF_MILLISECOND > 0 {
		config.RetryBackoff = time.Duration(c.RETRY_BACKOFF_MILLISECOND) * time.Millisecond
	}
	if c.PER_SOURCE_LIMIT > 0 {
		config.PerSourceLimit = c.PER_SOURCE_LIMIT
	}
	if c.STALE_AFTER_HOURS > 0 {
		config.StaleAfterHours = c.STALE_AFTER_HOURS
	}
	config.Normalizer = normalizer.Options{
		IDScheme:         normalizer.IDScheme(c.ID_SCHEME),
		SyntheticMetrics: c.SYNTHETIC_METRICS,
	}
	return config
}

func (c HoneybeeAppConfig) CacheBackend() string {
	if c.CACHE_BACKEND == "" {
		return CacheBackendMemory
	}
	return c.CACHE_BACKEND
}

func (c HoneybeeAppConfig) Location() (*time.Location, error) {
	if c.TIMEZONE == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TIMEZONE)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown timezone %q", c.TIMEZONE)
	}
	return loc, nil
}

// DailyCollectAt returns the configured hour and minute, 06:00 by default.
func (c HoneybeeAppConfig) DailyCollectAt() (int, int, error) {
	if c.DAILY_COLLECT_AT == "" {
		return 6, 0, nil
	}
	t, err := time.Parse("15:04", c.DAILY_COLLECT_AT)
	if err != nil {
		return 0, 0, errors.Errorf("DAILY_COLLECT_AT must be HH:MM, got %q", c.DAILY_COLLECT_AT)
	}
	return t.Hour(), t.Minute(), nil
}
