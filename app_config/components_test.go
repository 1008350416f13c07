package app_config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luismorlan/honeybee/cache"
	"github.com/Luismorlan/honeybee/collector/sink"
	"github.com/Luismorlan/honeybee/model"
)

func rssPlatform(id string) model.Source {
	return model.Source{
		Platform: model.Platform{ID: id, Name: id, Type: model.PlatformCorporate, Active: true},
		Method:   model.MethodRss,
		FeedURL:  "https://" + id + ".dev/rss.xml",
	}
}

func TestNewCacheStore(t *testing.T) {
	ctx := context.Background()

	store, err := HoneybeeAppConfig{}.NewCacheStore(ctx)
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryStore{}, store)

	store, err = HoneybeeAppConfig{CACHE_BACKEND: CacheBackendFile, CACHE_FILE_DIR: t.TempDir()}.NewCacheStore(ctx)
	require.NoError(t, err)
	assert.IsType(t, &cache.LocalFileStore{}, store)

	_, err = HoneybeeAppConfig{CACHE_BACKEND: "etcd"}.NewCacheStore(ctx)
	assert.Error(t, err)
}

func TestNewSinks(t *testing.T) {
	sinks, err := HoneybeeAppConfig{}.NewSinks()
	require.NoError(t, err)
	require.Len(t, sinks, 1)
	assert.IsType(t, &sink.StdErrSink{}, sinks[0])

	_, err = HoneybeeAppConfig{SINKS: []string{"kafka"}}.NewSinks()
	assert.Error(t, err)
}

func TestTriggerQueuePrefersEnv(t *testing.T) {
	c := HoneybeeAppConfig{TRIGGER_QUEUE: "from-config"}
	t.Setenv(TriggerQueueEnvKey, "")
	assert.Equal(t, "from-config", c.TriggerQueue())

	t.Setenv(TriggerQueueEnvKey, "from-env")
	assert.Equal(t, "from-env", c.TriggerQueue())
}

func TestBuildComponents(t *testing.T) {
	ctx := context.Background()
	config := HoneybeeAppConfig{PLATFORMS: []model.Source{rssPlatform("toss"), rssPlatform("kakao")}}

	components, err := BuildComponents(ctx, config, nil)
	require.NoError(t, err)
	defer components.Close()
	assert.Nil(t, components.Pool)
	assert.Len(t, components.Aggregator.Platforms(), 2)

	info, err := components.Cache.GetCacheInfo(ctx)
	require.NoError(t, err)
	assert.False(t, info.Present)

	crawler := model.Source{
		Platform:   model.Platform{ID: "naver-d2", Name: "NAVER D2", Type: model.PlatformCorporate, Active: true},
		Method:     model.MethodCrawler,
		ListingURL: "https://d2.naver.com/helloworld",
		Selectors:  &model.SelectorProfile{Item: ".post_article", Title: "h2", Link: "a"},
	}
	config.PLATFORMS = append(config.PLATFORMS, crawler)
	withBrowser, err := BuildComponents(ctx, config, nil)
	require.NoError(t, err)
	defer withBrowser.Close()
	assert.NotNil(t, withBrowser.Pool)
	assert.Equal(t, 0, withBrowser.Pool.Status().Live)
}
