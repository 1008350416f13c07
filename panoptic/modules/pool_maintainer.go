package modules

import (
	"context"
	"time"

	"github.com/DataDog/datadog-go/statsd"

	"github.com/Luismorlan/honeybee/browser"
	"github.com/Luismorlan/honeybee/panoptic"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

type PoolMaintainerConfig struct {
	Name string
	// Maintain the browser pool every other interval.
	MaintainEvery time.Duration
}

// PoolMaintainer recycles idle browsers on an interval, reports the pool to
// Datadog and shuts the pool down with the engine.
type PoolMaintainer struct {
	Config PoolMaintainerConfig

	Pool *browser.Pool

	Statsd statsd.ClientInterface
}

func NewPoolMaintainer(config PoolMaintainerConfig, pool *browser.Pool, client statsd.ClientInterface) *PoolMaintainer {
	if config.MaintainEvery <= 0 {
		config.MaintainEvery = browser.DefaultPoolConfig().MaintainEvery
	}
	return &PoolMaintainer{
		Config: config,
		Pool:   pool,
		Statsd: client,
	}
}

func (p *PoolMaintainer) Maintain() browser.Status {
	recycled := p.Pool.RecycleIdle()
	status := p.Pool.Status()
	if recycled > 0 {
		Logger.Log.Infof("recycled %d idle browsers, %d live", recycled, status.Live)
	}
	if p.Statsd != nil {
		p.Statsd.Gauge(panoptic.DDOG_BROWSER_POOL_LIVE, float64(status.Live), nil, 1)
		p.Statsd.Gauge(panoptic.DDOG_BROWSER_POOL_IDLE, float64(status.Idle), nil, 1)
		p.Statsd.Count(panoptic.DDOG_BROWSER_POOL_RECYCLED, int64(recycled), nil, 1)
	}
	return status
}

func (p *PoolMaintainer) RunModule(ctx context.Context) error {
	ticker := time.NewTicker(p.Config.MaintainEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Maintain()
		}
	}
}

func (p *PoolMaintainer) Name() string {
	return p.Config.Name
}

func (p *PoolMaintainer) Shutdown() {
	p.Pool.Shutdown()
}
