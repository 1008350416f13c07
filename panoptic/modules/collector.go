package modules

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/Luismorlan/honeybee/aggregator"
	"github.com/Luismorlan/honeybee/panoptic"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

// CollectRunner is the part of the aggregator the collector module drives.
type CollectRunner interface {
	CollectFresh(ctx context.Context) (*aggregator.Result, error)
	CollectCourses(ctx context.Context) (*aggregator.Result, error)
}

type CollectorConfig struct {
	Name string
}

// Collector listens for collect triggers, runs them one at a time and
// publishes each run's report for the reporter.
type Collector struct {
	Config CollectorConfig

	runner CollectRunner

	EventBus *gochannel.GoChannel
}

func NewCollector(config CollectorConfig, runner CollectRunner, e *gochannel.GoChannel) *Collector {
	return &Collector{
		Config:   config,
		runner:   runner,
		EventBus: e,
	}
}

func (c *Collector) Execute(ctx context.Context, trigger panoptic.CollectTrigger) {
	Logger.Log.Infof("collector %s: running %s collection for %s trigger %s", c.Name(), trigger.Kind, trigger.Reason, trigger.ID)

	var (
		result *aggregator.Result
		err    error
	)
	switch trigger.Kind {
	case panoptic.COLLECT_COURSES:
		result, err = c.runner.CollectCourses(ctx)
	default:
		result, err = c.runner.CollectFresh(ctx)
	}
	if err != nil {
		Logger.Log.Errorf("collector %s: trigger %s failed, error: %s", c.Name(), trigger.ID, err)
	}
	if result == nil {
		return
	}
	if err := panoptic.PublishRunReport(c.EventBus, result.Report); err != nil {
		Logger.Log.Errorf("fail to publish run report into report channel, error: %s", err)
	}
}

func (c *Collector) RunModule(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := c.EventBus.Subscribe(ctx, panoptic.TOPIC_COLLECT_TRIGGER)
	if err != nil {
		return err
	}

	for msg := range messages {
		msg.Ack()

		trigger, err := panoptic.DecodeTrigger(msg)
		if err != nil {
			Logger.Log.Errorf("collector %s dropped trigger: %s", c.Name(), err)
			continue
		}
		c.Execute(ctx, trigger)
	}

	return nil
}

func (c *Collector) Name() string {
	return c.Config.Name
}

func (c *Collector) Shutdown() {
	Logger.Log.Infoln("module ", c.Config.Name, " gracefully shutdown")
}
