package modules

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/Luismorlan/honeybee/panoptic"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

type SchedulerConfig struct {
	// Name of the scheduler.
	Name string

	// Local time of the daily collection.
	Hour     int
	Minute   int
	Location *time.Location

	// Also trigger one collection as soon as the module starts.
	RunOnStart bool
}

// Scheduler publishes one fresh-collect trigger a day at the configured local
// time.
type Scheduler struct {
	Config SchedulerConfig

	EventBus *gochannel.GoChannel

	now   func() time.Time
	after func(d time.Duration) <-chan time.Time
}

func NewScheduler(config SchedulerConfig, e *gochannel.GoChannel) *Scheduler {
	if config.Location == nil {
		config.Location = time.Local
	}
	return &Scheduler{
		Config:   config,
		EventBus: e,
		now:      time.Now,
		after:    time.After,
	}
}

func (s *Scheduler) publish(reason panoptic.TriggerReason) {
	trigger := panoptic.NewCollectTrigger(panoptic.COLLECT_FRESH, reason, s.now())
	if err := panoptic.PublishTrigger(s.EventBus, trigger); err != nil {
		Logger.Log.Errorf("scheduler %s fail to publish trigger, error: %s", s.Name(), err)
		return
	}
	Logger.Log.Infof("scheduler %s published trigger %s", s.Name(), trigger.ID)
}

func (s *Scheduler) RunModule(ctx context.Context) error {
	if s.Config.RunOnStart {
		s.publish(panoptic.TRIGGER_MANUAL)
	}
	for {
		next := panoptic.NextDailyRun(s.now(), s.Config.Hour, s.Config.Minute, s.Config.Location)
		Logger.Log.Infof("scheduler %s: next collection at %s", s.Name(), next.Format(time.RFC3339))
		select {
		case <-ctx.Done():
			return nil
		case <-s.after(next.Sub(s.now())):
			s.publish(panoptic.TRIGGER_DAILY)
		}
	}
}

func (s *Scheduler) Name() string {
	return s.Config.Name
}

func (s *Scheduler) Shutdown() {}
