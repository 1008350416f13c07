package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Luismorlan/honeybee/app_config"
	"github.com/Luismorlan/honeybee/panoptic"
	"github.com/Luismorlan/honeybee/panoptic/modules"
	. "github.com/Luismorlan/honeybee/utils"
	"github.com/Luismorlan/honeybee/utils/dotenv"
	. "github.com/Luismorlan/honeybee/utils/flag"
	. "github.com/Luismorlan/honeybee/utils/log"
)

const (
	// Long polling wait of the trigger queue, in seconds.
	queueReadTimeout = 20
)

var (
	// Also trigger one collection when the engine starts.
	RunOnStart *bool
)

// init() will always be called on before the execution of main function.
func init() {
	RunOnStart = flag.Bool("run_on_start", false, "trigger one fresh collection on start up")
}

func cleanup() {
	CloseProfiler()
	CloseTracer()
	Log.Info("panoptic shutdown")
}

func main() {
	flag.Parse()
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	ServiceName = Panoptic
	InitLogger()
	StartTracer()
	defer cleanup()

	config, err := app_config.ParseHoneybeeAppConfig(AppConfigPath)
	if err != nil {
		Log.Fatalf("fail to parse app config %s: %s", AppConfigPath, err)
	}
	hour, minute, err := config.DailyCollectAt()
	if err != nil {
		Log.Fatal(err)
	}
	loc, err := config.Location()
	if err != nil {
		Log.Fatal(err)
	}

	statsdClient, err := app_config.NewDogStatsdClient()
	if err != nil {
		Log.Fatal(err)
	}

	ctx := context.Background()
	components, err := app_config.BuildComponents(ctx, config, statsdClient)
	if err != nil {
		Log.Fatalf("fail to build components: %s", err)
	}
	defer components.Close()

	eventbus := panoptic.NewEventBus()

	// Initialize all engine modules here.
	ms := []panoptic.Module{
		// Scheduler publishes the daily fresh-collect trigger.
		modules.NewScheduler(modules.SchedulerConfig{
			Name:       "scheduler",
			Hour:       hour,
			Minute:     minute,
			Location:   loc,
			RunOnStart: *RunOnStart,
		}, eventbus),
		// Collector runs every trigger against the aggregator and publishes the
		// run report.
		modules.NewCollector(modules.CollectorConfig{Name: "collector"}, components.Aggregator, eventbus),
		// Reporter reports the run metrics to datadog for monitoring purpose.
		modules.NewReporter(modules.ReporterConfig{Name: "reporter"}, statsdClient, eventbus),
	}

	if queue := config.TriggerQueue(); queue != "" {
		reader, err := NewSQSMessageQueueReader(queue, queueReadTimeout)
		if err != nil {
			Log.Fatalf("fail to open trigger queue: %s", err)
		}
		ms = append(ms, modules.NewQueueTrigger(modules.QueueTriggerConfig{Name: "queue_trigger"}, reader, eventbus))
	}

	if components.Pool != nil {
		ms = append(ms, modules.NewPoolMaintainer(modules.PoolMaintainerConfig{
			Name:          "pool_maintainer",
			MaintainEvery: config.PoolConfig().MaintainEvery,
		}, components.Pool, statsdClient))
	}

	engine := panoptic.NewEngine(ms, ctx, eventbus)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		Log.Infof("received %s", sig)
		engine.Shutdown()
	}()

	// blocking call.
	engine.Run()

	Log.Info("engine stopped execution.")
}
