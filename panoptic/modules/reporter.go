package modules

import (
	"context"
	"strings"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/Luismorlan/honeybee/model"
	"github.com/Luismorlan/honeybee/panoptic"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

type ReporterConfig struct {
	Name string
}

// Reporter's job is to listen to run reports and send them to Datadog for
// monitoring purpose.
type Reporter struct {
	Config ReporterConfig

	Statsd statsd.ClientInterface

	EventBus *gochannel.GoChannel
}

func NewReporter(config ReporterConfig, statsd statsd.ClientInterface, e *gochannel.GoChannel) *Reporter {
	return &Reporter{
		Config:   config,
		Statsd:   statsd,
		EventBus: e,
	}
}

func tag(key, value string) string {
	return key + ":" + strings.ReplaceAll(value, " ", "_")
}

// Report run result and per source outcome to datadog.
func ReportRunResult(report *model.RunReport, client statsd.ClientInterface) {
	if report == nil || client == nil {
		return
	}
	result := "success"
	if report.Error != "" {
		result = "failure"
	}
	runTags := []string{tag("kind", report.Kind), tag("result", result)}
	if err := client.Incr(panoptic.DDOG_RUN_COUNTER, runTags, 1); err != nil {
		Logger.Log.Infoln("cannot report run result")
	}
	client.Timing(panoptic.DDOG_RUN_DURATION, report.Duration(), runTags, 1)
	client.Gauge(panoptic.DDOG_RUN_CORPUS_SIZE, float64(report.CorpusSize), runTags, 1)
	client.Gauge(panoptic.DDOG_RUN_DUPLICATES, float64(report.DuplicatesRemoved), runTags, 1)

	for _, o := range report.Outcomes {
		outcome := "success"
		if !o.Success {
			outcome = "failure"
		}
		err := client.Incr(panoptic.DDOG_SOURCE_OUTCOME_COUNTER,
			[]string{
				tag("source", o.SourceID),
				tag("method", o.Method),
				tag("result", outcome),
			}, 1)
		if err != nil {
			Logger.Log.Infoln("cannot report source outcome")
		}
	}
}

func (r *Reporter) ProcessRunReports(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := r.EventBus.Subscribe(ctx, panoptic.TOPIC_RUN_REPORT)
	if err != nil {
		return err
	}

	for msg := range messages {
		msg.Ack()

		report, err := panoptic.DecodeRunReport(msg)
		if err != nil {
			Logger.Log.Errorf("reporter %s dropped report: %s", r.Name(), err)
			continue
		}
		ReportRunResult(report, r.Statsd)
	}

	return nil
}

func (r *Reporter) RunModule(ctx context.Context) error {
	return r.ProcessRunReports(ctx)
}

func (r *Reporter) Name() string {
	return r.Config.Name
}

func (r *Reporter) Shutdown() {
	if r.Statsd == nil {
		return
	}
	if err := r.Statsd.Flush(); err != nil {
		Logger.Log.Errorf("fail to flush statsd: %s", err)
	}
}
