package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	ddlambda "github.com/DataDog/datadog-lambda-go"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/pkg/errors"

	"github.com/Luismorlan/honeybee/aggregator"
	"github.com/Luismorlan/honeybee/app_config"
	"github.com/Luismorlan/honeybee/model"
	"github.com/Luismorlan/honeybee/panoptic"
	. "github.com/Luismorlan/honeybee/utils"
	"github.com/Luismorlan/honeybee/utils/dotenv"
	. "github.com/Luismorlan/honeybee/utils/flag"
	. "github.com/Luismorlan/honeybee/utils/log"
)

var (
	LambdaMode *bool
	Enqueue    *bool
	JsonReport *bool
	Kind       *string
)

// init() will always be called on before the execution of main function.
func init() {
	LambdaMode = flag.Bool("lambda", false, "serve collection requests as an AWS Lambda handler")
	Enqueue = flag.Bool("enqueue", false, "send a trigger to the panoptic trigger queue instead of collecting")
	JsonReport = flag.Bool("json", false, "print the run report as json instead of a table")
	Kind = flag.String("kind", string(panoptic.COLLECT_FRESH), "'fresh' or 'courses'")
}

// CollectRequest is the Lambda event. An empty kind runs a fresh collection.
type CollectRequest struct {
	Kind string `json:"kind"`
}

type CollectResponse struct {
	Report *model.RunReport `json:"report"`
}

func cleanup() {
	CloseProfiler()
	CloseTracer()
	Log.Info("data collector shutdown")
}

func runCollection(ctx context.Context, agg *aggregator.Aggregator, kind panoptic.CollectKind) (*aggregator.Result, error) {
	switch kind {
	case panoptic.COLLECT_FRESH, "":
		return agg.CollectFresh(ctx)
	case panoptic.COLLECT_COURSES:
		return agg.CollectCourses(ctx)
	}
	return nil, errors.Errorf("unknown collection kind %q", kind)
}

// NewHandler returns the Lambda handler running collections on agg.
func NewHandler(agg *aggregator.Aggregator) func(ctx context.Context, event CollectRequest) (CollectResponse, error) {
	return func(ctx context.Context, event CollectRequest) (CollectResponse, error) {
		Log.Info("processing collect request of kind: ", event.Kind)
		result, err := runCollection(ctx, agg, panoptic.CollectKind(event.Kind))
		res := CollectResponse{}
		if result != nil {
			res.Report = result.Report
		}
		if err != nil {
			Log.Error("collection failed with error: ", err)
			return res, err
		}
		return res, nil
	}
}

// PrintSummary writes a per-source table and the run totals.
func PrintSummary(result *aggregator.Result) {
	if result == nil || result.Report == nil {
		return
	}
	report := result.Report
	outcomes := append([]model.SourceOutcome{}, report.Outcomes...)
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].SourceID < outcomes[j].SourceID })

	fmt.Printf("run %s (%s) finished in %s\n", report.RunID, report.Kind, report.Duration())
	for _, o := range outcomes {
		status := "ok"
		if !o.Success {
			status = "FAILED " + o.Error
		}
		fmt.Printf("  %-20s %-8s items=%-4d dropped=%-3d attempts=%d %s\n",
			o.SourceID, o.Method, o.ItemCount, o.Dropped, o.Attempts, status)
	}
	fmt.Printf("succeeded=%d failed=%d duplicates_removed=%d corpus_size=%d\n",
		report.Succeeded(), report.Failed(), report.DuplicatesRemoved, report.CorpusSize)
}

// enqueueTrigger asks a running panoptic to collect through its trigger queue.
func enqueueTrigger(ctx context.Context, queue string, kind panoptic.CollectKind) error {
	if queue == "" {
		return errors.Errorf("no trigger queue, set TRIGGER_QUEUE or %s", app_config.TriggerQueueEnvKey)
	}
	writer, err := NewSQSMessageQueueWriter(queue)
	if err != nil {
		return err
	}
	body, err := json.Marshal(CollectRequest{Kind: string(kind)})
	if err != nil {
		return err
	}
	id, err := writer.SendMessage(ctx, string(body))
	if err != nil {
		return err
	}
	Log.Infof("enqueued %s trigger %s on %s", kind, id, queue)
	return nil
}

// Runs one collection and prints the summary, serves the same collection as a
// Lambda handler with -lambda, or hands it to panoptic with -enqueue.
// Example:
// go run cmd/collector/main.go -kind courses
func main() {
	flag.Parse()
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}
	ServiceName = Collector
	InitLogger()
	defer cleanup()

	config, err := app_config.ParseHoneybeeAppConfig(AppConfigPath)
	if err != nil {
		Log.Fatalf("fail to parse app config %s: %s", AppConfigPath, err)
	}

	ctx := context.Background()
	if *Enqueue {
		if err := enqueueTrigger(ctx, config.TriggerQueue(), panoptic.CollectKind(*Kind)); err != nil {
			Log.Fatalf("fail to enqueue trigger: %s", err)
		}
		return
	}

	components, err := app_config.BuildComponents(ctx, config, nil)
	if err != nil {
		Log.Fatalf("fail to build components: %s", err)
	}
	defer components.Close()

	if *LambdaMode {
		Log.Info("Starting lambda handler, waiting for requests...")
		lambda.Start(ddlambda.WrapFunction(NewHandler(components.Aggregator), nil))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, config.OneShotTimeout())
	defer cancel()
	result, err := runCollection(ctx, components.Aggregator, panoptic.CollectKind(*Kind))
	if *JsonReport && result != nil {
		fmt.Print(PrettyPrint(result.Report))
	} else {
		PrintSummary(result)
	}
	if err != nil {
		Log.Errorf("collection failed: %s", err)
		components.Close()
		cleanup()
		os.Exit(1)
	}
}
