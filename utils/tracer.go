package utils

import (
	"github.com/Luismorlan/honeybee/utils/flag"
	Logger "github.com/Luismorlan/honeybee/utils/log"
	"github.com/sirupsen/logrus"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func ddEnv() string {
	if IsProdEnv() {
		return "production"
	}
	return "development"
}

// StartTracer starts the Datadog tracer for the current service.
func StartTracer() {
	tracer.Start(
		tracer.WithService(flag.ServiceName),
		tracer.WithEnv(ddEnv()),
	)

	Logger.Log.WithFields(
		logrus.Fields{"service": flag.ServiceName, "env": ddEnv()},
	).Info("tracer initialized")
}

// Stop tracer, OK to be closed multiple times
func CloseTracer() {
	tracer.Stop()
}
