package log

import (
	"os"
	"time"

	"github.com/Luismorlan/honeybee/utils/dotenv"
	"github.com/Luismorlan/honeybee/utils/flag"
	ddhook "github.com/bin3377/logrus-datadog-hook"
	"github.com/sirupsen/logrus"
)

const (
	datadogUSHost = "http-intake.logs.datadoghq.com"
	// Logs are batched to datadog on this interval.
	hookFlushEvery = 30 * time.Second
	hookMaxRetry   = 3

	LevelEnvKey  = "LOG_LEVEL"
	FormatEnvKey = "LOG_FORMAT"
)

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// Tests never go through main, so the logger has to exist before any of them
// logs.
func init() {
	InitLogger()
}

// InitLogger (re)builds Log for the current service and environment. Binaries
// call it again once flags and .env files are loaded.
func InitLogger() {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)

	isProd := dotenv.Env() == dotenv.ProdEnv
	if apiKey := os.Getenv("DD_API_KEY"); isProd && apiKey != "" {
		logger.Hooks.Add(ddhook.NewHook(
			datadogUSHost,
			apiKey,
			hookFlushEvery,
			hookMaxRetry,
			logrus.InfoLevel,
			&logrus.JSONFormatter{},
			ddhook.Options{},
		))
	}

	if os.Getenv(FormatEnvKey) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if lvl, err := logrus.ParseLevel(os.Getenv(LevelEnvKey)); err == nil {
		logger.SetLevel(lvl)
	}

	Log = logger.WithFields(logrus.Fields{
		"service":        flag.ServiceName,
		"is_development": !isProd,
	})
}

// ForSource tags log lines with the platform they concern.
func ForSource(sourceID string) *logrus.Entry {
	return Log.WithField("source", sourceID)
}

// ForRun tags log lines with a collection run.
func ForRun(runID, kind string) *logrus.Entry {
	return Log.WithFields(logrus.Fields{"run_id": runID, "kind": kind})
}
