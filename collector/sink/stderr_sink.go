package sink

import (
	"github.com/sirupsen/logrus"

	"github.com/Luismorlan/honeybee/model"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

type StdErrSink struct{}

func NewStdErrSink() *StdErrSink {
	return &StdErrSink{}
}

func (s *StdErrSink) Push(report *model.RunReport) error {
	if report == nil {
		return nil
	}
	entry := Logger.ForRun(report.RunID, report.Kind).WithFields(logrus.Fields{
		"corpus_size":        report.CorpusSize,
		"succeeded":          report.Succeeded(),
		"failed":             report.Failed(),
		"duplicates_removed": report.DuplicatesRemoved,
		"duration_ms":        report.Duration().Milliseconds(),
	})
	for _, o := range report.Outcomes {
		if o.Success {
			continue
		}
		entry.Warnf("source %s failed after %d attempts: %s", o.SourceID, o.Attempts, o.Error)
	}
	if report.Error != "" {
		entry.Errorf("=== collection run failed: %s ===", report.Error)
		return nil
	}
	entry.Info("=== collection run finished ===")
	return nil
}
