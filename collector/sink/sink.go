package sink

import "github.com/Luismorlan/honeybee/model"

// RunReportSink receives the report of every collection run.
type RunReportSink interface {
	Push(report *model.RunReport) error
}
