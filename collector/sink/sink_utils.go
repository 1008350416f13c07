package sink

import (
	"github.com/Luismorlan/honeybee/model"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

// Push a report into every sink. A failing sink is logged and skipped, the
// run itself is never failed by reporting. Returns how many sinks accepted
// the report.
func PushReportToSinks(sinks []RunReportSink, report *model.RunReport) int {
	pushed := 0
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if err := s.Push(report); err != nil {
			Logger.Log.Errorf("fail to push run report %s to sink %T, Error: %s", report.RunID, s, err)
			continue
		}
		pushed++
	}
	return pushed
}
