package working_context

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"
	"github.com/mmcdole/gofeed"

	"github.com/Luismorlan/honeybee/collector"
	"github.com/Luismorlan/honeybee/model"
)

// CollectStats counts items of one Collect call. It is shared by all working
// contexts of that call.
type CollectStats struct {
	Collected int
	Failed    int
	Skipped   int
}

type SharedContext struct {
	Source               model.Source
	Stats                *CollectStats
	IntentionallySkipped bool
}

// Finish books the item into the shared stats. It returns true when the
// item should be kept.
func (sc *SharedContext) Finish(err error) bool {
	switch {
	case sc.IntentionallySkipped:
		sc.Stats.Skipped++
		return false
	case err != nil:
		sc.Stats.Failed++
		return false
	default:
		sc.Stats.Collected++
		return true
	}
}

// This is the context we keep to be used for all the steps
// for one card on a rendered listing page.
// Initialized with source and element
// All steps can put additional information into this object to pass down to next step
type CrawlerWorkingContext struct {
	SharedContext

	Element *goquery.Selection
	PageUrl string
	Result  *collector.BrowserRecord
}

// This is the context we keep to be used for all steps
// for one course card.
type CourseWorkingContext struct {
	SharedContext

	Element *colly.HTMLElement
	Page    int
	Result  *collector.CourseRecord
}

// This is the context we keep to be used for all steps
// for one feed item.
type RssCollectorWorkingContext struct {
	SharedContext

	RssUrl string
	Item   *gofeed.Item
	Result *collector.RssRecord
}

func (sc *SharedContext) String() string {
	return fmt.Sprintf("SharedContext is: source: %s (%s), stats: %+v", sc.Source.ID, sc.Source.Method, *sc.Stats)
}
