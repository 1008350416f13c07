package collector_instances

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/gocolly/colly"
	"github.com/pkg/errors"

	"github.com/Luismorlan/honeybee/collector"
	"github.com/Luismorlan/honeybee/collector/clients"
	"github.com/Luismorlan/honeybee/collector/working_context"
	"github.com/Luismorlan/honeybee/model"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

const (
	defaultPageParam = "page"
	defaultMaxPages  = 5
)

// CourseCollector walks the pages of a course listing until the item limit,
// MaxPages or an empty page.
type CourseCollector struct {
	Limiter   *clients.DomainLimiter
	UserAgent string
}

func NewCourseCollector(limiter *clients.DomainLimiter) *CourseCollector {
	return &CourseCollector{Limiter: limiter, UserAgent: collector.DefaultCrawlerUserAgent}
}

func (c CourseCollector) Name() string {
	return "course-listing"
}

func (c CourseCollector) Method() model.CollectionMethod {
	return model.MethodApi
}

func pagination(workingContext *working_context.CourseWorkingContext) *model.PaginationProfile {
	return workingContext.Source.Pagination
}

func (c CourseCollector) UpdateTitleAndLink(workingContext *working_context.CourseWorkingContext) error {
	p := pagination(workingContext)
	elem := workingContext.Element
	res := workingContext.Result

	res.Title = collector.ExtractPlainText(elem.DOM, p.Title)
	if res.Title == "" {
		return errors.New("course card has no title")
	}
	href := collector.ExtractAttribute(elem.DOM, p.Link, "href")
	if href == "" && p.Link == "" {
		href = collector.ExtractAttribute(elem.DOM, "a[href]", "href")
	}
	if href == "" {
		return errors.New("course card has no link")
	}
	res.Link = elem.Request.AbsoluteURL(href)
	return nil
}

func (c CourseCollector) UpdateDetails(workingContext *working_context.CourseWorkingContext) error {
	p := pagination(workingContext)
	dom := workingContext.Element.DOM
	res := workingContext.Result
	res.Summary = collector.ExtractPlainText(dom, p.Summary)
	res.Instructor = collector.ExtractPlainText(dom, p.Instructor)
	res.PriceText = collector.ExtractPlainText(dom, p.Price)
	res.RatingText = collector.ExtractPlainText(dom, p.Rating)
	res.StudentsText = collector.ExtractPlainText(dom, p.Students)
	res.DurationText = collector.ExtractPlainText(dom, p.Duration)
	res.Tags = collector.ExtractMultiText(dom, p.Tags)
	res.Page = workingContext.Page
	return nil
}

func (c CourseCollector) UpdateThumbnail(workingContext *working_context.CourseWorkingContext) error {
	sel := pagination(workingContext).Thumbnail
	if sel == "" {
		sel = "img"
	}
	src := collector.ExtractAttribute(workingContext.Element.DOM, sel, "src", "data-src")
	if src != "" {
		workingContext.Result.Thumbnail = workingContext.Element.Request.AbsoluteURL(src)
	}
	return nil
}

func (c CourseCollector) GetRecord(workingContext *working_context.CourseWorkingContext) error {
	workingContext.Result = &collector.CourseRecord{}

	updaters := []func(workingContext *working_context.CourseWorkingContext) error{
		c.UpdateTitleAndLink,
		c.UpdateDetails,
		c.UpdateThumbnail,
	}
	for _, updater := range updaters {
		err := updater(workingContext)
		if err != nil {
			return err
		}
	}
	return nil
}

// PageUrl sets the page query parameter on the listing url.
func PageUrl(listingUrl string, param string, page int) (string, error) {
	u, err := url.Parse(listingUrl)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(param, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// collectPage visits one listing page and returns its cards, at most max.
func (c CourseCollector) collectPage(ctx context.Context, source model.Source, pageUrl string, page int, max int, stats *working_context.CollectStats) ([]collector.RawRecord, error) {
	if c.Limiter != nil {
		release, err := c.Limiter.Acquire(ctx, clients.HostOf(pageUrl))
		if err != nil {
			return nil, err
		}
		defer release()
	}

	col := colly.NewCollector(colly.UserAgent(c.UserAgent))
	if deadline, ok := ctx.Deadline(); ok {
		col.SetRequestTimeout(time.Until(deadline))
	}

	res := []collector.RawRecord{}
	// each course card of the page will go to this
	col.OnHTML(source.Pagination.Item, func(elem *colly.HTMLElement) {
		if max > 0 && len(res) >= max {
			return
		}
		workingContext := &working_context.CourseWorkingContext{
			SharedContext: working_context.SharedContext{Source: source, Stats: stats},
			Element:       elem,
			Page:          page,
		}
		err := c.GetRecord(workingContext)
		if !workingContext.Finish(err) {
			if err != nil {
				collector.LogHtmlParsingError(source, elem.DOM, err)
			}
			return
		}
		res = append(res, *workingContext.Result)
	})

	var visitErr error
	col.OnError(func(r *colly.Response, err error) {
		visitErr = err
		Logger.ForSource(source.ID).
			Errorf("request %s failed with status %d: %s", r.Request.URL, r.StatusCode, err)
	})

	if err := col.Visit(pageUrl); err != nil && visitErr == nil {
		visitErr = err
	}
	if visitErr != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), pageUrl)
		}
		return nil, errors.Wrap(collector.ErrSourceUnreachable, visitErr.Error())
	}
	return res, nil
}

func (c CourseCollector) Collect(ctx context.Context, source model.Source, limit int) ([]collector.RawRecord, error) {
	p := source.Pagination
	if source.ListingURL == "" || p == nil || p.Item == "" {
		return nil, errors.Wrapf(collector.ErrSourceMisconfig, "%s needs listing_url and pagination.item", source.ID)
	}
	param := p.PageParam
	if param == "" {
		param = defaultPageParam
	}
	first := p.FirstPage
	if first <= 0 {
		first = 1
	}
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	stats := &working_context.CollectStats{}
	res := []collector.RawRecord{}
	for page := first; page < first+maxPages; page++ {
		if limit > 0 && len(res) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			if page == first {
				return nil, errors.Wrap(err, source.ID)
			}
			break
		}

		pageUrl, err := PageUrl(source.ListingURL, param, page)
		if err != nil {
			return nil, errors.Wrap(collector.ErrSourceMisconfig, err.Error())
		}
		remaining := 0
		if limit > 0 {
			remaining = limit - len(res)
		}
		records, err := c.collectPage(ctx, source, pageUrl, page, remaining, stats)
		if err != nil {
			if page == first {
				collector.LogCollectError(source, err, pageUrl)
				return nil, err
			}
			// later pages failing keeps what we have
			Logger.ForSource(source.ID).
				Warnf("stop paginating at page %d: %s", page, err)
			break
		}
		if len(records) == 0 {
			break
		}
		res = append(res, records...)

		if p.PageDelayMs > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(p.PageDelayMs) * time.Millisecond):
			}
		}
	}
	return res, collector.ErrorFromCounts(source, stats.Collected, stats.Failed)
}
