package collector_instances

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/Luismorlan/honeybee/browser"
	"github.com/Luismorlan/honeybee/collector"
	"github.com/Luismorlan/honeybee/collector/working_context"
	"github.com/Luismorlan/honeybee/model"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

// BrowserCrawler renders listing pages of JavaScript heavy sites in a pooled
// headless browser and reads the cards with the source's selector profile.
type BrowserCrawler struct {
	Pool *browser.Pool
}

func NewBrowserCrawler(pool *browser.Pool) *BrowserCrawler {
	return &BrowserCrawler{Pool: pool}
}

func (b BrowserCrawler) Name() string {
	return "browser"
}

func (b BrowserCrawler) Method() model.CollectionMethod {
	return model.MethodCrawler
}

func selectors(workingContext *working_context.CrawlerWorkingContext) *model.SelectorProfile {
	return workingContext.Source.Selectors
}

func (b BrowserCrawler) UpdateTitle(workingContext *working_context.CrawlerWorkingContext) error {
	title := collector.ExtractPlainText(workingContext.Element, selectors(workingContext).Title)
	if title == "" {
		return errors.New("card has no title")
	}
	workingContext.Result.Title = title
	return nil
}

// The card itself is often the anchor, otherwise the first link inside it.
func (b BrowserCrawler) UpdateLink(workingContext *working_context.CrawlerWorkingContext) error {
	elem := workingContext.Element
	sel := selectors(workingContext).Link
	link := ""
	switch {
	case sel != "":
		link = collector.ExtractAttribute(elem, sel, "href")
	case goquery.NodeName(elem) == "a":
		link = collector.ExtractAttribute(elem, "", "href")
	default:
		link = collector.ExtractAttribute(elem, "a[href]", "href")
	}
	if link == "" || strings.HasPrefix(link, "javascript:") {
		return errors.New("card has no link")
	}
	workingContext.Result.Link = link
	return nil
}

func (b BrowserCrawler) UpdateText(workingContext *working_context.CrawlerWorkingContext) error {
	sel := selectors(workingContext)
	res := workingContext.Result
	res.Summary = collector.ExtractPlainText(workingContext.Element, sel.Summary)
	res.Author = collector.ExtractPlainText(workingContext.Element, sel.Author)
	res.ViewsText = collector.ExtractPlainText(workingContext.Element, sel.Views)
	res.LikesText = collector.ExtractPlainText(workingContext.Element, sel.Likes)
	res.Duration = collector.ExtractPlainText(workingContext.Element, sel.Duration)
	res.Tags = collector.ExtractMultiText(workingContext.Element, sel.Tags)
	return nil
}

// <time datetime> is preferred over the rendered text.
func (b BrowserCrawler) UpdateDate(workingContext *working_context.CrawlerWorkingContext) error {
	sel := selectors(workingContext).Date
	if sel == "" {
		return nil
	}
	date := collector.ExtractAttribute(workingContext.Element, sel, "datetime")
	if date == "" {
		date = collector.ExtractPlainText(workingContext.Element, sel)
	}
	workingContext.Result.DateText = date
	return nil
}

func (b BrowserCrawler) UpdateThumbnail(workingContext *working_context.CrawlerWorkingContext) error {
	sel := selectors(workingContext).Thumbnail
	if sel == "" {
		sel = "img"
	}
	workingContext.Result.Thumbnail = collector.ExtractAttribute(workingContext.Element, sel, "src", "data-src", "data-lazy-src")
	html, err := goquery.OuterHtml(workingContext.Element)
	if err == nil {
		workingContext.Result.HTML = html
	}
	return nil
}

func (b BrowserCrawler) GetRecord(workingContext *working_context.CrawlerWorkingContext) error {
	workingContext.Result = &collector.BrowserRecord{}

	updaters := []func(workingContext *working_context.CrawlerWorkingContext) error{
		b.UpdateTitle,
		b.UpdateLink,
		b.UpdateText,
		b.UpdateDate,
		b.UpdateThumbnail,
	}
	for _, updater := range updaters {
		err := updater(workingContext)
		if err != nil {
			return err
		}
	}
	return nil
}

// ParseListing reads cards out of a rendered listing page.
func (b BrowserCrawler) ParseListing(source model.Source, pageUrl string, html string, limit int) ([]collector.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errors.Wrap(collector.ErrSourceParse, err.Error())
	}

	stats := &working_context.CollectStats{}
	res := []collector.RawRecord{}
	doc.Find(source.Selectors.Item).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if limit > 0 && len(res) >= limit {
			return false
		}
		workingContext := &working_context.CrawlerWorkingContext{
			SharedContext: working_context.SharedContext{Source: source, Stats: stats},
			Element:       s,
			PageUrl:       pageUrl,
		}
		err := b.GetRecord(workingContext)
		if !workingContext.Finish(err) {
			if err != nil {
				collector.LogHtmlParsingError(source, s, err)
			}
			return true
		}
		res = append(res, *workingContext.Result)
		return true
	})
	return res, collector.ErrorFromCounts(source, stats.Collected, stats.Failed)
}

// render loads the listing page and returns its html. A navigation failure
// discards the browser instance instead of returning it to the idle set.
func (b BrowserCrawler) render(ctx context.Context, handle *browser.Handle, source model.Source) (string, error) {
	page, err := handle.NewPage(ctx)
	if err != nil {
		handle.Discard()
		return "", err
	}
	if err := page.Navigate(ctx, source.ListingURL); err != nil {
		if ctx.Err() != nil {
			return "", errors.Wrap(ctx.Err(), "navigate")
		}
		handle.Discard()
		return "", errors.Wrap(collector.ErrSourceUnreachable, err.Error())
	}

	wait := source.Selectors.WaitFor
	if wait == "" {
		wait = source.Selectors.Item
	}
	if err := page.WaitFor(ctx, wait); err != nil {
		if ctx.Err() != nil {
			return "", errors.Wrapf(ctx.Err(), "wait for %q", wait)
		}
		return "", errors.Wrapf(collector.ErrSourceEmpty, "%q never appeared: %s", wait, err)
	}
	if source.Selectors.ScrollTimes > 0 {
		if err := page.Scroll(ctx, source.Selectors.ScrollTimes); err != nil {
			Logger.Log.Warnf("fail to scroll %s: %s", source.ListingURL, err)
		}
	}
	return page.HTML(ctx)
}

func (b BrowserCrawler) Collect(ctx context.Context, source model.Source, limit int) ([]collector.RawRecord, error) {
	if source.ListingURL == "" || source.Selectors == nil || source.Selectors.Item == "" {
		return nil, errors.Wrapf(collector.ErrSourceMisconfig, "%s needs listing_url and selectors.item", source.ID)
	}

	handle, err := b.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := b.Pool.Release(handle); err != nil {
			Logger.Log.Warnf("fail to release browser for %s: %s", source.ID, err)
		}
	}()

	html, err := b.render(ctx, handle, source)
	if err != nil {
		collector.LogCollectError(source, err, "")
		return nil, err
	}
	return b.ParseListing(source, source.ListingURL, html, limit)
}
