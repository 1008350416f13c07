package collector_instances

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/pkg/errors"

	"github.com/Luismorlan/honeybee/collector"
	"github.com/Luismorlan/honeybee/collector/clients"
	"github.com/Luismorlan/honeybee/collector/working_context"
	"github.com/Luismorlan/honeybee/model"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

const mediaNamespace = "media"

// RssCollector reads RSS, Atom and JSON feeds. YouTube channel feeds are
// plain Atom with media:group extensions.
type RssCollector struct {
	Client *clients.HttpClient
}

func NewRssCollector(client *clients.HttpClient) *RssCollector {
	return &RssCollector{Client: client}
}

func (r RssCollector) Name() string {
	return "rss"
}

func (r RssCollector) Method() model.CollectionMethod {
	return model.MethodRss
}

func (r RssCollector) UpdateBasics(workingContext *working_context.RssCollectorWorkingContext) error {
	item := workingContext.Item
	res := workingContext.Result
	res.GUID = strings.TrimSpace(item.GUID)
	res.Title = strings.TrimSpace(item.Title)
	res.Link = strings.TrimSpace(item.Link)
	if res.Link == "" && len(item.Links) > 0 {
		res.Link = strings.TrimSpace(item.Links[0])
	}
	if res.Title == "" {
		return errors.New("feed item has no title")
	}
	if res.Link == "" && !strings.HasPrefix(res.GUID, "http") {
		return errors.New("feed item has no link")
	}
	res.Description = item.Description
	res.Content = item.Content
	res.Categories = append([]string{}, item.Categories...)
	return nil
}

func (r RssCollector) UpdateAuthor(workingContext *working_context.RssCollectorWorkingContext) error {
	item := workingContext.Item
	switch {
	case item.Author != nil && item.Author.Name != "":
		workingContext.Result.Author = item.Author.Name
	case len(item.Authors) > 0 && item.Authors[0] != nil:
		workingContext.Result.Author = item.Authors[0].Name
	case item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0:
		workingContext.Result.Author = item.DublinCoreExt.Creator[0]
	}
	return nil
}

// Parsed dates are kept as is. Unparsed ones are left to the normalizer,
// which knows more date formats.
func (r RssCollector) UpdatePublished(workingContext *working_context.RssCollectorWorkingContext) error {
	item := workingContext.Item
	switch {
	case item.PublishedParsed != nil:
		t := *item.PublishedParsed
		workingContext.Result.Published = &t
	case item.UpdatedParsed != nil:
		t := *item.UpdatedParsed
		workingContext.Result.Published = &t
	case item.Published != "":
		workingContext.Result.PublishedText = item.Published
	default:
		workingContext.Result.PublishedText = item.Updated
	}
	return nil
}

func (r RssCollector) UpdateMedia(workingContext *working_context.RssCollectorWorkingContext) error {
	item := workingContext.Item
	res := workingContext.Result
	if item.Image != nil {
		res.ImageURL = item.Image.URL
	}
	for _, e := range item.Enclosures {
		if e == nil || e.URL == "" {
			continue
		}
		res.Enclosures = append(res.Enclosures, collector.Enclosure{URL: e.URL, Type: e.Type, Length: e.Length})
	}

	media, ok := item.Extensions[mediaNamespace]
	if !ok {
		return nil
	}
	res.Media = append(res.Media, mediaEntries(media)...)
	// media:group wraps the entries on YouTube feeds
	for _, group := range media["group"] {
		res.Media = append(res.Media, mediaEntries(group.Children)...)
		if res.Description == "" {
			for _, d := range group.Children["description"] {
				res.Description = d.Value
			}
		}
	}
	return nil
}

func mediaEntries(media map[string][]ext.Extension) []collector.MediaContent {
	res := []collector.MediaContent{}
	for _, name := range []string{"content", "thumbnail"} {
		for _, e := range media[name] {
			url := e.Attrs["url"]
			if url == "" {
				continue
			}
			m := collector.MediaContent{URL: url, Medium: e.Attrs["medium"], Type: e.Attrs["type"]}
			if name == "thumbnail" && m.Medium == "" {
				m.Medium = "image"
			}
			m.Width, _ = strconv.Atoi(e.Attrs["width"])
			m.Height, _ = strconv.Atoi(e.Attrs["height"])
			res = append(res, m)
		}
	}
	return res
}

func (r RssCollector) GetRecord(workingContext *working_context.RssCollectorWorkingContext) error {
	workingContext.Result = &collector.RssRecord{}

	updaters := []func(workingContext *working_context.RssCollectorWorkingContext) error{
		r.UpdateBasics,
		r.UpdateAuthor,
		r.UpdatePublished,
		r.UpdateMedia,
	}
	for _, updater := range updaters {
		err := updater(workingContext)
		if err != nil {
			return err
		}
	}
	return nil
}

// ParseFeed parses a fetched feed body into records.
func (r RssCollector) ParseFeed(source model.Source, body []byte, limit int) ([]collector.RawRecord, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(collector.ErrSourceParse, err.Error())
	}

	stats := &working_context.CollectStats{}
	res := []collector.RawRecord{}
	for _, item := range feed.Items {
		if limit > 0 && len(res) >= limit {
			break
		}
		if item == nil {
			continue
		}
		workingContext := &working_context.RssCollectorWorkingContext{
			SharedContext: working_context.SharedContext{Source: source, Stats: stats},
			RssUrl:        source.FeedURL,
			Item:          item,
		}
		err := r.GetRecord(workingContext)
		if !workingContext.Finish(err) {
			if err != nil {
				Logger.ForSource(source.ID).
					Debugf("skip feed item %q: %s", item.Title, err)
			}
			continue
		}
		res = append(res, *workingContext.Result)
	}
	return res, collector.ErrorFromCounts(source, stats.Collected, stats.Failed)
}

func (r RssCollector) Collect(ctx context.Context, source model.Source, limit int) ([]collector.RawRecord, error) {
	if source.FeedURL == "" {
		return nil, errors.Wrapf(collector.ErrSourceMisconfig, "%s has no feed url", source.ID)
	}
	body, err := r.Client.GetBody(ctx, source.FeedURL)
	if err != nil {
		return nil, err
	}
	records, err := r.ParseFeed(source, body, limit)
	if err != nil {
		collector.LogCollectError(source, err, "")
	}
	return records, err
}
