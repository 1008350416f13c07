package collector

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luismorlan/honeybee/model"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

const DefaultCrawlerUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func LogCollectError(source model.Source, err error, moreInfo string) {
	Logger.Log.WithFields(
		logrus.Fields{"source": source.ID, "method": source.Method},
	).Error(fmt.Sprintf("Error in data collector. [Source] %s. [Error] %s. [Target] %s. [More Info] %s", source.ID, err.Error(), source.Target(), moreInfo))
}

func LogHtmlParsingError(source model.Source, elem *goquery.Selection, err error) {
	html, _ := elem.Html()
	LogCollectError(source, err, fmt.Sprintf("[DOM Start] %s [DOM End].", html))
}

// ErrorFromCounts turns the item counters of one Collect call into its error.
// Nothing collected is a failure. Some failed items next to collected ones
// are only logged.
func ErrorFromCounts(source model.Source, collected, failed int) error {
	if collected == 0 && failed > 0 {
		return errors.Wrapf(ErrSourceParse, "all %d items of %s failed to parse", failed, source.ID)
	}
	if collected == 0 {
		return errors.Wrapf(ErrSourceEmpty, "%s at %s", source.ID, source.Target())
	}
	if failed > 0 {
		Logger.ForSource(source.ID).
			Warnf("finished collect with %d collected and %d failed items", collected, failed)
	}
	return nil
}

// ExtractPlainText returns the trimmed text of the first match of selector
// under elem. An empty selector yields "".
func ExtractPlainText(elem *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(elem.Find(selector).First().Text())
}

// ExtractAttribute reads attribute from the first match of selector, or from
// elem itself when selector is empty.
func ExtractAttribute(elem *goquery.Selection, selector string, attributes ...string) string {
	target := elem
	if selector != "" {
		target = elem.Find(selector).First()
	}
	for _, attr := range attributes {
		if v := strings.TrimSpace(target.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}

// ExtractMultiText returns the non-empty texts of every match of selector.
func ExtractMultiText(elem *goquery.Selection, selector string) []string {
	res := []string{}
	if selector == "" {
		return res
	}
	elem.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			res = append(res, text)
		}
	})
	return res
}

func GetDefaultCrawlerHeader() http.Header {
	h := http.Header{}
	h.Set("user-agent", DefaultCrawlerUserAgent)
	h.Set("accept-language", "ko-KR,ko;q=0.9,en-US;q=0.8")
	return h
}
