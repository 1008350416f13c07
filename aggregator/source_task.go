package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luismorlan/honeybee/collector"
	"github.com/Luismorlan/honeybee/collector/validation"
	"github.com/Luismorlan/honeybee/model"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

// sourceResult is what one source contributed to a run.
type sourceResult struct {
	outcome  model.SourceOutcome
	articles []model.Article
}

// fanOut runs every source concurrently and returns the results in source
// order. Network sources share a semaphore of NetworkConcurrency slots;
// crawler sources are bounded by the browser pool instead.
func (a *Aggregator) fanOut(ctx context.Context, sources []model.Source, limit int) []sourceResult {
	var wg sync.WaitGroup
	results := make([]sourceResult, len(sources))
	network := make(chan struct{}, a.config.NetworkConcurrency)

	for ind := range sources {
		wg.Add(1)
		go func(ind int, source model.Source) {
			defer wg.Done()
			if source.Method != model.MethodCrawler {
				select {
				case network <- struct{}{}:
					defer func() { <-network }()
				case <-ctx.Done():
					results[ind] = a.failed(source, 0, 0, errors.Wrap(collector.ErrSourceTimeout, "run budget spent before the source started"))
					return
				}
			}
			results[ind] = a.collectSource(ctx, source, limit)
		}(ind, sources[ind])
	}
	wg.Wait()
	return results
}

// collectSource runs one source with its timeout and retry policy, then
// normalizes and validates the records.
func (a *Aggregator) collectSource(ctx context.Context, source model.Source, defaultLimit int) sourceResult {
	start := a.now()
	logger := Logger.Log.WithFields(logrus.Fields{"source": source.ID, "method": source.Method})

	adapter, err := a.adapters.AdapterFor(source)
	if err != nil {
		logger.Errorf("no adapter: %s", err)
		return a.failed(source, 1, a.now().Sub(start), err)
	}

	limit := defaultLimit
	if source.Limit > 0 {
		limit = source.Limit
	}
	timeout := source.Timeout(a.config.SourceTimeout)
	retry := source.Retry
	if retry < 0 {
		retry = 0
	}

	var (
		records  []collector.RawRecord
		attempts int
	)
	for attempt := 0; attempt <= retry; attempt++ {
		attempts++
		records, err = a.attempt(ctx, adapter, source, limit, timeout)
		if err == nil {
			break
		}
		class := collector.ClassifyError(err)
		logger.Warnf("attempt %d/%d failed (%s): %s", attempts, retry+1, class, err)
		if errors.Is(class, collector.ErrSourceMisconfig) || ctx.Err() != nil || attempt == retry {
			break
		}
		// linear backoff
		select {
		case <-time.After(time.Duration(attempt+1) * a.config.RetryBackoff):
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	duration := a.now().Sub(start)
	if err != nil {
		return a.failed(source, attempts, duration, err)
	}

	now := a.now()
	articles := make([]model.Article, 0, len(records))
	dropped := 0
	for position, record := range records {
		article, err := a.normalizer.Normalize(source, record, position, now)
		if err != nil {
			dropped++
			logger.Debugf("drop record %d: %s", position, err)
			continue
		}
		if err := validation.ValidateArticle(source, &article, now); err != nil {
			dropped++
			logger.Debugf("drop invalid article %s: %s", article.URL, err)
			continue
		}
		articles = append(articles, article)
	}
	if dropped > 0 {
		logger.Warnf("dropped %d of %d records", dropped, len(records))
	}

	a.monitor.RecordSuccess(source.ID, duration, len(articles))
	logger.Infof("collected %d articles in %s", len(articles), duration)
	return sourceResult{
		outcome: model.SourceOutcome{
			SourceID:  source.ID,
			Method:    string(source.Method),
			Success:   true,
			ItemCount: len(articles),
			Dropped:   dropped,
			Attempts:  attempts,
			Duration:  duration,
		},
		articles: articles,
	}
}

func (a *Aggregator) failed(source model.Source, attempts int, duration time.Duration, err error) sourceResult {
	a.monitor.RecordFailure(source.ID, duration, err)
	return sourceResult{
		outcome: model.SourceOutcome{
			SourceID: source.ID,
			Method:   string(source.Method),
			Attempts: attempts,
			Duration: duration,
			Error:    err.Error(),
		},
		articles: []model.Article{},
	}
}

type attemptResult struct {
	records []collector.RawRecord
	err     error
}

// attempt runs the adapter under its own deadline. An adapter that does not
// return by then is abandoned: its goroutine finishes in the background and
// the result is discarded.
func (a *Aggregator) attempt(ctx context.Context, adapter collector.SourceAdapter, source model.Source, limit int, timeout time.Duration) ([]collector.RawRecord, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan attemptResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- attemptResult{err: errors.Wrap(collector.ErrSourceParse, fmt.Sprintf("adapter %s panicked: %v", adapter.Name(), r))}
			}
		}()
		records, err := adapter.Collect(attemptCtx, source, limit)
		done <- attemptResult{records: records, err: err}
	}()

	select {
	case r := <-done:
		return r.records, r.err
	case <-attemptCtx.Done():
		return nil, errors.Wrapf(collector.ErrSourceTimeout, "%s did not finish within %s", adapter.Name(), timeout)
	}
}
