// Package monitor keeps in-process collection health: per-source counters,
// a bounded log of recent attempts and hourly trends.
package monitor

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/DataDog/datadog-go/statsd"

	"github.com/Luismorlan/honeybee/collector"
	Logger "github.com/Luismorlan/honeybee/utils/log"
)

const (
	DefaultCapacity = 1000

	DDOG_SOURCE_RESULT_COUNTER = "honeybee.collector.source_result"
	DDOG_SOURCE_DURATION       = "honeybee.collector.source_duration"
	DDOG_SOURCE_ITEMS          = "honeybee.collector.source_items"

	// A source is unhealthy after this many failures in a row.
	unhealthyAfter = 3
)

// Event is one recorded collection attempt.
type Event struct {
	SourceID   string        `json:"sourceId"`
	Success    bool          `json:"success"`
	Duration   time.Duration `json:"durationNs"`
	ItemCount  int           `json:"itemCount"`
	Error      string        `json:"error,omitempty"`
	ErrorClass string        `json:"errorClass,omitempty"`
	At         time.Time     `json:"at"`
}

type Statistics struct {
	Attempts          int        `json:"attempts"`
	Successes         int        `json:"successes"`
	Failures          int        `json:"failures"`
	SuccessRate       float64    `json:"successRate"`
	AverageDurationMs int64      `json:"averageDurationMs"`
	TotalItems        int        `json:"totalItems"`
	Sources           int        `json:"sources"`
	HealthySources    int        `json:"healthySources"`
	LastEventAt       *time.Time `json:"lastEventAt,omitempty"`
}

type SourceStatistics struct {
	SourceID            string     `json:"sourceId"`
	Attempts            int        `json:"attempts"`
	Successes           int        `json:"successes"`
	Failures            int        `json:"failures"`
	SuccessRate         float64    `json:"successRate"`
	AverageDurationMs   int64      `json:"averageDurationMs"`
	TotalItems          int        `json:"totalItems"`
	LastItemCount       int        `json:"lastItemCount"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	Healthy             bool       `json:"healthy"`
}

// TrendBucket aggregates the attempts that started within one hour.
type TrendBucket struct {
	Hour              time.Time `json:"hour"`
	Attempts          int       `json:"attempts"`
	Successes         int       `json:"successes"`
	Failures          int       `json:"failures"`
	Items             int       `json:"items"`
	AverageDurationMs int64     `json:"averageDurationMs"`
}

type sourceCounters struct {
	attempts            int
	successes           int
	failures            int
	totalDuration       time.Duration
	totalItems          int
	lastItemCount       int
	lastSuccess         time.Time
	lastFailure         time.Time
	lastError           string
	consecutiveFailures int
}

// Monitor is safe for concurrent use. Recording only takes a short lock;
// statsd writes are fire and forget.
type Monitor struct {
	statsd statsd.ClientInterface
	now    func() time.Time

	m       sync.Mutex
	events  []Event
	next    int
	full    bool
	sources map[string]*sourceCounters
}

// New creates a monitor keeping the last capacity events. statsd may be nil.
func New(capacity int, client statsd.ClientInterface) *Monitor {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Monitor{
		statsd:  client,
		now:     time.Now,
		events:  make([]Event, capacity),
		sources: map[string]*sourceCounters{},
	}
}

func (m *Monitor) RecordSuccess(sourceID string, duration time.Duration, itemCount int) {
	m.record(Event{SourceID: sourceID, Success: true, Duration: duration, ItemCount: itemCount})
}

func (m *Monitor) RecordFailure(sourceID string, duration time.Duration, err error) {
	e := Event{SourceID: sourceID, Duration: duration, Error: "unknown error", ErrorClass: collector.ErrSourceUnreachable.Error()}
	if err != nil {
		e.Error = err.Error()
		e.ErrorClass = collector.ClassifyError(err).Error()
	}
	m.record(e)
}

func (m *Monitor) record(e Event) {
	if m == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			Logger.Log.Errorf("monitor dropped event for %s: %v", e.SourceID, r)
		}
	}()

	m.m.Lock()
	e.At = m.now()
	m.events[m.next] = e
	m.next = (m.next + 1) % len(m.events)
	if m.next == 0 {
		m.full = true
	}

	c, ok := m.sources[e.SourceID]
	if !ok {
		c = &sourceCounters{}
		m.sources[e.SourceID] = c
	}
	c.attempts++
	c.totalDuration += e.Duration
	if e.Success {
		c.successes++
		c.totalItems += e.ItemCount
		c.lastItemCount = e.ItemCount
		c.lastSuccess = e.At
		c.consecutiveFailures = 0
	} else {
		c.failures++
		c.lastFailure = e.At
		c.lastError = e.Error
		c.consecutiveFailures++
	}
	m.m.Unlock()

	m.report(e)
}

func (m *Monitor) report(e Event) {
	if m.statsd == nil {
		return
	}
	result := "success"
	if !e.Success {
		result = "failure"
	}
	tags := []string{"source:" + e.SourceID, "result:" + result}
	if e.ErrorClass != "" {
		tags = append(tags, "error_class:"+strings.ReplaceAll(e.ErrorClass, " ", "_"))
	}
	if err := m.statsd.Incr(DDOG_SOURCE_RESULT_COUNTER, tags, 1); err != nil {
		Logger.Log.Debugln("cannot report source result")
	}
	if err := m.statsd.Timing(DDOG_SOURCE_DURATION, e.Duration, tags[:1], 1); err != nil {
		Logger.Log.Debugln("cannot report source duration")
	}
	if e.Success {
		if err := m.statsd.Gauge(DDOG_SOURCE_ITEMS, float64(e.ItemCount), tags[:1], 1); err != nil {
			Logger.Log.Debugln("cannot report source items")
		}
	}
}

// must hold m, oldest first
func (m *Monitor) snapshotLocked() []Event {
	if !m.full {
		return append([]Event{}, m.events[:m.next]...)
	}
	res := make([]Event, 0, len(m.events))
	res = append(res, m.events[m.next:]...)
	return append(res, m.events[:m.next]...)
}

func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func averageMs(total time.Duration, n int) int64 {
	if n == 0 {
		return 0
	}
	return (total / time.Duration(n)).Milliseconds()
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Statistics summarizes every attempt recorded since start.
func (m *Monitor) Statistics() Statistics {
	m.m.Lock()
	defer m.m.Unlock()

	s := Statistics{Sources: len(m.sources)}
	var total time.Duration
	var last time.Time
	for _, c := range m.sources {
		s.Attempts += c.attempts
		s.Successes += c.successes
		s.Failures += c.failures
		s.TotalItems += c.totalItems
		total += c.totalDuration
		if c.consecutiveFailures < unhealthyAfter {
			s.HealthySources++
		}
		for _, t := range []time.Time{c.lastSuccess, c.lastFailure} {
			if t.After(last) {
				last = t
			}
		}
	}
	s.SuccessRate = rate(s.Successes, s.Attempts)
	s.AverageDurationMs = averageMs(total, s.Attempts)
	s.LastEventAt = timePtr(last)
	return s
}

// CrawlerStatistics returns per-source statistics ordered by source id.
func (m *Monitor) CrawlerStatistics() []SourceStatistics {
	m.m.Lock()
	defer m.m.Unlock()

	res := make([]SourceStatistics, 0, len(m.sources))
	for id, c := range m.sources {
		res = append(res, SourceStatistics{
			SourceID:            id,
			Attempts:            c.attempts,
			Successes:           c.successes,
			Failures:            c.failures,
			SuccessRate:         rate(c.successes, c.attempts),
			AverageDurationMs:   averageMs(c.totalDuration, c.attempts),
			TotalItems:          c.totalItems,
			LastItemCount:       c.lastItemCount,
			LastSuccessAt:       timePtr(c.lastSuccess),
			LastFailureAt:       timePtr(c.lastFailure),
			LastError:           c.lastError,
			ConsecutiveFailures: c.consecutiveFailures,
			Healthy:             c.consecutiveFailures < unhealthyAfter,
		})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].SourceID < res[j].SourceID })
	return res
}

// RecentErrors returns up to n failures, newest first.
func (m *Monitor) RecentErrors(n int) []Event {
	m.m.Lock()
	events := m.snapshotLocked()
	m.m.Unlock()

	res := []Event{}
	for i := len(events) - 1; i >= 0 && len(res) < n; i-- {
		if !events[i].Success {
			res = append(res, events[i])
		}
	}
	return res
}

// PerformanceTrends returns one bucket per hour for the last hours hours,
// oldest first, the current hour included. Hours without attempts are zero
// buckets.
func (m *Monitor) PerformanceTrends(hours int) []TrendBucket {
	if hours <= 0 {
		return []TrendBucket{}
	}
	m.m.Lock()
	events := m.snapshotLocked()
	now := m.now()
	m.m.Unlock()

	current := now.Truncate(time.Hour)
	first := current.Add(-time.Duration(hours-1) * time.Hour)
	buckets := make([]TrendBucket, hours)
	durations := make([]time.Duration, hours)
	for i := range buckets {
		buckets[i].Hour = first.Add(time.Duration(i) * time.Hour)
	}
	for _, e := range events {
		idx := int(e.At.Truncate(time.Hour).Sub(first) / time.Hour)
		if e.At.Before(first) || idx < 0 || idx >= hours {
			continue
		}
		b := &buckets[idx]
		b.Attempts++
		durations[idx] += e.Duration
		if e.Success {
			b.Successes++
			b.Items += e.ItemCount
		} else {
			b.Failures++
		}
	}
	for i := range buckets {
		buckets[i].AverageDurationMs = averageMs(durations[i], buckets[i].Attempts)
	}
	return buckets
}
