package clients

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// MaxConcurrencyPerDomain limits parallel requests to any single host, many
	// feeds share one CDN or blog platform.
	MaxConcurrencyPerDomain = 2
	// DelayBetweenDomainRequests is the minimum spacing between requests to
	// the same host.
	DelayBetweenDomainRequests = 500 * time.Millisecond
)

// DomainLimiter bounds concurrency and request rate per host.
type DomainLimiter struct {
	mu          sync.Mutex
	concurrency int
	every       time.Duration
	semaphores  map[string]chan struct{}
	limiters    map[string]*rate.Limiter
}

func NewDomainLimiter(concurrency int, every time.Duration) *DomainLimiter {
	if concurrency <= 0 {
		concurrency = MaxConcurrencyPerDomain
	}
	return &DomainLimiter{
		concurrency: concurrency,
		every:       every,
		semaphores:  map[string]chan struct{}{},
		limiters:    map[string]*rate.Limiter{},
	}
}

func NewDefaultDomainLimiter() *DomainLimiter {
	return NewDomainLimiter(MaxConcurrencyPerDomain, DelayBetweenDomainRequests)
}

// HostOf returns the lower-cased host of rawUrl, or rawUrl itself when it
// cannot be parsed.
func HostOf(rawUrl string) string {
	u, err := url.Parse(rawUrl)
	if err != nil || u.Host == "" {
		return rawUrl
	}
	return strings.ToLower(u.Hostname())
}

func (dl *DomainLimiter) forHost(host string) (chan struct{}, *rate.Limiter) {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	sem, ok := dl.semaphores[host]
	if !ok {
		sem = make(chan struct{}, dl.concurrency)
		dl.semaphores[host] = sem
	}
	lim, ok := dl.limiters[host]
	if !ok {
		limit := rate.Inf
		if dl.every > 0 {
			limit = rate.Every(dl.every)
		}
		lim = rate.NewLimiter(limit, 1)
		dl.limiters[host] = lim
	}
	return sem, lim
}

// Acquire blocks until the host has a free slot and its rate allows another
// request. The returned func releases the slot and must always be called.
func (dl *DomainLimiter) Acquire(ctx context.Context, host string) (func(), error) {
	sem, lim := dl.forHost(host)

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := lim.Wait(ctx); err != nil {
		<-sem
		return nil, err
	}
	return func() { <-sem }, nil
}
