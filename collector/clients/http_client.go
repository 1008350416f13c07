package clients

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/Luismorlan/honeybee/collector"
	Logger "github.com/Luismorlan/honeybee/utils/log"
	"github.com/pkg/errors"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (compatible; HoneyBeeBot/1.0; +https://honeybee.dev/bot)"
	// Feeds and listing pages larger than this are treated as broken.
	MaxBodyBytes   = 10 << 20
	defaultTimeout = 30 * time.Second
)

type HttpClient struct {
	header  http.Header
	cookies []http.Cookie
	limiter *DomainLimiter

	client *http.Client
}

func NewDefaultHttpClient() *HttpClient {
	header := http.Header{}
	header.Set("User-Agent", DefaultUserAgent)
	return NewHttpClient(header, []http.Cookie{}, NewDefaultDomainLimiter())
}

// NewHttpClient builds a client. A nil limiter disables per-host limiting.
func NewHttpClient(header http.Header, cookies []http.Cookie, limiter *DomainLimiter) *HttpClient {
	return &HttpClient{
		header:  header,
		cookies: cookies,
		limiter: limiter,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

func (c *HttpClient) newRequest(ctx context.Context, method, uri string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return nil, errors.Wrap(collector.ErrSourceMisconfig, err.Error())
	}
	req.Header = c.header.Clone()
	for i := range c.cookies {
		req.AddCookie(&c.cookies[i])
	}
	return req, nil
}

// Get issues a GET honoring ctx and the per-host limits. Non-2xx responses
// are returned as errors and the body is closed.
func (c *HttpClient) Get(ctx context.Context, uri string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}

	if c.limiter != nil {
		release, err := c.limiter.Acquire(ctx, HostOf(uri))
		if err != nil {
			return nil, errors.Wrapf(err, "waiting for %s", HostOf(uri))
		}
		defer release()
	}

	res, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "GET %s", uri)
		}
		return nil, errors.Wrapf(collector.ErrSourceUnreachable, "GET %s: %s", uri, err)
	}

	if IsNon200HttpResponse(res) {
		MaybeLogNon200HttpError(res)
		res.Body.Close()
		return nil, errors.Wrapf(collector.ErrSourceUnreachable, "GET %s: non-200 http code %d", uri, res.StatusCode)
	}

	return res, nil
}

// GetBody reads the whole response body, bounded by MaxBodyBytes.
func (c *HttpClient) GetBody(ctx context.Context, uri string) ([]byte, error) {
	res, err := c.Get(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := ioutil.ReadAll(io.LimitReader(res.Body, MaxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "reading %s", uri)
		}
		return nil, errors.Wrapf(collector.ErrSourceUnreachable, "reading %s: %s", uri, err)
	}
	return body, nil
}

// Log http response if the error code is not 2XX
func MaybeLogNon200HttpError(res *http.Response) {
	if IsNon200HttpResponse(res) {
		Logger.Log.Errorf("non-200 http code: %d from %s", res.StatusCode, res.Request.URL)
	}
}

func IsNon200HttpResponse(res *http.Response) bool {
	return res.StatusCode < 200 || res.StatusCode >= 300
}
