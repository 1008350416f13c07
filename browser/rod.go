package browser

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pkg/errors"

	Logger "github.com/Luismorlan/honeybee/utils/log"
)

const scrollPause = 700 * time.Millisecond

// RodLauncher launches local Chromium through go-rod.
type RodLauncher struct {
	// Bin is the browser binary, looked up when empty.
	Bin       string
	Headless  bool
	NoSandbox bool
	UserAgent string
}

func NewRodLauncher() *RodLauncher {
	return &RodLauncher{Headless: true, NoSandbox: true}
}

func (l *RodLauncher) Launch(ctx context.Context) (Instance, error) {
	path := l.Bin
	if path == "" {
		path, _ = launcher.LookPath()
	}
	lc := launcher.New().
		Context(ctx).
		Bin(path).
		Headless(l.Headless).
		NoSandbox(l.NoSandbox)

	u, err := lc.Launch()
	if err != nil {
		return nil, errors.Wrap(err, "fail to launch browser")
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		lc.Kill()
		return nil, errors.Wrap(err, "fail to connect browser")
	}
	Logger.Log.Infof("launched browser at %s", u)
	return &rodInstance{browser: b, launcher: lc, userAgent: l.UserAgent}, nil
}

type rodInstance struct {
	browser   *rod.Browser
	launcher  *launcher.Launcher
	userAgent string
}

func (i *rodInstance) NewPage(ctx context.Context) (Page, error) {
	p, err := i.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, errors.Wrap(err, "fail to open page")
	}
	if i.userAgent != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: i.userAgent}); err != nil {
			Logger.Log.Warnf("fail to set user agent: %s", err)
		}
	}
	return &rodPage{page: p}, nil
}

func (i *rodInstance) Close() error {
	err := i.browser.Close()
	i.launcher.Cleanup()
	return err
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (p *rodPage) WaitFor(ctx context.Context, selector string) error {
	_, err := p.page.Context(ctx).Element(selector)
	return err
}

func (p *rodPage) Scroll(ctx context.Context, times int) error {
	page := p.page.Context(ctx)
	for i := 0; i < times; i++ {
		if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(scrollPause):
		}
	}
	return nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *rodPage) Close() error {
	return p.page.Close()
}
