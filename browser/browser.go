// Package browser owns the headless browser instances shared by every crawler
// source. Instances are expensive, so they are pooled, bounded and recycled.
package browser

import (
	"context"
)

// Page is one browser tab.
type Page interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until selector matches an element.
	WaitFor(ctx context.Context, selector string) error
	// Scroll scrolls to the bottom times times, giving lazy lists a chance
	// to append.
	Scroll(ctx context.Context, times int) error
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Instance is one running browser process.
type Instance interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Launcher starts browser processes.
type Launcher interface {
	Launch(ctx context.Context) (Instance, error)
}
