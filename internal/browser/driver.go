// Package browser drives a real Chromium instance for pages that only render
// their listings with JavaScript.
package browser

import (
	"context"
	"time"
)

// NavResult reports where a navigation actually landed. URL can differ from
// the requested one after redirects.
type NavResult struct {
	URL   string
	Title string
}

// ElementState is a snapshot of one element matched by a selector.
type ElementState struct {
	Found   bool
	Visible bool
	Enabled bool
	Class   string
}

// Driver is the browser surface the pipeline works against. The production
// implementation is Session; tests substitute fakes.
type Driver interface {
	// Navigate loads the URL and waits for the DOM plus a settle delay.
	Navigate(ctx context.Context, url string) (*NavResult, error)

	// CurrentURL returns the page URL after the last navigation or
	// interaction.
	CurrentURL() string

	// Content returns the full serialized HTML of the current page.
	Content(ctx context.Context) (string, error)

	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	Press(ctx context.Context, selector, key string) error

	// QueryState waits up to timeout for the selector and snapshots the
	// first match. A timeout yields Found=false, not an error.
	QueryState(ctx context.Context, selector string, timeout time.Duration) (ElementState, error)

	Evaluate(ctx context.Context, script string) (any, error)

	// WaitForSelector blocks until the selector matches or the timeout
	// expires.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error

	// FrameCount reports how many frames the current page carries,
	// including the main frame.
	FrameCount() int

	// FrameContent returns the HTML and URL of the frame at the given
	// index.
	FrameContent(ctx context.Context, index int) (html string, url string, err error)

	Screenshot(ctx context.Context, path string) error
}
