// Package browser holds the tab and page-messaging abstractions the
// orchestrator escalates to when every network resolver has failed, plus the
// background-tab simulator that drives them. Production bindings sit on a
// driven headless browser; tests bind fakes to the same interfaces.
package browser

import (
	"context"
	"encoding/json"
)

// MessageKind names a request sent into a page context.
type MessageKind string

const (
	// MsgScrapeTranscript asks the page to run the DOM transcript scrape.
	MsgScrapeTranscript MessageKind = "transcript.scrape"
	// MsgVideoMetadata asks the page for title/channel metadata.
	MsgVideoMetadata MessageKind = "video.metadata"
)

// Tab is a handle on one browser tab.
type Tab interface {
	// WaitLoad blocks until the tab's page load completes or ctx ends.
	WaitLoad(ctx context.Context) error
	// Activate brings the tab to the foreground.
	Activate(ctx context.Context) error
	Close() error
}

// Controller opens and inspects tabs.
type Controller interface {
	// ActiveTab returns the currently focused tab so it can be restored.
	ActiveTab(ctx context.Context) (Tab, error)
	// OpenBackground opens url in a new, initially-inactive tab.
	OpenBackground(ctx context.Context, url string) (Tab, error)
}

// Messenger is the request/response channel into a page context. Timeouts
// are applied here, at the channel boundary, not ad hoc per call site.
type Messenger interface {
	Send(ctx context.Context, tab Tab, kind MessageKind, payload any) (json.RawMessage, error)
}

// scrapeReply is the response payload for MsgScrapeTranscript.
type scrapeReply struct {
	Text string `json:"text"`
}
