package browser

import (
	"context"
	"encoding/json"

	"tubebrief/errors"
)

// ActivePageChannel serves the orchestrator's on-page branch: it scrapes the
// transcript out of whichever tab currently has focus.
type ActivePageChannel struct {
	controller Controller
	messenger  Messenger
}

func NewActivePageChannel(controller Controller, messenger Messenger) *ActivePageChannel {
	return &ActivePageChannel{controller: controller, messenger: messenger}
}

func (p *ActivePageChannel) ScrapeActive(ctx context.Context) (string, error) {
	const op = "browser.ActivePageChannel.ScrapeActive"

	tab, err := p.controller.ActiveTab(ctx)
	if err != nil {
		return "", errors.Internal(op, err, "no focused tab available")
	}

	raw, err := p.messenger.Send(ctx, tab, MsgScrapeTranscript, nil)
	if err != nil {
		return "", err
	}
	var reply scrapeReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return "", errors.Internal(op, err, "malformed scrape reply")
	}
	if reply.Text == "" {
		return "", errors.NoTranscript(op, "scrape reply was empty")
	}
	return reply.Text, nil
}
