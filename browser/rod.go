package browser

import (
	"context"
	"encoding/json"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pkg/errors"

	apperrors "tubebrief/errors"
	"tubebrief/models"
	"tubebrief/scrape"
)

// Production binding on a driven headless Chromium. Everything rod-specific
// stays in this file; the simulator and orchestrator only see the Tab,
// Controller and Messenger interfaces.

type RodConfig struct {
	Headless bool
	// BrowserBin overrides the browser binary; empty uses rod's default.
	BrowserBin string
}

type RodController struct {
	browser   *rod.Browser
	selectors scrape.Selectors
	scraper   *scrape.Scraper
}

func NewRodController(cfg RodConfig) (*RodController, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("--mute-audio").
		Set("--disable-blink-features", "AutomationControlled")
	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, errors.Wrap(err, "launching browser")
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, errors.Wrap(err, "connecting to browser")
	}

	return &RodController{
		browser:   b,
		selectors: scrape.DefaultSelectors(),
		scraper:   scrape.NewScraper(),
	}, nil
}

func (c *RodController) Close() error {
	return c.browser.Close()
}

func (c *RodController) ActiveTab(ctx context.Context) (Tab, error) {
	pages, err := c.browser.Context(ctx).Pages()
	if err != nil {
		return nil, errors.Wrap(err, "listing tabs")
	}
	if len(pages) == 0 {
		return nil, errors.New("no open tabs")
	}
	return &rodTab{page: pages[0]}, nil
}

func (c *RodController) OpenBackground(ctx context.Context, url string) (Tab, error) {
	page, err := c.browser.Context(ctx).Page(proto.TargetCreateTarget{
		URL:        url,
		Background: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening tab")
	}
	return &rodTab{page: page}, nil
}

type rodTab struct {
	page *rod.Page
}

func (t *rodTab) WaitLoad(ctx context.Context) error {
	return t.page.Context(ctx).WaitLoad()
}

func (t *rodTab) Activate(ctx context.Context) error {
	_, err := t.page.Context(ctx).Activate()
	return err
}

func (t *rodTab) Close() error {
	return t.page.Close()
}

// Send dispatches a message kind against a rod-backed tab. This plays the
// role of the extension's page-side message listener.
func (c *RodController) Send(ctx context.Context, tab Tab, kind MessageKind, _ any) (json.RawMessage, error) {
	const op = "browser.RodController.Send"

	rt, ok := tab.(*rodTab)
	if !ok {
		return nil, apperrors.Internal(op, nil, "tab is not rod-backed")
	}

	switch kind {
	case MsgScrapeTranscript:
		text, err := c.scraper.Scrape(ctx, &rodPage{page: rt.page, sel: c.selectors})
		if err != nil {
			return nil, err
		}
		return json.Marshal(scrapeReply{Text: text})
	case MsgVideoMetadata:
		return json.Marshal(c.readMetadata(ctx, rt.page))
	default:
		return nil, apperrors.InvalidInput(op, nil, "unknown message kind "+string(kind))
	}
}

func (c *RodController) readMetadata(ctx context.Context, page *rod.Page) models.VideoMetadata {
	meta := models.VideoMetadata{}
	p := page.Context(ctx)
	if has, el, err := p.Has("h1.ytd-watch-metadata yt-formatted-string"); err == nil && has {
		if text, err := el.Text(); err == nil {
			meta.Title = text
		}
	}
	if has, el, err := p.Has("ytd-channel-name #text a"); err == nil && has {
		if text, err := el.Text(); err == nil {
			meta.Channel = text
		}
	}
	return meta
}

// rodPage adapts a rod page to the scrape.Page capability.
type rodPage struct {
	page *rod.Page
	sel  scrape.Selectors
}

func (p *rodPage) QueryTranscriptPanel(ctx context.Context) ([]models.Line, error) {
	els, err := p.page.Context(ctx).Elements(p.sel.PanelSegments)
	if err != nil {
		return nil, errors.Wrap(err, "querying transcript segments")
	}

	lines := make([]models.Line, 0, len(els))
	for _, el := range els {
		line := models.Line{}
		if has, textEl, err := el.Has(p.sel.SegmentText); err == nil && has {
			if text, err := textEl.Text(); err == nil {
				line.Text = text
			}
		}
		if line.Text == "" {
			continue
		}
		if has, tsEl, err := el.Has(p.sel.SegmentTimestamp); err == nil && has {
			if ts, err := tsEl.Text(); err == nil {
				line.Timestamp = ts
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (p *rodPage) FindExpandControl(ctx context.Context) (scrape.Control, bool) {
	return p.findFirst(ctx, p.sel.ExpandTriggers)
}

func (p *rodPage) FindTranscriptControl(ctx context.Context) (scrape.Control, bool) {
	return p.findFirst(ctx, p.sel.TranscriptTriggers)
}

func (p *rodPage) findFirst(ctx context.Context, selectors []string) (scrape.Control, bool) {
	page := p.page.Context(ctx)
	for _, sel := range selectors {
		if has, el, err := page.Has(sel); err == nil && has {
			return &rodControl{el: el}, true
		}
	}
	return nil, false
}

func (p *rodPage) CloseTranscriptPanel(ctx context.Context) error {
	has, el, err := p.page.Context(ctx).Has(p.sel.PanelClose)
	if err != nil || !has {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

type rodControl struct {
	el *rod.Element
}

func (c *rodControl) Click(ctx context.Context) error {
	return c.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}
