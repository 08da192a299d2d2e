// Package scrape extracts a transcript from a live, rendered watch page. It
// only orchestrates; actual DOM access is behind the Page capability so the
// production binding (a driven browser page) and test fakes implement the
// same surface.
package scrape

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"tubebrief/errors"
	"tubebrief/models"
)

// Control is a clickable page affordance.
type Control interface {
	Click(ctx context.Context) error
}

// Page is the injected DOM capability.
type Page interface {
	// QueryTranscriptPanel returns the transcript lines currently rendered
	// in the page, or an empty slice when no panel is present.
	QueryTranscriptPanel(ctx context.Context) ([]models.Line, error)
	// FindExpandControl locates a trigger that expands the description.
	FindExpandControl(ctx context.Context) (Control, bool)
	// FindTranscriptControl locates the transcript-opening control.
	FindTranscriptControl(ctx context.Context) (Control, bool)
	// CloseTranscriptPanel collapses the panel again. Best-effort.
	CloseTranscriptPanel(ctx context.Context) error
}

// Backoff schedules, in order, between attempts. The control search gives up
// after the last delay (~3.8s worst case); the content poll after ~6.9s.
var (
	controlSearchDelays = []time.Duration{
		200 * time.Millisecond,
		300 * time.Millisecond,
		500 * time.Millisecond,
		800 * time.Millisecond,
		1000 * time.Millisecond,
		1000 * time.Millisecond,
	}
	contentPollDelays = []time.Duration{
		150 * time.Millisecond,
		250 * time.Millisecond,
		400 * time.Millisecond,
		600 * time.Millisecond,
		800 * time.Millisecond,
		1000 * time.Millisecond,
		1200 * time.Millisecond,
		1500 * time.Millisecond,
	}
)

const expandSettleDelay = 300 * time.Millisecond

type Scraper struct {
	logger *logrus.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewScraper() *Scraper {
	return newScraper(logrus.StandardLogger(), sleepCtx)
}

func newScraper(logger *logrus.Logger, sleep func(context.Context, time.Duration) error) *Scraper {
	return &Scraper{logger: logger, sleep: sleep}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Scrape pulls the transcript out of the page. It never panics or leaks page
// state: when the panel was not already open before the scrape, it is closed
// again afterwards, and every failure comes back as a diagnostic error value.
func (s *Scraper) Scrape(ctx context.Context, page Page) (string, error) {
	const op = "scrape.Scrape"
	logger := s.logger.WithField("operation", op)

	// Zero-interaction pass: the panel may already be rendered.
	lines, err := page.QueryTranscriptPanel(ctx)
	if err == nil && len(lines) > 0 {
		logger.WithField("lines", len(lines)).Debug("Transcript panel already rendered")
		return joinDeduped(lines, op)
	}

	// The panel was not visible before this scrape began, so it is closed
	// on every exit path below, success included.
	defer func() {
		// Leave the page as we found it; failures here are swallowed.
		if err := page.CloseTranscriptPanel(context.WithoutCancel(ctx)); err != nil {
			logger.WithError(err).Debug("Closing transcript panel failed")
		}
	}()

	// The transcript trigger may only exist once the description is
	// expanded.
	if ctl, ok := page.FindExpandControl(ctx); ok {
		if err := ctl.Click(ctx); err != nil {
			logger.WithError(err).Debug("Description expand click failed")
		} else if err := s.sleep(ctx, expandSettleDelay); err != nil {
			return "", errors.Internal(op, err, "scrape cancelled")
		}
	}

	ctl, err := s.findTranscriptControl(ctx, page)
	if err != nil {
		return "", err
	}
	if err := ctl.Click(ctx); err != nil {
		return "", errors.Internal(op, err, "transcript control click failed")
	}

	lines, err = s.pollContent(ctx, page)
	if err != nil {
		return "", err
	}
	return joinDeduped(lines, op)
}

func (s *Scraper) findTranscriptControl(ctx context.Context, page Page) (Control, error) {
	const op = "scrape.findTranscriptControl"

	for attempt := 0; ; attempt++ {
		if ctl, ok := page.FindTranscriptControl(ctx); ok {
			return ctl, nil
		}
		if attempt >= len(controlSearchDelays) {
			return nil, errors.NoTranscript(op, "transcript control not found")
		}
		if err := s.sleep(ctx, controlSearchDelays[attempt]); err != nil {
			return nil, errors.Internal(op, err, "scrape cancelled")
		}
	}
}

func (s *Scraper) pollContent(ctx context.Context, page Page) ([]models.Line, error) {
	const op = "scrape.pollContent"

	for _, delay := range contentPollDelays {
		if err := s.sleep(ctx, delay); err != nil {
			return nil, errors.Internal(op, err, "scrape cancelled")
		}
		lines, err := page.QueryTranscriptPanel(ctx)
		if err != nil {
			s.logger.WithError(err).Debug("Transcript panel query failed")
			continue
		}
		if len(lines) > 0 {
			return lines, nil
		}
	}
	return nil, errors.NoTranscript(op, "transcript content never rendered")
}

// joinDeduped drops lines whose exact text was already seen and renders the
// rest as "[timestamp] text". Empty output maps to a failure, never to an
// empty success.
func joinDeduped(lines []models.Line, op string) (string, error) {
	seen := make(map[string]struct{}, len(lines))
	deduped := make([]models.Line, 0, len(lines))
	for _, l := range lines {
		if l.Text == "" {
			continue
		}
		if _, ok := seen[l.Text]; ok {
			continue
		}
		seen[l.Text] = struct{}{}
		deduped = append(deduped, l)
	}
	text := models.JoinLines(deduped)
	if text == "" {
		return "", errors.NoTranscript(op, "scraped transcript was empty")
	}
	return text, nil
}
