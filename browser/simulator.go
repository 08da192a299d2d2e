package browser

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"tubebrief/errors"
	"tubebrief/models"
)

const (
	tabLoadTimeout    = 15 * time.Second
	scrapeSendTimeout = 1 * time.Second
	metadataTimeout   = 1 * time.Second

	// Settle waits after bringing the tab to the foreground. The watch page
	// only renders transcript data when it believes it is visually focused,
	// and one focus cycle is often not enough.
	firstPulseSettle  = 500 * time.Millisecond
	secondPulseSettle = 250 * time.Millisecond
)

// backgroundRetryDelays space the trailing scrape attempts made with the tab
// left in the background.
var backgroundRetryDelays = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	3 * time.Second,
}

// Simulator acquires a transcript by opening the video in a hidden tab and
// synthetically toggling its focus until the page renders transcript data.
// The tab is a user-visible resource: it is closed on every exit path, and
// focus is restored to the original tab.
type Simulator struct {
	controller Controller
	messenger  Messenger
	logger     *logrus.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	watchURL   func(videoID string) string
}

func NewSimulator(controller Controller, messenger Messenger) *Simulator {
	return newSimulator(controller, messenger, logrus.StandardLogger(), sleepCtx)
}

func newSimulator(
	controller Controller,
	messenger Messenger,
	logger *logrus.Logger,
	sleep func(context.Context, time.Duration) error,
) *Simulator {
	return &Simulator{
		controller: controller,
		messenger:  messenger,
		logger:     logger,
		sleep:      sleep,
		watchURL: func(videoID string) string {
			return "https://www.youtube.com/watch?v=" + videoID
		},
	}
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

// Acquire runs the full background-tab sequence for videoID.
func (s *Simulator) Acquire(ctx context.Context, videoID string) (*models.Transcript, error) {
	const op = "browser.Simulator.Acquire"
	logger := s.logger.WithFields(logrus.Fields{"operation": op, "video_id": videoID})

	// Record the focused tab first so it can be restored later. Failing to
	// read it is tolerable; restoration is then skipped.
	original, err := s.controller.ActiveTab(ctx)
	if err != nil {
		logger.WithError(err).Debug("Could not record active tab")
		original = nil
	}

	tab, err := s.controller.OpenBackground(ctx, s.watchURL(videoID))
	if err != nil {
		return nil, errors.Internal(op, err, "opening background tab failed")
	}
	defer func() {
		// Guaranteed cleanup: the tab closes on success, exhaustion and
		// error alike. Close failures are logged, never surfaced.
		if err := tab.Close(); err != nil {
			logger.WithError(err).Warn("Background tab close failed")
		}
		if original != nil {
			if err := original.Activate(context.WithoutCancel(ctx)); err != nil {
				logger.WithError(err).Debug("Restoring original tab failed")
			}
		}
	}()

	// A tab that never finishes loading is fatal for this attempt; tab
	// creation is not retried.
	loadCtx, cancel := context.WithTimeout(ctx, tabLoadTimeout)
	err = tab.WaitLoad(loadCtx)
	cancel()
	if err != nil {
		return nil, errors.TabLoadTimeout(op, err)
	}

	text, err := s.pulseAndScrape(ctx, tab, original, logger)
	if err != nil {
		return nil, err
	}

	transcript := &models.Transcript{
		VideoID:   videoID,
		Text:      text,
		Source:    "background-tab",
		CreatedAt: time.Now(),
	}
	// Metadata is a bonus; fetch it before the deferred close but never
	// fail the acquisition over it.
	if meta := s.fetchMetadata(ctx, tab); meta != nil {
		transcript.Metadata = meta
	}
	return transcript, nil
}

// pulseAndScrape walks the attempt ladder: two activation pulses, then three
// background retries at increasing delays.
func (s *Simulator) pulseAndScrape(ctx context.Context, tab, original Tab, logger *logrus.Entry) (string, error) {
	const op = "browser.Simulator.pulseAndScrape"
	reasons := make([]error, 0, 2+len(backgroundRetryDelays))

	for pulse, settle := range []time.Duration{firstPulseSettle, secondPulseSettle} {
		if err := s.activationPulse(ctx, tab, original, settle); err != nil {
			return "", err
		}
		text, err := s.scrapeTab(ctx, tab)
		if err == nil {
			return text, nil
		}
		logger.WithError(err).WithField("pulse", pulse+1).Debug("Scrape after activation pulse failed")
		reasons = append(reasons, err)
	}

	for _, delay := range backgroundRetryDelays {
		if err := s.sleep(ctx, delay); err != nil {
			reasons = append(reasons, err)
			return "", errors.AllMethodsFailed(op, reasons)
		}
		text, err := s.scrapeTab(ctx, tab)
		if err == nil {
			return text, nil
		}
		reasons = append(reasons, err)
	}
	return "", errors.AllMethodsFailed(op, reasons)
}

// activationPulse brings the tab forward, waits for the page to notice, and
// hands focus back.
func (s *Simulator) activationPulse(ctx context.Context, tab, original Tab, settle time.Duration) error {
	const op = "browser.Simulator.activationPulse"

	if err := tab.Activate(ctx); err != nil {
		return errors.Internal(op, err, "activating background tab failed")
	}
	if err := s.sleep(ctx, settle); err != nil {
		return errors.Internal(op, err, "simulation cancelled")
	}
	if original != nil {
		if err := original.Activate(ctx); err != nil {
			s.logger.WithError(err).Debug("Returning focus to original tab failed")
		}
	}
	return nil
}

func (s *Simulator) scrapeTab(ctx context.Context, tab Tab) (string, error) {
	const op = "browser.Simulator.scrapeTab"

	sendCtx, cancel := context.WithTimeout(ctx, scrapeSendTimeout)
	defer cancel()

	raw, err := s.messenger.Send(sendCtx, tab, MsgScrapeTranscript, nil)
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

func (s *Simulator) fetchMetadata(ctx context.Context, tab Tab) *models.VideoMetadata {
	sendCtx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	raw, err := s.messenger.Send(sendCtx, tab, MsgVideoMetadata, nil)
	if err != nil {
		return nil
	}
	var meta models.VideoMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil
	}
	if meta.Title == "" && meta.Channel == "" {
		return nil
	}
	return &meta
}
