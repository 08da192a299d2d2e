// Package transcript implements the acquisition orchestrator: cache lookup,
// context-dependent racing of extraction strategies, and escalation to the
// background-tab simulator when every fast path has failed.
package transcript

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"tubebrief/cache"
	"tubebrief/captions"
	"tubebrief/errors"
	"tubebrief/models"
	"tubebrief/race"
	"tubebrief/validation"
)

const (
	defaultOnPageScrapeTimeout = 10 * time.Second
	defaultArchiveTimeout      = 5 * time.Second
)

type service struct {
	cache     *cache.Cache
	resolvers Resolvers
	pages     PageChannel
	simulator Simulator
	archiver  Archiver
	validator *validation.Validator
	config    Config
	logger    *logrus.Logger
}

// NewService wires the orchestrator. pages, simulator and archiver may be
// nil; the corresponding paths then report failure (or are skipped, for the
// archiver) instead of panicking. A nil store gets a cache with defaults.
func NewService(
	store *cache.Cache,
	resolvers Resolvers,
	pages PageChannel,
	simulator Simulator,
	archiver Archiver,
	validator *validation.Validator,
	config Config,
) Service {
	if config.OnPageScrapeTimeout <= 0 {
		config.OnPageScrapeTimeout = defaultOnPageScrapeTimeout
	}
	if config.ArchiveTimeout <= 0 {
		config.ArchiveTimeout = defaultArchiveTimeout
	}
	if store == nil {
		store = cache.New(0, 0)
	}
	return &service{
		cache:     store,
		resolvers: resolvers,
		pages:     pages,
		simulator: simulator,
		archiver:  archiver,
		validator: validator,
		config:    config,
		logger:    logrus.StandardLogger(),
	}
}

func (s *service) Acquire(ctx context.Context, videoID string, origin models.Origin) (*models.Transcript, error) {
	const op = "TranscriptService.Acquire"
	logger := s.logger.WithFields(logrus.Fields{
		"operation": op,
		"video_id":  videoID,
		"origin":    string(origin),
	})

	if err := s.validator.ValidateVideoID(videoID); err != nil {
		return nil, err
	}
	if !origin.Valid() {
		return nil, errors.InvalidInput(op, nil, "unknown request origin")
	}

	// A fresh cache entry short-circuits every strategy below.
	if t, ok := s.cache.Get(videoID); ok {
		logger.Debug("Cache hit")
		return t, nil
	}

	var (
		t   *models.Transcript
		err error
	)
	if origin.OnPage() {
		t, err = s.acquireOnPage(ctx, videoID)
	} else {
		t, err = s.acquireOffPage(ctx, videoID)
	}
	if err != nil {
		logger.WithError(err).Info("Transcript acquisition failed")
		return nil, err
	}
	if t.Text == "" {
		// Acquisition paths map empty extractions to failures themselves;
		// this is the last line of defense for the non-empty invariant.
		return nil, errors.NoTranscript(op, "acquired transcript was empty")
	}

	s.cache.Put(videoID, t)
	s.archive(ctx, t, logger)

	logger.WithFields(logrus.Fields{
		"source": t.Source,
		"length": len(t.Text),
	}).Info("Transcript acquired")
	return t, nil
}

// acquireOnPage races the live-DOM scrape against the player resolver. When
// both fail the failure surfaces as-is: the DOM was already the richest
// source available, so there is no background-tab escalation on this branch.
func (s *service) acquireOnPage(ctx context.Context, videoID string) (*models.Transcript, error) {
	const op = "TranscriptService.acquireOnPage"

	scrapeOp := func(ctx context.Context) (*models.Transcript, error) {
		if s.pages == nil {
			return nil, errors.Internal(op, nil, "no page channel configured")
		}
		scrapeCtx, cancel := context.WithTimeout(ctx, s.config.OnPageScrapeTimeout)
		defer cancel()
		text, err := s.pages.ScrapeActive(scrapeCtx)
		if err != nil {
			return nil, err
		}
		return s.transcript(videoID, text, "dom"), nil
	}

	return race.FirstSuccess(ctx, op, scrapeOp, s.resolverOp(videoID, s.resolvers.Player))
}

// acquireOffPage runs the strictly ordered escalation ladder: the raced fast
// resolvers, then the watch-page scrape, then the background tab. A later
// stage never starts unless the one before it has fully failed.
func (s *service) acquireOffPage(ctx context.Context, videoID string) (*models.Transcript, error) {
	const op = "TranscriptService.acquireOffPage"

	fastStage := func(ctx context.Context) (*models.Transcript, error) {
		return race.FirstSuccess(ctx, op,
			s.resolverOp(videoID, s.resolvers.Player),
			s.resolverOp(videoID, s.resolvers.TimedText),
		)
	}

	tabStage := func(ctx context.Context) (*models.Transcript, error) {
		if s.simulator == nil {
			return nil, errors.Internal(op, nil, "background-tab simulator not available")
		}
		return s.simulator.Acquire(ctx, videoID)
	}

	return race.Sequential(ctx, op,
		fastStage,
		s.resolverOp(videoID, s.resolvers.WatchPage),
		tabStage,
	)
}

func (s *service) resolverOp(videoID string, r captions.Resolver) race.Op[*models.Transcript] {
	return func(ctx context.Context) (*models.Transcript, error) {
		text, err := r.Resolve(ctx, videoID)
		if err != nil {
			return nil, err
		}
		return s.transcript(videoID, text, r.Name()), nil
	}
}

func (s *service) transcript(videoID, text, source string) *models.Transcript {
	return &models.Transcript{
		VideoID:   videoID,
		Text:      text,
		Source:    source,
		CreatedAt: time.Now(),
	}
}

// archive is best-effort and never fails the acquisition.
func (s *service) archive(ctx context.Context, t *models.Transcript, logger *logrus.Entry) {
	if s.archiver == nil {
		return
	}
	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ArchiveTimeout)
	defer cancel()
	if err := s.archiver.SaveTranscript(archiveCtx, t); err != nil {
		logger.WithError(err).Warn("Transcript archive failed")
	}
}
