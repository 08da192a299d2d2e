package transcript

import (
	"context"
	"time"

	"tubebrief/captions"
	"tubebrief/models"
)

type Service interface {
	// Acquire returns the transcript for videoID, choosing its strategy
	// set from the request origin.
	Acquire(ctx context.Context, videoID string, origin models.Origin) (*models.Transcript, error)
}

// Resolvers is the fixed strategy set for the network path.
type Resolvers struct {
	Player    captions.Resolver
	TimedText captions.Resolver
	WatchPage captions.Resolver
}

// PageChannel scrapes the transcript out of the currently focused watch
// page. Only meaningful for on-page requests.
type PageChannel interface {
	ScrapeActive(ctx context.Context) (string, error)
}

// Simulator is the background-tab escalation path.
type Simulator interface {
	Acquire(ctx context.Context, videoID string) (*models.Transcript, error)
}

// Archiver persists acquired transcripts out-of-band. Best-effort.
type Archiver interface {
	SaveTranscript(ctx context.Context, t *models.Transcript) error
}

type Config struct {
	// OnPageScrapeTimeout bounds the scrape message on the on-page branch.
	OnPageScrapeTimeout time.Duration
	// ArchiveTimeout bounds the best-effort archive write.
	ArchiveTimeout time.Duration
}
