package transcript

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"tubebrief/cache"
	"tubebrief/errors"
	"tubebrief/models"
	"tubebrief/validation"
)

type fakeResolver struct {
	name  string
	text  string
	err   error
	calls atomic.Int32
}

func (r *fakeResolver) Name() string { return r.name }

func (r *fakeResolver) Resolve(ctx context.Context, videoID string) (string, error) {
	r.calls.Add(1)
	if r.err != nil {
		return "", r.err
	}
	return r.text, nil
}

type fakePages struct {
	text  string
	err   error
	calls atomic.Int32
}

func (p *fakePages) ScrapeActive(ctx context.Context) (string, error) {
	p.calls.Add(1)
	if p.err != nil {
		return "", p.err
	}
	return p.text, nil
}

type fakeSimulator struct {
	transcript *models.Transcript
	err        error
	calls      atomic.Int32
}

func (s *fakeSimulator) Acquire(ctx context.Context, videoID string) (*models.Transcript, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.transcript, nil
}

type fakeArchiver struct {
	saved atomic.Int32
	err   error
}

func (a *fakeArchiver) SaveTranscript(ctx context.Context, t *models.Transcript) error {
	a.saved.Add(1)
	return a.err
}

type fixture struct {
	player    *fakeResolver
	timedtext *fakeResolver
	watchpage *fakeResolver
	pages     *fakePages
	simulator *fakeSimulator
	archiver  *fakeArchiver
	service   Service
}

func failing(name string) *fakeResolver {
	return &fakeResolver{name: name, err: errors.NoTranscript("test", name+" failed")}
}

func newFixture() *fixture {
	f := &fixture{
		player:    failing("player"),
		timedtext: failing("timedtext"),
		watchpage: failing("watchpage"),
		pages:     &fakePages{err: errors.NoTranscript("test", "scrape failed")},
		simulator: &fakeSimulator{err: errors.NoTranscript("test", "simulator failed")},
		archiver:  &fakeArchiver{},
	}
	f.rebuild()
	return f
}

func (f *fixture) rebuild() {
	f.service = NewService(
		cache.New(time.Minute, 10),
		Resolvers{Player: f.player, TimedText: f.timedtext, WatchPage: f.watchpage},
		f.pages,
		f.simulator,
		f.archiver,
		validation.NewValidator(nil),
		Config{},
	)
}

func TestAcquireRejectsInvalidVideoID(t *testing.T) {
	f := newFixture()
	_, err := f.service.Acquire(context.Background(), "not a video!", models.OriginFeed)
	if errors.KindOf(err) != errors.KindInvalidInput {
		t.Fatalf("kind = %q, want %q", errors.KindOf(err), errors.KindInvalidInput)
	}
	if f.player.calls.Load() != 0 {
		t.Error("no strategy should run for an invalid ID")
	}
}

func TestAcquireRejectsUnknownOrigin(t *testing.T) {
	f := newFixture()
	_, err := f.service.Acquire(context.Background(), "abc123xyz99", models.Origin("popup"))
	if errors.KindOf(err) != errors.KindInvalidInput {
		t.Fatalf("kind = %q, want %q", errors.KindOf(err), errors.KindInvalidInput)
	}
}

func TestAcquireCacheHitSkipsStrategies(t *testing.T) {
	f := newFixture()
	f.player = &fakeResolver{name: "player", text: "cached text"}
	f.rebuild()

	if _, err := f.service.Acquire(context.Background(), "abc123xyz99", models.OriginFeed); err != nil {
		t.Fatalf("first acquisition failed: %v", err)
	}
	playerCalls := f.player.calls.Load()

	tr, err := f.service.Acquire(context.Background(), "abc123xyz99", models.OriginFeed)
	if err != nil {
		t.Fatalf("second acquisition failed: %v", err)
	}
	if tr.Text != "cached text" {
		t.Errorf("text = %q", tr.Text)
	}
	if f.player.calls.Load() != playerCalls {
		t.Error("cache hit must not run any resolver")
	}
}

func TestAcquireOnPageScrapeWins(t *testing.T) {
	f := newFixture()
	f.pages = &fakePages{text: "[0:01] Hello\n[0:05] World"}
	f.rebuild()

	tr, err := f.service.Acquire(context.Background(), "abc123xyz99", models.OriginWatch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Source != "dom" {
		t.Errorf("source = %q, want %q", tr.Source, "dom")
	}
	if tr.Text != "[0:01] Hello\n[0:05] World" {
		t.Errorf("text = %q", tr.Text)
	}
	if f.simulator.calls.Load() != 0 {
		t.Error("simulator must not run for on-page requests")
	}
}

func TestAcquireOnPagePlayerBackstop(t *testing.T) {
	f := newFixture()
	f.player = &fakeResolver{name: "player", text: "api text"}
	f.rebuild()

	tr, err := f.service.Acquire(context.Background(), "abc123xyz99", models.OriginWatch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Source != "player" {
		t.Errorf("source = %q, want %q", tr.Source, "player")
	}
}

func TestAcquireOnPageDoubleFailureDoesNotEscalate(t *testing.T) {
	f := newFixture()

	_, err := f.service.Acquire(context.Background(), "abc123xyz99", models.OriginWatch)
	if errors.KindOf(err) != errors.KindAllMethodsFailed {
		t.Fatalf("kind = %q, want %q", errors.KindOf(err), errors.KindAllMethodsFailed)
	}
	if f.simulator.calls.Load() != 0 {
		t.Error("on-page failure must not escalate to the background tab")
	}
	if f.watchpage.calls.Load() != 0 {
		t.Error("on-page requests never use the watch-page resolver")
	}
}

func TestAcquireOffPageFastPathStopsEscalation(t *testing.T) {
	f := newFixture()
	f.timedtext = &fakeResolver{name: "timedtext", text: "timed text"}
	f.rebuild()

	tr, err := f.service.Acquire(context.Background(), "abc123xyz99", models.OriginFeed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Source != "timedtext" {
		t.Errorf("source = %q, want %q", tr.Source, "timedtext")
	}
	if f.watchpage.calls.Load() != 0 {
		t.Error("watch-page stage must not start while the fast stage can succeed")
	}
	if f.simulator.calls.Load() != 0 {
		t.Error("simulator must not start while an earlier stage can succeed")
	}
}

func TestAcquireOffPageEscalatesThroughLadder(t *testing.T) {
	f := newFixture()
	f.simulator = &fakeSimulator{transcript: &models.Transcript{
		VideoID:  "xyz789abc11",
		Text:     "simulated text",
		Source:   "background-tab",
		Metadata: &models.VideoMetadata{Title: "A Video"},
	}}
	f.rebuild()

	tr, err := f.service.Acquire(context.Background(), "xyz789abc11", models.OriginFeed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Source != "background-tab" {
		t.Errorf("source = %q", tr.Source)
	}
	if tr.Metadata == nil || tr.Metadata.Title != "A Video" {
		t.Errorf("metadata = %+v", tr.Metadata)
	}
	// Every earlier stage ran and failed first.
	if f.player.calls.Load() == 0 || f.timedtext.calls.Load() == 0 || f.watchpage.calls.Load() == 0 {
		t.Error("the ladder must exhaust earlier stages before the simulator")
	}

	// The simulator result is cached like any other.
	tr2, err := f.service.Acquire(context.Background(), "xyz789abc11", models.OriginFeed)
	if err != nil {
		t.Fatalf("cached acquisition failed: %v", err)
	}
	if tr2.Text != "simulated text" || f.simulator.calls.Load() != 1 {
		t.Error("expected the simulator result to be served from cache")
	}
}

func TestAcquireWatchFeedTakesNetworkPath(t *testing.T) {
	f := newFixture()
	f.player = &fakeResolver{name: "player", text: "api text"}
	f.rebuild()

	tr, err := f.service.Acquire(context.Background(), "abc123xyz99", models.OriginWatchFeed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Source != "player" {
		t.Errorf("source = %q", tr.Source)
	}
	if f.pages.calls.Load() != 0 {
		t.Error("watch-feed requests must not touch the live DOM")
	}
}

func TestAcquireEmptyTextIsFailure(t *testing.T) {
	f := newFixture()
	f.player = &fakeResolver{name: "player", text: ""}
	f.timedtext = failing("timedtext")
	f.rebuild()

	_, err := f.service.Acquire(context.Background(), "abc123xyz99", models.OriginFeed)
	if err == nil {
		t.Fatal("an empty transcript must never be a success")
	}
}

func TestAcquireArchivesBestEffort(t *testing.T) {
	f := newFixture()
	f.player = &fakeResolver{name: "player", text: "some text"}
	f.archiver = &fakeArchiver{err: errors.Internal("test", nil, "bucket down")}
	f.rebuild()

	tr, err := f.service.Acquire(context.Background(), "abc123xyz99", models.OriginFeed)
	if err != nil {
		t.Fatalf("archive failure must not fail acquisition: %v", err)
	}
	if tr.Text != "some text" {
		t.Errorf("text = %q", tr.Text)
	}
	if f.archiver.saved.Load() != 1 {
		t.Errorf("archiver called %d times, want 1", f.archiver.saved.Load())
	}
}
