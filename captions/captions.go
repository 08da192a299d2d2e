// Package captions implements the network caption-track resolvers. Each
// resolver locates and downloads caption data for a video ID over a distinct
// path and returns plain transcript text, or fails. All traffic goes through
// the shared fetch client.
package captions

import (
	"context"
	"time"
)

// Resolver is one independent caption acquisition strategy.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, videoID string) (string, error)
}

// Endpoints are package variables so tests can point resolvers at a local
// server.
var (
	playerEndpoint    = "https://www.youtube.com/youtubei/v1/player"
	timedTextEndpoint = "https://video.google.com/timedtext"
	watchEndpoint     = "https://www.youtube.com/watch"
)

const (
	androidClientVersion = "20.10.38"
	androidUserAgent     = "com.google.android.youtube/" + androidClientVersion + " (Linux; U; Android 11) gzip"
	browserUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	playerTimeout    = 10 * time.Second
	trackTimeout     = 8 * time.Second
	timedTextTimeout = 6 * time.Second
	watchTimeout     = 12 * time.Second
)

// timedTextLangs are tried in parallel by the timed-text resolver.
var timedTextLangs = []string{"en", "en-US", "en-GB", ""}
