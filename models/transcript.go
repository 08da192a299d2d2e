package models

import (
	"strings"
	"time"
)

// Origin describes where a transcript request came from. The orchestrator
// picks its strategy set based on it.
type Origin string

const (
	// OriginWatch means the request fired on the video's own watch page,
	// where the live DOM is available through the page messenger.
	OriginWatch Origin = "watch"
	// OriginWatchFeed is the background-feed variant of a watch-page
	// request. It takes the network path even though a page is present.
	OriginWatchFeed Origin = "watch-feed"
	// OriginFeed covers feed, sidebar and homepage requests.
	OriginFeed Origin = "feed"
)

// OnPage reports whether the request should use the live DOM as a source.
func (o Origin) OnPage() bool { return o == OriginWatch }

func (o Origin) Valid() bool {
	switch o {
	case OriginWatch, OriginWatchFeed, OriginFeed:
		return true
	}
	return false
}

// Transcript is a successful acquisition result. Text is never empty.
type Transcript struct {
	VideoID   string         `json:"video_id"`
	Text      string         `json:"text"`
	Source    string         `json:"source"`
	Metadata  *VideoMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// VideoMetadata is best-effort page metadata attached by the background-tab
// path when it can be read before the tab closes.
type VideoMetadata struct {
	Title   string `json:"title,omitempty"`
	Channel string `json:"channel,omitempty"`
}

// CaptionTrack is a language-specific caption resource addressable by URL.
type CaptionTrack struct {
	LanguageCode string `json:"language_code"`
	SourceURL    string `json:"source_url"`
}

// PickTrack applies the fixed selection policy: an "en" track if present,
// otherwise the first track. Never interactive.
func PickTrack(tracks []CaptionTrack) (CaptionTrack, bool) {
	if len(tracks) == 0 {
		return CaptionTrack{}, false
	}
	for _, t := range tracks {
		if t.LanguageCode == "en" {
			return t, true
		}
	}
	return tracks[0], true
}

// Line is one transcript line with an optional timestamp.
type Line struct {
	Timestamp string `json:"timestamp,omitempty"`
	Text      string `json:"text"`
}

// JoinLines renders lines as `[timestamp] text`, or bare text when a line has
// no timestamp, newline-joined.
func JoinLines(lines []Line) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Timestamp != "" {
			parts = append(parts, "["+l.Timestamp+"] "+l.Text)
		} else {
			parts = append(parts, l.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Summary is the result of a successful summarization call.
type Summary struct {
	Text  string `json:"summary"`
	Model string `json:"model"`
}
