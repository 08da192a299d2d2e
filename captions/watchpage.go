package captions

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	apperrors "tubebrief/errors"
	"tubebrief/fetch"
	"tubebrief/models"
)

// watchPageResolver downloads the full watch-page HTML and digs the caption
// track list out of the embedded page-state JSON. The slowest and most
// brittle path; it runs only after the other resolvers have failed.
type watchPageResolver struct {
	client *fetch.Client
}

func NewWatchPageResolver(client *fetch.Client) Resolver {
	return &watchPageResolver{client: client}
}

func (r *watchPageResolver) Name() string { return "watchpage" }

var captionTracksRE = regexp.MustCompile(`"captionTracks":(\[.+?\])`)

const playerResponseMarker = "ytInitialPlayerResponse = "

func (r *watchPageResolver) Resolve(ctx context.Context, videoID string) (string, error) {
	const op = "captions.watchPageResolver"

	headers := map[string]string{
		"User-Agent":      browserUserAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
	page, err := r.client.GetString(ctx, watchEndpoint+"?v="+videoID, headers, watchTimeout)
	if err != nil {
		return "", errors.Wrap(err, "watch page")
	}

	tracks, ok := extractTracks(page)
	if !ok {
		return "", apperrors.NoTranscript(op, "no caption tracks in watch page")
	}

	track, ok := models.PickTrack(tracks)
	if !ok {
		return "", apperrors.NoTranscript(op, "empty caption track list in watch page")
	}

	body, err := r.client.GetString(ctx, track.SourceURL, nil, trackTimeout)
	if err != nil {
		return "", errors.Wrap(err, "downloading caption track")
	}

	text, ok := ParsePayload(body)
	if !ok {
		return "", apperrors.NoTranscript(op, "caption track parsed to empty text")
	}
	return text, nil
}

type rawTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
}

// extractTracks tries the cheap captionTracks regex first, then falls back
// to the whole ytInitialPlayerResponse object.
func extractTracks(page string) ([]models.CaptionTrack, bool) {
	if m := captionTracksRE.FindStringSubmatch(page); len(m) == 2 {
		var raw []rawTrack
		if err := json.Unmarshal([]byte(m[1]), &raw); err == nil && len(raw) > 0 {
			return toTracks(raw), true
		}
	}

	idx := strings.Index(page, playerResponseMarker)
	if idx < 0 {
		return nil, false
	}
	blob := balancedJSON(page[idx+len(playerResponseMarker):])
	if blob == "" {
		return nil, false
	}

	var resp playerResponse
	if err := json.Unmarshal([]byte(blob), &resp); err != nil || resp.Captions == nil {
		return nil, false
	}
	tracks := resp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, false
	}
	out := make([]models.CaptionTrack, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, models.CaptionTrack{LanguageCode: t.LanguageCode, SourceURL: t.BaseURL})
	}
	return out, true
}

func toTracks(raw []rawTrack) []models.CaptionTrack {
	out := make([]models.CaptionTrack, 0, len(raw))
	for _, t := range raw {
		out = append(out, models.CaptionTrack{LanguageCode: t.LanguageCode, SourceURL: t.BaseURL})
	}
	return out
}

// balancedJSON returns the first balanced {...} object at the start of s,
// respecting string literals and escapes.
func balancedJSON(s string) string {
	if len(s) == 0 || s[0] != '{' {
		return ""
	}
	depth := 0
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
