package captions

import (
	"context"

	"github.com/pkg/errors"

	apperrors "tubebrief/errors"
	"tubebrief/fetch"
	"tubebrief/models"
)

// playerResolver calls the private Innertube /player endpoint with a fixed
// ANDROID client-version payload, extracts the caption-track list and
// downloads the selected track.
type playerResolver struct {
	client *fetch.Client
}

func NewPlayerResolver(client *fetch.Client) Resolver {
	return &playerResolver{client: client}
}

func (r *playerResolver) Name() string { return "player" }

type playerRequest struct {
	VideoID        string        `json:"videoId"`
	Context        playerContext `json:"context"`
	RacyCheckOk    bool          `json:"racyCheckOk"`
	ContentCheckOk bool          `json:"contentCheckOk"`
}

type playerContext struct {
	Client playerClient `json:"client"`
}

type playerClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []struct {
				BaseURL      string `json:"baseUrl"`
				LanguageCode string `json:"languageCode"`
			} `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

func (r *playerResolver) Resolve(ctx context.Context, videoID string) (string, error) {
	const op = "captions.playerResolver"

	payload := playerRequest{
		VideoID: videoID,
		Context: playerContext{
			Client: playerClient{
				ClientName:        "ANDROID",
				ClientVersion:     androidClientVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	}

	headers := map[string]string{
		"User-Agent":               androidUserAgent,
		"X-Youtube-Client-Name":    "3",
		"X-Youtube-Client-Version": androidClientVersion,
	}

	var resp playerResponse
	if _, _, err := r.client.PostJSON(ctx, playerEndpoint+"?prettyPrint=false", headers, payload, &resp, playerTimeout); err != nil {
		return "", errors.Wrap(err, "player endpoint")
	}

	if resp.Captions == nil {
		if resp.PlayabilityStatus != nil && resp.PlayabilityStatus.Reason != "" {
			return "", apperrors.NoTranscript(op, "captions unavailable: "+resp.PlayabilityStatus.Reason)
		}
		return "", apperrors.NoTranscript(op, "no captions in player response")
	}

	raw := resp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	tracks := make([]models.CaptionTrack, 0, len(raw))
	for _, t := range raw {
		tracks = append(tracks, models.CaptionTrack{LanguageCode: t.LanguageCode, SourceURL: t.BaseURL})
	}

	track, ok := models.PickTrack(tracks)
	if !ok {
		return "", apperrors.NoTranscript(op, "empty caption track list")
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
