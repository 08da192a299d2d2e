package captions

import (
	"context"
	"encoding/xml"
	"net/url"

	"github.com/pkg/errors"

	apperrors "tubebrief/errors"
	"tubebrief/fetch"
	"tubebrief/race"
)

// timedTextResolver queries the legacy timed-text endpoint directly by video
// ID. The candidate language codes are tried in parallel, first non-empty
// parse wins. When all fail it asks the endpoint to list available languages
// and retries once with the first listed one.
type timedTextResolver struct {
	client *fetch.Client
}

func NewTimedTextResolver(client *fetch.Client) Resolver {
	return &timedTextResolver{client: client}
}

func (r *timedTextResolver) Name() string { return "timedtext" }

type trackList struct {
	Tracks []struct {
		LangCode string `xml:"lang_code,attr"`
	} `xml:"track"`
}

func (r *timedTextResolver) Resolve(ctx context.Context, videoID string) (string, error) {
	const op = "captions.timedTextResolver"

	ops := make([]race.Op[string], 0, len(timedTextLangs))
	for _, lang := range timedTextLangs {
		lang := lang
		ops = append(ops, func(ctx context.Context) (string, error) {
			return r.fetchLang(ctx, videoID, lang)
		})
	}

	text, err := race.FirstSuccess(ctx, op, ops...)
	if err == nil {
		return text, nil
	}

	// Secondary path: list the available languages and retry once with the
	// first one listed.
	lang, listErr := r.firstListedLang(ctx, videoID)
	if listErr != nil {
		return "", apperrors.AllMethodsFailed(op, []error{err, listErr})
	}
	text, retryErr := r.fetchLang(ctx, videoID, lang)
	if retryErr != nil {
		return "", apperrors.AllMethodsFailed(op, []error{err, retryErr})
	}
	return text, nil
}

func (r *timedTextResolver) fetchLang(ctx context.Context, videoID, lang string) (string, error) {
	const op = "captions.timedTextResolver.fetchLang"

	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", lang)

	body, err := r.client.GetString(ctx, timedTextEndpoint+"?"+q.Encode(), nil, timedTextTimeout)
	if err != nil {
		return "", errors.Wrapf(err, "timedtext lang %q", lang)
	}

	text, ok := ParsePayload(body)
	if !ok {
		return "", apperrors.NoTranscript(op, "empty timedtext body for lang "+lang)
	}
	return text, nil
}

func (r *timedTextResolver) firstListedLang(ctx context.Context, videoID string) (string, error) {
	const op = "captions.timedTextResolver.firstListedLang"

	q := url.Values{}
	q.Set("v", videoID)
	q.Set("type", "list")

	body, err := r.client.GetString(ctx, timedTextEndpoint+"?"+q.Encode(), nil, timedTextTimeout)
	if err != nil {
		return "", errors.Wrap(err, "timedtext language list")
	}

	var list trackList
	if err := xml.Unmarshal([]byte(body), &list); err != nil {
		return "", errors.Wrap(err, "parsing language list")
	}
	if len(list.Tracks) == 0 {
		return "", apperrors.NoTranscript(op, "no languages listed")
	}
	return list.Tracks[0].LangCode, nil
}
