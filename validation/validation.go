package validation

import (
	"net/url"
	"regexp"
	"strings"

	"tubebrief/config"
	"tubebrief/errors"
)

type Validator struct {
	config *config.Config
}

func NewValidator(cfg *config.Config) *Validator {
	return &Validator{config: cfg}
}

// Video IDs are opaque, but the hosting site's are 11 URL-safe characters;
// anything wildly different is a caller bug, not a video.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,32}$`)

// ValidateVideoID checks that id looks like a plausible video identifier.
func (v *Validator) ValidateVideoID(id string) error {
	const op = "Validator.ValidateVideoID"

	if id == "" {
		return errors.InvalidInput(op, nil, "Video ID is required")
	}
	if !videoIDPattern.MatchString(id) {
		return errors.InvalidInput(op, nil, "Invalid video ID format")
	}
	return nil
}

// ExtractVideoID accepts either a bare video ID or a watch/short URL and
// returns the ID.
func (v *Validator) ExtractVideoID(input string) (string, error) {
	const op = "Validator.ExtractVideoID"

	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.InvalidInput(op, nil, "Video ID or URL is required")
	}
	if videoIDPattern.MatchString(input) {
		return input, nil
	}

	parsed, err := url.Parse(input)
	if err != nil {
		return "", errors.InvalidInput(op, err, "Invalid URL format")
	}

	host := parsed.Hostname()
	switch {
	case strings.Contains(host, "youtu.be"):
		id := strings.Trim(parsed.Path, "/")
		if err := v.ValidateVideoID(id); err != nil {
			return "", err
		}
		return id, nil
	case strings.Contains(host, "youtube.com"):
		if id := parsed.Query().Get("v"); id != "" {
			if err := v.ValidateVideoID(id); err != nil {
				return "", err
			}
			return id, nil
		}
		if rest, ok := strings.CutPrefix(parsed.Path, "/shorts/"); ok {
			id := strings.Trim(rest, "/")
			if err := v.ValidateVideoID(id); err != nil {
				return "", err
			}
			return id, nil
		}
		return "", errors.InvalidInput(op, nil, "URL has no video ID")
	default:
		return "", errors.InvalidInput(op, nil, "Only YouTube URLs are supported")
	}
}
