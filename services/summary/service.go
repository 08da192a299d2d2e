// Package summary is the summarization client. It trades reliability for
// cost by walking configured API keys in priority order and racing candidate
// models in small batches; a quota response is just another model failure.
package summary

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tubebrief/errors"
	"tubebrief/fetch"
	"tubebrief/models"
	"tubebrief/race"
	"tubebrief/repository"
)

const (
	defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

	minTranscriptChars = 20
	maxTranscriptChars = 300_000
	truncationMarker   = "\n\n[transcript truncated]"

	// Models are tried in batches of this size, each batch raced.
	modelBatchSize = 2

	// Per-model timeout scales with prompt size, bounded.
	minModelTimeout = 15 * time.Second
	maxModelTimeout = 60 * time.Second
)

var defaultModels = []string{
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
}

const defaultTemplate = `You are summarizing the video "{title}" from its transcript.

Answer in exactly this structure:

ANSWER
One blunt, direct paragraph stating what the video is actually about and its main takeaway. No hedging.

KEY POINTS
- Bulleted key points in order, each referencing a timestamp from the transcript where available (e.g. [12:34]).

Transcript:
{transcript}`

type service struct {
	repo   repository.CredentialRepository
	client *fetch.Client
	config Config
	logger *logrus.Logger

	// lastModel is the adaptive, self-reinforcing model preference. It is
	// deliberately instance state, not a package global.
	mu        sync.Mutex
	lastModel string
}

func NewService(repo repository.CredentialRepository, client *fetch.Client, config Config) Service {
	if config.Endpoint == "" {
		config.Endpoint = defaultEndpoint
	}
	if len(config.Models) == 0 {
		config.Models = defaultModels
	}
	return &service{
		repo:   repo,
		client: client,
		config: config,
		logger: logrus.StandardLogger(),
	}
}

func (s *service) Summarize(ctx context.Context, transcript, videoTitle string) (*models.Summary, error) {
	const op = "SummaryService.Summarize"
	logger := s.logger.WithFields(logrus.Fields{
		"operation": op,
		"title":     videoTitle,
	})

	keys, err := s.repo.APIKeys(ctx)
	if err != nil {
		return nil, err
	}
	keys = repository.NormalizeKeys(keys)
	if len(keys) == 0 {
		return nil, errors.NoAPIKey(op)
	}
	if len(transcript) < minTranscriptChars {
		return nil, errors.TranscriptTooShort(op)
	}

	if len(transcript) > maxTranscriptChars {
		transcript = transcript[:maxTranscriptChars] + truncationMarker
	}

	prompt, err := s.buildPrompt(ctx, transcript, videoTitle)
	if err != nil {
		return nil, err
	}
	timeout := modelTimeout(len(prompt))
	trialOrder := s.modelOrder()

	var reasons []error
	for keyIdx, key := range keys {
		for start := 0; start < len(trialOrder); start += modelBatchSize {
			end := start + modelBatchSize
			if end > len(trialOrder) {
				end = len(trialOrder)
			}
			batch := trialOrder[start:end]

			ops := make([]race.Op[*models.Summary], 0, len(batch))
			for _, model := range batch {
				model := model
				ops = append(ops, func(ctx context.Context) (*models.Summary, error) {
					return s.callModel(ctx, key, model, prompt, timeout)
				})
			}

			result, err := race.FirstSuccess(ctx, op, ops...)
			if err == nil {
				s.setLastModel(result.Model)
				logger.WithField("model", result.Model).Info("Summary generated")
				return result, nil
			}
			logger.WithError(err).WithFields(logrus.Fields{
				"key":   keyIdx + 1,
				"batch": batch,
			}).Debug("Model batch failed")
			reasons = append(reasons, err)
		}
	}

	// Terminal failure after exhausting every key and model. The user sees
	// a calm one-liner; the aggregate stays wrapped for diagnostics.
	return nil, &errors.AppError{
		Kind:    errors.KindAllMethodsFailed,
		Code:    429,
		Message: "The summarizer is temporarily rate limited. Please try again in a minute.",
		Op:      op,
		Err:     errors.AllMethodsFailed(op, reasons),
	}
}

func (s *service) buildPrompt(ctx context.Context, transcript, videoTitle string) (string, error) {
	template, err := s.repo.CustomPrompt(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(template) == "" {
		template = defaultTemplate
	}
	return strings.NewReplacer(
		"{title}", videoTitle,
		"{transcript}", transcript,
	).Replace(template), nil
}

// modelOrder returns the configured priority list with the most recently
// successful model promoted to the front.
func (s *service) modelOrder() []string {
	s.mu.Lock()
	last := s.lastModel
	s.mu.Unlock()

	order := make([]string, 0, len(s.config.Models))
	if last != "" {
		for _, m := range s.config.Models {
			if m == last {
				order = append(order, m)
				break
			}
		}
	}
	for _, m := range s.config.Models {
		if m != last {
			order = append(order, m)
		}
	}
	return order
}

func (s *service) setLastModel(model string) {
	s.mu.Lock()
	s.lastModel = model
	s.mu.Unlock()
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (s *service) callModel(ctx context.Context, key, model, prompt string, timeout time.Duration) (*models.Summary, error) {
	const op = "SummaryService.callModel"

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", s.config.Endpoint, model, key)
	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}

	var resp generateResponse
	status, body, err := s.client.PostJSON(ctx, url, nil, payload, &resp, timeout)
	if err != nil {
		if status == 429 {
			return nil, errors.ModelQuota(op, model)
		}
		if status > 0 {
			return nil, errors.ModelRequest(op, model, status, body)
		}
		return nil, err
	}

	if len(resp.Candidates) == 0 ||
		len(resp.Candidates[0].Content.Parts) == 0 ||
		resp.Candidates[0].Content.Parts[0].Text == "" {
		return nil, errors.ModelRequest(op, model, status, "response missing candidate text")
	}

	return &models.Summary{
		Text:  resp.Candidates[0].Content.Parts[0].Text,
		Model: model,
	}, nil
}

func modelTimeout(promptLen int) time.Duration {
	t := time.Duration(promptLen/10) * time.Millisecond
	if t < minModelTimeout {
		return minModelTimeout
	}
	if t > maxModelTimeout {
		return maxModelTimeout
	}
	return t
}
