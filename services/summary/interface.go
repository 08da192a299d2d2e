package summary

import (
	"context"

	"tubebrief/models"
)

type Service interface {
	// Summarize sends the transcript through the generative-text API,
	// iterating over configured API keys and candidate models until one
	// succeeds.
	Summarize(ctx context.Context, transcript, videoTitle string) (*models.Summary, error)
}

type Config struct {
	// Endpoint is the generateContent base URL; empty uses the default.
	Endpoint string
	// Models is the fixed trial priority order; empty uses the default
	// list. The most recently successful model is promoted to the front
	// before each attempt sequence.
	Models []string
}
