package handlers

import (
	"tubebrief/errors"
	"tubebrief/models"
	"tubebrief/services/summary"
	"tubebrief/services/transcript"
	"tubebrief/validation"

	"github.com/gofiber/fiber/v2"
)

type SummaryHandler struct {
	transcripts transcript.Service
	summaries   summary.Service
	validator   *validation.Validator
}

func NewSummaryHandler(
	transcripts transcript.Service,
	summaries summary.Service,
	validator *validation.Validator,
) *SummaryHandler {
	return &SummaryHandler{
		transcripts: transcripts,
		summaries:   summaries,
		validator:   validator,
	}
}

type summaryRequest struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
	Origin  string `json:"origin"`
}

// Summarize acquires the transcript first, then runs the summarization
// client over it. A cached transcript makes repeat summaries cheap.
func (h *SummaryHandler) Summarize(c *fiber.Ctx) error {
	const op = "SummaryHandler.Summarize"

	var req summaryRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput(op, err, "Invalid JSON body")
	}

	videoID, err := h.validator.ExtractVideoID(req.VideoID)
	if err != nil {
		return err
	}

	origin := models.Origin(req.Origin)
	if req.Origin == "" {
		origin = models.OriginFeed
	}

	t, err := h.transcripts.Acquire(c.Context(), videoID, origin)
	if err != nil {
		return err
	}

	title := req.Title
	if title == "" && t.Metadata != nil {
		title = t.Metadata.Title
	}

	s, err := h.summaries.Summarize(c.Context(), t.Text, title)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    s,
	})
}
