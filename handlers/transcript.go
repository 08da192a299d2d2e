package handlers

import (
	"tubebrief/errors"
	"tubebrief/models"
	"tubebrief/services/transcript"
	"tubebrief/validation"

	"github.com/gofiber/fiber/v2"
)

type TranscriptHandler struct {
	service   transcript.Service
	validator *validation.Validator
}

func NewTranscriptHandler(service transcript.Service, validator *validation.Validator) *TranscriptHandler {
	return &TranscriptHandler{service: service, validator: validator}
}

type transcriptRequest struct {
	// VideoID accepts a bare ID or a full watch URL.
	VideoID string `json:"video_id"`
	Origin  string `json:"origin"`
}

func (h *TranscriptHandler) Acquire(c *fiber.Ctx) error {
	const op = "TranscriptHandler.Acquire"

	var req transcriptRequest
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

	t, err := h.service.Acquire(c.Context(), videoID, origin)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    t,
	})
}
