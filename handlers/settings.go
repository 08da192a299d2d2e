package handlers

import (
	"strings"

	"tubebrief/errors"
	"tubebrief/repository"

	"github.com/gofiber/fiber/v2"
)

type SettingsHandler struct {
	repo repository.CredentialRepository
}

func NewSettingsHandler(repo repository.CredentialRepository) *SettingsHandler {
	return &SettingsHandler{repo: repo}
}

type saveKeysRequest struct {
	Keys []string `json:"keys"`
}

func (h *SettingsHandler) SaveKeys(c *fiber.Ctx) error {
	const op = "SettingsHandler.SaveKeys"

	var req saveKeysRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput(op, err, "Invalid JSON body")
	}

	normalized := repository.NormalizeKeys(req.Keys)
	if err := h.repo.SaveAPIKeys(c.Context(), normalized); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"stored": len(normalized)},
	})
}

// Keys returns the stored key set with all but a short suffix redacted. Full
// keys never leave the server.
func (h *SettingsHandler) Keys(c *fiber.Ctx) error {
	keys, err := h.repo.APIKeys(c.Context())
	if err != nil {
		return err
	}

	redacted := make([]string, len(keys))
	for i, k := range keys {
		redacted[i] = redactKey(k)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"keys": redacted},
	})
}

type savePromptRequest struct {
	Template string `json:"template"`
}

func (h *SettingsHandler) SavePrompt(c *fiber.Ctx) error {
	const op = "SettingsHandler.SavePrompt"

	var req savePromptRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput(op, err, "Invalid JSON body")
	}

	if err := h.repo.SaveCustomPrompt(c.Context(), req.Template); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *SettingsHandler) Prompt(c *fiber.Ctx) error {
	template, err := h.repo.CustomPrompt(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"template": template},
	})
}

func redactKey(key string) string {
	const visible = 4
	if len(key) <= visible {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-visible) + key[len(key)-visible:]
}
