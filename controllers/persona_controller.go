package controller

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"mailpilot/config"
	"mailpilot/models"
	"mailpilot/utils"
)

// PersonaController manages writing personas and their AI-derived style
// profiles.
type PersonaController struct {
	llm *utils.LLMClient
}

func NewPersonaController(llm *utils.LLMClient) *PersonaController {
	return &PersonaController{llm: llm}
}

type CreatePersonaRequest struct {
	Name         string               `json:"name" validate:"required,max=100"`
	Type         string               `json:"type" validate:"required,oneof=work personal sales support networking custom"`
	Description  string               `json:"description" validate:"omitempty,max=1000"`
	ToneSettings *models.ToneSettings `json:"tone_settings"`
}

type UpdatePersonaRequest struct {
	Name         *string              `json:"name" validate:"omitempty,max=100"`
	Description  *string              `json:"description" validate:"omitempty,max=1000"`
	ToneSettings *models.ToneSettings `json:"tone_settings"`
	IsDefault    *bool                `json:"is_default"`
}

type AnalyzeWritingStyleRequest struct {
	SampleEmails []string `json:"sample_emails" validate:"required,min=1,max=10,dive,required"`
}

func validToneSettings(t *models.ToneSettings) bool {
	if t == nil {
		return true
	}
	for _, v := range []int{t.Formality, t.Enthusiasm, t.Brevity, t.Empathy} {
		if v < 0 || v > 100 {
			return false
		}
	}
	return true
}

func (pc *PersonaController) Create(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreatePersonaRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}
	if !validToneSettings(req.ToneSettings) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Tone settings must be between 0 and 100", nil)
	}

	persona := models.Persona{
		UserID:       user.ID,
		Name:         req.Name,
		Type:         req.Type,
		Description:  req.Description,
		ToneSettings: req.ToneSettings,
	}
	if err := config.DB.Create(&persona).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create persona", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(persona))
}

func (pc *PersonaController) List(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var personas []models.Persona
	if err := config.DB.Where("user_id = ?", user.ID).
		Order("is_default DESC, name ASC").
		Find(&personas).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list personas", nil)
	}

	return c.JSON(utils.SuccessResponse(personas))
}

func (pc *PersonaController) Get(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var persona models.Persona
	if err := config.DB.Where("id = ? AND user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		First(&persona).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Persona not found", nil)
	}

	return c.JSON(utils.SuccessResponse(persona))
}

func (pc *PersonaController) Update(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var persona models.Persona
	if err := config.DB.Where("id = ? AND user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		First(&persona).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Persona not found", nil)
	}

	var req UpdatePersonaRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}
	if !validToneSettings(req.ToneSettings) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Tone settings must be between 0 and 100", nil)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ToneSettings != nil {
		updates["tone_settings"] = req.ToneSettings
	}
	if req.IsDefault != nil {
		updates["is_default"] = *req.IsDefault
	}

	if len(updates) > 0 {
		if err := config.DB.Model(&persona).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update persona", nil)
		}
	}

	// Only one persona can be the default
	if req.IsDefault != nil && *req.IsDefault {
		config.DB.Model(&models.Persona{}).
			Where("user_id = ? AND id <> ?", user.ID, persona.ID).
			Update("is_default", false)
	}

	return c.JSON(utils.SuccessResponse(persona))
}

func (pc *PersonaController) Delete(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	result := config.DB.Where("id = ? AND user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		Delete(&models.Persona{})
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete persona", nil)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Persona not found", nil)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

const analyzeStyleSystemPrompt = `You are an expert at analyzing writing style.
Analyze the provided emails and respond with a single JSON object with these keys:
"tone" (string), "formality" (number 0-100), "enthusiasm" (number 0-100),
"brevity" (number 0-100), "empathy" (number 0-100),
"common_phrases" (array of strings), "greetings" (array of strings),
"closings" (array of strings), "personality" (string).
Respond with JSON only, no commentary.`

// AnalyzeWritingStyle derives a style profile from sample emails and stores
// it on the persona, overwriting any previous profile.
func (pc *PersonaController) AnalyzeWritingStyle(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var persona models.Persona
	if err := config.DB.Where("id = ? AND user_id = ?", utils.ParseUint(c.Params("id")), user.ID).
		First(&persona).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Persona not found", nil)
	}

	var req AnalyzeWritingStyleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	prompt := "Analyze these email samples and provide a writing style profile:\n\n" +
		strings.Join(req.SampleEmails, "\n\n---\n\n")
	raw, err := pc.llm.Complete(c.Context(), analyzeStyleSystemPrompt, prompt)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Style analysis failed", nil)
	}

	var profile map[string]interface{}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &profile); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Style analysis returned an unreadable profile", nil)
	}

	updates := map[string]interface{}{
		"writing_style_profile": profile,
	}
	if tones := toneSettingsFromProfile(profile); tones != nil {
		updates["tone_settings"] = tones
	}
	if err := config.DB.Model(&persona).Updates(updates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save style profile", nil)
	}

	config.DB.Create(&models.ActivityLog{
		UserID:     user.ID,
		Action:     "persona_style_analyzed",
		EntityType: "persona",
		EntityID:   utils.Pointer(persona.ID),
	})

	return c.JSON(utils.SuccessResponse(profile))
}

// stripCodeFence unwraps model output of the form ```json ... ```.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func toneSettingsFromProfile(profile map[string]interface{}) *models.ToneSettings {
	read := func(key string) (int, bool) {
		v, ok := profile[key].(float64)
		if !ok || v < 0 || v > 100 {
			return 0, false
		}
		return int(v), true
	}

	formality, ok1 := read("formality")
	enthusiasm, ok2 := read("enthusiasm")
	brevity, ok3 := read("brevity")
	empathy, ok4 := read("empathy")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}
	return &models.ToneSettings{
		Formality:  formality,
		Enthusiasm: enthusiasm,
		Brevity:    brevity,
		Empathy:    empathy,
	}
}
