package controller

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"mailpilot/config"
	"mailpilot/models"
	"mailpilot/utils"
)

// AIController wraps the model API for email composition. Prompts stay
// server-side; the client only supplies intent and tone.
type AIController struct {
	llm *utils.LLMClient
}

func NewAIController(llm *utils.LLMClient) *AIController {
	return &AIController{llm: llm}
}

type ComposeRequest struct {
	Intent    string `json:"intent" validate:"required,max=2000"`
	Tone      string `json:"tone" validate:"omitempty,oneof=formal friendly casual direct"`
	ContactID *uint  `json:"contact_id"`
	PersonaID *uint  `json:"persona_id"`
}

type RefineRequest struct {
	Draft       string `json:"draft" validate:"required"`
	Instruction string `json:"instruction" validate:"required,max=500"`
	PersonaID   *uint  `json:"persona_id"`
}

type SuggestSubjectRequest struct {
	Body string `json:"body" validate:"required"`
}

const composeSystemPrompt = `You are an assistant that writes professional emails.
Write only the email body, no subject line, no commentary.
Keep it concise and actionable.`

// personaSystemPrompt layers a persona's description, tone settings, and
// extracted writing style onto a base system prompt.
func personaSystemPrompt(base string, persona *models.Persona) string {
	if persona == nil {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	if persona.Description != "" {
		fmt.Fprintf(&b, "\nPersona: %s", persona.Description)
	}
	if ts := persona.ToneSettings; ts != nil {
		fmt.Fprintf(&b, "\nTone settings: formality %d/100, enthusiasm %d/100, brevity %d/100, empathy %d/100.",
			ts.Formality, ts.Enthusiasm, ts.Brevity, ts.Empathy)
	}
	if len(persona.WritingStyleProfile) > 0 {
		if raw, err := json.Marshal(persona.WritingStyleProfile); err == nil {
			b.WriteString("\nWrite in this style: ")
			b.Write(raw)
		}
	}
	return b.String()
}

// loadPersona fetches the user's persona, or nil when id is absent or not
// theirs. A missing persona degrades composition, it does not fail it.
func loadPersona(userID uint, id *uint) *models.Persona {
	if id == nil {
		return nil
	}
	var persona models.Persona
	if err := config.DB.Where("id = ? AND user_id = ?", *id, userID).First(&persona).Error; err != nil {
		return nil
	}
	return &persona
}

func (ac *AIController) Compose(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req ComposeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	tone := req.Tone
	if tone == "" {
		tone = "friendly"
	}

	prompt := fmt.Sprintf("Write an email. Tone: %s.\nGoal: %s", tone, req.Intent)
	if req.ContactID != nil {
		var contact models.Contact
		if err := config.DB.Where("id = ? AND user_id = ?", *req.ContactID, user.ID).
			First(&contact).Error; err == nil {
			prompt += fmt.Sprintf("\nRecipient: %s %s (%s at %s).",
				contact.FirstName, contact.LastName, contact.JobTitle, contact.Company)
		}
	}

	system := personaSystemPrompt(composeSystemPrompt, loadPersona(user.ID, req.PersonaID))
	body, err := ac.llm.Complete(c.Context(), system, prompt)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "AI composition failed", nil)
	}

	config.DB.Create(&models.ActivityLog{
		UserID:     user.ID,
		Action:     "ai_compose",
		EntityType: "email",
	})

	return c.JSON(utils.SuccessResponse(fiber.Map{"body": body}))
}

func (ac *AIController) Refine(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req RefineRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	prompt := fmt.Sprintf("Rewrite this email draft. Instruction: %s\n\nDraft:\n%s",
		req.Instruction, req.Draft)
	system := personaSystemPrompt("You rewrite emails. Return only the rewritten email body.",
		loadPersona(user.ID, req.PersonaID))
	body, err := ac.llm.Complete(c.Context(), system, prompt)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "AI refinement failed", nil)
	}

	config.DB.Create(&models.ActivityLog{
		UserID:     user.ID,
		Action:     "ai_refine",
		EntityType: "email",
	})

	return c.JSON(utils.SuccessResponse(fiber.Map{"body": body}))
}

func (ac *AIController) SuggestSubjects(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req SuggestSubjectRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	prompt := "Suggest 3 subject lines for this email, one per line, no numbering:\n\n" + req.Body
	raw, err := ac.llm.Complete(c.Context(),
		"You write email subject lines. Output one suggestion per line.", prompt)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "AI suggestion failed", nil)
	}

	var suggestions []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			suggestions = append(suggestions, line)
		}
	}

	config.DB.Create(&models.ActivityLog{
		UserID:     user.ID,
		Action:     "ai_suggest_subject",
		EntityType: "email",
	})

	return c.JSON(utils.SuccessResponse(fiber.Map{"suggestions": suggestions}))
}
