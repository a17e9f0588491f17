package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"mailpilot/config"
	"mailpilot/models"
	"mailpilot/utils"
)

type CreateTemplateRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Subject  string `json:"subject" validate:"omitempty,max=500"`
	Body     string `json:"body" validate:"required"`
	Category string `json:"category" validate:"omitempty,max=100"`
}

type UseTemplateRequest struct {
	Variables map[string]string `json:"variables"`
}

func CreateTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	tpl := models.Template{
		UserID:   user.ID,
		Name:     req.Name,
		Subject:  req.Subject,
		Body:     req.Body,
		Category: req.Category,
		// Variables are derived from the body, not user-supplied
		Variables: utils.ExtractVariables(req.Subject + " " + req.Body),
	}
	if err := config.DB.Create(&tpl).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create template", nil)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(tpl))
}

func ListTemplates(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	q := config.DB.Where("user_id = ?", user.ID)
	if category := c.Query("category"); category != "" {
		q = q.Where("category = ?", category)
	}

	var templates []models.Template
	if err := q.Order("usage_count DESC, name ASC").Find(&templates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list templates", nil)
	}
	return c.JSON(utils.SuccessResponse(templates))
}

func GetTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	var tpl models.Template
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&tpl).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Template not found", nil)
	}
	return c.JSON(utils.SuccessResponse(tpl))
}

func UpdateTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	var tpl models.Template
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&tpl).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Template not found", nil)
	}

	var req CreateTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	tpl.Name = req.Name
	tpl.Subject = req.Subject
	tpl.Body = req.Body
	tpl.Category = req.Category
	tpl.Variables = utils.ExtractVariables(req.Subject + " " + req.Body)

	if err := config.DB.Save(&tpl).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update template", nil)
	}
	return c.JSON(utils.SuccessResponse(tpl))
}

func DeleteTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	res := config.DB.Where("id = ? AND user_id = ?", id, user.ID).Delete(&models.Template{})
	if res.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete template", nil)
	}
	if res.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Template not found", nil)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UseTemplate renders the template with the given variables and bumps its
// usage counters. Unresolved markers are reported so the client can prompt
// for them.
func UseTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	var tpl models.Template
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&tpl).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Template not found", nil)
	}

	var req UseTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	rendered := fiber.Map{
		"subject": utils.RenderTemplate(tpl.Subject, req.Variables),
		"body":    utils.RenderTemplate(tpl.Body, req.Variables),
		"missing": utils.MissingVariables(tpl.Subject+" "+tpl.Body, req.Variables),
	}

	now := time.Now()
	config.DB.Model(&tpl).Updates(map[string]interface{}{
		"usage_count":  tpl.UsageCount + 1,
		"last_used_at": now,
	})
	config.DB.Create(&models.ActivityLog{
		UserID:     user.ID,
		Action:     "template_used",
		EntityType: "template",
		EntityID:   &tpl.ID,
	})

	return c.JSON(utils.SuccessResponse(rendered))
}
