package controller

import (
	"github.com/gofiber/fiber/v2"

	"mailpilot/config"
	"mailpilot/engine"
	"mailpilot/models"
	"mailpilot/utils"
)

// InsightController serves the advisory feed. Insights are produced by the
// generator (on a schedule or on demand) and only ever mutated by dismissal.
type InsightController struct {
	gen *engine.InsightGenerator
}

func NewInsightController(gen *engine.InsightGenerator) *InsightController {
	return &InsightController{gen: gen}
}

func (ic *InsightController) List(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	q := config.DB.Where("user_id = ? AND is_dismissed = ?", user.ID, false)
	if t := c.Query("type"); t != "" {
		q = q.Where("type = ?", t)
	}

	var insights []models.Insight
	if err := q.Order("priority DESC, created_at DESC").Find(&insights).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list insights", nil)
	}
	return c.JSON(utils.SuccessResponse(insights))
}

func (ic *InsightController) Dismiss(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	res := config.DB.Model(&models.Insight{}).
		Where("id = ? AND user_id = ?", id, user.ID).
		Update("is_dismissed", true)
	if res.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to dismiss insight", nil)
	}
	if res.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Insight not found", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"dismissed": true}))
}

// Generate runs the rule set for the caller immediately instead of waiting
// for the scheduled pass.
func (ic *InsightController) Generate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	created, err := ic.gen.Generate(c.Context(), user.ID)
	if err != nil && len(created) == 0 {
		return utils.EngineErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"created": created,
		"partial": err != nil,
	}))
}
