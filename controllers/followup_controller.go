package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"mailpilot/engine"
	"mailpilot/models"
	"mailpilot/utils"
)

// FollowUpController exposes the follow-up state machine over HTTP. All the
// transition rules live in the engine; this layer only parses and maps errors.
type FollowUpController struct {
	svc   *engine.FollowUpService
	clock engine.Clock
}

func NewFollowUpController(svc *engine.FollowUpService, clock engine.Clock) *FollowUpController {
	return &FollowUpController{svc: svc, clock: clock}
}

type CreateFollowUpRequest struct {
	Subject   string    `json:"subject" validate:"required,max=500"`
	DueAt     time.Time `json:"due_at" validate:"required"`
	Priority  string    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	ContactID *uint     `json:"contact_id"`
	ThreadID  *uint     `json:"thread_id"`
	Notes     string    `json:"notes"`
}

type SnoozeFollowUpRequest struct {
	Until time.Time `json:"until" validate:"required"`
}

func (fc *FollowUpController) Create(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateFollowUpRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	f, err := fc.svc.Create(c.Context(), user.ID, engine.CreateFollowUpInput{
		Subject:   req.Subject,
		DueAt:     req.DueAt,
		Priority:  req.Priority,
		ContactID: req.ContactID,
		ThreadID:  req.ThreadID,
		Notes:     req.Notes,
	})
	if err != nil {
		return utils.EngineErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(f))
}

func (fc *FollowUpController) List(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	followUps, err := fc.svc.List(c.Context(), user.ID, c.Query("status"))
	if err != nil {
		return utils.EngineErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(followUps))
}

func (fc *FollowUpController) ListOverdue(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	overdue, err := fc.svc.ListOverdue(c.Context(), user.ID, fc.clock.Now())
	if err != nil {
		return utils.EngineErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(overdue))
}

func (fc *FollowUpController) Complete(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	f, err := fc.svc.Complete(c.Context(), user.ID, id)
	if err != nil {
		return utils.EngineErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(f))
}

func (fc *FollowUpController) Snooze(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	var req SnoozeFollowUpRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	f, err := fc.svc.Snooze(c.Context(), user.ID, id, req.Until)
	if err != nil {
		return utils.EngineErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(f))
}

func (fc *FollowUpController) Cancel(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	f, err := fc.svc.Cancel(c.Context(), user.ID, id)
	if err != nil {
		return utils.EngineErrorResponse(c, err)
	}
	return c.JSON(utils.SuccessResponse(f))
}
