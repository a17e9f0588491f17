package controller

import (
	"github.com/gofiber/fiber/v2"

	"mailpilot/config"
	"mailpilot/models"
	"mailpilot/utils"
)

type ConnectAccountRequest struct {
	Email        string `json:"email" validate:"required,email"`
	IMAPHost     string `json:"imap_host" validate:"required"`
	IMAPPort     int    `json:"imap_port" validate:"omitempty,min=1,max=65535"`
	IMAPUsername string `json:"imap_username" validate:"required"`
	IMAPPassword string `json:"imap_password" validate:"required"`
}

// ConnectAccount registers a mailbox for the inbox sync worker.
func ConnectAccount(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req ConnectAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	port := req.IMAPPort
	if port == 0 {
		port = 993
	}

	account := models.EmailAccount{
		UserID:       user.ID,
		Email:        req.Email,
		Provider:     "imap",
		IsActive:     true,
		IMAPHost:     req.IMAPHost,
		IMAPPort:     port,
		IMAPUsername: req.IMAPUsername,
		IMAPPassword: req.IMAPPassword,
	}
	if err := config.DB.Create(&account).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to connect account", nil)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(account))
}

func ListAccounts(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var accounts []models.EmailAccount
	if err := config.DB.Where("user_id = ?", user.ID).Find(&accounts).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list accounts", nil)
	}
	return c.JSON(utils.SuccessResponse(accounts))
}

func ListThreads(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 25)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}

	q := config.DB.Model(&models.EmailThread{}).
		Where("user_id = ? AND is_archived = ?", user.ID, false)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count threads", nil)
	}

	var threads []models.EmailThread
	if err := q.Order("last_message_at DESC NULLS LAST").
		Offset((page - 1) * limit).Limit(limit).
		Find(&threads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list threads", nil)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:  threads,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

func GetThread(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	var thread models.EmailThread
	if err := config.DB.Preload("Messages").
		Where("id = ? AND user_id = ?", id, user.ID).
		First(&thread).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Thread not found", nil)
	}

	if !thread.IsRead {
		config.DB.Model(&thread).Update("is_read", true)
	}
	return c.JSON(utils.SuccessResponse(thread))
}

func ArchiveThread(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	res := config.DB.Model(&models.EmailThread{}).
		Where("id = ? AND user_id = ?", id, user.ID).
		Update("is_archived", true)
	if res.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to archive thread", nil)
	}
	if res.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Thread not found", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"archived": true}))
}
