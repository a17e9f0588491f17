package controller

import (
	"github.com/gofiber/fiber/v2"

	"mailpilot/config"
	"mailpilot/models"
	"mailpilot/utils"
)

type CreateContactRequest struct {
	Email     string   `json:"email" validate:"required,email"`
	FirstName string   `json:"first_name" validate:"omitempty,max=100"`
	LastName  string   `json:"last_name" validate:"omitempty,max=100"`
	Company   string   `json:"company" validate:"omitempty,max=200"`
	JobTitle  string   `json:"job_title" validate:"omitempty,max=200"`
	Tags      []string `json:"tags"`
	Notes     string   `json:"notes"`
}

type UpdateContactRequest struct {
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
	Company   *string   `json:"company"`
	JobTitle  *string   `json:"job_title"`
	Tags      *[]string `json:"tags"`
	Notes     *string   `json:"notes"`
}

func CreateContact(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateContactRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var existing models.Contact
	if err := config.DB.Where("user_id = ? AND email = ?", user.ID, req.Email).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Contact with this email already exists", nil)
	}

	contact := models.Contact{
		UserID:    user.ID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Company:   req.Company,
		JobTitle:  req.JobTitle,
		Tags:      req.Tags,
		Notes:     req.Notes,
	}
	if err := config.DB.Create(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create contact", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(contact))
}

func ListContacts(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	q := config.DB.Model(&models.Contact{}).Where("user_id = ?", user.ID)
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		q = q.Where("email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ? OR company ILIKE ?",
			pattern, pattern, pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count contacts", nil)
	}

	var contacts []models.Contact
	if err := q.Order("last_contacted_at DESC NULLS LAST").
		Offset((page - 1) * limit).Limit(limit).
		Find(&contacts).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list contacts", nil)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:  contacts,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

func GetContact(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	var contact models.Contact
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
	}
	return c.JSON(utils.SuccessResponse(contact))
}

func UpdateContact(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	var contact models.Contact
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
	}

	var req UpdateContactRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Company != nil {
		updates["company"] = *req.Company
	}
	if req.JobTitle != nil {
		updates["job_title"] = *req.JobTitle
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if len(updates) > 0 {
		if err := config.DB.Model(&contact).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update contact", nil)
		}
	}
	if req.Tags != nil {
		contact.Tags = *req.Tags
		if err := config.DB.Model(&contact).Update("tags", contact.Tags).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update tags", nil)
		}
	}

	return c.JSON(utils.SuccessResponse(contact))
}

// UnsubscribeContact flags the contact; active enrollments stop at the next
// tick and the contact is never enrolled again.
func UnsubscribeContact(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	var contact models.Contact
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
	}
	if err := config.DB.Model(&contact).Update("is_unsubscribed", true).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to unsubscribe contact", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"unsubscribed": true}))
}

// VerifyContact checks whether a contact's address is deliverable.
func VerifyContact(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	var contact models.Contact
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
	}

	includeWhois := c.QueryBool("whois", false)
	result := utils.VerifyContactEmail(contact.Email, includeWhois)

	if result.Status == "valid" && !contact.IsVerified {
		config.DB.Model(&contact).Update("is_verified", true)
	}

	return c.JSON(utils.SuccessResponse(result))
}
