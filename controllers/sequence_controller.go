package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"mailpilot/config"
	"mailpilot/models"
	"mailpilot/utils"
)

type SequenceStepRequest struct {
	StepOrder  int    `json:"step_order" validate:"required,min=1"`
	DelayDays  int    `json:"delay_days" validate:"min=0"`
	Subject    string `json:"subject" validate:"required,max=500"`
	Body       string `json:"body" validate:"required"`
	TemplateID *uint  `json:"template_id"`
}

type CreateSequenceRequest struct {
	Name        string                `json:"name" validate:"required,max=200"`
	Description string                `json:"description"`
	Steps       []SequenceStepRequest `json:"steps" validate:"required,min=1,dive"`
}

type EnrollContactsRequest struct {
	ContactIDs []uint `json:"contact_ids" validate:"required,min=1"`
}

// validateStepOrder enforces strictly increasing step_order values.
func validateStepOrder(steps []SequenceStepRequest) bool {
	for i := 1; i < len(steps); i++ {
		if steps[i].StepOrder <= steps[i-1].StepOrder {
			return false
		}
	}
	return true
}

func CreateSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateSequenceRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}
	if !validateStepOrder(req.Steps) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Step order values must be strictly increasing", nil)
	}

	seq := models.EmailSequence{
		UserID:      user.ID,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	for _, s := range req.Steps {
		seq.Steps = append(seq.Steps, models.SequenceStep{
			StepOrder:  s.StepOrder,
			DelayDays:  s.DelayDays,
			Subject:    s.Subject,
			Body:       s.Body,
			TemplateID: s.TemplateID,
		})
	}

	if err := config.DB.Create(&seq).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create sequence", nil)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(seq))
}

func ListSequences(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var sequences []models.EmailSequence
	if err := config.DB.Preload("Steps").
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&sequences).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list sequences", nil)
	}
	return c.JSON(utils.SuccessResponse(sequences))
}

func GetSequence(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	var seq models.EmailSequence
	if err := config.DB.Preload("Steps").
		Where("id = ? AND user_id = ?", id, user.ID).
		First(&seq).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}
	return c.JSON(utils.SuccessResponse(seq))
}

// SetSequenceActive toggles the active flag. Deactivating pauses every
// enrollment at its next tick; this is the central pause switch.
func SetSequenceActive(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	var seq models.EmailSequence
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&seq).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	if err := config.DB.Model(&seq).Update("is_active", req.IsActive).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update sequence", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"is_active": req.IsActive}))
}

// EnrollContacts enrolls contacts into a sequence. The first step's delay is
// honored from enrollment time; a zero-delay first step is due immediately.
func EnrollContacts(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	var req EnrollContactsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var seq models.EmailSequence
	if err := config.DB.Preload("Steps").
		Where("id = ? AND user_id = ?", id, user.ID).
		First(&seq).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}
	if !seq.IsActive {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Cannot enroll into an inactive sequence", nil)
	}
	steps := seq.OrderedSteps()
	if len(steps) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Sequence has no steps", nil)
	}

	now := time.Now().UTC()
	firstSend := now.Add(time.Duration(steps[0].DelayDays) * 24 * time.Hour)

	var enrolled []models.SequenceEnrollment
	var skipped []uint
	for _, contactID := range req.ContactIDs {
		var contact models.Contact
		if err := config.DB.Where("id = ? AND user_id = ?", contactID, user.ID).First(&contact).Error; err != nil {
			skipped = append(skipped, contactID)
			continue
		}
		if contact.IsUnsubscribed {
			skipped = append(skipped, contactID)
			continue
		}

		// One live enrollment per contact per sequence
		var existing models.SequenceEnrollment
		err := config.DB.Where("sequence_id = ? AND contact_id = ? AND status IN ?",
			seq.ID, contactID,
			[]string{models.EnrollmentStatusActive, models.EnrollmentStatusPaused}).
			First(&existing).Error
		if err == nil {
			skipped = append(skipped, contactID)
			continue
		}

		next := firstSend
		enr := models.SequenceEnrollment{
			SequenceID: seq.ID,
			ContactID:  contactID,
			UserID:     user.ID,
			Status:     models.EnrollmentStatusActive,
			NextSendAt: &next,
			EnrolledAt: now,
		}
		if err := config.DB.Create(&enr).Error; err != nil {
			skipped = append(skipped, contactID)
			continue
		}
		enrolled = append(enrolled, enr)

		config.DB.Create(&models.ActivityLog{
			UserID:     user.ID,
			Action:     "sequence_enrolled",
			EntityType: "sequence",
			EntityID:   &seq.ID,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(fiber.Map{
		"enrolled": enrolled,
		"skipped":  skipped,
	}))
}

func ListEnrollments(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	var enrollments []models.SequenceEnrollment
	q := config.DB.Where("sequence_id = ? AND user_id = ?", id, user.ID)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("enrolled_at DESC").Find(&enrollments).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list enrollments", nil)
	}
	return c.JSON(utils.SuccessResponse(enrollments))
}

// PauseEnrollment stops sends for one contact without touching the sequence.
func PauseEnrollment(c *fiber.Ctx) error {
	return setEnrollmentStatus(c, models.EnrollmentStatusPaused)
}

// ResumeEnrollment reactivates a paused enrollment; the pending step becomes
// due immediately.
func ResumeEnrollment(c *fiber.Ctx) error {
	return setEnrollmentStatus(c, models.EnrollmentStatusActive)
}

func setEnrollmentStatus(c *fiber.Ctx, status string) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("enrollmentId"))

	var enr models.SequenceEnrollment
	if err := config.DB.Where("id = ? AND user_id = ?", id, user.ID).First(&enr).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Enrollment not found", nil)
	}
	if enr.Status == models.EnrollmentStatusCompleted || enr.Status == models.EnrollmentStatusUnsubscribed {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Enrollment is already finished", nil)
	}

	updates := map[string]interface{}{"status": status, "next_send_at": nil}
	if status == models.EnrollmentStatusActive {
		updates["next_send_at"] = time.Now().UTC()
	}
	if err := config.DB.Model(&enr).Updates(updates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update enrollment", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"status": status}))
}
