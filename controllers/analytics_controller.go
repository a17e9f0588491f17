package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"mailpilot/config"
	"mailpilot/models"
	"mailpilot/utils"
)

// 1x1 transparent GIF served by the open-tracking pixel
var trackingPixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

type DashboardStats struct {
	TotalContacts     int64 `json:"total_contacts"`
	PendingFollowUps  int64 `json:"pending_follow_ups"`
	OverdueFollowUps  int64 `json:"overdue_follow_ups"`
	ActiveEnrollments int64 `json:"active_enrollments"`
	EmailsSent30d     int64 `json:"emails_sent_30d"`
	OpenRate30d       float64 `json:"open_rate_30d"`
	ReplyRate30d      float64 `json:"reply_rate_30d"`
	OpenInsights      int64 `json:"open_insights"`
}

func GetDashboardStats(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	now := time.Now().UTC()
	since := now.Add(-30 * 24 * time.Hour)

	var stats DashboardStats
	db := config.DB

	db.Model(&models.Contact{}).Where("user_id = ?", user.ID).Count(&stats.TotalContacts)
	db.Model(&models.FollowUp{}).
		Where("user_id = ? AND status = ?", user.ID, models.FollowUpStatusPending).
		Count(&stats.PendingFollowUps)
	db.Model(&models.FollowUp{}).
		Where("user_id = ? AND status IN ? AND due_at <= ?",
			user.ID,
			[]string{models.FollowUpStatusPending, models.FollowUpStatusSnoozed},
			now).
		Count(&stats.OverdueFollowUps)
	db.Model(&models.SequenceEnrollment{}).
		Where("user_id = ? AND status = ?", user.ID, models.EnrollmentStatusActive).
		Count(&stats.ActiveEnrollments)
	db.Model(&models.Insight{}).
		Where("user_id = ? AND is_dismissed = ?", user.ID, false).
		Count(&stats.OpenInsights)

	var sent, opened, replied int64
	db.Model(&models.EmailAnalytic{}).
		Where("user_id = ? AND sent_at >= ?", user.ID, since).
		Count(&sent)
	db.Model(&models.EmailAnalytic{}).
		Where("user_id = ? AND sent_at >= ? AND opened_at IS NOT NULL", user.ID, since).
		Count(&opened)
	db.Model(&models.EmailAnalytic{}).
		Where("user_id = ? AND sent_at >= ? AND replied_at IS NOT NULL", user.ID, since).
		Count(&replied)

	stats.EmailsSent30d = sent
	if sent > 0 {
		stats.OpenRate30d = float64(opened) / float64(sent)
		stats.ReplyRate30d = float64(replied) / float64(sent)
	}

	return c.JSON(utils.SuccessResponse(stats))
}

// GetSequenceStats aggregates per-step engagement for one sequence.
func GetSequenceStats(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	var seq models.EmailSequence
	if err := config.DB.Preload("Steps").
		Where("id = ? AND user_id = ?", id, user.ID).
		First(&seq).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Sequence not found", nil)
	}

	var byStatus []struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	config.DB.Model(&models.SequenceEnrollment{}).
		Select("status, count(*) as count").
		Where("sequence_id = ?", seq.ID).
		Group("status").
		Scan(&byStatus)

	var sent, opened, clicked int64
	config.DB.Model(&models.EmailAnalytic{}).Where("sequence_id = ?", seq.ID).Count(&sent)
	config.DB.Model(&models.EmailAnalytic{}).
		Where("sequence_id = ? AND opened_at IS NOT NULL", seq.ID).Count(&opened)
	config.DB.Model(&models.EmailAnalytic{}).
		Where("sequence_id = ? AND clicked_at IS NOT NULL", seq.ID).Count(&clicked)

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"sequence_id": seq.ID,
		"steps":       seq.OrderedSteps(),
		"enrollments": byStatus,
		"sent":        sent,
		"opened":      opened,
		"clicked":     clicked,
	}))
}

// TrackOpen records an email open and serves the pixel. Unauthenticated by
// design; the HMAC token gates abuse.
func TrackOpen(c *fiber.Ctx) error {
	messageID := c.Params("messageId")
	token := c.Params("token")

	if utils.VerifyTrackingToken(messageID, token) {
		now := time.Now().UTC()
		config.DB.Model(&models.EmailAnalytic{}).
			Where("message_id = ?", messageID).
			Updates(map[string]interface{}{
				"open_count": gorm.Expr("open_count + 1"),
			})
		// First open only
		config.DB.Model(&models.EmailAnalytic{}).
			Where("message_id = ? AND opened_at IS NULL", messageID).
			Update("opened_at", now)
	}

	c.Set("Content-Type", "image/gif")
	c.Set("Cache-Control", "no-store")
	return c.Send(trackingPixelGIF)
}

// TrackClick records a click and redirects to the original URL.
func TrackClick(c *fiber.Ctx) error {
	messageID := c.Params("messageId")
	token := c.Params("token")
	target := c.Query("url")

	if target == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Missing target URL", nil)
	}

	if utils.VerifyTrackingToken(messageID, token) {
		now := time.Now().UTC()
		config.DB.Model(&models.EmailAnalytic{}).
			Where("message_id = ?", messageID).
			Updates(map[string]interface{}{
				"click_count": gorm.Expr("click_count + 1"),
			})
		config.DB.Model(&models.EmailAnalytic{}).
			Where("message_id = ? AND clicked_at IS NULL", messageID).
			Update("clicked_at", now)
	}

	return c.Redirect(target, fiber.StatusFound)
}

func ListActivity(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var logs []models.ActivityLog
	if err := config.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list activity", nil)
	}
	return c.JSON(utils.SuccessResponse(logs))
}
