package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"mailpilot/engine"
	"mailpilot/models"
)

// GormStore is the Postgres-backed implementation of engine.Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &engine.StoreError{Op: op, Err: err}
}

func (s *GormStore) GetFollowUp(ctx context.Context, userID, id uint) (*models.FollowUp, error) {
	var f models.FollowUp
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &engine.NotFoundError{Kind: "follow-up", ID: id}
	}
	if err != nil {
		return nil, s.wrap("GetFollowUp", err)
	}
	return &f, nil
}

func (s *GormStore) CreateFollowUp(ctx context.Context, f *models.FollowUp) error {
	return s.wrap("CreateFollowUp", s.db.WithContext(ctx).Create(f).Error)
}

func (s *GormStore) UpdateFollowUp(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.FollowUp{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return s.wrap("UpdateFollowUp", res.Error)
	}
	if res.RowsAffected == 0 {
		return &engine.NotFoundError{Kind: "follow-up", ID: id}
	}
	return nil
}

func (s *GormStore) ListFollowUps(ctx context.Context, userID uint, status string) ([]models.FollowUp, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.FollowUp
	if err := q.Order("due_at ASC").Find(&out).Error; err != nil {
		return nil, s.wrap("ListFollowUps", err)
	}
	return out, nil
}

func (s *GormStore) ListOverdueFollowUps(ctx context.Context, userID uint, now time.Time) ([]models.FollowUp, error) {
	var out []models.FollowUp
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status IN ? AND due_at <= ?",
			userID,
			[]string{models.FollowUpStatusPending, models.FollowUpStatusSnoozed},
			now).
		Order("due_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, s.wrap("ListOverdueFollowUps", err)
	}
	return out, nil
}

func (s *GormStore) GetSequence(ctx context.Context, id uint) (*models.EmailSequence, error) {
	var seq models.EmailSequence
	err := s.db.WithContext(ctx).Preload("Steps").First(&seq, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &engine.NotFoundError{Kind: "sequence", ID: id}
	}
	if err != nil {
		return nil, s.wrap("GetSequence", err)
	}
	return &seq, nil
}

func (s *GormStore) ListDueEnrollments(ctx context.Context, now time.Time) ([]models.SequenceEnrollment, error) {
	var out []models.SequenceEnrollment
	err := s.db.WithContext(ctx).
		Where("status = ? AND next_send_at IS NOT NULL AND next_send_at <= ?",
			models.EnrollmentStatusActive, now).
		Order("next_send_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, s.wrap("ListDueEnrollments", err)
	}
	return out, nil
}

// ClaimEnrollment atomically takes ownership of a due enrollment by pushing
// next_send_at to claimUntil, conditioned on the value the caller read. When
// two schedulers race, the conditional WHERE lets exactly one win.
func (s *GormStore) ClaimEnrollment(ctx context.Context, id uint, expectedNextSendAt, claimUntil time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.SequenceEnrollment{}).
		Where("id = ? AND status = ? AND next_send_at = ?",
			id, models.EnrollmentStatusActive, expectedNextSendAt).
		Update("next_send_at", claimUntil)
	if res.Error != nil {
		return false, s.wrap("ClaimEnrollment", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) UpdateEnrollment(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.SequenceEnrollment{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return s.wrap("UpdateEnrollment", res.Error)
	}
	if res.RowsAffected == 0 {
		return &engine.NotFoundError{Kind: "enrollment", ID: id}
	}
	return nil
}

func (s *GormStore) IncrementStepSent(ctx context.Context, stepID uint) error {
	return s.wrap("IncrementStepSent", s.db.WithContext(ctx).
		Model(&models.SequenceStep{}).
		Where("id = ?", stepID).
		UpdateColumn("sent_count", gorm.Expr("sent_count + 1")).Error)
}

func (s *GormStore) GetContact(ctx context.Context, id uint) (*models.Contact, error) {
	var c models.Contact
	err := s.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &engine.NotFoundError{Kind: "contact", ID: id}
	}
	if err != nil {
		return nil, s.wrap("GetContact", err)
	}
	return &c, nil
}

func (s *GormStore) MarkContacted(ctx context.Context, contactID uint, now time.Time) error {
	return s.wrap("MarkContacted", s.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("id = ?", contactID).
		Updates(map[string]interface{}{
			"last_contacted_at": now,
			"total_emails_sent": gorm.Expr("total_emails_sent + 1"),
		}).Error)
}

func (s *GormStore) CountColdContacts(ctx context.Context, userID uint, scoreBelow int) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("user_id = ? AND relationship_score < ? AND is_unsubscribed = ?", userID, scoreBelow, false).
		Count(&n).Error
	if err != nil {
		return 0, s.wrap("CountColdContacts", err)
	}
	return n, nil
}

func (s *GormStore) CreateInsight(ctx context.Context, in *models.Insight) error {
	return s.wrap("CreateInsight", s.db.WithContext(ctx).Create(in).Error)
}

func (s *GormStore) HasOpenInsight(ctx context.Context, userID uint, insightType string, now time.Time) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Insight{}).
		Where("user_id = ? AND type = ? AND is_dismissed = ?", userID, insightType, false).
		Where("expires_at IS NULL OR expires_at >= ?", now).
		Count(&n).Error
	if err != nil {
		return false, s.wrap("HasOpenInsight", err)
	}
	return n > 0, nil
}

func (s *GormStore) RecordSend(ctx context.Context, a *models.EmailAnalytic) error {
	return s.wrap("RecordSend", s.db.WithContext(ctx).Create(a).Error)
}
