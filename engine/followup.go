package engine

import (
	"context"
	"strings"
	"time"

	"mailpilot/models"
)

// FollowUpService owns the follow-up state machine:
//
//	pending -> completed (terminal)
//	pending -> snoozed -> completed
//	pending | snoozed  -> cancelled (terminal)
//
// A snoozed follow-up resurfaces through its due date; snoozing rewrites
// due_at and nothing else.
type FollowUpService struct {
	store Store
	clock Clock
}

func NewFollowUpService(store Store, clock Clock) *FollowUpService {
	return &FollowUpService{store: store, clock: clock}
}

// CreateFollowUpInput carries the caller-supplied fields for a new follow-up.
type CreateFollowUpInput struct {
	Subject   string
	DueAt     time.Time
	Priority  string
	ContactID *uint
	ThreadID  *uint
	Notes     string
}

var validPriorities = map[string]bool{
	models.FollowUpPriorityLow:    true,
	models.FollowUpPriorityMedium: true,
	models.FollowUpPriorityHigh:   true,
	models.FollowUpPriorityUrgent: true,
}

// Create inserts a new pending follow-up. Past due dates are allowed: they
// represent already-overdue items created retroactively.
func (s *FollowUpService) Create(ctx context.Context, userID uint, in CreateFollowUpInput) (*models.FollowUp, error) {
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		return nil, validationErrorf("subject is required")
	}
	if in.DueAt.IsZero() {
		return nil, validationErrorf("due date is required")
	}
	priority := in.Priority
	if priority == "" {
		priority = models.FollowUpPriorityMedium
	}
	if !validPriorities[priority] {
		return nil, validationErrorf("invalid priority %q", priority)
	}

	f := &models.FollowUp{
		UserID:    userID,
		ContactID: in.ContactID,
		ThreadID:  in.ThreadID,
		Subject:   subject,
		DueAt:     in.DueAt,
		Status:    models.FollowUpStatusPending,
		Priority:  priority,
		Notes:     in.Notes,
	}
	if err := s.store.CreateFollowUp(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Complete moves a pending or snoozed follow-up to completed and stamps
// CompletedAt. Completing an already-completed follow-up is a no-op success
// and leaves the original CompletedAt untouched.
func (s *FollowUpService) Complete(ctx context.Context, userID, id uint) (*models.FollowUp, error) {
	f, err := s.store.GetFollowUp(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	switch f.Status {
	case models.FollowUpStatusCompleted:
		return f, nil
	case models.FollowUpStatusCancelled:
		return nil, validationErrorf("cannot complete a cancelled follow-up")
	}

	now := s.clock.Now()
	if err := s.store.UpdateFollowUp(ctx, f.ID, map[string]interface{}{
		"status":       models.FollowUpStatusCompleted,
		"completed_at": now,
	}); err != nil {
		return nil, err
	}
	f.Status = models.FollowUpStatusCompleted
	f.CompletedAt = &now
	return f, nil
}

// Snooze pushes the due date to a future time. The due date is the mechanism
// by which a snoozed item resurfaces as overdue; notes and priority are
// preserved.
func (s *FollowUpService) Snooze(ctx context.Context, userID, id uint, until time.Time) (*models.FollowUp, error) {
	if !until.After(s.clock.Now()) {
		return nil, validationErrorf("snooze time must be in the future")
	}

	f, err := s.store.GetFollowUp(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if f.Status != models.FollowUpStatusPending && f.Status != models.FollowUpStatusSnoozed {
		return nil, validationErrorf("only pending follow-ups can be snoozed")
	}

	if err := s.store.UpdateFollowUp(ctx, f.ID, map[string]interface{}{
		"status": models.FollowUpStatusSnoozed,
		"due_at": until,
	}); err != nil {
		return nil, err
	}
	f.Status = models.FollowUpStatusSnoozed
	f.DueAt = until
	return f, nil
}

// Cancel moves any non-terminal follow-up to cancelled. Cancelling twice is
// a no-op success; a completed follow-up cannot be cancelled.
func (s *FollowUpService) Cancel(ctx context.Context, userID, id uint) (*models.FollowUp, error) {
	f, err := s.store.GetFollowUp(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	switch f.Status {
	case models.FollowUpStatusCancelled:
		return f, nil
	case models.FollowUpStatusCompleted:
		return nil, validationErrorf("cannot cancel a completed follow-up")
	}

	if err := s.store.UpdateFollowUp(ctx, f.ID, map[string]interface{}{
		"status": models.FollowUpStatusCancelled,
	}); err != nil {
		return nil, err
	}
	f.Status = models.FollowUpStatusCancelled
	return f, nil
}

// List returns the user's follow-ups, optionally filtered by status.
func (s *FollowUpService) List(ctx context.Context, userID uint, status string) ([]models.FollowUp, error) {
	return s.store.ListFollowUps(ctx, userID, status)
}

// ListOverdue returns actionable follow-ups with due_at <= now, soonest
// overdue first, so the oldest debt surfaces at the top.
func (s *FollowUpService) ListOverdue(ctx context.Context, userID uint, now time.Time) ([]models.FollowUp, error) {
	return s.store.ListOverdueFollowUps(ctx, userID, now)
}
