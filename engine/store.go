package engine

import (
	"context"
	"time"

	"mailpilot/models"
)

// Store is the persistence boundary of the lifecycle engine. Every call is a
// network round-trip and may fail with a *StoreError; lookups of unknown ids
// fail with a *NotFoundError.
//
// ClaimEnrollment is the concurrency primitive required for at-most-once
// processing: it conditionally moves next_send_at forward in one atomic
// statement and reports whether this caller won the claim. Two overlapping
// ticks reading the same enrollment will race on the same expected
// next_send_at, and exactly one of them wins.
type Store interface {
	// Follow-ups
	GetFollowUp(ctx context.Context, userID, id uint) (*models.FollowUp, error)
	CreateFollowUp(ctx context.Context, f *models.FollowUp) error
	UpdateFollowUp(ctx context.Context, id uint, fields map[string]interface{}) error
	ListFollowUps(ctx context.Context, userID uint, status string) ([]models.FollowUp, error)
	// ListOverdueFollowUps returns pending and snoozed follow-ups with
	// due_at <= now, soonest-overdue first.
	ListOverdueFollowUps(ctx context.Context, userID uint, now time.Time) ([]models.FollowUp, error)

	// Sequences and enrollments
	GetSequence(ctx context.Context, id uint) (*models.EmailSequence, error)
	ListDueEnrollments(ctx context.Context, now time.Time) ([]models.SequenceEnrollment, error)
	ClaimEnrollment(ctx context.Context, id uint, expectedNextSendAt, claimUntil time.Time) (bool, error)
	UpdateEnrollment(ctx context.Context, id uint, fields map[string]interface{}) error
	IncrementStepSent(ctx context.Context, stepID uint) error

	// Contacts
	GetContact(ctx context.Context, id uint) (*models.Contact, error)
	MarkContacted(ctx context.Context, contactID uint, now time.Time) error
	CountColdContacts(ctx context.Context, userID uint, scoreBelow int) (int64, error)

	// Insights
	CreateInsight(ctx context.Context, in *models.Insight) error
	HasOpenInsight(ctx context.Context, userID uint, insightType string, now time.Time) (bool, error)

	// Analytics
	RecordSend(ctx context.Context, a *models.EmailAnalytic) error
}

// Sender emits the send side effect for one sequence step. Implementations
// talk to an external mail service; the engine only sees success or failure.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) (messageID string, err error)
}
