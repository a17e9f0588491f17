package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"mailpilot/models"
)

// DefaultRetryDelay is the horizon an enrollment is pushed to when its send
// fails. The claim write sets it up front, so a failed send simply leaves
// the enrollment parked there; the engine never advances past a failed send
// and never stalls permanently on one failure.
const DefaultRetryDelay = time.Hour

// SequenceEngine advances drip-sequence enrollments, at most one step per
// due enrollment per tick. Advancement is coupled to send success.
type SequenceEngine struct {
	store      Store
	sender     Sender
	clock      Clock
	logger     *logrus.Logger
	retryDelay time.Duration

	// notify, when set, receives one event per processed enrollment. Used
	// by the websocket progress feed.
	notify func(TickEvent)
}

// TickEvent describes the outcome of processing one enrollment.
type TickEvent struct {
	EnrollmentID uint      `json:"enrollment_id"`
	SequenceID   uint      `json:"sequence_id"`
	UserID       uint      `json:"user_id"`
	Outcome      string    `json:"outcome"` // sent, completed, paused, unsubscribed, send_failed, error
	Step         int       `json:"step"`
	At           time.Time `json:"at"`
}

// TickResult summarizes one sweep.
type TickResult struct {
	Due       int
	Claimed   int
	Sent      int
	Completed int
	Paused    int
	Failed    int
}

func NewSequenceEngine(store Store, sender Sender, clock Clock, logger *logrus.Logger) *SequenceEngine {
	return &SequenceEngine{
		store:      store,
		sender:     sender,
		clock:      clock,
		logger:     logger,
		retryDelay: DefaultRetryDelay,
	}
}

// SetNotifier registers a per-enrollment event callback.
func (e *SequenceEngine) SetNotifier(fn func(TickEvent)) { e.notify = fn }

// Tick processes every enrollment that is active and due. Each enrollment is
// handled independently: a failure in one never aborts the others. The only
// error returned is a failure to list due enrollments at all.
func (e *SequenceEngine) Tick(ctx context.Context) (TickResult, error) {
	now := e.clock.Now()
	var res TickResult

	due, err := e.store.ListDueEnrollments(ctx, now)
	if err != nil {
		return res, err
	}
	res.Due = len(due)

	for i := range due {
		enr := &due[i]
		if enr.NextSendAt == nil {
			continue // not schedulable; defensive against dirty rows
		}

		// Atomic claim: wins only if next_send_at still matches what we
		// read. The claim horizon doubles as the retry horizon for a
		// failed send.
		claimed, err := e.store.ClaimEnrollment(ctx, enr.ID, *enr.NextSendAt, now.Add(e.retryDelay))
		if err != nil {
			e.logger.WithError(err).WithField("enrollment_id", enr.ID).Error("enrollment claim failed")
			continue
		}
		if !claimed {
			continue // another tick got there first
		}
		res.Claimed++

		outcome := e.processEnrollment(ctx, enr, now)
		switch outcome {
		case "sent":
			res.Sent++
		case "completed":
			res.Sent++
			res.Completed++
		case "already_completed":
			res.Completed++
		case "paused", "unsubscribed":
			res.Paused++
		case "send_failed", "error":
			res.Failed++
		}
		if e.notify != nil && outcome != "already_completed" {
			e.notify(TickEvent{
				EnrollmentID: enr.ID,
				SequenceID:   enr.SequenceID,
				UserID:       enr.UserID,
				Outcome:      outcome,
				Step:         enr.CurrentStep,
				At:           now,
			})
		}
	}

	return res, nil
}

// processEnrollment runs the per-enrollment step logic after a successful
// claim. State is committed as it goes: an aborted tick leaves this
// enrollment either untouched past the claim or fully advanced.
func (e *SequenceEngine) processEnrollment(ctx context.Context, enr *models.SequenceEnrollment, now time.Time) string {
	log := e.logger.WithFields(logrus.Fields{
		"enrollment_id": enr.ID,
		"sequence_id":   enr.SequenceID,
	})

	seq, err := e.store.GetSequence(ctx, enr.SequenceID)
	if err != nil {
		if IsNotFound(err) {
			return e.pause(ctx, enr, log, "sequence missing")
		}
		log.WithError(err).Error("sequence lookup failed")
		return "error"
	}
	if !seq.IsActive {
		return e.pause(ctx, enr, log, "sequence deactivated")
	}

	steps := seq.OrderedSteps()
	if enr.CurrentStep >= len(steps) {
		// Already past the last step; close out without sending.
		if err := e.complete(ctx, enr.ID, now); err != nil {
			log.WithError(err).Error("failed to complete enrollment")
			return "error"
		}
		return "already_completed"
	}
	step := steps[enr.CurrentStep]

	contact, err := e.store.GetContact(ctx, enr.ContactID)
	if err != nil {
		if IsNotFound(err) {
			return e.pause(ctx, enr, log, "contact missing")
		}
		log.WithError(err).Error("contact lookup failed")
		return "error"
	}
	if contact.IsUnsubscribed {
		if err := e.store.UpdateEnrollment(ctx, enr.ID, map[string]interface{}{
			"status":       models.EnrollmentStatusUnsubscribed,
			"next_send_at": nil,
		}); err != nil {
			log.WithError(err).Error("failed to mark enrollment unsubscribed")
			return "error"
		}
		return "unsubscribed"
	}

	messageID, err := e.sender.Send(ctx, contact.Email, step.Subject, step.Body)
	if err != nil {
		// The claim already parked next_send_at at the retry horizon;
		// leave current_step untouched so the step is retried, not
		// skipped.
		log.WithError(&SendError{Recipient: contact.Email, Err: err}).
			WithField("step", step.StepOrder).Warn("step send failed, will retry")
		return "send_failed"
	}

	e.recordSend(ctx, enr, &step, contact, messageID, now, log)

	next := enr.CurrentStep + 1
	if next >= len(steps) {
		// Final step sent: complete immediately, do not wait for another
		// tick.
		if err := e.store.UpdateEnrollment(ctx, enr.ID, map[string]interface{}{
			"current_step": next,
			"status":       models.EnrollmentStatusCompleted,
			"completed_at": now,
			"next_send_at": nil,
		}); err != nil {
			log.WithError(err).Error("failed to complete enrollment after final send")
			return "error"
		}
		enr.CurrentStep = next
		return "completed"
	}

	nextSend := now.Add(time.Duration(steps[next].DelayDays) * 24 * time.Hour)
	if err := e.store.UpdateEnrollment(ctx, enr.ID, map[string]interface{}{
		"current_step": next,
		"next_send_at": nextSend,
	}); err != nil {
		log.WithError(err).Error("failed to advance enrollment")
		return "error"
	}
	enr.CurrentStep = next
	return "sent"
}

func (e *SequenceEngine) pause(ctx context.Context, enr *models.SequenceEnrollment, log *logrus.Entry, reason string) string {
	if err := e.store.UpdateEnrollment(ctx, enr.ID, map[string]interface{}{
		"status":       models.EnrollmentStatusPaused,
		"next_send_at": nil,
	}); err != nil {
		log.WithError(err).Error("failed to pause enrollment")
		return "error"
	}
	log.WithField("reason", reason).Info("enrollment paused")
	return "paused"
}

func (e *SequenceEngine) complete(ctx context.Context, enrollmentID uint, now time.Time) error {
	return e.store.UpdateEnrollment(ctx, enrollmentID, map[string]interface{}{
		"status":       models.EnrollmentStatusCompleted,
		"completed_at": now,
		"next_send_at": nil,
	})
}

// recordSend writes the bookkeeping for a successful send. Failures here are
// logged only; the send already happened and must not be retried.
func (e *SequenceEngine) recordSend(ctx context.Context, enr *models.SequenceEnrollment, step *models.SequenceStep, contact *models.Contact, messageID string, now time.Time, log *logrus.Entry) {
	if err := e.store.IncrementStepSent(ctx, step.ID); err != nil {
		log.WithError(err).Warn("failed to bump step sent counter")
	}
	if err := e.store.MarkContacted(ctx, contact.ID, now); err != nil {
		log.WithError(err).Warn("failed to update contact metrics")
	}
	if err := e.store.RecordSend(ctx, &models.EmailAnalytic{
		UserID:         enr.UserID,
		MessageID:      messageID,
		RecipientEmail: contact.Email,
		Subject:        step.Subject,
		TemplateID:     step.TemplateID,
		SequenceID:     &enr.SequenceID,
		EnrollmentID:   &enr.ID,
		SentAt:         now,
	}); err != nil {
		log.WithError(err).Warn("failed to record send analytics")
	}
}
