package engine

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"mailpilot/models"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type seqFixture struct {
	store  *memStore
	sender *recordingSender
	clock  *fakeClock
	engine *SequenceEngine

	contactID    uint
	sequenceID   uint
	enrollmentID uint
}

// newSeqFixture seeds one contact enrolled at t0 in a two-step sequence
// (step 1 immediately, step 2 after 3 days) — the canonical drip scenario.
func newSeqFixture(t *testing.T) *seqFixture {
	t.Helper()
	store := newMemStore()
	sender := &recordingSender{}
	clock := newFakeClock(t0)

	contactID := store.addContact(models.Contact{
		UserID: 1,
		Email:  "dana@example.com",
	})
	sequenceID := store.addSequence(models.EmailSequence{
		UserID:   1,
		Name:     "onboarding",
		IsActive: true,
		Steps: []models.SequenceStep{
			{StepOrder: 1, DelayDays: 0, Subject: "Welcome", Body: "Hi there"},
			{StepOrder: 2, DelayDays: 3, Subject: "Checking in", Body: "Still there?"},
		},
	})
	next := t0
	enrollmentID := store.addEnrollment(models.SequenceEnrollment{
		SequenceID: sequenceID,
		ContactID:  contactID,
		UserID:     1,
		Status:     models.EnrollmentStatusActive,
		NextSendAt: &next,
		EnrolledAt: t0,
	})

	return &seqFixture{
		store:        store,
		sender:       sender,
		clock:        clock,
		engine:       NewSequenceEngine(store, sender, clock, testLogger()),
		contactID:    contactID,
		sequenceID:   sequenceID,
		enrollmentID: enrollmentID,
	}
}

func TestTickDripScenario(t *testing.T) {
	fx := newSeqFixture(t)
	ctx := context.Background()

	// tick(t0): step 1 goes out, step 2 scheduled for t0+3d.
	res, err := fx.engine.Tick(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 1 {
		t.Fatalf("expected 1 send, got %d", res.Sent)
	}
	enr := fx.store.enrollment(fx.enrollmentID)
	if enr.CurrentStep != 1 {
		t.Errorf("expected currentStep 1, got %d", enr.CurrentStep)
	}
	wantNext := t0.Add(3 * 24 * time.Hour)
	if enr.NextSendAt == nil || !enr.NextSendAt.Equal(wantNext) {
		t.Errorf("expected nextSendAt %v, got %v", wantNext, enr.NextSendAt)
	}

	// tick(t0+2d): nothing due.
	fx.clock.Set(t0.Add(2 * 24 * time.Hour))
	res, err = fx.engine.Tick(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Due != 0 || fx.sender.count() != 1 {
		t.Fatalf("tick before the delay elapsed must be a no-op, sends=%d", fx.sender.count())
	}

	// tick(t0+3d): step 2 goes out and the enrollment completes directly.
	fx.clock.Set(wantNext)
	res, err = fx.engine.Tick(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 1 || res.Completed != 1 {
		t.Fatalf("expected final send+complete, got %+v", res)
	}
	enr = fx.store.enrollment(fx.enrollmentID)
	if enr.Status != models.EnrollmentStatusCompleted {
		t.Errorf("expected completed status, got %q", enr.Status)
	}
	if enr.NextSendAt != nil {
		t.Errorf("completed enrollment must have nil nextSendAt, got %v", enr.NextSendAt)
	}
	if enr.CompletedAt == nil || !enr.CompletedAt.Equal(wantNext) {
		t.Errorf("expected completedAt %v, got %v", wantNext, enr.CompletedAt)
	}
	if fx.sender.count() != 2 {
		t.Errorf("expected exactly 2 sends total, got %d", fx.sender.count())
	}
}

func TestTickLastStepCompletesWithoutExtraTick(t *testing.T) {
	fx := newSeqFixture(t)
	ctx := context.Background()

	// Park the enrollment on the final step.
	next := t0
	fx.store.UpdateEnrollment(ctx, fx.enrollmentID, map[string]interface{}{
		"current_step": 1,
		"next_send_at": next,
	})

	if _, err := fx.engine.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	enr := fx.store.enrollment(fx.enrollmentID)
	if enr.Status != models.EnrollmentStatusCompleted {
		t.Fatalf("enrollment on its last step must complete in the same tick, got %q", enr.Status)
	}
	if enr.NextSendAt != nil {
		t.Error("nextSendAt must be cleared on completion")
	}
}

func TestTickOverlappingSchedulersAdvanceAtMostOnce(t *testing.T) {
	fx := newSeqFixture(t)
	ctx := context.Background()

	// Both "schedulers" read the same due snapshot before either wrote.
	stale := &staleStore{
		memStore: fx.store,
		stale:    []models.SequenceEnrollment{fx.store.enrollment(fx.enrollmentID)},
	}
	eng := NewSequenceEngine(stale, fx.sender, fx.clock, testLogger())

	if _, err := eng.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := eng.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	enr := fx.store.enrollment(fx.enrollmentID)
	if enr.CurrentStep != 1 {
		t.Fatalf("overlapping ticks advanced currentStep to %d, want 1", enr.CurrentStep)
	}
	if fx.sender.count() != 1 {
		t.Fatalf("overlapping ticks produced %d sends, want 1", fx.sender.count())
	}
}

func TestClaimEnrollmentIsConditional(t *testing.T) {
	fx := newSeqFixture(t)
	ctx := context.Background()

	enr := fx.store.enrollment(fx.enrollmentID)
	claimUntil := t0.Add(time.Hour)

	ok, err := fx.store.ClaimEnrollment(ctx, enr.ID, *enr.NextSendAt, claimUntil)
	if err != nil || !ok {
		t.Fatalf("first claim should win, ok=%v err=%v", ok, err)
	}
	ok, err = fx.store.ClaimEnrollment(ctx, enr.ID, *enr.NextSendAt, claimUntil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("second claim with the stale nextSendAt must lose")
	}
}

func TestTickSendFailureParksAtRetryHorizon(t *testing.T) {
	fx := newSeqFixture(t)
	fx.sender.err = errBoom
	ctx := context.Background()

	res, err := fx.engine.Tick(ctx)
	if err != nil {
		t.Fatalf("send failure must not fail the tick: %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("expected 1 failure, got %+v", res)
	}

	enr := fx.store.enrollment(fx.enrollmentID)
	if enr.Status != models.EnrollmentStatusActive {
		t.Errorf("failed send must leave enrollment active, got %q", enr.Status)
	}
	if enr.CurrentStep != 0 {
		t.Errorf("failed send must not advance currentStep, got %d", enr.CurrentStep)
	}
	wantRetry := t0.Add(DefaultRetryDelay)
	if enr.NextSendAt == nil || !enr.NextSendAt.Equal(wantRetry) {
		t.Errorf("expected retry at %v, got %v", wantRetry, enr.NextSendAt)
	}

	// After the retry horizon the step is retried, not skipped.
	fx.sender.err = nil
	fx.clock.Set(wantRetry)
	if _, err := fx.engine.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fx.sender.count() != 1 {
		t.Fatalf("expected the failed step to be retried once, sends=%d", fx.sender.count())
	}
	if got := fx.sender.calls[0].Subject; got != "Welcome" {
		t.Errorf("retried wrong step: %q", got)
	}
}

func TestTickPausesEnrollmentWhenSequenceDeactivated(t *testing.T) {
	fx := newSeqFixture(t)
	ctx := context.Background()

	fx.store.sequences[fx.sequenceID].IsActive = false

	res, err := fx.engine.Tick(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Paused != 1 {
		t.Fatalf("expected 1 paused, got %+v", res)
	}
	enr := fx.store.enrollment(fx.enrollmentID)
	if enr.Status != models.EnrollmentStatusPaused {
		t.Errorf("expected paused, got %q", enr.Status)
	}
	if enr.NextSendAt != nil {
		t.Error("paused enrollment must have nil nextSendAt")
	}
	if fx.sender.count() != 0 {
		t.Error("deactivated sequence must not send")
	}
}

func TestTickPausesEnrollmentWhenSequenceMissing(t *testing.T) {
	fx := newSeqFixture(t)
	ctx := context.Background()

	delete(fx.store.sequences, fx.sequenceID)

	if _, err := fx.engine.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := fx.store.enrollment(fx.enrollmentID).Status; got != models.EnrollmentStatusPaused {
		t.Errorf("expected paused, got %q", got)
	}
}

func TestTickSkipsUnsubscribedContact(t *testing.T) {
	fx := newSeqFixture(t)
	ctx := context.Background()

	fx.store.contacts[fx.contactID].IsUnsubscribed = true

	if _, err := fx.engine.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	enr := fx.store.enrollment(fx.enrollmentID)
	if enr.Status != models.EnrollmentStatusUnsubscribed {
		t.Errorf("expected unsubscribed, got %q", enr.Status)
	}
	if fx.sender.count() != 0 {
		t.Error("unsubscribed contact must not be emailed")
	}
}

func TestTickCompletesOverranEnrollmentWithoutSending(t *testing.T) {
	fx := newSeqFixture(t)
	ctx := context.Background()

	// currentStep already past the last step; close out, send nothing.
	next := t0
	fx.store.UpdateEnrollment(ctx, fx.enrollmentID, map[string]interface{}{
		"current_step": 2,
		"next_send_at": next,
	})

	if _, err := fx.engine.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	enr := fx.store.enrollment(fx.enrollmentID)
	if enr.Status != models.EnrollmentStatusCompleted {
		t.Errorf("expected completed, got %q", enr.Status)
	}
	if fx.sender.count() != 0 {
		t.Error("overran enrollment must not send")
	}
}

func TestTickIsolatesFailuresPerEnrollment(t *testing.T) {
	fx := newSeqFixture(t)
	ctx := context.Background()

	// A second enrollment pointing at a missing contact fails alone.
	next := t0
	badID := fx.store.addEnrollment(models.SequenceEnrollment{
		SequenceID: fx.sequenceID,
		ContactID:  9999,
		UserID:     1,
		Status:     models.EnrollmentStatusActive,
		NextSendAt: &next,
		EnrolledAt: t0,
	})

	res, err := fx.engine.Tick(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 1 {
		t.Fatalf("healthy enrollment must still send, got %+v", res)
	}
	if got := fx.store.enrollment(badID).Status; got != models.EnrollmentStatusPaused {
		t.Errorf("enrollment with missing contact should pause, got %q", got)
	}
}

func TestTickRecordsAnalyticsAndContactMetrics(t *testing.T) {
	fx := newSeqFixture(t)
	ctx := context.Background()

	if _, err := fx.engine.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fx.store.analytics) != 1 {
		t.Fatalf("expected 1 analytics row, got %d", len(fx.store.analytics))
	}
	a := fx.store.analytics[0]
	if a.RecipientEmail != "dana@example.com" || a.SequenceID == nil || *a.SequenceID != fx.sequenceID {
		t.Errorf("analytics row incomplete: %+v", a)
	}

	c, _ := fx.store.GetContact(ctx, fx.contactID)
	if c.TotalEmailsSent != 1 {
		t.Errorf("expected contact sent counter 1, got %d", c.TotalEmailsSent)
	}
	if c.LastContactedAt == nil || !c.LastContactedAt.Equal(t0) {
		t.Errorf("expected lastContactedAt %v, got %v", t0, c.LastContactedAt)
	}
}

func TestTickNotifierReceivesEvents(t *testing.T) {
	fx := newSeqFixture(t)
	ctx := context.Background()

	var events []TickEvent
	fx.engine.SetNotifier(func(ev TickEvent) { events = append(events, ev) })

	if _, err := fx.engine.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Outcome != "sent" || events[0].EnrollmentID != fx.enrollmentID {
		t.Errorf("unexpected event: %+v", events[0])
	}
}
