package engine

import (
	"context"
	"testing"
	"time"

	"mailpilot/models"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newFollowUpFixture() (*FollowUpService, *memStore, *fakeClock) {
	store := newMemStore()
	clock := newFakeClock(t0)
	return NewFollowUpService(store, clock), store, clock
}

func TestCreateFollowUpRequiresSubject(t *testing.T) {
	svc, _, _ := newFollowUpFixture()

	_, err := svc.Create(context.Background(), 1, CreateFollowUpInput{
		Subject: "   ",
		DueAt:   t0.Add(time.Hour),
	})
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateFollowUpRejectsZeroDueDate(t *testing.T) {
	svc, _, _ := newFollowUpFixture()

	_, err := svc.Create(context.Background(), 1, CreateFollowUpInput{Subject: "ping Dana"})
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateFollowUpAllowsPastDueDate(t *testing.T) {
	svc, _, _ := newFollowUpFixture()

	// Retroactive items are legal: they are simply already overdue.
	f, err := svc.Create(context.Background(), 1, CreateFollowUpInput{
		Subject: "ping Dana",
		DueAt:   t0.Add(-48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Status != models.FollowUpStatusPending {
		t.Errorf("expected pending status, got %q", f.Status)
	}
	if !f.IsOverdue(t0) {
		t.Error("expected follow-up to be overdue at t0")
	}
}

func TestCreateFollowUpRejectsUnknownPriority(t *testing.T) {
	svc, _, _ := newFollowUpFixture()

	_, err := svc.Create(context.Background(), 1, CreateFollowUpInput{
		Subject:  "ping Dana",
		DueAt:    t0.Add(time.Hour),
		Priority: "asap",
	})
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateFollowUpDefaultsPriorityToMedium(t *testing.T) {
	svc, _, _ := newFollowUpFixture()

	f, err := svc.Create(context.Background(), 1, CreateFollowUpInput{
		Subject: "ping Dana",
		DueAt:   t0.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Priority != models.FollowUpPriorityMedium {
		t.Errorf("expected medium priority, got %q", f.Priority)
	}
}

func TestCompleteSetsCompletedAt(t *testing.T) {
	svc, store, _ := newFollowUpFixture()

	f, _ := svc.Create(context.Background(), 1, CreateFollowUpInput{
		Subject: "ping Dana",
		DueAt:   t0.Add(time.Hour),
	})

	done, err := svc.Complete(context.Background(), 1, f.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != models.FollowUpStatusCompleted {
		t.Errorf("expected completed status, got %q", done.Status)
	}
	if done.CompletedAt == nil || !done.CompletedAt.Equal(t0) {
		t.Errorf("expected CompletedAt %v, got %v", t0, done.CompletedAt)
	}

	// Invariant: status == completed iff CompletedAt is set.
	stored := store.followUp(f.ID)
	if (stored.Status == models.FollowUpStatusCompleted) != (stored.CompletedAt != nil) {
		t.Error("completedAt invariant violated")
	}
}

func TestCompleteTwiceIsNoOp(t *testing.T) {
	svc, store, clock := newFollowUpFixture()

	f, _ := svc.Create(context.Background(), 1, CreateFollowUpInput{
		Subject: "ping Dana",
		DueAt:   t0.Add(time.Hour),
	})
	if _, err := svc.Complete(context.Background(), 1, f.ID); err != nil {
		t.Fatalf("first complete failed: %v", err)
	}

	clock.Set(t0.Add(30 * time.Minute))
	again, err := svc.Complete(context.Background(), 1, f.ID)
	if err != nil {
		t.Fatalf("second complete should succeed, got %v", err)
	}
	if !again.CompletedAt.Equal(t0) {
		t.Errorf("second complete must not move CompletedAt: got %v", again.CompletedAt)
	}
	if got := store.followUp(f.ID); !got.CompletedAt.Equal(t0) {
		t.Errorf("stored CompletedAt changed to %v", got.CompletedAt)
	}
}

func TestCompleteSnoozedFollowUp(t *testing.T) {
	svc, _, _ := newFollowUpFixture()

	f, _ := svc.Create(context.Background(), 1, CreateFollowUpInput{
		Subject: "ping Dana",
		DueAt:   t0.Add(time.Hour),
	})
	if _, err := svc.Snooze(context.Background(), 1, f.ID, t0.Add(24*time.Hour)); err != nil {
		t.Fatalf("snooze failed: %v", err)
	}
	if _, err := svc.Complete(context.Background(), 1, f.ID); err != nil {
		t.Fatalf("completing a snoozed follow-up should work: %v", err)
	}
}

func TestCompleteCancelledFollowUpFails(t *testing.T) {
	svc, _, _ := newFollowUpFixture()

	f, _ := svc.Create(context.Background(), 1, CreateFollowUpInput{
		Subject: "ping Dana",
		DueAt:   t0.Add(time.Hour),
	})
	if _, err := svc.Cancel(context.Background(), 1, f.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := svc.Complete(context.Background(), 1, f.ID); !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCompleteUnknownIDReturnsNotFound(t *testing.T) {
	svc, _, _ := newFollowUpFixture()

	if _, err := svc.Complete(context.Background(), 1, 999); !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestCompleteIsScopedToOwner(t *testing.T) {
	svc, _, _ := newFollowUpFixture()

	f, _ := svc.Create(context.Background(), 1, CreateFollowUpInput{
		Subject: "ping Dana",
		DueAt:   t0.Add(time.Hour),
	})
	if _, err := svc.Complete(context.Background(), 2, f.ID); !IsNotFound(err) {
		t.Fatalf("expected NotFoundError for foreign user, got %v", err)
	}
}

func TestSnoozeRewritesDueDateOnly(t *testing.T) {
	svc, store, _ := newFollowUpFixture()

	f, _ := svc.Create(context.Background(), 1, CreateFollowUpInput{
		Subject:  "ping Dana",
		DueAt:    t0.Add(-time.Hour),
		Priority: models.FollowUpPriorityUrgent,
		Notes:    "mentioned budget approval",
	})

	until := t0.Add(48 * time.Hour)
	snoozed, err := svc.Snooze(context.Background(), 1, f.ID, until)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snoozed.Status != models.FollowUpStatusSnoozed {
		t.Errorf("expected snoozed status, got %q", snoozed.Status)
	}
	if !snoozed.DueAt.Equal(until) {
		t.Errorf("expected DueAt %v, got %v", until, snoozed.DueAt)
	}

	stored := store.followUp(f.ID)
	if stored.Priority != models.FollowUpPriorityUrgent || stored.Notes != "mentioned budget approval" {
		t.Error("snooze must preserve priority and notes")
	}
}

func TestSnoozeRejectsPastTime(t *testing.T) {
	svc, _, _ := newFollowUpFixture()

	f, _ := svc.Create(context.Background(), 1, CreateFollowUpInput{
		Subject: "ping Dana",
		DueAt:   t0.Add(time.Hour),
	})
	if _, err := svc.Snooze(context.Background(), 1, f.ID, t0.Add(-time.Minute)); !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, err := svc.Snooze(context.Background(), 1, f.ID, t0); !IsValidation(err) {
		t.Fatalf("snooze to exactly now must fail, got %v", err)
	}
}

func TestSnoozedItemResurfacesThroughDueDate(t *testing.T) {
	svc, _, _ := newFollowUpFixture()

	f, _ := svc.Create(context.Background(), 1, CreateFollowUpInput{
		Subject: "ping Dana",
		DueAt:   t0.Add(-time.Hour),
	})
	until := t0.Add(24 * time.Hour)
	if _, err := svc.Snooze(context.Background(), 1, f.ID, until); err != nil {
		t.Fatalf("snooze failed: %v", err)
	}

	before, err := svc.ListOverdue(context.Background(), 1, until.Add(-time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, got := range before {
		if got.ID == f.ID {
			t.Fatal("snoozed follow-up must not be overdue before its new due date")
		}
	}

	after, err := svc.ListOverdue(context.Background(), 1, until.Add(time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, got := range after {
		if got.ID == f.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("snoozed follow-up must resurface once its due date passes")
	}
}

func TestCancelTransitions(t *testing.T) {
	svc, _, _ := newFollowUpFixture()

	f, _ := svc.Create(context.Background(), 1, CreateFollowUpInput{
		Subject: "ping Dana",
		DueAt:   t0.Add(time.Hour),
	})

	cancelled, err := svc.Cancel(context.Background(), 1, f.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != models.FollowUpStatusCancelled {
		t.Errorf("expected cancelled, got %q", cancelled.Status)
	}

	// Cancelling again is a no-op success.
	if _, err := svc.Cancel(context.Background(), 1, f.ID); err != nil {
		t.Fatalf("second cancel should succeed, got %v", err)
	}
}

func TestCancelCompletedFollowUpFails(t *testing.T) {
	svc, _, _ := newFollowUpFixture()

	f, _ := svc.Create(context.Background(), 1, CreateFollowUpInput{
		Subject: "ping Dana",
		DueAt:   t0.Add(time.Hour),
	})
	if _, err := svc.Complete(context.Background(), 1, f.ID); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), 1, f.ID); !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestListOverdueOrdersOldestFirst(t *testing.T) {
	svc, _, _ := newFollowUpFixture()
	ctx := context.Background()

	// Due at t-3d, t-1d, t+1d; only the first two are overdue at t0.
	a, _ := svc.Create(ctx, 1, CreateFollowUpInput{Subject: "three days ago", DueAt: t0.Add(-72 * time.Hour)})
	b, _ := svc.Create(ctx, 1, CreateFollowUpInput{Subject: "yesterday", DueAt: t0.Add(-24 * time.Hour)})
	svc.Create(ctx, 1, CreateFollowUpInput{Subject: "tomorrow", DueAt: t0.Add(24 * time.Hour)})

	overdue, err := svc.ListOverdue(ctx, 1, t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overdue) != 2 {
		t.Fatalf("expected 2 overdue follow-ups, got %d", len(overdue))
	}
	if overdue[0].ID != a.ID || overdue[1].ID != b.ID {
		t.Errorf("expected order [%d %d], got [%d %d]", a.ID, b.ID, overdue[0].ID, overdue[1].ID)
	}
}

func TestListOverdueExcludesTerminalStatuses(t *testing.T) {
	svc, _, _ := newFollowUpFixture()
	ctx := context.Background()

	done, _ := svc.Create(ctx, 1, CreateFollowUpInput{Subject: "done", DueAt: t0.Add(-time.Hour)})
	svc.Complete(ctx, 1, done.ID)
	gone, _ := svc.Create(ctx, 1, CreateFollowUpInput{Subject: "gone", DueAt: t0.Add(-time.Hour)})
	svc.Cancel(ctx, 1, gone.ID)

	overdue, err := svc.ListOverdue(ctx, 1, t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overdue) != 0 {
		t.Fatalf("completed/cancelled items must never be overdue, got %d", len(overdue))
	}
}

func TestStoreFailureSurfacesAsStoreError(t *testing.T) {
	svc, store, _ := newFollowUpFixture()
	store.errOn["CreateFollowUp"] = errBoom

	_, err := svc.Create(context.Background(), 1, CreateFollowUpInput{
		Subject: "ping Dana",
		DueAt:   t0.Add(time.Hour),
	})
	if !IsStoreUnavailable(err) {
		t.Fatalf("expected StoreError, got %v", err)
	}
}
