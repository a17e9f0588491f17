package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mailpilot/models"
)

func TestGenerateOverdueFollowUpInsight(t *testing.T) {
	store := newMemStore()
	clock := newFakeClock(t0)
	gen := NewInsightGenerator(store, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		store.CreateFollowUp(ctx, &models.FollowUp{
			UserID:  1,
			Subject: fmt.Sprintf("ping %d", i),
			Status:  models.FollowUpStatusPending,
			DueAt:   t0.Add(-time.Duration(i+1) * 24 * time.Hour),
		})
	}

	created, err := gen.Generate(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 insight, got %d", len(created))
	}
	in := created[0]
	if in.Type != models.InsightTypeFollowUpNeeded {
		t.Errorf("expected type %q, got %q", models.InsightTypeFollowUpNeeded, in.Type)
	}
	if in.Title != "You have 3 overdue follow-ups" {
		t.Errorf("unexpected title %q", in.Title)
	}
	if in.Priority != overdueInsightPriority {
		t.Errorf("expected priority %d, got %d", overdueInsightPriority, in.Priority)
	}
	if !in.Actionable {
		t.Error("overdue insight should be actionable")
	}
}

func TestGenerateColdContactInsight(t *testing.T) {
	store := newMemStore()
	gen := NewInsightGenerator(store, newFakeClock(t0))
	ctx := context.Background()

	store.addContact(models.Contact{UserID: 1, Email: "a@example.com", RelationshipScore: 10})
	store.addContact(models.Contact{UserID: 1, Email: "b@example.com", RelationshipScore: 25})
	store.addContact(models.Contact{UserID: 1, Email: "c@example.com", RelationshipScore: 80})
	// Another user's cold contact must not count.
	store.addContact(models.Contact{UserID: 2, Email: "d@example.com", RelationshipScore: 5})

	created, err := gen.Generate(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 insight, got %d", len(created))
	}
	in := created[0]
	if in.Type != models.InsightTypeRelationshipHealth {
		t.Errorf("expected type %q, got %q", models.InsightTypeRelationshipHealth, in.Type)
	}
	if in.Title != "2 relationships need attention" {
		t.Errorf("unexpected title %q", in.Title)
	}
	if in.Priority != coldContactsPriority {
		t.Errorf("expected priority %d, got %d", coldContactsPriority, in.Priority)
	}
}

func TestGenerateNothingWhenStateIsHealthy(t *testing.T) {
	store := newMemStore()
	gen := NewInsightGenerator(store, newFakeClock(t0))
	ctx := context.Background()

	store.addContact(models.Contact{UserID: 1, Email: "a@example.com", RelationshipScore: 90})
	store.CreateFollowUp(ctx, &models.FollowUp{
		UserID:  1,
		Subject: "not due yet",
		Status:  models.FollowUpStatusPending,
		DueAt:   t0.Add(24 * time.Hour),
	})

	created, err := gen.Generate(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("expected no insights, got %d", len(created))
	}
}

func TestGenerateSkipsDuplicateOpenInsight(t *testing.T) {
	store := newMemStore()
	gen := NewInsightGenerator(store, newFakeClock(t0))
	ctx := context.Background()

	store.CreateFollowUp(ctx, &models.FollowUp{
		UserID:  1,
		Subject: "ping",
		Status:  models.FollowUpStatusPending,
		DueAt:   t0.Add(-24 * time.Hour),
	})

	if _, err := gen.Generate(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	created, err := gen.Generate(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("second pass must not duplicate the open insight, got %d", len(created))
	}
	if len(store.insights) != 1 {
		t.Fatalf("expected 1 stored insight, got %d", len(store.insights))
	}
}

func TestGenerateRegeneratesAfterDismissal(t *testing.T) {
	store := newMemStore()
	gen := NewInsightGenerator(store, newFakeClock(t0))
	ctx := context.Background()

	store.CreateFollowUp(ctx, &models.FollowUp{
		UserID:  1,
		Subject: "ping",
		Status:  models.FollowUpStatusPending,
		DueAt:   t0.Add(-24 * time.Hour),
	})

	if _, err := gen.Generate(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.insights[0].IsDismissed = true

	created, err := gen.Generate(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("dismissed insight must not block regeneration, got %d", len(created))
	}
}

func TestGenerateRulesAreIndependent(t *testing.T) {
	store := newMemStore()
	gen := NewInsightGenerator(store, newFakeClock(t0))
	ctx := context.Background()

	store.CreateFollowUp(ctx, &models.FollowUp{
		UserID:  1,
		Subject: "ping",
		Status:  models.FollowUpStatusPending,
		DueAt:   t0.Add(-24 * time.Hour),
	})
	store.addContact(models.Contact{UserID: 1, Email: "a@example.com", RelationshipScore: 10})

	// Break only the cold-contact rule; the overdue rule must still run.
	store.errOn["CountColdContacts"] = errBoom

	created, err := gen.Generate(ctx, 1)
	if err == nil {
		t.Fatal("expected an aggregated error from the failed rule")
	}
	if !IsStoreUnavailable(err) {
		t.Errorf("expected store error, got %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("healthy rule should still emit its insight, got %d", len(created))
	}
	if created[0].Type != models.InsightTypeFollowUpNeeded {
		t.Errorf("unexpected insight type %q", created[0].Type)
	}
}
