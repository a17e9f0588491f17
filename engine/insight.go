package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mailpilot/models"
)

// Thresholds and priorities for the insight rules.
const (
	coldScoreThreshold     = 30
	overdueInsightPriority = 90
	coldContactsPriority   = 70
)

// InsightGenerator derives advisory records from current state. Rules are
// independent: one rule failing does not stop the others. Generation skips a
// rule when a non-dismissed, unexpired insight of the same type already
// exists for the user, so repeated invocations do not pile up duplicates.
type InsightGenerator struct {
	store Store
	clock Clock
}

func NewInsightGenerator(store Store, clock Clock) *InsightGenerator {
	return &InsightGenerator{store: store, clock: clock}
}

// Generate runs every rule for one user and returns the insights created in
// this pass.
func (g *InsightGenerator) Generate(ctx context.Context, userID uint) ([]models.Insight, error) {
	now := g.clock.Now()
	var created []models.Insight
	var errs []error

	if in, err := g.overdueFollowUps(ctx, userID, now); err != nil {
		errs = append(errs, err)
	} else if in != nil {
		created = append(created, *in)
	}

	if in, err := g.coldContacts(ctx, userID, now); err != nil {
		errs = append(errs, err)
	} else if in != nil {
		created = append(created, *in)
	}

	return created, errors.Join(errs...)
}

// overdueFollowUps emits one aggregate follow_up_needed insight when the
// user has overdue follow-ups.
func (g *InsightGenerator) overdueFollowUps(ctx context.Context, userID uint, now time.Time) (*models.Insight, error) {
	overdue, err := g.store.ListOverdueFollowUps(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if len(overdue) == 0 {
		return nil, nil
	}

	exists, err := g.store.HasOpenInsight(ctx, userID, models.InsightTypeFollowUpNeeded, now)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	in := &models.Insight{
		UserID:      userID,
		Type:        models.InsightTypeFollowUpNeeded,
		Title:       fmt.Sprintf("You have %d overdue follow-ups", len(overdue)),
		Description: "These contacts are waiting for your response",
		Priority:    overdueInsightPriority,
		Actionable:  true,
	}
	if err := g.store.CreateInsight(ctx, in); err != nil {
		return nil, err
	}
	return in, nil
}

// coldContacts emits one aggregate relationship_health insight counting
// contacts whose relationship score has gone cold.
func (g *InsightGenerator) coldContacts(ctx context.Context, userID uint, now time.Time) (*models.Insight, error) {
	count, err := g.store.CountColdContacts(ctx, userID, coldScoreThreshold)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	exists, err := g.store.HasOpenInsight(ctx, userID, models.InsightTypeRelationshipHealth, now)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	in := &models.Insight{
		UserID:      userID,
		Type:        models.InsightTypeRelationshipHealth,
		Title:       fmt.Sprintf("%d relationships need attention", count),
		Description: "These contacts haven't heard from you in a while",
		Priority:    coldContactsPriority,
		Actionable:  true,
	}
	if err := g.store.CreateInsight(ctx, in); err != nil {
		return nil, err
	}
	return in, nil
}
