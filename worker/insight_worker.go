package worker

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mailpilot/engine"
	"mailpilot/models"
)

// InsightWorker periodically regenerates advisory insights for every active
// user. Rules are deduplicated inside the generator, so reruns are cheap.
type InsightWorker struct {
	db       *gorm.DB
	gen      *engine.InsightGenerator
	interval time.Duration
	logger   *logrus.Logger
}

func NewInsightWorker(db *gorm.DB, gen *engine.InsightGenerator, interval time.Duration, logger *logrus.Logger) *InsightWorker {
	return &InsightWorker{db: db, gen: gen, interval: interval, logger: logger}
}

func (w *InsightWorker) Start(ctx context.Context) {
	w.logger.WithField("interval", w.interval).Info("starting insight worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.generateAll(ctx)
		case <-ctx.Done():
			w.logger.Info("stopping insight worker")
			return
		}
	}
}

func (w *InsightWorker) generateAll(ctx context.Context) {
	var userIDs []uint
	if err := w.db.Model(&models.User{}).
		Where("is_active = ?", true).
		Pluck("id", &userIDs).Error; err != nil {
		sentry.CaptureException(err)
		w.logger.WithError(err).Error("failed to list users for insight generation")
		return
	}

	var created int
	for _, userID := range userIDs {
		insights, err := w.gen.Generate(ctx, userID)
		if err != nil {
			w.logger.WithError(err).WithField("user_id", userID).Warn("insight generation incomplete")
		}
		created += len(insights)
	}
	if created > 0 {
		w.logger.WithField("created", created).Info("insight pass finished")
	}
}
