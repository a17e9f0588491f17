package worker

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"mailpilot/engine"
)

// SequenceWorker drives the sequence engine on a fixed cadence. The engine's
// conditional claim makes overlapping runs safe, so the worker needs no
// coordination of its own.
type SequenceWorker struct {
	engine   *engine.SequenceEngine
	interval time.Duration
	logger   *logrus.Logger
}

func NewSequenceWorker(eng *engine.SequenceEngine, interval time.Duration, logger *logrus.Logger) *SequenceWorker {
	return &SequenceWorker{engine: eng, interval: interval, logger: logger}
}

func (w *SequenceWorker) Start(ctx context.Context) {
	w.logger.WithField("interval", w.interval).Info("starting sequence worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runTick(ctx)
		case <-ctx.Done():
			w.logger.Info("stopping sequence worker")
			return
		}
	}
}

func (w *SequenceWorker) runTick(ctx context.Context) {
	res, err := w.engine.Tick(ctx)
	if err != nil {
		sentry.CaptureException(err)
		w.logger.WithError(err).Error("sequence tick failed")
		return
	}
	if res.Due == 0 {
		return
	}
	w.logger.WithFields(logrus.Fields{
		"due":       res.Due,
		"claimed":   res.Claimed,
		"sent":      res.Sent,
		"completed": res.Completed,
		"paused":    res.Paused,
		"failed":    res.Failed,
	}).Info("sequence tick finished")
}
