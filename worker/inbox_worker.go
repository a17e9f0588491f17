package worker

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mailpilot/models"
	"mailpilot/utils"
)

// InboxWorker pulls unseen mail from connected accounts, threads it, and
// marks replies on the analytics rows so reply rates stay current.
type InboxWorker struct {
	db       *gorm.DB
	interval time.Duration
	logger   *logrus.Logger
}

func NewInboxWorker(db *gorm.DB, interval time.Duration, logger *logrus.Logger) *InboxWorker {
	return &InboxWorker{db: db, interval: interval, logger: logger}
}

func (w *InboxWorker) Start(ctx context.Context) {
	w.logger.WithField("interval", w.interval).Info("starting inbox sync worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.syncAll()
		case <-ctx.Done():
			w.logger.Info("stopping inbox sync worker")
			return
		}
	}
}

func (w *InboxWorker) syncAll() {
	var accounts []models.EmailAccount
	if err := w.db.Where("is_active = ? AND imap_host <> ''", true).Find(&accounts).Error; err != nil {
		sentry.CaptureException(err)
		w.logger.WithError(err).Error("failed to list email accounts")
		return
	}

	for i := range accounts {
		account := &accounts[i]
		if err := w.syncAccount(account); err != nil {
			sentry.CaptureException(err)
			w.logger.WithError(err).WithField("account_id", account.ID).Warn("inbox sync failed")
			w.db.Model(account).Update("last_error", err.Error())
			continue
		}
		now := time.Now().UTC()
		w.db.Model(account).Updates(map[string]interface{}{
			"last_synced_at": now,
			"last_error":     "",
		})
	}
}

func (w *InboxWorker) syncAccount(account *models.EmailAccount) error {
	messages, err := utils.FetchUnseenMessages(account)
	if err != nil {
		return err
	}

	for i := range messages {
		if err := w.storeMessage(account, &messages[i]); err != nil {
			w.logger.WithError(err).WithField("message_id", messages[i].MessageID).Warn("failed to store message")
		}
	}
	return nil
}

func (w *InboxWorker) storeMessage(account *models.EmailAccount, msg *utils.InboundMessage) error {
	// Skip messages we already have
	var existing models.EmailMessage
	if err := w.db.Where("message_id = ?", msg.MessageID).First(&existing).Error; err == nil {
		return nil
	}

	thread, err := w.findOrCreateThread(account, msg)
	if err != nil {
		return err
	}

	received := msg.ReceivedAt
	record := models.EmailMessage{
		ThreadID:   thread.ID,
		MessageID:  msg.MessageID,
		From:       msg.From,
		To:         msg.To,
		Subject:    msg.Subject,
		Snippet:    utils.Snippet(msg.BodyPlain, 160),
		BodyPlain:  msg.BodyPlain,
		InReplyTo:  msg.InReplyTo,
		ReceivedAt: &received,
	}
	if err := w.db.Create(&record).Error; err != nil {
		return err
	}

	w.db.Model(thread).Updates(map[string]interface{}{
		"last_message_at": received,
		"message_count":   thread.MessageCount + 1,
		"is_read":         false,
	})

	w.recordEngagement(account.UserID, msg, received)
	return nil
}

func (w *InboxWorker) findOrCreateThread(account *models.EmailAccount, msg *utils.InboundMessage) (*models.EmailThread, error) {
	// Thread by In-Reply-To when the parent is known
	if msg.InReplyTo != "" {
		var parent models.EmailMessage
		if err := w.db.Where("message_id = ?", msg.InReplyTo).First(&parent).Error; err == nil {
			var thread models.EmailThread
			if err := w.db.First(&thread, parent.ThreadID).Error; err == nil {
				return &thread, nil
			}
		}
	}

	thread := models.EmailThread{
		UserID:       account.UserID,
		AccountID:    account.ID,
		Subject:      msg.Subject,
		Participants: append([]string{msg.From}, msg.To...),
	}
	if err := w.db.Create(&thread).Error; err != nil {
		return nil, err
	}
	return &thread, nil
}

// recordEngagement marks replies on sent-mail analytics and bumps the
// sender's contact counters.
func (w *InboxWorker) recordEngagement(userID uint, msg *utils.InboundMessage, received time.Time) {
	if msg.InReplyTo != "" {
		w.db.Model(&models.EmailAnalytic{}).
			Where("user_id = ? AND message_id = ? AND replied_at IS NULL", userID, msg.InReplyTo).
			Update("replied_at", received)
	}

	w.db.Model(&models.Contact{}).
		Where("user_id = ? AND email = ?", userID, msg.From).
		Update("total_emails_received", gorm.Expr("total_emails_received + 1"))
}
