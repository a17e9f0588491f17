package utils

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"mailpilot/config"
)

// Mailer sends outbound mail over SMTP. It implements engine.Sender, tagging
// every message with a generated Message-Id so opens and clicks can be tied
// back to the analytics row.
type Mailer struct {
	dialer     *gomail.Dialer
	fromName   string
	fromEmail  string
	baseURL    string
	trackOpens bool
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		dialer:     gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		fromName:   cfg.FromName,
		fromEmail:  cfg.FromEmail,
		baseURL:    cfg.AppURL,
		trackOpens: true,
	}
}

// Send delivers one message and returns its Message-Id.
func (m *Mailer) Send(_ context.Context, to, subject, body string) (string, error) {
	messageID := m.newMessageID()

	html := looksLikeHTML(body)
	if html && m.trackOpens {
		body = InjectTracking(body, m.baseURL, messageID)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail))
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetHeader("Message-Id", fmt.Sprintf("<%s>", messageID))
	if html {
		msg.SetBody("text/html", body)
	} else {
		msg.SetBody("text/plain", body)
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return "", fmt.Errorf("smtp send failed: %w", err)
	}
	return messageID, nil
}

func (m *Mailer) newMessageID() string {
	domain := "mailpilot.local"
	if at := strings.LastIndex(m.fromEmail, "@"); at != -1 {
		domain = m.fromEmail[at+1:]
	}
	return fmt.Sprintf("%s@%s", uuid.New().String(), domain)
}

func looksLikeHTML(body string) bool {
	trimmed := strings.TrimSpace(body)
	return strings.HasPrefix(trimmed, "<") || strings.Contains(trimmed, "</")
}
