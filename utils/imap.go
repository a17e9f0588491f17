package utils

import (
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"mailpilot/models"
)

// InboundMessage is a parsed message pulled from a connected mailbox.
type InboundMessage struct {
	MessageID  string
	InReplyTo  string
	From       string
	To         []string
	Subject    string
	BodyPlain  string
	ReceivedAt time.Time
}

// FetchUnseenMessages connects to the account's IMAP server and pulls unseen
// messages from INBOX. The messages are peeked, not marked read; the caller
// decides read state after matching them to threads.
func FetchUnseenMessages(account *models.EmailAccount) ([]InboundMessage, error) {
	imapAddr := fmt.Sprintf("%s:%d", account.IMAPHost, account.IMAPPort)

	imapClient, err := client.DialTLS(imapAddr, &tls.Config{
		ServerName: account.IMAPHost,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer imapClient.Logout()

	if err := imapClient.Login(account.IMAPUsername, account.IMAPPassword); err != nil {
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	if _, err := imapClient.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("failed to select mailbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{"\\Seen"}
	ids, err := imapClient.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{Peek: true}
	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- imapClient.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}, messages)
	}()

	var out []InboundMessage
	for msg := range messages {
		parsed, err := parseIMAPMessage(msg, section)
		if err != nil {
			continue // skip unparseable messages, keep the sync going
		}
		out = append(out, *parsed)
	}

	if err := <-done; err != nil {
		return out, fmt.Errorf("error during fetch: %w", err)
	}
	return out, nil
}

func parseIMAPMessage(msg *imap.Message, section *imap.BodySectionName) (*InboundMessage, error) {
	if msg.Envelope == nil {
		return nil, fmt.Errorf("message has no envelope")
	}

	// GetBody matches section names by value; the fetch response keys the
	// body map by its own pointers, so a map lookup would always miss.
	var bodyPlain string
	if literal := msg.GetBody(section); literal != nil {
		bodyPlain = extractPlainBody(literal)
	}

	return &InboundMessage{
		MessageID:  strings.Trim(msg.Envelope.MessageId, "<>"),
		InReplyTo:  strings.Trim(msg.Envelope.InReplyTo, "<>"),
		From:       formatAddresses(msg.Envelope.From),
		To:         addressList(msg.Envelope.To),
		Subject:    msg.Envelope.Subject,
		BodyPlain:  bodyPlain,
		ReceivedAt: msg.Envelope.Date,
	}, nil
}

func extractPlainBody(literal imap.Literal) string {
	mr, err := mail.CreateReader(literal)
	if err != nil {
		return ""
	}

	var plain, html string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			break
		}

		if h, ok := p.Header.(*mail.InlineHeader); ok {
			contentType, _, _ := h.ContentType()
			b, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			if strings.Contains(contentType, "text/plain") {
				plain = string(b)
			} else if strings.Contains(contentType, "text/html") {
				html = string(b)
			}
		}
	}

	if plain != "" {
		return plain
	}
	return html
}

func formatAddresses(addrs []*imap.Address) string {
	var parts []string
	for _, a := range addrs {
		parts = append(parts, fmt.Sprintf("%s@%s", a.MailboxName, a.HostName))
	}
	return strings.Join(parts, ", ")
}

func addressList(addrs []*imap.Address) []string {
	var out []string
	for _, a := range addrs {
		out = append(out, fmt.Sprintf("%s@%s", a.MailboxName, a.HostName))
	}
	return out
}
