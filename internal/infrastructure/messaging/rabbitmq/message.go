package rabbitmq

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lmsworks/member-service/internal/application/member"
)

const (
	DefaultExchange = "lms.member"

	// RoutingKeyMailRequested carries one rendered transactional mail.
	RoutingKeyMailRequested = "member.mail.requested"
)

// MailRequested is the wire payload of RoutingKeyMailRequested.
type MailRequested struct {
	ID          string    `json:"id"`
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	HTMLBody    string    `json:"html_body,omitempty"`
	TextBody    string    `json:"text_body,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

func newMailRequested(m member.Mail, now time.Time) MailRequested {
	return MailRequested{
		ID:          uuid.NewString(),
		To:          m.To,
		Subject:     m.Subject,
		HTMLBody:    m.HTMLBody,
		TextBody:    m.TextBody,
		RequestedAt: now.UTC(),
	}
}

func (e MailRequested) Mail() member.Mail {
	return member.Mail{To: e.To, Subject: e.Subject, HTMLBody: e.HTMLBody, TextBody: e.TextBody}
}

func decodeMailRequested(body []byte) (MailRequested, error) {
	var evt MailRequested
	if err := json.Unmarshal(body, &evt); err != nil {
		return MailRequested{}, fmt.Errorf("bad json: %w", err)
	}
	if strings.TrimSpace(evt.To) == "" {
		return MailRequested{}, fmt.Errorf("missing recipient")
	}
	return evt, nil
}
