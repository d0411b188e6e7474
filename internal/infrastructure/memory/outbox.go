package memory

import (
	"context"
	"sync"

	"github.com/lmsworks/member-service/internal/application/member"
	"github.com/lmsworks/member-service/internal/logger"
)

// Outbox is the "log" mail transport: it keeps every message in memory and
// logs recipient and subject. Useful in dev, where the activation link can be
// read from the log, and in tests.
type Outbox struct {
	mu   sync.Mutex
	sent []member.Mail

	// LogBodies also logs the text body (links included). Dev only.
	LogBodies bool
}

func NewOutbox() *Outbox { return &Outbox{} }

func (o *Outbox) Send(ctx context.Context, m member.Mail) error {
	o.mu.Lock()
	o.sent = append(o.sent, m)
	o.mu.Unlock()

	ev := logger.WithCtx(ctx).Info().
		Str("to", m.To).
		Str("subject", m.Subject)
	if o.LogBodies {
		ev = ev.Str("body", m.TextBody)
	}
	ev.Msg("mail queued (log transport)")
	return nil
}

// Sent returns a copy of every message so far.
func (o *Outbox) Sent() []member.Mail {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]member.Mail, len(o.sent))
	copy(out, o.sent)
	return out
}

// Last returns the most recent message to addr.
func (o *Outbox) Last(addr string) (member.Mail, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.sent) - 1; i >= 0; i-- {
		if o.sent[i].To == addr {
			return o.sent[i], true
		}
	}
	return member.Mail{}, false
}
