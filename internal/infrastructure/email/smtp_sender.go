package email

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/lmsworks/member-service/internal/application/member"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
	// Insecure downgrades STARTTLS to opportunistic, for Mailpit and friends.
	Insecure bool
}

// SMTPSender implements member.Mailer on top of go-mail. The mail worker
// uses it as its delivery handler; the API can also use it inline.
type SMTPSender struct {
	cfg  SMTPConfig
	opts []mail.Option
	lg   zerolog.Logger
}

func NewSMTPSender(cfg SMTPConfig, lg zerolog.Logger) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{
		cfg:  cfg,
		opts: clientOptions(cfg),
		lg:   lg.With().Str("component", "smtp_sender").Str("smtp_host", cfg.Host).Logger(),
	}
}

func clientOptions(cfg SMTPConfig) []mail.Option {
	policy := mail.TLSMandatory
	if cfg.Insecure {
		policy = mail.TLSOpportunistic
	}
	opts := []mail.Option{mail.WithPort(cfg.Port), mail.WithTLSPolicy(policy)}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	return opts
}

func (s *SMTPSender) Send(ctx context.Context, m member.Mail) error {
	msg, err := s.compose(m)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.opts...)
	if err != nil {
		return permanent("client", err)
	}

	started := time.Now()
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		derr := classify(err)
		s.lg.Warn().Err(err).Bool("permanent", derr.Perm).Str("subject", m.Subject).Msg("smtp delivery failed")
		return derr
	}
	s.lg.Debug().Str("subject", m.Subject).Dur("took", time.Since(started)).Msg("smtp delivered")
	return nil
}

// compose renders m as a multipart message: plain text first, HTML as the
// preferred alternative.
func (s *SMTPSender) compose(m member.Mail) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, permanent("from", err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, permanent("to", err)
	}
	msg.Subject(m.Subject)
	msg.SetMessageID()
	msg.SetDate()

	text := m.TextBody
	if text == "" {
		text = m.Subject
	}
	msg.SetBodyString(mail.TypeTextPlain, text)
	if m.HTMLBody != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTMLBody)
	}
	return msg, nil
}

// permanentReplies are SMTP reply fragments that retrying will not fix.
var permanentReplies = []string{"535", "5.7.8", "550", "551", "553", "5.1.1", "authentication failed"}

func classify(err error) *DeliveryError {
	var se *mail.SendError
	if errors.As(err, &se) && se.IsTemp() {
		return transient("send", err)
	}
	lower := strings.ToLower(err.Error())
	for _, frag := range permanentReplies {
		if strings.Contains(lower, frag) {
			return permanent("send", err)
		}
	}
	return transient("send", err)
}
