package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lmsworks/member-service/internal/application/member"
	"github.com/lmsworks/member-service/internal/config"
	"github.com/lmsworks/member-service/internal/infrastructure/email"
	"github.com/lmsworks/member-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/lmsworks/member-service/internal/logger"
)

// Worker is the mail worker lifecycle.
type Worker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type WorkerDeps struct {
	LoadConfig  func() (*config.Config, error)
	NewSender   func(cfg *config.Config, lg zerolog.Logger) member.Mailer
	NewConsumer func(cfg rabbitmq.ConsumerConfig, sender member.Mailer, lg zerolog.Logger) Worker
}

func NewMailWorker() (Worker, func(), error) {
	return NewMailWorkerWithDeps(defaultWorkerDeps())
}

func NewMailWorkerWithDeps(deps WorkerDeps) (Worker, func(), error) {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.RabbitURL == "" {
		return nil, nil, fmt.Errorf("mail worker: RABBIT_URL is required")
	}
	if cfg.SMTPHost == "" {
		return nil, nil, fmt.Errorf("mail worker: SMTP_HOST is required")
	}

	lg := logger.Component("mail_worker")
	sender := deps.NewSender(cfg, lg)

	w := deps.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitURL,
		Exchange:    cfg.RabbitExchange,
		Queue:       cfg.RabbitQueue,
		Prefetch:    cfg.WorkerPrefetch,
		Tag:         "mail-worker",
		MaxAttempts: cfg.MailMaxAttempts,
		RetryDelay:  cfg.MailRetryDelay,
	}, sender, lg)

	lg.Info().
		Str("queue", cfg.RabbitQueue).
		Str("smtp_host", cfg.SMTPHost).
		Int("max_attempts", cfg.MailMaxAttempts).
		Msg("mail worker wired")

	return w, func() {}, nil
}

func defaultWorkerDeps() WorkerDeps {
	return WorkerDeps{
		LoadConfig: config.Load,
		NewSender: func(cfg *config.Config, lg zerolog.Logger) member.Mailer {
			return email.NewSMTPSender(SMTPConfig(cfg), lg)
		},
		NewConsumer: func(cfg rabbitmq.ConsumerConfig, sender member.Mailer, lg zerolog.Logger) Worker {
			return rabbitmq.NewConsumer(cfg, sender, lg)
		},
	}
}
