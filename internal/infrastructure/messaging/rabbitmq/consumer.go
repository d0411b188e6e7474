package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/lmsworks/member-service/internal/application/member"
)

const (
	DefaultQueue = "member-service.mail"

	retryExchange = "lms.member.retry"
	dlxExchange   = "lms.member.dlx"

	headerAttempt = "x-attempt"

	defaultMaxAttempts = 5
	defaultRetryDelay  = 30 * time.Second

	// settleTimeout bounds one delivery's send and retry publish.
	settleTimeout = 60 * time.Second
)

type ConsumerConfig struct {
	URL         string
	Exchange    string
	Queue       string
	Prefetch    int
	Tag         string
	MaxAttempts int
	RetryDelay  time.Duration
}

// retryPublisher re-publishes a failed delivery into the delay queue.
type retryPublisher interface {
	PublishRetry(ctx context.Context, d amqp.Delivery, nextAttempt int) error
}

// Consumer is the mail worker loop: it reads member.mail.requested and hands
// each message to the sender. Temporary failures go through a TTL delay
// queue; permanent ones and exhausted retries are dead-lettered.
type Consumer struct {
	cfg    ConsumerConfig
	sender member.Mailer
	lg     zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}

	conn       *amqp.Connection
	ch         *amqp.Channel
	deliveries <-chan amqp.Delivery
	retry      retryPublisher
}

func NewConsumer(cfg ConsumerConfig, sender member.Mailer, lg zerolog.Logger) *Consumer {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &Consumer{
		cfg:    cfg,
		sender: sender,
		lg:     lg.With().Str("component", "rabbitmq_consumer").Logger(),
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	if c.sender == nil {
		return fmt.Errorf("nil sender")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.doneCh = make(chan struct{})
	c.running = true
	go c.run(runCtx)
	return nil
}

// Stop cancels the loop and waits for the delivery in hand to be settled
// before closing the connection; closing first would strand its Ack.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	doneCh, cancel := c.doneCh, c.cancel
	c.running = false
	c.mu.Unlock()

	cancel()
	defer c.closeConn()

	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) run(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		doneCh := c.doneCh
		c.doneCh = nil
		c.running = false
		c.mu.Unlock()

		if doneCh != nil {
			close(doneCh)
		}
	}()

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil || !c.isRunning() {
			c.lg.Info().Msg("consumer supervisor exiting")
			return
		}

		if err := c.connectAndDeclare(); err != nil {
			c.lg.Error().Err(err).Dur("backoff", backoff).Msg("connectAndDeclare failed; retrying")
			if !sleepOrDone(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = time.Second
		c.consumeLoop(ctx)

		if ctx.Err() != nil {
			return
		}
		c.lg.Warn().Dur("backoff", backoff).Msg("deliveries closed; reconnecting")
		c.closeConn()
		if !sleepOrDone(ctx, backoff) {
			return
		}
	}
}

func (c *Consumer) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Consumer) connectAndDeclare() error {
	c.closeConn()

	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("channel: %w", err)
	}
	fail := func(err error) error {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	for _, ex := range []string{c.cfg.Exchange, retryExchange, dlxExchange} {
		if err := ch.ExchangeDeclare(ex, "topic", true, false, false, false, nil); err != nil {
			return fail(fmt.Errorf("exchange declare (%s): %w", ex, err))
		}
	}

	mainArgs := amqp.Table{"x-dead-letter-exchange": dlxExchange}
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, mainArgs); err != nil {
		return fail(fmt.Errorf("queue declare: %w", err))
	}
	if err := ch.QueueBind(c.cfg.Queue, RoutingKeyMailRequested, c.cfg.Exchange, false, nil); err != nil {
		return fail(fmt.Errorf("queue bind: %w", err))
	}

	// delay queue: messages expire back into the main exchange
	retryArgs := amqp.Table{
		"x-message-ttl":          int64(c.cfg.RetryDelay / time.Millisecond),
		"x-dead-letter-exchange": c.cfg.Exchange,
	}
	if _, err := ch.QueueDeclare(c.cfg.Queue+".retry", true, false, false, false, retryArgs); err != nil {
		return fail(fmt.Errorf("retry queue declare: %w", err))
	}
	if err := ch.QueueBind(c.cfg.Queue+".retry", "#", retryExchange, false, nil); err != nil {
		return fail(fmt.Errorf("retry queue bind: %w", err))
	}

	if _, err := ch.QueueDeclare(c.cfg.Queue+".dlq", true, false, false, false, nil); err != nil {
		return fail(fmt.Errorf("dlq declare: %w", err))
	}
	if err := ch.QueueBind(c.cfg.Queue+".dlq", "#", dlxExchange, false, nil); err != nil {
		return fail(fmt.Errorf("dlq bind: %w", err))
	}

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fail(fmt.Errorf("qos: %w", err))
	}

	dlv, err := ch.Consume(c.cfg.Queue, c.cfg.Tag, false, false, false, false, nil)
	if err != nil {
		return fail(fmt.Errorf("consume: %w", err))
	}

	c.mu.Lock()
	c.conn = conn
	c.ch = ch
	c.deliveries = dlv
	c.retry = channelRetryPublisher{ch: ch}
	c.mu.Unlock()

	c.lg.Info().
		Str("exchange", c.cfg.Exchange).
		Str("queue", c.cfg.Queue).
		Int("prefetch", c.cfg.Prefetch).
		Msg("rabbitmq consumer ready")
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-c.deliveries:
			if !ok {
				return
			}
			c.handle(ctx, d)
		}
	}
}

// handle settles exactly one delivery: Ack on success or after a retry was
// scheduled, Nack without requeue to dead-letter.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	start := time.Now()

	evt, err := decodeMailRequested(d.Body)
	if err != nil {
		c.lg.Error().Err(err).Str("routing_key", d.RoutingKey).Msg("undecodable message; dead-lettering")
		_ = d.Nack(false, false)
		return
	}

	lg := c.lg.With().Str("message_id", evt.ID).Logger()

	// shutdown must not abort a send in progress
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	sendErr := c.sender.Send(ctx, evt.Mail())
	if sendErr == nil {
		_ = d.Ack(false)
		lg.Info().Dur("took", time.Since(start)).Msg("mail delivered")
		return
	}

	attempt := getAttempt(d.Headers)
	if isNonRetriable(sendErr) || attempt+1 >= c.cfg.MaxAttempts {
		lg.Error().Err(sendErr).Int("attempt", attempt).Msg("mail failed permanently; dead-lettering")
		_ = d.Nack(false, false)
		return
	}

	if err := c.retry.PublishRetry(ctx, d, attempt+1); err != nil {
		// could not schedule a retry: put it back on the queue
		lg.Warn().Err(err).Msg("retry publish failed; requeueing")
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
	lg.Warn().Err(sendErr).Int("attempt", attempt+1).Msg("mail failed; retry scheduled")
}

func (c *Consumer) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch != nil {
		_ = c.ch.Close()
		c.ch = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

type channelRetryPublisher struct {
	ch *amqp.Channel
}

func (p channelRetryPublisher) PublishRetry(ctx context.Context, d amqp.Delivery, nextAttempt int) error {
	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[headerAttempt] = int32(nextAttempt)

	return p.ch.PublishWithContext(ctx, retryExchange, d.RoutingKey, false, false, amqp.Publishing{
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers:      headers,
		Body:         d.Body,
	})
}

func getAttempt(h amqp.Table) int {
	v, ok := h[headerAttempt]
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}

func isNonRetriable(err error) bool {
	var per interface{ Permanent() bool }
	if errors.As(err, &per) && per.Permanent() {
		return true
	}
	return errors.Is(err, context.Canceled)
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
