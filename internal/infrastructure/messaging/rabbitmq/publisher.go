package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/lmsworks/member-service/internal/application/member"
	"github.com/lmsworks/member-service/internal/domain"
)

const confirmWait = 2 * time.Second

var (
	errUnroutable    = errors.New("rabbitmq: message unroutable")
	errConfirmClosed = errors.New("rabbitmq: confirm channel closed")
)

// Publisher implements member.Mailer by publishing member.mail.requested in
// confirm mode. Delivery is the mail worker's job; Send only guarantees the
// broker accepted and routed the message.
type Publisher struct {
	url      string
	exchange string
	lg       zerolog.Logger

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	confirms <-chan amqp.Confirmation
	returns  <-chan amqp.Return
}

// NewPublisher dials eagerly so a bad RABBIT_URL fails at boot.
func NewPublisher(url, exchange string, lg zerolog.Logger) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{
		url:      url,
		exchange: exchange,
		lg:       lg.With().Str("component", "rabbitmq_publisher").Logger(),
	}
	if err := p.dial(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) Send(ctx context.Context, m member.Mail) error {
	evt := newMailRequested(m, time.Now())
	body, err := json.Marshal(evt)
	if err != nil {
		return domain.ErrInternal(err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, confirmWait)
		defer cancel()
	}

	if err := p.publish(ctx, evt.ID, body); err != nil {
		p.lg.Warn().Err(err).Str("message_id", evt.ID).Msg("mail publish failed")
		return domain.ErrRabbitUnavailable(err)
	}
	p.lg.Debug().Str("message_id", evt.ID).Msg("mail publish confirmed")
	return nil
}

// Ping reconnects if needed; /readyz uses it.
func (p *Publisher) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.usable() {
		return nil
	}
	if err := p.dialLocked(); err != nil {
		return domain.ErrRabbitUnavailable(err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Publisher) publish(ctx context.Context, id string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.usable() {
		if err := p.dialLocked(); err != nil {
			return err
		}
	}
	p.drainLocked()

	msg := amqp.Publishing{
		MessageId:    id,
		Type:         RoutingKeyMailRequested,
		AppId:        "member-service",
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	tag := p.ch.GetNextPublishSeqNo()
	if err := p.ch.PublishWithContext(ctx, p.exchange, RoutingKeyMailRequested, true, false, msg); err != nil {
		p.closeLocked()
		return fmt.Errorf("publish: %w", err)
	}
	err := awaitConfirm(ctx, p.confirms, p.returns, tag, id)
	if errors.Is(err, errConfirmClosed) {
		p.closeLocked()
	}
	return err
}

// awaitConfirm waits for the broker ack carrying tag. Confirms with a lower
// tag belong to earlier publishes that gave up waiting and are skipped, as
// are returns for other message ids. With mandatory publishing an unroutable
// message produces a Return before its Ack.
func awaitConfirm(ctx context.Context, confirms <-chan amqp.Confirmation, returns <-chan amqp.Return, tag uint64, id string) error {
	for {
		select {
		case ret := <-returns:
			if ret.MessageId == id {
				return fmt.Errorf("%w: %d %s", errUnroutable, ret.ReplyCode, ret.ReplyText)
			}
		case conf, ok := <-confirms:
			if !ok {
				return errConfirmClosed
			}
			if conf.DeliveryTag < tag {
				continue
			}
			select {
			case ret := <-returns:
				if ret.MessageId == id {
					return fmt.Errorf("%w: %d %s", errUnroutable, ret.ReplyCode, ret.ReplyText)
				}
			default:
			}
			if !conf.Ack {
				return fmt.Errorf("rabbitmq: broker nacked delivery %d", conf.DeliveryTag)
			}
			return nil
		case <-ctx.Done():
			return fmt.Errorf("rabbitmq: confirm wait: %w", ctx.Err())
		}
	}
}

func (p *Publisher) dial() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dialLocked()
}

func (p *Publisher) dialLocked() error {
	p.closeLocked()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("exchange declare (%s): %w", p.exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return fmt.Errorf("confirm mode: %w", err)
	}

	p.conn = conn
	p.ch = ch
	p.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returns = ch.NotifyReturn(make(chan amqp.Return, 1))
	p.lg.Info().Str("exchange", p.exchange).Msg("rabbitmq publisher connected")
	return nil
}

func (p *Publisher) usable() bool {
	return p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed()
}

// drainLocked discards confirms and returns left over from a timed-out publish.
func (p *Publisher) drainLocked() {
	for {
		select {
		case <-p.confirms:
		case <-p.returns:
		default:
			return
		}
	}
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
