package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/iliyamo/property-reservation/internal/model"
)

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a channel and returns a closer for the underlying
// connection.
type dialFunc func(url string) (channel, func() error, error)

func dialAMQP(url string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, conn.Close, nil
}

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	URL         string
	Queue       string
	MaxFailures uint32        // consecutive failures before the breaker opens
	OpenFor     time.Duration // how long the breaker stays open
}

// Publisher sends reservation events to a durable queue.  The broker
// connection is opened lazily and reused; a failed publish drops it so
// the next call reconnects.  A circuit breaker stops dialing a broker that
// keeps failing, so request handlers do not pay a dial timeout per call.
type Publisher struct {
	cfg    PublisherConfig
	dial   dialFunc
	cb     *gobreaker.CircuitBreaker
	logger *logrus.Logger

	mu        sync.Mutex
	ch        channel
	closeConn func() error
}

func NewPublisher(cfg PublisherConfig, logger *logrus.Logger) *Publisher {
	return newPublisher(cfg, logger, dialAMQP)
}

func newPublisher(cfg PublisherConfig, logger *logrus.Logger, dial dialFunc) *Publisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	p := &Publisher{cfg: cfg, dial: dial, logger: logger}
	p.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rabbitmq-publisher",
		MaxRequests: 1,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("circuit breaker state changed")
		},
	})
	return p
}

// Publish sends ev as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, ev model.ReservationEvent) error {
	msg := NewMessage(ev)
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.send(ctx, msg.ID, body)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *Publisher) send(ctx context.Context, id string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		ch, closeConn, err := p.dial(p.cfg.URL)
		if err != nil {
			return err
		}
		if _, err := ch.QueueDeclare(p.cfg.Queue, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = closeConn()
			return fmt.Errorf("declare queue %s: %w", p.cfg.Queue, err)
		}
		p.ch, p.closeConn = ch, closeConn
	}

	err := p.ch.PublishWithContext(ctx, "", p.cfg.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return err
	}
	return nil
}

// reset drops the cached channel and connection.  Callers hold p.mu.
func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.closeConn != nil {
		_ = p.closeConn()
	}
	p.ch, p.closeConn = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
