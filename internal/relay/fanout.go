package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dwikikusuma/pos-payments/pkg/logger"
)

const FanoutExchange = "payments_fanout"

// Fanout spreads webhook events to every relay instance through a RabbitMQ
// fanout exchange, so clients connected to any instance receive them.
type Fanout struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *slog.Logger

	mu sync.Mutex
}

func DialFanout(url string, log *slog.Logger) (*Fanout, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(FanoutExchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", FanoutExchange, err)
	}
	return &Fanout{conn: conn, ch: ch, log: logger.OrDefault(log)}, nil
}

func (f *Fanout) Publish(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ch.PublishWithContext(ctx,
		FanoutExchange, // exchange
		"",             // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   uuid.NewString(),
			Timestamp:   time.Now(),
			Body:        body,
		})
}

// Consume binds an exclusive queue to the exchange and feeds every message
// to sink until ctx is done or the broker closes the channel.
func (f *Fanout) Consume(ctx context.Context, sink func([]byte)) error {
	q, err := f.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := f.ch.QueueBind(q.Name, "", FanoutExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	deliveries, err := f.ch.ConsumeWithContext(ctx, q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}

	f.log.Info("fanout consumer started", slog.String("queue", q.Name))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("fanout deliveries closed")
			}
			sink(d.Body)
		}
	}
}

func (f *Fanout) Close() error {
	if f.ch != nil && !f.ch.IsClosed() {
		if err := f.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %w", err)
		}
	}
	if f.conn != nil && !f.conn.IsClosed() {
		if err := f.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}
