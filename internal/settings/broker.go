package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	kafkago "github.com/segmentio/kafka-go"

	"cafeteria-storefront/internal/common/logger"
	"cafeteria-storefront/internal/connections/kafka"
	"cafeteria-storefront/internal/connections/rabbitmq"
	"cafeteria-storefront/internal/domain"
)

// Exchange is the RabbitMQ fanout exchange carrying settings changes.
const Exchange = "admin_settings_fanout"

// Broker pushes settings changes between storefront instances.
type Broker interface {
	Publish(ctx context.Context, s domain.AdminSettings) error
	// Subscribe streams every change published after it returns. The channel
	// closes when ctx is done.
	Subscribe(ctx context.Context) (<-chan domain.AdminSettings, error)
	// Ping reports whether the transport is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// MemoryBroker fans out within one process.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[chan domain.AdminSettings]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[chan domain.AdminSettings]struct{})}
}

// Publish never blocks; a subscriber with a full buffer misses the change.
func (b *MemoryBroker) Publish(ctx context.Context, s domain.AdminSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- s:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context) (<-chan domain.AdminSettings, error) {
	ch := make(chan domain.AdminSettings, 8)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch, nil
}

func (b *MemoryBroker) Ping(ctx context.Context) error { return ctx.Err() }

func (b *MemoryBroker) Close() error { return nil }

// AMQPBroker publishes to a fanout exchange; each subscriber owns a private queue.
type AMQPBroker struct {
	client   *rabbitmq.Client
	exchange string
	lg       *logger.Logger
}

func NewAMQPBroker(client *rabbitmq.Client, lg *logger.Logger) (*AMQPBroker, error) {
	if err := client.DeclareFanout(Exchange); err != nil {
		return nil, err
	}
	return &AMQPBroker{client: client, exchange: Exchange, lg: lg}, nil
}

func (b *AMQPBroker) Publish(ctx context.Context, s domain.AdminSettings) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return b.client.Publish(ctx, b.exchange, "", body, amqp.Table{"type": string(domain.MsgAdminSettingsChanged)}, "application/json", false)
}

func (b *AMQPBroker) Subscribe(ctx context.Context) (<-chan domain.AdminSettings, error) {
	deliveries, closeFn, err := b.client.SubscribeFanout(b.exchange)
	if err != nil {
		return nil, err
	}
	out := make(chan domain.AdminSettings, 8)
	go func() {
		defer close(out)
		defer closeFn()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					b.lg.Warn("settings_subscription_closed", nil, map[string]any{"exchange": b.exchange})
					return
				}
				var s domain.AdminSettings
				if err := json.Unmarshal(d.Body, &s); err != nil {
					b.lg.Warn("settings_message_invalid", err, nil)
					continue
				}
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *AMQPBroker) Ping(context.Context) error { return b.client.Ping() }

func (b *AMQPBroker) Close() error {
	b.client.Close()
	return nil
}

// KafkaBroker writes settings to a topic. Every subscriber joins its own
// consumer group so all instances see all changes.
type KafkaBroker struct {
	cfg    kafka.Config
	writer *kafkago.Writer
	lg     *logger.Logger
}

func NewKafkaBroker(cfg kafka.Config, lg *logger.Logger) (*KafkaBroker, error) {
	w, err := kafka.NewWriter(cfg)
	if err != nil {
		return nil, err
	}
	return &KafkaBroker{cfg: cfg, writer: w, lg: lg}, nil
}

func (b *KafkaBroker) Publish(ctx context.Context, s domain.AdminSettings) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return b.writer.WriteMessages(ctx, kafkago.Message{Key: []byte(KeyAdminSettings), Value: body})
}

func (b *KafkaBroker) Subscribe(ctx context.Context) (<-chan domain.AdminSettings, error) {
	reader, err := kafka.NewReader(b.cfg, "cafeteria-settings-"+uuid.NewString())
	if err != nil {
		return nil, err
	}
	out := make(chan domain.AdminSettings, 8)
	go func() {
		defer close(out)
		defer reader.Close()
		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() == nil {
					b.lg.Error("settings_subscription_failed", err, map[string]any{"topic": b.cfg.Topic})
				}
				return
			}
			var s domain.AdminSettings
			if err := json.Unmarshal(msg.Value, &s); err != nil {
				b.lg.Warn("settings_message_invalid", err, map[string]any{"offset": msg.Offset})
				continue
			}
			select {
			case out <- s:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *KafkaBroker) Ping(ctx context.Context) error { return kafka.Ping(ctx, b.cfg) }

func (b *KafkaBroker) Close() error { return b.writer.Close() }
