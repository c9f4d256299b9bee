package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers []string
	Topic   string
}

func (cfg Config) validate() error {
	if len(cfg.Brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		return errors.New("kafka: no topic configured")
	}
	return nil
}

// NewWriter returns a writer for the configured topic.
func NewWriter(cfg Config) (*kafka.Writer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}, nil
}

// NewReader returns a reader in its own consumer group that starts at the
// newest offset, so each reader sees every message published after it joined.
func NewReader(cfg Config, groupID string) (*kafka.Reader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    1 << 20,
		MaxWait:     500 * time.Millisecond,
	}), nil
}

// Ping succeeds when any configured broker accepts a connection.
func Ping(ctx context.Context, cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	var d kafka.Dialer
	var errs []error
	for _, addr := range cfg.Brokers {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", addr, err))
			continue
		}
		_ = conn.Close()
		return nil
	}
	return fmt.Errorf("kafka unreachable: %w", errors.Join(errs...))
}

// EnsureTopic creates the topic through the cluster controller when missing.
func EnsureTopic(ctx context.Context, cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	var d kafka.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("kafka dial: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("kafka controller: %w", err)
	}
	cc, err := d.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("kafka controller dial: %w", err)
	}
	defer cc.Close()

	return cc.CreateTopics(kafka.TopicConfig{Topic: cfg.Topic, NumPartitions: 1, ReplicationFactor: 1})
}
