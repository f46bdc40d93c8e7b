package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig configures the Kafka sink.
type KafkaConfig struct {
	// Brokers is the bootstrap broker list ("host:port").
	Brokers []string

	// Topic receives the alerts.
	Topic string

	// CreateTopic provisions Topic on startup when it does not exist.
	CreateTopic bool

	// Partitions and ReplicationFactor are used when creating the topic.
	// Default: 1 and 1
	Partitions        int
	ReplicationFactor int

	// BatchTimeout is how long the async writer waits to fill a batch.
	// Default: 10ms
	BatchTimeout time.Duration
}

// KafkaSink produces alerts to a Kafka topic. Writes are asynchronous;
// delivery failures surface through the completion callback and are logged.
type KafkaSink struct {
	writer    *kafka.Writer
	formatter *Formatter
	logger    *slog.Logger
}

// NewKafkaSink creates the producer and, when configured, the topic.
func NewKafkaSink(ctx context.Context, cfg KafkaConfig, formatter *Formatter) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers cannot be empty")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic cannot be empty")
	}
	if formatter == nil {
		return nil, errors.New("formatter cannot be nil")
	}
	if cfg.Partitions <= 0 {
		cfg.Partitions = 1
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 1
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}

	logger := slog.Default().With("component", "alert.kafka", "topic", cfg.Topic)

	if cfg.CreateTopic {
		if err := ensureTopic(ctx, cfg); err != nil {
			return nil, err
		}
		logger.Info("kafka topic provisioned",
			"partitions", cfg.Partitions,
			"replication_factor", cfg.ReplicationFactor,
		)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("failed to deliver alerts",
					"count", len(messages),
					"error", err,
				)
			}
		},
	}

	return &KafkaSink{writer: writer, formatter: formatter, logger: logger}, nil
}

// ensureTopic creates the topic through the cluster controller.
func ensureTopic(ctx context.Context, cfg KafkaConfig) error {
	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka broker %s: %w", cfg.Brokers[0], err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to locate kafka controller: %w", err)
	}

	addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	controllerConn, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller %s: %w", addr, err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             cfg.Topic,
		NumPartitions:     cfg.Partitions,
		ReplicationFactor: cfg.ReplicationFactor,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("failed to create topic %s: %w", cfg.Topic, err)
	}
	return nil
}

// Publish implements Sink. With an async writer this only enqueues.
func (s *KafkaSink) Publish(ctx context.Context, a Alert) error {
	payload, err := s.formatter.Payload(a)
	if err != nil {
		return err
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(a.ID),
		Value: payload,
		Time:  a.ObservedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue alert %s: %w", a.ID, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
