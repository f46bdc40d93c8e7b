package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis pub/sub sink.
type RedisConfig struct {
	// Address is the Redis server "host:port".
	Address string

	// Password for AUTH, empty for none.
	Password string

	// DB selects the logical database.
	DB int

	// Channel is the pub/sub channel alerts are published on.
	Channel string

	// WriteTimeout bounds a single PUBLISH.
	// Default: 3s
	WriteTimeout time.Duration
}

// RedisSink publishes alerts on a Redis channel.
type RedisSink struct {
	client    *redis.Client
	channel   string
	formatter *Formatter
	logger    *slog.Logger
}

// NewRedisSink connects to Redis and verifies the connection with PING.
func NewRedisSink(ctx context.Context, cfg RedisConfig, formatter *Formatter) (*RedisSink, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if cfg.Channel == "" {
		return nil, errors.New("redis channel cannot be empty")
	}
	if formatter == nil {
		return nil, errors.New("formatter cannot be nil")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 3 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}

	return &RedisSink{
		client:    client,
		channel:   cfg.Channel,
		formatter: formatter,
		logger:    slog.Default().With("component", "alert.redis"),
	}, nil
}

// Publish implements Sink.
func (s *RedisSink) Publish(ctx context.Context, a Alert) error {
	payload, err := s.formatter.Payload(a)
	if err != nil {
		return err
	}

	receivers, err := s.client.Publish(ctx, s.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish alert %s: %w", a.ID, err)
	}

	s.logger.Debug("alert published",
		"alert_id", a.ID,
		"channel", s.channel,
		"receivers", receivers,
	)
	return nil
}

// Ping reports whether the Redis server is reachable.
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements Sink.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
