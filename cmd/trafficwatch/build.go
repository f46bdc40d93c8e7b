package main

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/trafficwatch/pkg/alert"
	"mercator-hq/trafficwatch/pkg/capture"
	"mercator-hq/trafficwatch/pkg/config"
	"mercator-hq/trafficwatch/pkg/limits/store"
	"mercator-hq/trafficwatch/pkg/traffic"
)

// newCaptureSource builds the packet source named by cfg.Backend.
func newCaptureSource(cfg *config.CaptureConfig) (capture.Source, error) {
	switch cfg.Backend {
	case config.CaptureBackendPcap:
		filter := cfg.Filter
		if filter == "" {
			filter = capture.NetFilter(cfg.FilterNet)
		}
		return capture.NewPcapSource(capture.PcapConfig{
			SnapLen:     cfg.SnapLen,
			Promiscuous: !cfg.DisablePromiscuous,
			ReadTimeout: cfg.ReadTimeout,
			Filter:      filter,
		}), nil
	case config.CaptureBackendCounters:
		return capture.NewCounterSource(cfg.PollInterval), nil
	default:
		return nil, fmt.Errorf("unknown capture backend %q", cfg.Backend)
	}
}

// openStore opens the limit store. createSchema forces table creation
// regardless of auto_migrate.
func openStore(ctx context.Context, cfg *config.LimitsConfig, createSchema bool) (store.Store, error) {
	s, err := store.Open(ctx, store.Config{
		Driver:       cfg.Driver,
		DSN:          cfg.DSN,
		BusyTimeout:  cfg.BusyTimeout,
		AutoMigrate:  cfg.AutoMigrate || createSchema,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
		StaticMin:    cfg.Static.Min,
		StaticMax:    cfg.Static.Max,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s limits store: %w", cfg.Driver, err)
	}
	return s, nil
}

func newFormatter(cfg *config.AlertConfig) (*alert.Formatter, error) {
	return alert.NewFormatter(cfg.Template, alert.Encoding(cfg.Encoding))
}

// newSink connects the alert sink named by cfg.Sink.
func newSink(ctx context.Context, cfg *config.AlertConfig, formatter *alert.Formatter, logger *slog.Logger) (alert.Sink, error) {
	switch cfg.Sink {
	case config.AlertSinkLog:
		return alert.NewLogSink(logger), nil
	case config.AlertSinkRedis:
		return alert.NewRedisSink(ctx, alert.RedisConfig{
			Address:      cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			Channel:      cfg.Redis.Channel,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}, formatter)
	case config.AlertSinkKafka:
		return alert.NewKafkaSink(ctx, alert.KafkaConfig{
			Brokers:           cfg.Kafka.Brokers,
			Topic:             cfg.Kafka.Topic,
			CreateTopic:       cfg.Kafka.CreateTopic,
			Partitions:        cfg.Kafka.Partitions,
			ReplicationFactor: cfg.Kafka.ReplicationFactor,
			BatchTimeout:      cfg.Kafka.BatchTimeout,
		}, formatter)
	default:
		return nil, fmt.Errorf("unknown alert sink %q", cfg.Sink)
	}
}

func monitorConfig(cfg *config.Config) traffic.Config {
	maxReopen := config.DefaultCaptureMaxReopen
	if cfg.Capture.MaxReopen != nil {
		maxReopen = *cfg.Capture.MaxReopen
	}
	return traffic.Config{
		Interface:        cfg.Capture.Interface,
		RefreshPeriod:    cfg.Monitor.RefreshPeriod,
		ValidationPeriod: cfg.Monitor.ValidationPeriod,
		ShutdownGrace:    cfg.Monitor.ShutdownGrace,
		MaxReopen:        maxReopen,
		ReopenDelay:      cfg.Capture.ReopenDelay,
		LogPackets:       cfg.Monitor.LogPackets,
	}
}
