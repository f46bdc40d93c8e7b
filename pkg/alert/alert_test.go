package alert

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// TestNewFormatter_Slots tests template slot validation.
func TestNewFormatter_Slots(t *testing.T) {
	tests := []struct {
		name     string
		template string
		wantErr  bool
	}{
		{name: "default", template: "", wantErr: false},
		{name: "three slots", template: "delta=%d min=%d max=%d", wantErr: false},
		{name: "two slots", template: "delta=%d min=%d", wantErr: true},
		{name: "four slots", template: "%d %d %d %d", wantErr: true},
		{name: "string verb", template: "%s %d %d", wantErr: true},
		{name: "escaped percent", template: "%d%% of [%d, %d]", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFormatter(tt.template, EncodingText)
			if tt.wantErr && !errors.Is(err, ErrInvalidTemplate) {
				t.Errorf("Expected ErrInvalidTemplate, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

// TestFormatter_New tests alert construction and message rendering.
func TestFormatter_New(t *testing.T) {
	f, err := NewFormatter("Traffic %d outside [%d, %d]", EncodingText)
	if err != nil {
		t.Fatalf("NewFormatter failed: %v", err)
	}

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := f.New("eth0", 100, 2048, 4096, at)

	if a.Message != "Traffic 100 outside [2048, 4096]" {
		t.Errorf("Unexpected message %q", a.Message)
	}
	if a.ID == "" {
		t.Error("Expected alert ID to be set")
	}
	if a.Delta != 100 || a.Min != 2048 || a.Max != 4096 {
		t.Errorf("Unexpected values: %+v", a)
	}
	if other := f.New("eth0", 100, 2048, 4096, at); other.ID == a.ID {
		t.Error("Expected distinct alert IDs")
	}
}

// TestFormatter_Payload tests text and JSON encodings.
func TestFormatter_Payload(t *testing.T) {
	text, _ := NewFormatter("", EncodingText)
	a := text.New("any", 5000, 2048, 4096, time.Now())

	payload, err := text.Payload(a)
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}
	if string(payload) != a.Message {
		t.Errorf("Expected text payload %q, got %q", a.Message, payload)
	}

	js, _ := NewFormatter("", EncodingJSON)
	payload, err = js.Payload(a)
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}
	var decoded Alert
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	if decoded.ID != a.ID || decoded.Delta != 5000 {
		t.Errorf("Unexpected decoded alert: %+v", decoded)
	}

	if _, err := NewFormatter("", Encoding("xml")); err == nil {
		t.Error("Expected error for unsupported encoding")
	}
}

// TestRedisSink_Publish tests that alerts are published on the configured channel.
func TestRedisSink_Publish(t *testing.T) {
	server := miniredis.RunT(t)
	ctx := context.Background()

	subscriber := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer subscriber.Close()

	pubsub := subscriber.Subscribe(ctx, "traffic-alerts")
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	f, _ := NewFormatter("", EncodingText)
	sink, err := NewRedisSink(ctx, RedisConfig{Address: server.Addr(), Channel: "traffic-alerts"}, f)
	if err != nil {
		t.Fatalf("NewRedisSink failed: %v", err)
	}
	defer sink.Close()

	a := f.New("eth0", 100, 2048, 4096, time.Now())
	if err := sink.Publish(ctx, a); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-pubsub.Channel():
		if msg.Payload != a.Message {
			t.Errorf("Expected payload %q, got %q", a.Message, msg.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published alert")
	}
}

// TestRedisSink_Unreachable tests that construction fails when Redis is down.
func TestRedisSink_Unreachable(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	f, _ := NewFormatter("", EncodingText)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisSink(ctx, RedisConfig{Address: addr, Channel: "alerts"}, f)
	if err == nil {
		t.Fatal("Expected connection error, got nil")
	}
	if !strings.Contains(err.Error(), addr) {
		t.Errorf("Expected error to mention %s, got %v", addr, err)
	}
}

// TestKafkaSink_Validation tests configuration checks that need no broker.
func TestKafkaSink_Validation(t *testing.T) {
	f, _ := NewFormatter("", EncodingText)
	ctx := context.Background()

	if _, err := NewKafkaSink(ctx, KafkaConfig{Topic: "alerts"}, f); err == nil {
		t.Error("Expected error for missing brokers")
	}
	if _, err := NewKafkaSink(ctx, KafkaConfig{Brokers: []string{"localhost:9092"}}, f); err == nil {
		t.Error("Expected error for missing topic")
	}

	sink, err := NewKafkaSink(ctx, KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "alerts"}, f)
	if err != nil {
		t.Fatalf("Expected writer without topic provisioning, got %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

// TestLogSink_Publish tests that the log sink never fails.
func TestLogSink_Publish(t *testing.T) {
	f, _ := NewFormatter("", EncodingText)
	sink := NewLogSink(nil)
	if err := sink.Publish(context.Background(), f.New("lo", 1, 2, 3, time.Now())); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}
