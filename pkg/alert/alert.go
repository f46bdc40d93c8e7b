package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Encoding selects the payload written to the bus.
type Encoding string

const (
	// EncodingText publishes the rendered message only.
	EncodingText Encoding = "text"
	// EncodingJSON publishes the whole Alert as a JSON object.
	EncodingJSON Encoding = "json"
)

// DefaultMessage is used when no template is configured.
const DefaultMessage = "Transferred traffic %d bytes is out of range [%d, %d]"

// ErrInvalidTemplate is returned when a template does not take exactly
// three integer arguments.
var ErrInvalidTemplate = errors.New("alert template must contain exactly three %d slots")

// Alert is one out-of-range notification.
type Alert struct {
	ID         string    `json:"id"`
	Interface  string    `json:"interface,omitempty"`
	Delta      int64     `json:"delta"`
	Min        int64     `json:"min"`
	Max        int64     `json:"max"`
	ObservedAt time.Time `json:"observed_at"`
	Message    string    `json:"message"`
}

// Sink accepts alerts for delivery.
type Sink interface {
	Publish(ctx context.Context, a Alert) error
	Close() error
}

// Formatter renders alert messages and payloads.
type Formatter struct {
	template string
	encoding Encoding
}

// NewFormatter validates template and returns a Formatter. An empty template
// selects DefaultMessage and an empty encoding selects EncodingText.
func NewFormatter(template string, encoding Encoding) (*Formatter, error) {
	if template == "" {
		template = DefaultMessage
	}
	if encoding == "" {
		encoding = EncodingText
	}
	if encoding != EncodingText && encoding != EncodingJSON {
		return nil, fmt.Errorf("unsupported alert encoding %q", encoding)
	}

	// fmt marks missing or surplus operands with "%!", which catches both
	// too few and too many slots as well as non-integer verbs.
	probe := fmt.Sprintf(template, int64(1), int64(2), int64(3))
	if strings.Contains(probe, "%!") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTemplate, template)
	}

	return &Formatter{template: template, encoding: encoding}, nil
}

// Message renders the template.
func (f *Formatter) Message(delta, min, max int64) string {
	return fmt.Sprintf(f.template, delta, min, max)
}

// New builds an Alert with a fresh ID.
func (f *Formatter) New(iface string, delta, min, max int64, at time.Time) Alert {
	return Alert{
		ID:         uuid.NewString(),
		Interface:  iface,
		Delta:      delta,
		Min:        min,
		Max:        max,
		ObservedAt: at.UTC(),
		Message:    f.Message(delta, min, max),
	}
}

// Payload encodes a for the bus according to the configured encoding.
func (f *Formatter) Payload(a Alert) ([]byte, error) {
	if f.encoding == EncodingJSON {
		data, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal alert: %w", err)
		}
		return data, nil
	}
	return []byte(a.Message), nil
}
