package traffic

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/trafficwatch/pkg/alert"
)

// Outcome classifies one validation tick.
type Outcome string

const (
	OutcomeInRange           Outcome = "in_range"
	OutcomeOutOfRange        Outcome = "out_of_range"
	OutcomeLimitsUnavailable Outcome = "limits_unavailable"
	OutcomeAnomaly           Outcome = "anomaly"
)

// ValidationResult is what one validation tick observed and did.
type ValidationResult struct {
	Outcome    Outcome      `json:"outcome"`
	Total      uint64       `json:"total"`
	Delta      int64        `json:"delta"`
	Limits     *Limits      `json:"limits,omitempty"`
	Alert      *alert.Alert `json:"alert,omitempty"`
	Notified   bool         `json:"notified"`
	ObservedAt time.Time    `json:"observed_at"`
	Err        error        `json:"-"`
}

// Validator runs the validation step against a State.
type Validator struct {
	state     *State
	sink      alert.Sink
	formatter *alert.Formatter
	iface     string
	recorder  Recorder
	tracer    trace.Tracer
	logger    *slog.Logger
	now       func() time.Time
}

// Validate consumes the bytes accumulated since the previous call and
// compares them with the published limits. Out-of-range deltas are
// published to the sink after the state lock is released. Sink failures
// are logged and reflected in Notified; they are never returned.
func (v *Validator) Validate(ctx context.Context) ValidationResult {
	started := time.Now()
	ctx, span := v.tracer.Start(ctx, "traffic.validate")
	defer span.End()

	w, err := v.state.advance()
	result := ValidationResult{
		Total:      w.total,
		ObservedAt: v.now(),
	}

	switch {
	case err != nil:
		result.Outcome = OutcomeAnomaly
		result.Err = err
		v.logger.WarnContext(ctx, "counter went backwards, re-baselined",
			"total", w.total,
			"previous", w.previous,
		)
	case !w.haveLimits:
		result.Outcome = OutcomeLimitsUnavailable
		result.Delta = w.delta
		result.Err = ErrLimitsUnavailable
		v.logger.InfoContext(ctx, "no limits published yet, skipping comparison",
			"delta", w.delta,
		)
	case w.limits.Contains(w.delta):
		limits := w.limits
		result.Outcome = OutcomeInRange
		result.Delta = w.delta
		result.Limits = &limits
		v.logger.DebugContext(ctx, "traffic in range",
			"delta", w.delta,
			"limits", limits.String(),
		)
	default:
		limits := w.limits
		result.Outcome = OutcomeOutOfRange
		result.Delta = w.delta
		result.Limits = &limits
		v.notify(ctx, &result)
	}

	span.SetAttributes(
		attribute.String("traffic.outcome", string(result.Outcome)),
		attribute.Int64("traffic.delta", result.Delta),
		attribute.Bool("traffic.notified", result.Notified),
	)
	if result.Err != nil && !errors.Is(result.Err, ErrLimitsUnavailable) {
		span.SetStatus(codes.Error, result.Err.Error())
	}

	v.recorder.RecordValidation(string(result.Outcome), result.Delta, result.Total, time.Since(started))
	return result
}

func (v *Validator) notify(ctx context.Context, result *ValidationResult) {
	a := v.formatter.New(v.iface, result.Delta, result.Limits.Min, result.Limits.Max, result.ObservedAt)
	result.Alert = &a

	v.logger.WarnContext(ctx, "traffic out of range",
		"alert_id", a.ID,
		"delta", a.Delta,
		"min", a.Min,
		"max", a.Max,
	)

	if err := v.sink.Publish(ctx, a); err != nil {
		result.Err = err
		v.recorder.RecordAlert(false)
		v.logger.ErrorContext(ctx, "failed to publish alert",
			"alert_id", a.ID,
			"error", err,
		)
		return
	}

	result.Notified = true
	v.recorder.RecordAlert(true)
}
