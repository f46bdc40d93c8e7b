package traffic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Refresh results reported to the Recorder.
const (
	RefreshUpdated     = "updated"
	RefreshUnchanged   = "unchanged"
	RefreshUnavailable = "unavailable"
	RefreshInvalid     = "invalid"
	RefreshError       = "error"
)

// Refresher fetches limits from a LimitSource and publishes them into a
// State. Concurrent calls are serialized so a scheduled refresh and an
// on-demand one never race on the source.
type Refresher struct {
	mu       sync.Mutex
	state    *State
	source   LimitSource
	recorder Recorder
	tracer   trace.Tracer
	logger   *slog.Logger
}

// Refresh performs one fetch-and-publish. On failure the previously
// published limits stay in place and the error is returned.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := time.Now()
	ctx, span := r.tracer.Start(ctx, "traffic.refresh")
	defer span.End()

	limits, err := r.source.Fetch(ctx)
	if err == nil {
		var changed bool
		changed, err = r.state.PublishLimits(limits)
		if err == nil {
			result := RefreshUnchanged
			if changed {
				result = RefreshUpdated
				r.logger.InfoContext(ctx, "limits updated",
					"min", limits.Min,
					"max", limits.Max,
				)
			} else {
				r.logger.DebugContext(ctx, "limits unchanged", "limits", limits.String())
			}
			span.SetAttributes(
				attribute.Int64("traffic.limits.min", limits.Min),
				attribute.Int64("traffic.limits.max", limits.Max),
				attribute.String("traffic.refresh.result", result),
			)
			r.recorder.SetLimits(limits.Min, limits.Max)
			r.recorder.RecordRefresh(result, time.Since(started))
			return nil
		}
	}

	result := classifyRefreshError(err)
	span.SetAttributes(attribute.String("traffic.refresh.result", result))
	span.SetStatus(codes.Error, err.Error())
	r.recorder.RecordRefresh(result, time.Since(started))

	if result == RefreshError {
		r.logger.ErrorContext(ctx, "limit refresh failed, keeping previous limits", "error", err)
	} else {
		r.logger.WarnContext(ctx, "limit refresh rejected, keeping previous limits", "error", err)
	}
	return fmt.Errorf("failed to refresh limits: %w", err)
}

func classifyRefreshError(err error) string {
	switch {
	case errors.Is(err, ErrLimitsUnavailable):
		return RefreshUnavailable
	case errors.Is(err, ErrInvalidLimitsRange):
		return RefreshInvalid
	default:
		return RefreshError
	}
}
