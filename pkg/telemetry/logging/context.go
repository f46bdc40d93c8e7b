package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	// InterfaceKey is the context key for the monitored interface.
	InterfaceKey contextKey = "interface"

	// TaskKey is the context key for the periodic task name.
	TaskKey contextKey = "task"
)

// WithInterface adds the monitored interface to the context.
func WithInterface(ctx context.Context, iface string) context.Context {
	return context.WithValue(ctx, InterfaceKey, iface)
}

// WithTask adds the periodic task name to the context.
func WithTask(ctx context.Context, task string) context.Context {
	return context.WithValue(ctx, TaskKey, task)
}

// GetTask retrieves the task name from the context.
func GetTask(ctx context.Context) string {
	if task, ok := ctx.Value(TaskKey).(string); ok {
		return task
	}
	return ""
}

// extractContextFields returns the known context values as slog attributes.
func extractContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	if iface, ok := ctx.Value(InterfaceKey).(string); ok && iface != "" {
		attrs = append(attrs, slog.String(string(InterfaceKey), iface))
	}
	if task, ok := ctx.Value(TaskKey).(string); ok && task != "" {
		attrs = append(attrs, slog.String(string(TaskKey), task))
	}
	return attrs
}

// contextHandler decorates records with fields carried by the context.
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := extractContextFields(ctx); len(attrs) > 0 {
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}
