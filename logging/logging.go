// Package logging configures the process-wide slog logger and carries a
// per-request logger through context.
//
//	log := logging.FromContext(r.Context())
//	log.Info("order created", "order_id", order.ID)
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type ctxKey struct{}

// New builds the base logger. Production gets JSON, everything else text.
func New(service string, production bool) *slog.Logger {
	return newWithWriter(os.Stdout, service, production)
}

func newWithWriter(w io.Writer, service string, production bool) *slog.Logger {
	var handler slog.Handler
	if production {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	hostname, _ := os.Hostname()
	return slog.New(handler).With(
		slog.String("service", service),
		slog.String("hostname", hostname),
	)
}

// Setup builds the base logger and installs it as slog's default.
func Setup(service string, production bool) *slog.Logger {
	l := New(service, production)
	slog.SetDefault(l)
	return l
}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request logger, or slog.Default when none is set.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
