package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type metrics struct {
	otpIssued     metric.Int64Counter
	otpVerified   metric.Int64Counter
	otpRejected   metric.Int64Counter
	sessionIssued metric.Int64Counter
}

func newMetrics(m metric.Meter) *metrics {
	return &metrics{
		otpIssued:     counter(m, "identity.otp.issued", "One-time codes issued"),
		otpVerified:   counter(m, "identity.otp.verified", "One-time codes consumed"),
		otpRejected:   counter(m, "identity.otp.rejected", "One-time code submissions rejected"),
		sessionIssued: counter(m, "identity.session.issued", "Session tokens issued"),
	}
}

func counter(m metric.Meter, name, desc string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		slog.Warn("failed to create counter, using noop", "name", name, "error", err)
		return noop.Int64Counter{}
	}
	return c
}

func (m *metrics) issued(ctx context.Context, t entity.OTPType) {
	m.otpIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("type", t.String())))
}

func (m *metrics) verified(ctx context.Context, t entity.OTPType) {
	m.otpVerified.Add(ctx, 1, metric.WithAttributes(attribute.String("type", t.String())))
}

func (m *metrics) rejected(ctx context.Context, t entity.OTPType, reason entity.RejectReason) {
	m.otpRejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", t.String()),
		attribute.String("reason", string(reason)),
	))
}

func (m *metrics) session(ctx context.Context) {
	m.sessionIssued.Add(ctx, 1)
}
