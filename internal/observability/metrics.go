package observability

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/yungbote/tray-validation-backend/validation"

const (
	ClaimClaimed  = "claimed"
	ClaimResumed  = "resumed"
	ClaimNone     = "none"
	ClaimConflict = "conflict"
)

// Metrics holds the engine's otel instruments. A nil *Metrics records
// nothing.
type Metrics struct {
	claims    metric.Int64Counter
	steps     metric.Int64Counter
	abandons  metric.Int64Counter
	flags     metric.Int64Counter
	stale     metric.Int64Counter
	completed metric.Int64Counter

	httpRequests metric.Int64Counter
	httpLatency  metric.Float64Histogram
}

// NewMetrics builds instruments from the global meter provider, which is a
// no-op until one is installed.
func NewMetrics() *Metrics {
	return NewMetricsFrom(otel.Meter(meterName))
}

func NewMetricsFrom(m metric.Meter) *Metrics {
	claims, _ := m.Int64Counter("validation.claims",
		metric.WithDescription("Acquire outcomes by result"),
	)
	steps, _ := m.Int64Counter("validation.steps",
		metric.WithDescription("Validation steps resolved by status"),
	)
	abandons, _ := m.Int64Counter("validation.abandons",
		metric.WithDescription("Work logs abandoned"),
	)
	flags, _ := m.Int64Counter("validation.flags",
		metric.WithDescription("Recognitions flagged by flag type"),
	)
	stale, _ := m.Int64Counter("validation.stale_reclaims",
		metric.WithDescription("Stale claims abandoned by a conflicting claim or sweep"),
	)
	completed, _ := m.Int64Counter("validation.work_completed",
		metric.WithDescription("Work logs completed"),
	)
	httpRequests, _ := m.Int64Counter("http.server.requests",
		metric.WithDescription("HTTP requests by route and status"),
	)
	httpLatency, _ := m.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("ms"),
	)
	return &Metrics{
		httpRequests: httpRequests,
		httpLatency:  httpLatency,
		claims:       claims,
		steps:        steps,
		abandons:     abandons,
		flags:        flags,
		stale:        stale,
		completed:    completed,
	}
}

func (m *Metrics) Claim(ctx context.Context, result string) {
	if m == nil || m.claims == nil {
		return
	}
	m.claims.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) Step(ctx context.Context, validationType string, status string) {
	if m == nil || m.steps == nil {
		return
	}
	m.steps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("validation_type", validationType),
		attribute.String("status", status),
	))
}

func (m *Metrics) Abandon(ctx context.Context, requeue bool) {
	if m == nil || m.abandons == nil {
		return
	}
	m.abandons.Add(ctx, 1, metric.WithAttributes(attribute.Bool("requeue", requeue)))
}

func (m *Metrics) Flag(ctx context.Context, flagType string) {
	if m == nil || m.flags == nil {
		return
	}
	m.flags.Add(ctx, 1, metric.WithAttributes(attribute.String("flag_type", flagType)))
}

func (m *Metrics) StaleReclaim(ctx context.Context, source string, n int) {
	if m == nil || m.stale == nil || n <= 0 {
		return
	}
	m.stale.Add(ctx, int64(n), metric.WithAttributes(attribute.String("source", source)))
}

func (m *Metrics) Completed(ctx context.Context) {
	if m == nil || m.completed == nil {
		return
	}
	m.completed.Add(ctx, 1)
}

func (m *Metrics) HTTP(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	if m.httpLatency != nil {
		m.httpLatency.Record(ctx, float64(d.Microseconds())/1000, attrs)
	}
}
