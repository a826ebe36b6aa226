// Package observe provides application-wide observability primitives for
// Cadence: OpenTelemetry metrics, a Prometheus exporter bridge, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and scraped via
// the standard /metrics endpoint (see [InitProvider]). A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Cadence metrics.
const meterName = "github.com/spinhq/cadence"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Counters ---

	// FramesProcessed counts audio frames folded into voice metrics.
	FramesProcessed metric.Int64Counter

	// SessionsCompleted counts completed practice sessions. Use with
	// attribute: attribute.String("type", ...).
	SessionsCompleted metric.Int64Counter

	// XPAwarded accumulates XP granted across sessions.
	XPAwarded metric.Int64Counter

	// LevelUps counts level-up events.
	LevelUps metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live practice sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- Histograms ---

	// SessionDuration tracks completed session length in seconds.
	SessionDuration metric.Float64Histogram

	// SessionScore tracks the per-session average score distribution.
	SessionScore metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...).
	HTTPRequestDuration metric.Float64Histogram
}

// durationBuckets defines histogram bucket boundaries (in seconds) sized for
// practice sessions, which run from a few seconds to a few minutes.
var durationBuckets = []float64{
	5, 15, 30, 60, 90, 120, 180, 300, 600,
}

// scoreBuckets covers the clamped score range [20, 100].
var scoreBuckets = []float64{
	20, 30, 40, 50, 60, 70, 80, 90, 100,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.FramesProcessed, err = m.Int64Counter("cadence.voice.frames",
		metric.WithDescription("Total audio frames folded into voice metrics."),
	); err != nil {
		return nil, err
	}
	if met.SessionsCompleted, err = m.Int64Counter("cadence.sessions.completed",
		metric.WithDescription("Total completed practice sessions by type."),
	); err != nil {
		return nil, err
	}
	if met.XPAwarded, err = m.Int64Counter("cadence.xp.awarded",
		metric.WithDescription("Total XP granted across sessions."),
	); err != nil {
		return nil, err
	}
	if met.LevelUps, err = m.Int64Counter("cadence.level_ups",
		metric.WithDescription("Total level-up events."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("cadence.active_sessions",
		metric.WithDescription("Number of live practice sessions."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.SessionDuration, err = m.Float64Histogram("cadence.session.duration",
		metric.WithDescription("Completed session length."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SessionScore, err = m.Float64Histogram("cadence.session.score",
		metric.WithDescription("Per-session average score distribution."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("cadence.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordSessionCompleted records a finished session: the per-type counter,
// the duration histogram, and the score histogram in one call.
func (m *Metrics) RecordSessionCompleted(ctx context.Context, sessionType string, durationSeconds int, avgScore float64) {
	typeAttr := metric.WithAttributes(attribute.String("type", sessionType))
	m.SessionsCompleted.Add(ctx, 1, typeAttr)
	m.SessionDuration.Record(ctx, float64(durationSeconds), typeAttr)
	m.SessionScore.Record(ctx, avgScore, typeAttr)
}

// RecordXP records granted XP and, when the grant crossed a level boundary,
// a level-up event.
func (m *Metrics) RecordXP(ctx context.Context, amount int, leveledUp bool) {
	m.XPAwarded.Add(ctx, int64(amount))
	if leveledUp {
		m.LevelUps.Add(ctx, 1)
	}
}
