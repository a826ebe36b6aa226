package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordSessionCompleted(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSessionCompleted(ctx, "free_practice", 60, 75)
	m.RecordSessionCompleted(ctx, "free_practice", 90, 85)
	m.RecordSessionCompleted(ctx, "scenario", 90, 92)

	rm := collect(t, reader)

	met := findMetric(rm, "cadence.sessions.completed")
	if met == nil {
		t.Fatal("sessions counter not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("sessions counter data = %T, want Sum[int64]", met.Data)
	}
	byType := map[string]int64{}
	for _, dp := range sum.DataPoints {
		if v, found := dp.Attributes.Value(attribute.Key("type")); found {
			byType[v.AsString()] = dp.Value
		}
	}
	if byType["free_practice"] != 2 || byType["scenario"] != 1 {
		t.Errorf("sessions by type = %v, want free_practice:2 scenario:1", byType)
	}

	met = findMetric(rm, "cadence.session.duration")
	if met == nil {
		t.Fatal("duration histogram not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatalf("duration histogram data = %T with %v points", met.Data, hist.DataPoints)
	}

	if findMetric(rm, "cadence.session.score") == nil {
		t.Error("score histogram not found")
	}
}

func TestRecordXP(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordXP(ctx, 25, false)
	m.RecordXP(ctx, 40, true)

	rm := collect(t, reader)

	xp := findMetric(rm, "cadence.xp.awarded")
	if xp == nil {
		t.Fatal("xp counter not found")
	}
	if sum, ok := xp.Data.(metricdata.Sum[int64]); !ok || sum.DataPoints[0].Value != 65 {
		t.Errorf("xp total = %+v, want 65", xp.Data)
	}

	ups := findMetric(rm, "cadence.level_ups")
	if ups == nil {
		t.Fatal("level_ups counter not found")
	}
	if sum, ok := ups.Data.(metricdata.Sum[int64]); !ok || sum.DataPoints[0].Value != 1 {
		t.Errorf("level_ups total = %+v, want 1", ups.Data)
	}
}

func TestActiveSessionsUpDown(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, -1)

	rm := collect(t, reader)
	met := findMetric(rm, "cadence.active_sessions")
	if met == nil {
		t.Fatal("active_sessions gauge not found")
	}
	if sum, ok := met.Data.(metricdata.Sum[int64]); !ok || sum.DataPoints[0].Value != 1 {
		t.Errorf("active_sessions = %+v, want 1", met.Data)
	}
}

func TestDefaultMetrics_SameInstance(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics should return a stable pointer")
	}
}
