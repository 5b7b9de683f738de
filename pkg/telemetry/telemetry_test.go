package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func histogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	m.CompileDone(time.Now(), nil)
	m.CompileDone(time.Now(), errors.New("E101"))
	m.BindingResolved("class")
	m.BindingResolved("class")
	m.HydrationMiss()
	m.SourceError("innerHTML")
	m.NodesReleased(3)
	m.EventDispatched("click", true)
	m.SetPending(7)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"compiles success", counterValue(t, m.compilesTotal.WithLabelValues("success")), 1},
		{"compiles error", counterValue(t, m.compilesTotal.WithLabelValues("error")), 1},
		{"bindings class", counterValue(t, m.bindingsResolved.WithLabelValues("class")), 2},
		{"misses", counterValue(t, m.hydrationMisses), 1},
		{"source errors", counterValue(t, m.sourceErrors.WithLabelValues("innerHTML")), 1},
		{"released", counterValue(t, m.nodesReleased), 3},
		{"dispatched", counterValue(t, m.eventsDispatched.WithLabelValues("click", "true")), 1},
		{"pending", gaugeValue(t, m.pendingBindings), 7},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if n := histogramCount(t, m.compileDuration); n != 2 {
		t.Errorf("compile_duration_seconds count = %d, want 2", n)
	}
}

func TestMetricsNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("app"), WithSubsystem("ui"))
	m.HydrationMiss()

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "app_ui_hydration_misses_total" {
			found = true
		}
	}
	if !found {
		t.Error("app_ui_hydration_misses_total not registered")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.CompileDone(time.Now(), nil)
	m.BindingResolved("event")
	m.HydrationMiss()
	m.SourceError("event")
	m.NodesReleased(1)
	m.EventDispatched("click", false)
	m.SetPending(0)
}

type recordingSpan struct {
	trace.Span
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) { s.errs = append(s.errs, err) }
func (s *recordingSpan) SetStatus(c codes.Code, _ string) { s.status = c }
func (s *recordingSpan) End(...trace.SpanEndOption) { s.ended = true }

func TestEndSpan(t *testing.T) {
	noop := trace.SpanFromContext(context.Background())

	ok := &recordingSpan{Span: noop}
	EndSpan(ok, nil)
	if ok.status != codes.Ok || !ok.ended || len(ok.errs) != 0 {
		t.Errorf("success span = %+v", ok)
	}

	failed := &recordingSpan{Span: noop}
	EndSpan(failed, errors.New("boom"))
	if failed.status != codes.Error || len(failed.errs) != 1 {
		t.Errorf("failed span = %+v", failed)
	}
}

func TestTracerDefaultsName(t *testing.T) {
	ctx, span := StartCompile(context.Background(), Tracer(""), 3)
	defer span.End()
	if ctx == nil {
		t.Fatal("StartCompile returned nil context")
	}
}
