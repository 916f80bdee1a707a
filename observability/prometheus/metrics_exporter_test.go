package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/Swind/go-thread-executor/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsExporter_RecordMethods(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("threadexecutor", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	exporter.RecordTaskDuration("io", 250*time.Millisecond)
	exporter.RecordTaskOutcome("io", core.OutcomeResolved)
	exporter.RecordTaskOutcome("io", core.OutcomeResolved)
	exporter.RecordTaskOutcome("io", core.OutcomeDropped)
	exporter.RecordTaskPanic("io", "panic")
	exporter.RecordQueueDepth("io", 7)
	exporter.RecordTaskRejected("io", "shutdown")
	exporter.RecordWorkerCount("io", 3)

	if got := testutil.ToFloat64(exporter.taskOutcomeTotal.WithLabelValues("io", "resolved")); got != 2 {
		t.Fatalf("resolved outcomes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(exporter.taskOutcomeTotal.WithLabelValues("io", "dropped")); got != 1 {
		t.Fatalf("dropped outcomes = %v, want 1", got)
	}

	panicTotal := testutil.ToFloat64(exporter.taskPanicTotal.WithLabelValues("io"))
	if panicTotal != 1 {
		t.Fatalf("panic total = %v, want 1", panicTotal)
	}

	queueDepth := testutil.ToFloat64(exporter.queueDepth.WithLabelValues("io"))
	if queueDepth != 7 {
		t.Fatalf("queue depth = %v, want 7", queueDepth)
	}

	rejected := testutil.ToFloat64(exporter.taskRejectedTotal.WithLabelValues("io", "shutdown"))
	if rejected != 1 {
		t.Fatalf("rejected total = %v, want 1", rejected)
	}

	if got := testutil.ToFloat64(exporter.workers.WithLabelValues("io")); got != 3 {
		t.Fatalf("workers = %v, want 3", got)
	}

	histCount, err := histogramSampleCount(exporter.taskDurationSeconds.WithLabelValues("io"))
	if err != nil {
		t.Fatalf("histogramSampleCount failed: %v", err)
	}
	if histCount != 1 {
		t.Fatalf("duration sample count = %d, want 1", histCount)
	}
}

func TestMetricsExporter_AlreadyRegisteredReuse(t *testing.T) {
	reg := prom.NewRegistry()
	first, err := NewMetricsExporter("threadexecutor", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("first NewMetricsExporter failed: %v", err)
	}
	second, err := NewMetricsExporter("threadexecutor", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("second NewMetricsExporter failed: %v", err)
	}

	first.RecordTaskPanic("io", nil)
	second.RecordTaskPanic("io", nil)

	got := testutil.ToFloat64(first.taskPanicTotal.WithLabelValues("io"))
	if got != 2 {
		t.Fatalf("shared panic counter = %v, want 2", got)
	}
}

// TestMetricsExporter_WiredIntoExecutor verifies an executor reports through the exporter
func TestMetricsExporter_WiredIntoExecutor(t *testing.T) {
	reg := prom.NewRegistry()
	exporter, err := NewMetricsExporter("", reg, ExporterOptions{})
	if err != nil {
		t.Fatalf("NewMetricsExporter failed: %v", err)
	}

	pool := core.NewMultiThreadExecutor(2,
		core.WithName("render"),
		core.WithLogger(core.NewNoOpLogger()),
		core.WithMetrics(exporter),
	)
	pool.Start()
	for i := 0; i < 4; i++ {
		if _, err := pool.Submit(func(ctx context.Context) (any, error) { return nil, nil }); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	cell, err := pool.Shutdown()
	if err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := cell.Await(ctx); err != nil {
		t.Fatalf("shutdown await failed: %v", err)
	}

	if got := testutil.ToFloat64(exporter.taskOutcomeTotal.WithLabelValues("render", "resolved")); got != 4 {
		t.Fatalf("resolved outcomes = %v, want 4", got)
	}
	if got := testutil.ToFloat64(exporter.workers.WithLabelValues("render")); got != 0 {
		t.Fatalf("workers after shutdown = %v, want 0", got)
	}
}

func histogramSampleCount(observer prom.Observer) (uint64, error) {
	collector, ok := observer.(prom.Collector)
	if !ok {
		return 0, nil
	}

	metricCh := make(chan prom.Metric, 1)
	collector.Collect(metricCh)
	close(metricCh)
	for metric := range metricCh {
		msg := &dto.Metric{}
		if err := metric.Write(msg); err != nil {
			return 0, err
		}
		if msg.Histogram != nil {
			return msg.Histogram.GetSampleCount(), nil
		}
	}
	return 0, nil
}
