package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveCycleDuration(150 * time.Millisecond)
	pr.IncCycleOutcome(OutcomeSuccess)
	pr.IncConversions()
	pr.IncPatchPlans(true)
	pr.ObserveBatchCount(2)
	pr.ObserveRequestCount(120)
	pr.IncQueueMessages("processed")
	pr.SetStackedChars("doc1", 4200)
	pr.IncRetries()
	// Basic scrape to ensure metrics encode without panic
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
}

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveCycleDuration(time.Second)
	r.IncCycleOutcome(OutcomeFailed)
	r.IncConversions()
	r.IncPatchPlans(false)
	r.ObserveBatchCount(1)
	r.ObserveRequestCount(1)
	r.IncQueueMessages("failed")
	r.SetStackedChars("doc1", 0)
	r.IncRetries()
}

func TestStackedChars_KeyedByDocument(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.SetStackedChars("doc1", 100)
	pr.SetStackedChars("doc2", 250)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "archivist_stacked_chars" {
			continue
		}
		if got := len(mf.GetMetric()); got != 2 {
			t.Fatalf("expected one series per document, got %d", got)
		}
		for _, m := range mf.GetMetric() {
			if m.GetLabel()[0].GetName() != "doc" {
				t.Fatalf("expected doc label, got %q", m.GetLabel()[0].GetName())
			}
		}
		return
	}
	t.Fatal("archivist_stacked_chars not found")
}
