// Package metrics provides observability hooks for the update pipeline.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection never requires nil checks and carries
// no overhead when disabled. The Prometheus implementation is activated by
// the daemon when the metrics endpoint is configured.
package metrics

import "time"

// OutcomeLabel enumerates update-cycle outcomes for counters.
type OutcomeLabel string

const (
	OutcomeSuccess  OutcomeLabel = "success"
	OutcomeFallback OutcomeLabel = "fallback"
	OutcomeFailed   OutcomeLabel = "failed"
	OutcomeSkipped  OutcomeLabel = "skipped"
)

// Recorder defines observability hooks for conversion and patching metrics.
// All methods must be safe on the zero value so NoopRecorder can be embedded.
type Recorder interface {
	ObserveCycleDuration(d time.Duration)
	IncCycleOutcome(outcome OutcomeLabel)
	IncConversions()
	IncPatchPlans(fallback bool)
	ObserveBatchCount(n int)
	ObserveRequestCount(n int)
	IncQueueMessages(result string) // result: processed|failed|rejected
	SetStackedChars(docID string, n int)
	IncRetries()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveCycleDuration(time.Duration) {}
func (NoopRecorder) IncCycleOutcome(OutcomeLabel)       {}
func (NoopRecorder) IncConversions()                    {}
func (NoopRecorder) IncPatchPlans(bool)                 {}
func (NoopRecorder) ObserveBatchCount(int)              {}
func (NoopRecorder) ObserveRequestCount(int)            {}
func (NoopRecorder) IncQueueMessages(string)            {}
func (NoopRecorder) SetStackedChars(string, int)        {}
func (NoopRecorder) IncRetries()                        {}
