// Package events fans pipeline run results out to external listeners.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"newsmill/internal/metrics"

	"github.com/google/uuid"
)

// RunEvent describes one finished pipeline run
type RunEvent struct {
	RunID         uuid.UUID  `json:"run_id"`
	ProjectID     *uuid.UUID `json:"project_id"`
	ProjectName   string     `json:"project_name"`
	Status        string     `json:"status"`
	ScrapeCount   int        `json:"scrape_count"`
	IngestCount   int        `json:"ingest_count"`
	ExtractCount  int        `json:"extract_count"`
	JudgeCount    int        `json:"judge_count"`
	DedupeCount   int        `json:"dedupe_count"`
	UnusableCount int        `json:"unusable_count"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    time.Time  `json:"finished_at"`
}

// envelope is the wire format shared by every sink
type envelope struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Run       RunEvent  `json:"run"`
}

// Encode serializes a run event into its wire envelope
func Encode(event RunEvent) ([]byte, error) {
	return json.Marshal(envelope{
		Type:      "pipeline_run",
		Timestamp: event.FinishedAt,
		Source:    "newsmill",
		Version:   "1.0",
		Run:       event,
	})
}

// Publisher delivers run events to one sink
type Publisher interface {
	Name() string
	Publish(ctx context.Context, event RunEvent) error
}

// Multi publishes to every sink. A failing sink is logged and never blocks
// the others.
type Multi struct {
	publishers []Publisher
}

// NewMulti creates a publisher over the given sinks, skipping nil entries
func NewMulti(publishers ...Publisher) *Multi {
	m := &Multi{}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

// Name implements Publisher
func (m *Multi) Name() string {
	return "multi"
}

// Publish implements Publisher. It always returns nil.
func (m *Multi) Publish(ctx context.Context, event RunEvent) error {
	for _, p := range m.publishers {
		if err := p.Publish(ctx, event); err != nil {
			log.Printf("⚠️ Failed to publish run event to %s: %v", p.Name(), err)
			metrics.EventsPublishedTotal.WithLabelValues(p.Name(), "error").Inc()
			continue
		}
		metrics.EventsPublishedTotal.WithLabelValues(p.Name(), "ok").Inc()
	}
	return nil
}

// Len returns the number of configured sinks
func (m *Multi) Len() int {
	return len(m.publishers)
}
