// Package memory contains an in-memory publisher for tests.
package memory

import (
	"context"
	"sync"
)

// PublishedReport captures one publish call.
type PublishedReport struct {
	RunID  string
	Report any
}

// Publisher stores published reports for inspection.
type Publisher struct {
	mu      sync.RWMutex
	reports []PublishedReport
}

// New returns an empty memory publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the report.
func (p *Publisher) Publish(_ context.Context, runID string, report any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reports = append(p.reports, PublishedReport{RunID: runID, Report: report})
	return nil
}

// Close does nothing.
func (p *Publisher) Close() error { return nil }

// Reports returns the recorded publishes.
func (p *Publisher) Reports() []PublishedReport {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]PublishedReport, len(p.reports))
	copy(out, p.reports)
	return out
}
