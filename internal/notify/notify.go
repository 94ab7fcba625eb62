// Package notify defines the interface for publishing run completion
// notifications. The abstraction keeps the pipeline independent of a
// specific messaging system (e.g. GCP Pub/Sub).
package notify

import (
	"context"
)

// Publisher sends a run report to interested downstream consumers.
type Publisher interface {
	// Publish sends the report for one finished run, tagged with its run ID.
	Publish(ctx context.Context, runID string, report any) error

	// Close cleans up any client connections and resources.
	Close() error
}

// Noop is a publisher that performs no operations. It is the default when
// no messaging system is configured.
type Noop struct{}

// Publish for Noop does nothing and returns nil.
func (*Noop) Publish(_ context.Context, _ string, _ any) error { return nil }

// Close for Noop does nothing and returns nil.
func (*Noop) Close() error { return nil }
