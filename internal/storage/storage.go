// Package storage defines the interface for persisting run artifacts,
// such as rendered charts. The abstraction keeps the pipeline independent
// of a specific backend (Google Cloud Storage or the local filesystem).
package storage

import (
	"context"
	"fmt"
	"path"
	"time"
)

// Store is the destination for run artifacts.
type Store interface {
	// Put writes one artifact and returns a URI for it.
	Put(ctx context.Context, name string, contentType string, data []byte) (string, error)
	// Close releases any resources held by the store.
	Close() error
}

// Noop discards artifacts. It is useful for dry runs where charts are
// rendered but not kept.
type Noop struct{}

// NewNoop returns a store that drops everything it is given.
func NewNoop() *Noop {
	return &Noop{}
}

// Put discards the artifact and returns a pseudo URI.
func (*Noop) Put(_ context.Context, name string, _ string, _ []byte) (string, error) {
	return "noop://" + name, nil
}

// Close does nothing.
func (*Noop) Close() error {
	return nil
}

// ChartObjectName builds the object name for a run's chart artifact,
// e.g. "charts/CO-crimes-2026-08-25.html".
func ChartObjectName(prefix, state string, day time.Time) string {
	name := fmt.Sprintf("%s-crimes-%s.html", state, day.Format("2006-01-02"))
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
