// Package storage_test contains unit tests for the storage package.
package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimeatlas/crimes-grabber/internal/storage"
)

func TestNoopStore(t *testing.T) {
	store := storage.NewNoop()

	uri, err := store.Put(context.Background(), "charts/CO-crimes-2026-08-25.html", "text/html", []byte("<html></html>"))
	require.NoError(t, err)
	assert.Equal(t, "noop://charts/CO-crimes-2026-08-25.html", uri)

	assert.NoError(t, store.Close())
}

func TestChartObjectName(t *testing.T) {
	day := time.Date(2026, time.August, 25, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		prefix string
		state  string
		want   string
	}{
		{
			name:   "WithPrefix",
			prefix: "charts",
			state:  "CO",
			want:   "charts/CO-crimes-2026-08-25.html",
		},
		{
			name:   "EmptyPrefix",
			prefix: "",
			state:  "NY",
			want:   "NY-crimes-2026-08-25.html",
		},
		{
			name:   "NestedPrefix",
			prefix: "artifacts/charts",
			state:  "TX",
			want:   "artifacts/charts/TX-crimes-2026-08-25.html",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, storage.ChartObjectName(tc.prefix, tc.state, day))
		})
	}
}
