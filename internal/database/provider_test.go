package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPool struct {
	closed bool
}

func (s *stubPool) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (s *stubPool) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (s *stubPool) Ping(context.Context) error { return nil }

func (s *stubPool) Close() { s.closed = true }

func TestNewWithPoolRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil, zap.NewNop())
	require.Error(t, err)
}

func TestWithReleasesOnError(t *testing.T) {
	t.Parallel()

	pool := &stubPool{}
	provider, err := NewWithPool(pool, zap.NewNop())
	require.NoError(t, err)

	wantErr := errors.New("stage failed")
	err = provider.with(func(*Provider) error { return wantErr })
	require.ErrorIs(t, err, wantErr)
	require.True(t, pool.closed)
}

func TestWithReleasesOnPanic(t *testing.T) {
	t.Parallel()

	pool := &stubPool{}
	provider, err := NewWithPool(pool, zap.NewNop())
	require.NoError(t, err)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = provider.with(func(*Provider) error { panic("boom") })
	}()

	require.True(t, pool.closed)
}

func TestCloseIsSafeOnNilReceiver(t *testing.T) {
	t.Parallel()

	var p *Provider
	p.Close()

	provider := &Provider{}
	provider.Close()
}
