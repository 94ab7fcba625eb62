package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/crimeatlas/crimes-grabber/internal/cde"
)

type fakeClient struct {
	mu      sync.Mutex
	calls   []string
	byORI   map[string][]cde.Record
	errFor  map[string]error
	inUse   atomic.Int32
	maxSeen atomic.Int32
	delay   time.Duration
}

func (f *fakeClient) AgencyArrests(_ context.Context, ori string) ([]cde.Record, error) {
	cur := f.inUse.Add(1)
	for {
		seen := f.maxSeen.Load()
		if cur <= seen || f.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}
	defer f.inUse.Add(-1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, ori)
	f.mu.Unlock()

	if err, ok := f.errFor[ori]; ok {
		return nil, err
	}
	return f.byORI[ori], nil
}

func records(ori string, n int) []cde.Record {
	out := make([]cde.Record, n)
	for i := range out {
		out[i] = cde.Record{"Agency": ori, "data_year": float64(2000 + i)}
	}
	return out
}

func TestFetchAllFlattens(t *testing.T) {
	t.Parallel()

	client := &fakeClient{byORI: map[string][]cde.Record{
		"CO001": records("CO001", 2),
		"CO002": records("CO002", 3),
		"CO003": records("CO003", 1),
	}}

	got := FetchAll(context.Background(), client, []string{"CO001", "CO002", "CO003"}, 2, zap.NewNop())
	if len(got) != 6 {
		t.Fatalf("expected 6 flattened records, got %d", len(got))
	}
	counts := map[any]int{}
	for _, r := range got {
		counts[r["Agency"]]++
	}
	if counts["CO001"] != 2 || counts["CO002"] != 3 || counts["CO003"] != 1 {
		t.Fatalf("unexpected per-agency counts: %v", counts)
	}
}

func TestFetchAllEmptyORIs(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	got := FetchAll(context.Background(), client, nil, 40, zap.NewNop())
	if got != nil {
		t.Fatalf("expected nil result for empty input, got %v", got)
	}
	if len(client.calls) != 0 {
		t.Fatalf("expected zero calls, got %v", client.calls)
	}
}

func TestFetchAllPartialFailure(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		byORI: map[string][]cde.Record{
			"CO001": records("CO001", 1),
			"CO003": records("CO003", 2),
		},
		errFor: map[string]error{"CO002": errors.New("connection reset")},
	}

	got := FetchAll(context.Background(), client, []string{"CO001", "CO002", "CO003"}, 3, zap.NewNop())
	if len(got) != 3 {
		t.Fatalf("expected failing agency to contribute zero rows, got %d records", len(got))
	}
	for _, r := range got {
		if r["Agency"] == "CO002" {
			t.Fatalf("unexpected record from failed agency: %+v", r)
		}
	}
	if len(client.calls) != 3 {
		t.Fatalf("expected all agencies attempted, got %v", client.calls)
	}
}

func TestFetchAllSkipsEmptyAgencies(t *testing.T) {
	t.Parallel()

	// An agency rejected with a non-2xx yields empty records and a nil error
	// from the client; the pool must simply skip it.
	client := &fakeClient{byORI: map[string][]cde.Record{
		"CO001": records("CO001", 1),
	}}

	got := FetchAll(context.Background(), client, []string{"CO001", "CO002"}, 2, zap.NewNop())
	if len(got) != 1 || got[0]["Agency"] != "CO001" {
		t.Fatalf("expected only CO001 record, got %+v", got)
	}
}

func TestFetchAllRespectsConcurrencyBound(t *testing.T) {
	t.Parallel()

	byORI := map[string][]cde.Record{}
	oris := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		ori := fmt.Sprintf("CO%03d", i)
		oris = append(oris, ori)
		byORI[ori] = records(ori, 1)
	}
	client := &fakeClient{byORI: byORI, delay: 2 * time.Millisecond}

	got := FetchAll(context.Background(), client, oris, 5, zap.NewNop())
	if len(got) != 50 {
		t.Fatalf("expected 50 records, got %d", len(got))
	}
	if peak := client.maxSeen.Load(); peak > 5 {
		t.Fatalf("concurrency bound exceeded: %d in flight", peak)
	}
}

func TestFetchAllLimitWiderThanInput(t *testing.T) {
	t.Parallel()

	client := &fakeClient{byORI: map[string][]cde.Record{"CO001": records("CO001", 1)}}
	got := FetchAll(context.Background(), client, []string{"CO001"}, 40, zap.NewNop())
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
}
