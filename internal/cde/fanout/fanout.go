// Package fanout spreads per-agency fetches across a bounded worker pool.
package fanout

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/crimeatlas/crimes-grabber/internal/cde"
)

// ArrestFetcher is the one client operation the pool needs.
type ArrestFetcher interface {
	AgencyArrests(ctx context.Context, ori string) ([]cde.Record, error)
}

// FetchAll issues one AgencyArrests call per ORI across at most limit workers
// and returns the flattened records. Results arrive in completion order; the
// order within one agency's series is preserved. Per-agency failures are
// logged and contribute zero rows, so the batch always finishes.
func FetchAll(ctx context.Context, client ArrestFetcher, oris []string, limit int, logger *zap.Logger) []cde.Record {
	if len(oris) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 1
	}
	if limit > len(oris) {
		limit = len(oris)
	}

	var (
		mu      sync.Mutex
		results []cde.Record
		wg      sync.WaitGroup
	)

	jobs := make(chan string)
	for i := 0; i < limit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ori := range jobs {
				records, err := client.AgencyArrests(ctx, ori)
				if err != nil {
					logger.Warn("agency fetch failed",
						zap.String("ori", ori),
						zap.Error(err),
					)
					continue
				}
				if len(records) == 0 {
					continue
				}
				mu.Lock()
				results = append(results, records...)
				mu.Unlock()
			}
		}()
	}

	for _, ori := range oris {
		jobs <- ori
	}
	close(jobs)
	wg.Wait()

	return results
}
