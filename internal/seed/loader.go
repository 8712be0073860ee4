package seed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/paarshan4800/fin-advisor/internal/domain"
	"github.com/paarshan4800/fin-advisor/internal/ledger"
)

// Loader inserts transactions into a ledger in batches using a pool of
// workers. It stops handing out batches after the first failure.
type Loader struct {
	store     ledger.Store
	batchSize int
	workers   int
	log       zerolog.Logger
}

// NewLoader creates a loader. Non-positive sizes fall back to 5000 rows per
// batch and 4 workers.
func NewLoader(store ledger.Store, batchSize, workers int, log zerolog.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = 5000
	}
	if workers <= 0 {
		workers = 4
	}
	return &Loader{store: store, batchSize: batchSize, workers: workers, log: log}
}

// Load writes txns and returns how many were inserted.
func (l *Loader) Load(ctx context.Context, txns []domain.Transaction) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	batches := make(chan []domain.Transaction)
	var (
		wg       sync.WaitGroup
		inserted atomic.Int64
		once     sync.Once
		firstErr error
	)

	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for batch := range batches {
				if err := l.store.Insert(ctx, batch); err != nil {
					once.Do(func() {
						firstErr = fmt.Errorf("Load: worker %d: %w", worker, err)
						cancel()
					})
					continue
				}
				n := inserted.Add(int64(len(batch)))
				l.log.Debug().Int("worker", worker).Int64("inserted", n).Msg("batch inserted")
			}
		}(i)
	}

send:
	for start := 0; start < len(txns); start += l.batchSize {
		end := start + l.batchSize
		if end > len(txns) {
			end = len(txns)
		}
		select {
		case batches <- txns[start:end]:
		case <-ctx.Done():
			break send
		}
	}
	close(batches)
	wg.Wait()

	if firstErr != nil {
		return int(inserted.Load()), firstErr
	}
	if err := ctx.Err(); err != nil && inserted.Load() < int64(len(txns)) {
		return int(inserted.Load()), fmt.Errorf("Load: %w", err)
	}
	return int(inserted.Load()), nil
}
