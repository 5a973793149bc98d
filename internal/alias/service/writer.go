package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"alias-service/internal/alias/model"
	"alias-service/internal/metrics"
)

// newBackOff is swapped in tests to avoid real sleeps.
var newBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

type writeOutcome struct {
	done     bool
	attempts int
	err      error
}

// Persist issues exactly one logical write per assignment on a bounded pool.
// Each write is retried independently; a failure never aborts other writes
// unless opt.StopOnError is set, in which case pending writes are skipped.
// Writes cut short by cancellation count as skipped, not failed.
func Persist(ctx context.Context, w AliasWriter, assignments []model.AliasAssignment, opt model.Options, logger zerolog.Logger) model.PersistReport {
	var rep model.PersistReport
	if len(assignments) == 0 {
		return rep
	}

	workers := opt.WriteWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > len(assignments) {
		workers = len(assignments)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]writeOutcome, len(assignments))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for k := 0; k < workers; k++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue // остановлено: считаем пропущенной
				}
				attempts, err := writeWithRetry(ctx, w, assignments[i], opt.WriteRetries)
				if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
					continue // оборвана остановкой, а не ошибкой записи
				}
				outcomes[i] = writeOutcome{done: true, attempts: attempts, err: err}
				if err != nil {
					metrics.WritesTotal.WithLabelValues("failed").Inc()
					logger.Error().Err(err).
						Str("record_id", assignments[i].RecordID).
						Str("store", assignments[i].Store).
						Int("attempts", attempts).
						Msg("alias write failed")
					if opt.StopOnError {
						cancel()
					}
					continue
				}
				metrics.WritesTotal.WithLabelValues("ok").Inc()
			}
		}()
	}

feed:
	for i := range assignments {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	for i, o := range outcomes {
		switch {
		case !o.done:
			rep.Skipped++
		case o.err != nil:
			rep.Failures = append(rep.Failures, model.WriteFailure{
				RecordID: assignments[i].RecordID,
				Store:    assignments[i].Store,
				Error:    o.err.Error(),
				Attempts: o.attempts,
			})
		default:
			rep.Written++
		}
	}
	return rep
}

func writeWithRetry(ctx context.Context, w AliasWriter, a model.AliasAssignment, retries int) (int, error) {
	if retries < 0 {
		retries = 0
	}
	attempts := 0
	op := func() error {
		attempts++
		return w.WriteAlias(ctx, a)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), uint64(retries)), ctx)
	err := backoff.Retry(op, b)
	return attempts, err
}

// ReportWriter keeps assignments in memory instead of writing them (dry run).
type ReportWriter struct {
	mu      sync.Mutex
	written map[string]model.AliasAssignment
}

func NewReportWriter() *ReportWriter {
	return &ReportWriter{written: make(map[string]model.AliasAssignment)}
}

func (r *ReportWriter) WriteAlias(_ context.Context, a model.AliasAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.written[a.Store+"/"+a.RecordID] = a
	return nil
}

func (r *ReportWriter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.written)
}

func (r *ReportWriter) Get(store, id string) (model.AliasAssignment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.written[store+"/"+id]
	return a, ok
}
