package writer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/st-techno/DLMM/internal/journal"
	"github.com/st-techno/DLMM/internal/model"
)

// RebalanceWriter consumes rebalance events from the journal and writes
// them to the rebalances table.
type RebalanceWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	input *journal.Buffer[*model.RebalanceEvent]
	db    *pgxpool.Pool

	batch       []rebalanceRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewRebalanceWriter creates a new RebalanceWriter.
func NewRebalanceWriter(
	cfg WriterConfig,
	input *journal.Buffer[*model.RebalanceEvent],
	db *pgxpool.Pool,
	logger *slog.Logger,
) *RebalanceWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RebalanceWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]rebalanceRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming events and writing to the database.
func (w *RebalanceWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("rebalance writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer and flushes what remains.
func (w *RebalanceWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping rebalance writer")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("rebalance writer stopped")
	case <-ctx.Done():
		w.logger.Warn("rebalance writer stop timed out")
	}

	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *RebalanceWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *RebalanceWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			ev, ok := w.input.TryPop()
			if !ok {
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			w.handleEvent(ev)
		}
	}
}

func (w *RebalanceWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

func (w *RebalanceWriter) handleEvent(ev *model.RebalanceEvent) {
	row := w.transform(ev)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

// transform converts a RebalanceEvent to a rebalanceRow.
func (w *RebalanceWriter) transform(ev *model.RebalanceEvent) rebalanceRow {
	return rebalanceRow{
		EventID:    ev.EventID().String(),
		Pool:       ev.PoolAddress().String(),
		Seq:        int64(ev.Sequence()),
		OccurredAt: ev.Time().UnixMicro(),
		Strategy:   ev.Strategy,
		FromBin:    ev.FromBin,
		ToBin:      ev.ToBin,
		Amount:     ev.Amount.String(),
	}
}

func (w *RebalanceWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	batch := w.batch
	w.batch = make([]rebalanceRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed rebalances",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

func (w *RebalanceWriter) batchInsert(ctx context.Context, rows []rebalanceRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO rebalances (event_id, pool, seq, occurred_at, strategy, from_bin, to_bin, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (event_id) DO NOTHING
		`, r.EventID, r.Pool, r.Seq, r.OccurredAt, r.Strategy, r.FromBin, r.ToBin, r.Amount)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
