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

// SwapWriter consumes swap events from the journal and writes them to
// the swaps table.
type SwapWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	// Input from the event journal
	input *journal.Buffer[*model.SwapEvent]

	// Database
	db *pgxpool.Pool

	// Batching
	batch       []swapRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics WriterMetrics
}

// NewSwapWriter creates a new SwapWriter.
func NewSwapWriter(
	cfg WriterConfig,
	input *journal.Buffer[*model.SwapEvent],
	db *pgxpool.Pool,
	logger *slog.Logger,
) *SwapWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SwapWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]swapRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming events and writing to the database.
func (w *SwapWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("swap writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer and flushes what remains.
func (w *SwapWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping swap writer")

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
		w.logger.Info("swap writer stopped")
	case <-ctx.Done():
		w.logger.Warn("swap writer stop timed out")
	}

	// Final flush on the caller's context; w.ctx is already canceled.
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *SwapWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads from the input buffer and accumulates batches.
func (w *SwapWriter) consumeLoop() {
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

// flushLoop periodically flushes the batch.
func (w *SwapWriter) flushLoop() {
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

// handleEvent transforms and adds an event to the batch.
func (w *SwapWriter) handleEvent(ev *model.SwapEvent) {
	row := w.transform(ev)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

// transform converts a SwapEvent to a swapRow.
func (w *SwapWriter) transform(ev *model.SwapEvent) swapRow {
	return swapRow{
		EventID:    ev.EventID().String(),
		Pool:       ev.PoolAddress().String(),
		Seq:        int64(ev.Sequence()),
		OccurredAt: ev.Time().UnixMicro(),
		BinID:      ev.BinID,
		Price:      ev.Price.String(),
		AmountIn:   ev.AmountIn.String(),
		Fee:        ev.Fee.String(),
		AmountOut:  ev.AmountOut.String(),
		Aggressor:  ev.Aggressor,
		Volatility: ev.Volatility,
	}
}

// flush writes the current batch to the database.
func (w *SwapWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of the current batch
	batch := w.batch
	w.batch = make([]swapRow, 0, w.cfg.BatchSize)
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

	w.logger.Debug("flushed swaps",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *SwapWriter) batchInsert(ctx context.Context, rows []swapRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO swaps (event_id, pool, seq, occurred_at, bin_id, price, amount_in, fee, amount_out, aggressor, volatility)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (event_id) DO NOTHING
		`, r.EventID, r.Pool, r.Seq, r.OccurredAt, r.BinID, r.Price, r.AmountIn, r.Fee, r.AmountOut, r.Aggressor, r.Volatility)
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
