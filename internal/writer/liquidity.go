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

// LiquidityWriter consumes liquidity events from the journal and writes
// them to the liquidity_events table.
type LiquidityWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	input *journal.Buffer[*model.LiquidityEvent]
	db    *pgxpool.Pool

	batch       []liquidityRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewLiquidityWriter creates a new LiquidityWriter.
func NewLiquidityWriter(
	cfg WriterConfig,
	input *journal.Buffer[*model.LiquidityEvent],
	db *pgxpool.Pool,
	logger *slog.Logger,
) *LiquidityWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiquidityWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]liquidityRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming events and writing to the database.
func (w *LiquidityWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("liquidity writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer and flushes what remains.
func (w *LiquidityWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping liquidity writer")

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
		w.logger.Info("liquidity writer stopped")
	case <-ctx.Done():
		w.logger.Warn("liquidity writer stop timed out")
	}

	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *LiquidityWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *LiquidityWriter) consumeLoop() {
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

func (w *LiquidityWriter) flushLoop() {
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

func (w *LiquidityWriter) handleEvent(ev *model.LiquidityEvent) {
	row := w.transform(ev)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

// transform converts a LiquidityEvent to a liquidityRow.
func (w *LiquidityWriter) transform(ev *model.LiquidityEvent) liquidityRow {
	return liquidityRow{
		EventID:        ev.EventID().String(),
		Pool:           ev.PoolAddress().String(),
		Seq:            int64(ev.Sequence()),
		OccurredAt:     ev.Time().UnixMicro(),
		Kind:           string(ev.Kind),
		BinID:          ev.BinID,
		Provider:       ev.Provider.String(),
		Amount:         ev.Amount.String(),
		LiquidityAfter: ev.LiquidityAfter.String(),
	}
}

func (w *LiquidityWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	batch := w.batch
	w.batch = make([]liquidityRow, 0, w.cfg.BatchSize)
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

	w.logger.Debug("flushed liquidity events",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

func (w *LiquidityWriter) batchInsert(ctx context.Context, rows []liquidityRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO liquidity_events (event_id, pool, seq, occurred_at, kind, bin_id, provider, amount, liquidity_after)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (event_id) DO NOTHING
		`, r.EventID, r.Pool, r.Seq, r.OccurredAt, r.Kind, r.BinID, r.Provider, r.Amount, r.LiquidityAfter)
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
