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

// FeeWriter consumes fee events from the journal and writes them to the
// fee_events table. Accruals and claims share the table; claims carry
// bin_id -1.
type FeeWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	input *journal.Buffer[*model.FeeEvent]
	db    *pgxpool.Pool

	batch       []feeRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewFeeWriter creates a new FeeWriter.
func NewFeeWriter(
	cfg WriterConfig,
	input *journal.Buffer[*model.FeeEvent],
	db *pgxpool.Pool,
	logger *slog.Logger,
) *FeeWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeeWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]feeRow, 0, cfg.BatchSize),
	}
}

// Start begins consuming events and writing to the database.
func (w *FeeWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("fee writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer and flushes what remains.
func (w *FeeWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping fee writer")

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
		w.logger.Info("fee writer stopped")
	case <-ctx.Done():
		w.logger.Warn("fee writer stop timed out")
	}

	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *FeeWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *FeeWriter) consumeLoop() {
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

func (w *FeeWriter) flushLoop() {
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

func (w *FeeWriter) handleEvent(ev *model.FeeEvent) {
	row := w.transform(ev)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

// transform converts a FeeEvent to a feeRow.
func (w *FeeWriter) transform(ev *model.FeeEvent) feeRow {
	return feeRow{
		EventID:    ev.EventID().String(),
		Pool:       ev.PoolAddress().String(),
		Seq:        int64(ev.Sequence()),
		OccurredAt: ev.Time().UnixMicro(),
		Kind:       string(ev.Kind),
		BinID:      ev.BinID,
		Provider:   ev.Provider.String(),
		Amount:     ev.Amount.String(),
	}
}

func (w *FeeWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	batch := w.batch
	w.batch = make([]feeRow, 0, w.cfg.BatchSize)
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

	w.logger.Debug("flushed fee events",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

func (w *FeeWriter) batchInsert(ctx context.Context, rows []feeRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO fee_events (event_id, pool, seq, occurred_at, kind, bin_id, provider, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (event_id) DO NOTHING
		`, r.EventID, r.Pool, r.Seq, r.OccurredAt, r.Kind, r.BinID, r.Provider, r.Amount)
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
