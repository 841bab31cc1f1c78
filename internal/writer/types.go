package writer

import (
	"time"
)

// WriterConfig contains configuration for batch writers.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: time.Second,
	}
}

// WriterMetrics holds metrics for a writer.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}

// swapRow represents a row to be inserted into the swaps table.
type swapRow struct {
	EventID    string // UUID
	Pool       string // Base58 pool address
	Seq        int64  // Per-pool sequence
	OccurredAt int64  // Microseconds
	BinID      int32
	Price      string // Decimal as text
	AmountIn   string
	Fee        string
	AmountOut  string
	Aggressor  string
	Volatility float64
}

// liquidityRow represents a row for the liquidity_events table.
type liquidityRow struct {
	EventID        string
	Pool           string
	Seq            int64
	OccurredAt     int64
	Kind           string // "liquidity_added" or "liquidity_removed"
	BinID          int32
	Provider       string // Base58 wallet address
	Amount         string
	LiquidityAfter string
}

// feeRow represents a row for the fee_events table.
type feeRow struct {
	EventID    string
	Pool       string
	Seq        int64
	OccurredAt int64
	Kind       string // "fee_accrued" or "fee_claimed"
	BinID      int32  // -1 for claims
	Provider   string
	Amount     string
}

// rebalanceRow represents a row for the rebalances table.
type rebalanceRow struct {
	EventID    string
	Pool       string
	Seq        int64
	OccurredAt int64
	Strategy   string
	FromBin    int32
	ToBin      int32
	Amount     string
}
