package journal

// Config holds buffer sizing for the event journal.
type Config struct {
	// Per-type output buffer capacities (initial; buffers grow on demand)
	SwapBufferSize      int // Default: 5000
	LiquidityBufferSize int // Default: 1000
	FeeBufferSize       int // Default: 5000
	RebalanceBufferSize int // Default: 1000
}

// DefaultConfig returns default configuration. Swap and fee buffers are
// sized larger: every swap can fan out into one fee accrual per share
// holder.
func DefaultConfig() Config {
	return Config{
		SwapBufferSize:      5000,
		LiquidityBufferSize: 1000,
		FeeBufferSize:       5000,
		RebalanceBufferSize: 1000,
	}
}
