package journal

import (
	"context"
	"log/slog"
	"sync"

	"github.com/st-techno/DLMM/internal/model"
)

// Journal fans pool event streams out into per-type buffers that batch
// writers consume.
type Journal struct {
	cfg    Config
	logger *slog.Logger

	// Input event streams, one per pool. Attach before Start.
	inputs []<-chan model.Event

	swapBuf      *Buffer[*model.SwapEvent]
	liquidityBuf *Buffer[*model.LiquidityEvent]
	feeBuf       *Buffer[*model.FeeEvent]
	rebalanceBuf *Buffer[*model.RebalanceEvent]

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Stats
	mu       sync.RWMutex
	received int64
	routed   int64
	unknown  int64
}

// Buffers provides access to the per-type output buffers.
type Buffers struct {
	Swaps      *Buffer[*model.SwapEvent]
	Liquidity  *Buffer[*model.LiquidityEvent]
	Fees       *Buffer[*model.FeeEvent]
	Rebalances *Buffer[*model.RebalanceEvent]
}

// Stats contains runtime statistics.
type Stats struct {
	EventsReceived  int64
	EventsRouted    int64
	UnknownEvents   int64
	SwapBuffer      BufferStats
	LiquidityBuffer BufferStats
	FeeBuffer       BufferStats
	RebalanceBuffer BufferStats
}

// New creates an event journal.
func New(cfg Config, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}

	return &Journal{
		cfg:          cfg,
		logger:       logger,
		swapBuf:      NewBuffer[*model.SwapEvent](cfg.SwapBufferSize),
		liquidityBuf: NewBuffer[*model.LiquidityEvent](cfg.LiquidityBufferSize),
		feeBuf:       NewBuffer[*model.FeeEvent](cfg.FeeBufferSize),
		rebalanceBuf: NewBuffer[*model.RebalanceEvent](cfg.RebalanceBufferSize),
	}
}

// Attach registers a pool's event stream. Must be called before Start;
// streams attached later are not consumed.
func (j *Journal) Attach(events <-chan model.Event) {
	j.inputs = append(j.inputs, events)
}

// Start begins routing events from all attached streams.
func (j *Journal) Start(ctx context.Context) error {
	j.ctx, j.cancel = context.WithCancel(ctx)

	for _, input := range j.inputs {
		j.wg.Add(1)
		go j.routeLoop(input)
	}

	j.logger.Info("event journal started",
		"streams", len(j.inputs),
		"swap_buffer", j.cfg.SwapBufferSize,
		"liquidity_buffer", j.cfg.LiquidityBufferSize,
		"fee_buffer", j.cfg.FeeBufferSize,
		"rebalance_buffer", j.cfg.RebalanceBufferSize,
	)

	return nil
}

// Stop gracefully shuts down the journal and closes the output buffers.
func (j *Journal) Stop(ctx context.Context) error {
	j.logger.Info("stopping event journal")

	if j.cancel != nil {
		j.cancel()
	}

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		j.logger.Info("event journal stopped")
	case <-ctx.Done():
		j.logger.Warn("event journal stop timed out")
	}

	j.swapBuf.Close()
	j.liquidityBuf.Close()
	j.feeBuf.Close()
	j.rebalanceBuf.Close()

	return nil
}

// Buffers returns the per-type output buffers for writers.
func (j *Journal) Buffers() Buffers {
	return Buffers{
		Swaps:      j.swapBuf,
		Liquidity:  j.liquidityBuf,
		Fees:       j.feeBuf,
		Rebalances: j.rebalanceBuf,
	}
}

// Stats returns current statistics.
func (j *Journal) Stats() Stats {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return Stats{
		EventsReceived:  j.received,
		EventsRouted:    j.routed,
		UnknownEvents:   j.unknown,
		SwapBuffer:      j.swapBuf.Stats(),
		LiquidityBuffer: j.liquidityBuf.Stats(),
		FeeBuffer:       j.feeBuf.Stats(),
		RebalanceBuffer: j.rebalanceBuf.Stats(),
	}
}

// routeLoop consumes one pool's event stream.
func (j *Journal) routeLoop(input <-chan model.Event) {
	defer j.wg.Done()

	for {
		select {
		case <-j.ctx.Done():
			return
		case ev, ok := <-input:
			if !ok {
				j.logger.Info("event stream closed")
				return
			}
			j.route(ev)
		}
	}
}

// route dispatches a single event to its type's buffer. Events arrive
// already typed, so dispatch is a type switch rather than a parse.
func (j *Journal) route(ev model.Event) {
	j.mu.Lock()
	j.received++
	j.mu.Unlock()

	var sent bool

	switch e := ev.(type) {
	case *model.SwapEvent:
		sent = j.swapBuf.Push(e)
	case *model.LiquidityEvent:
		sent = j.liquidityBuf.Push(e)
	case *model.FeeEvent:
		sent = j.feeBuf.Push(e)
	case *model.RebalanceEvent:
		sent = j.rebalanceBuf.Push(e)
	default:
		j.logger.Warn("unknown event", "type", ev.Type(), "pool", ev.PoolAddress().String())
		j.mu.Lock()
		j.unknown++
		j.mu.Unlock()
		return
	}

	if sent {
		j.mu.Lock()
		j.routed++
		j.mu.Unlock()
	}
}
