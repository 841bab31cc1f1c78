package journal

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/st-techno/DLMM/internal/model"
)

func testMeta(seq uint64) model.EventMeta {
	return model.EventMeta{
		ID:   uuid.New(),
		Pool: solana.PublicKey{1},
		Seq:  seq,
		At:   time.Now().UTC(),
	}
}

// oddEvent satisfies model.Event but matches no journal buffer.
type oddEvent struct{ model.EventMeta }

func (oddEvent) Type() model.EventType { return model.EventType("odd") }

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.SwapBufferSize != 5000 {
		t.Errorf("SwapBufferSize = %d, want 5000", cfg.SwapBufferSize)
	}
	if cfg.LiquidityBufferSize != 1000 {
		t.Errorf("LiquidityBufferSize = %d, want 1000", cfg.LiquidityBufferSize)
	}
	if cfg.FeeBufferSize != 5000 {
		t.Errorf("FeeBufferSize = %d, want 5000", cfg.FeeBufferSize)
	}
	if cfg.RebalanceBufferSize != 1000 {
		t.Errorf("RebalanceBufferSize = %d, want 1000", cfg.RebalanceBufferSize)
	}
}

func TestJournal_StartStop(t *testing.T) {
	input := make(chan model.Event, 10)
	j := New(DefaultConfig(), slog.Default())
	j.Attach(input)

	ctx := context.Background()
	if err := j.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := j.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestJournal_RoutesByType(t *testing.T) {
	input := make(chan model.Event, 10)
	j := New(DefaultConfig(), slog.Default())
	j.Attach(input)

	ctx := context.Background()
	if err := j.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer j.Stop(ctx)

	input <- &model.SwapEvent{
		EventMeta: testMeta(1),
		BinID:     2,
		Price:     decimal.RequireFromString("1.5"),
		AmountIn:  decimal.RequireFromString("10000"),
		Fee:       decimal.RequireFromString("0.050025"),
	}
	input <- &model.LiquidityEvent{
		EventMeta: testMeta(2),
		Kind:      model.EventTypeLiquidityAdded,
		BinID:     1,
		Amount:    decimal.RequireFromString("100000"),
	}
	input <- &model.FeeEvent{
		EventMeta: testMeta(3),
		Kind:      model.EventTypeFeeAccrued,
		BinID:     2,
		Amount:    decimal.RequireFromString("0.050025"),
	}
	input <- &model.RebalanceEvent{
		EventMeta: testMeta(4),
		Strategy:  "skim_to_widest",
		FromBin:   2,
		ToBin:     1,
		Amount:    decimal.RequireFromString("49000"),
	}

	time.Sleep(50 * time.Millisecond)

	buffers := j.Buffers()

	swap, ok := buffers.Swaps.TryPop()
	if !ok {
		t.Fatal("expected swap event")
	}
	if swap.BinID != 2 || !swap.Fee.Equal(decimal.RequireFromString("0.050025")) {
		t.Errorf("swap = %+v", swap)
	}

	liq, ok := buffers.Liquidity.TryPop()
	if !ok {
		t.Fatal("expected liquidity event")
	}
	if liq.Kind != model.EventTypeLiquidityAdded || liq.BinID != 1 {
		t.Errorf("liquidity = %+v", liq)
	}

	fee, ok := buffers.Fees.TryPop()
	if !ok {
		t.Fatal("expected fee event")
	}
	if fee.Kind != model.EventTypeFeeAccrued || fee.BinID != 2 {
		t.Errorf("fee = %+v", fee)
	}

	reb, ok := buffers.Rebalances.TryPop()
	if !ok {
		t.Fatal("expected rebalance event")
	}
	if reb.Strategy != "skim_to_widest" || reb.FromBin != 2 || reb.ToBin != 1 {
		t.Errorf("rebalance = %+v", reb)
	}

	stats := j.Stats()
	if stats.EventsReceived != 4 {
		t.Errorf("EventsReceived = %d, want 4", stats.EventsReceived)
	}
	if stats.EventsRouted != 4 {
		t.Errorf("EventsRouted = %d, want 4", stats.EventsRouted)
	}
	if stats.UnknownEvents != 0 {
		t.Errorf("UnknownEvents = %d, want 0", stats.UnknownEvents)
	}
}

func TestJournal_MultipleStreams(t *testing.T) {
	inputA := make(chan model.Event, 10)
	inputB := make(chan model.Event, 10)
	j := New(DefaultConfig(), slog.Default())
	j.Attach(inputA)
	j.Attach(inputB)

	ctx := context.Background()
	if err := j.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer j.Stop(ctx)

	inputA <- &model.SwapEvent{EventMeta: testMeta(1)}
	inputB <- &model.SwapEvent{EventMeta: testMeta(1)}

	time.Sleep(50 * time.Millisecond)

	stats := j.Stats()
	if stats.EventsReceived != 2 {
		t.Errorf("EventsReceived = %d, want 2", stats.EventsReceived)
	}
	if stats.SwapBuffer.Count != 2 {
		t.Errorf("SwapBuffer.Count = %d, want 2", stats.SwapBuffer.Count)
	}
}

func TestJournal_UnknownEvent(t *testing.T) {
	input := make(chan model.Event, 10)
	j := New(DefaultConfig(), slog.Default())
	j.Attach(input)

	ctx := context.Background()
	if err := j.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer j.Stop(ctx)

	input <- oddEvent{testMeta(1)}

	time.Sleep(50 * time.Millisecond)

	stats := j.Stats()
	if stats.UnknownEvents != 1 {
		t.Errorf("UnknownEvents = %d, want 1", stats.UnknownEvents)
	}
	if stats.EventsRouted != 0 {
		t.Errorf("EventsRouted = %d, want 0", stats.EventsRouted)
	}
}

func TestJournal_StopClosesBuffers(t *testing.T) {
	input := make(chan model.Event, 10)
	j := New(DefaultConfig(), slog.Default())
	j.Attach(input)

	ctx := context.Background()
	if err := j.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := j.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	buffers := j.Buffers()
	if buffers.Swaps.Push(&model.SwapEvent{EventMeta: testMeta(1)}) {
		t.Error("swap buffer accepts pushes after Stop")
	}
	if _, ok := buffers.Fees.Pop(); ok {
		t.Error("fee buffer Pop should report closed")
	}
}
