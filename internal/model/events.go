package model

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType discriminates journaled pool events.
type EventType string

const (
	EventTypeSwap             EventType = "swap"
	EventTypeLiquidityAdded   EventType = "liquidity_added"
	EventTypeLiquidityRemoved EventType = "liquidity_removed"
	EventTypeFeeAccrued       EventType = "fee_accrued"
	EventTypeFeeClaimed       EventType = "fee_claimed"
	EventTypeRebalance        EventType = "rebalance"
)

// NoBin marks fee events that are not scoped to a single bin (claims).
const NoBin int32 = -1

// Event is implemented by every pool event that can be journaled.
type Event interface {
	EventID() uuid.UUID
	Type() EventType
	PoolAddress() solana.PublicKey
	Sequence() uint64
	Time() time.Time
}

// EventMeta carries the fields shared by all pool events. Sequence numbers
// are per-pool, strictly increasing, and never reused.
type EventMeta struct {
	ID   uuid.UUID        // Globally unique event ID
	Pool solana.PublicKey // Emitting pool
	Seq  uint64           // Per-pool sequence number
	At   time.Time        // Emission time
}

func (m EventMeta) EventID() uuid.UUID            { return m.ID }
func (m EventMeta) PoolAddress() solana.PublicKey { return m.Pool }
func (m EventMeta) Sequence() uint64              { return m.Seq }
func (m EventMeta) Time() time.Time               { return m.At }

// SwapEvent records a filled swap.
type SwapEvent struct {
	EventMeta
	BinID      int32           // Bin the swap was filled against
	Price      decimal.Decimal // Execution price
	AmountIn   decimal.Decimal // Amount taken from the bin
	Fee        decimal.Decimal // Fee charged
	AmountOut  decimal.Decimal // AmountIn minus Fee
	Aggressor  string          // Side that crossed, "taker" by default
	Volatility float64         // Volatility the fee was priced with
}

func (SwapEvent) Type() EventType { return EventTypeSwap }

// LiquidityEvent records a provider adding or removing liquidity in a bin.
type LiquidityEvent struct {
	EventMeta
	Kind           EventType        // EventTypeLiquidityAdded or EventTypeLiquidityRemoved
	BinID          int32            // Affected bin
	Provider       solana.PublicKey // Provider wallet
	Amount         decimal.Decimal  // Liquidity moved
	LiquidityAfter decimal.Decimal  // Bin liquidity after the change
}

func (e LiquidityEvent) Type() EventType { return e.Kind }

// FeeEvent records fee rewards accruing to a provider (per bin, pro rata to
// shares) or being claimed (account-wide, BinID == NoBin).
type FeeEvent struct {
	EventMeta
	Kind     EventType        // EventTypeFeeAccrued or EventTypeFeeClaimed
	BinID    int32            // Bin the fee accrued in, NoBin for claims
	Provider solana.PublicKey // Provider wallet
	Amount   decimal.Decimal  // Reward amount
}

func (e FeeEvent) Type() EventType { return e.Kind }

// RebalanceEvent records one applied move of a reallocation plan.
type RebalanceEvent struct {
	EventMeta
	Strategy string          // Name of the strategy that planned the move
	FromBin  int32           // Source bin
	ToBin    int32           // Destination bin
	Amount   decimal.Decimal // Liquidity moved
}

func (RebalanceEvent) Type() EventType { return EventTypeRebalance }
