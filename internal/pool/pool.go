package pool

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/st-techno/DLMM/internal/model"
	"github.com/st-techno/DLMM/internal/oracle"
	"github.com/st-techno/DLMM/internal/strategy"
)

// DefaultEventBuffer is the event channel capacity per pool.
const DefaultEventBuffer = 1024

// accrualPrecision bounds pro-rata reward division. Quotients truncate,
// so the distributed total never exceeds the collected fee.
const accrualPrecision int32 = 16

// FeeHook computes the fee charged on a swap. Hooks run under the pool
// lock, so they must be pure and must not call back into the pool.
type FeeHook func(price decimal.Decimal, volatility float64) decimal.Decimal

// DefaultFeeHook builds the standard DLMM fee curve for the given
// parameters: a flat base component (BaseFactor * BinStep) plus a
// volatility component (BinStep * volatility^1.25), floored at MinFee.
func DefaultFeeHook(params model.PoolParams) FeeHook {
	return func(_ decimal.Decimal, volatility float64) decimal.Decimal {
		base := params.BaseFactor.Mul(params.BinStep)
		variable := params.BinStep.Mul(decimal.NewFromFloat(math.Pow(volatility, 1.25)))
		fee := base.Add(variable)
		if fee.Cmp(params.MinFee) < 0 {
			return params.MinFee
		}
		return fee
	}
}

// Spec describes a pool to create.
type Spec struct {
	Params      model.PoolParams
	Bins        []model.Bin
	FeeHook     FeeHook // nil selects DefaultFeeHook(Params)
	EventBuffer int     // event channel capacity (default: DefaultEventBuffer)
}

// Pool is a single DLMM liquidity pool: discrete price bins, the share
// books behind them, and the provider accounts accruing against them.
// All operations are safe for concurrent use; one writer lock serializes
// state changes, so the event sequence totals the pool's history.
type Pool struct {
	params  model.PoolParams
	feeHook FeeHook
	vol     oracle.VolatilitySource
	price   oracle.PriceSource
	logger  *slog.Logger

	mu       sync.RWMutex
	bins     map[int32]*binState
	order    []int32 // bin IDs sorted by lower bound
	accounts map[solana.PublicKey]*account
	seq      uint64
	dropped  int64

	events chan model.Event
}

// New creates a pool from spec. The volatility source is required; the
// price source may be nil, which disables price-aware strategies.
func New(spec Spec, vol oracle.VolatilitySource, price oracle.PriceSource, logger *slog.Logger) (*Pool, error) {
	if vol == nil {
		return nil, fmt.Errorf("volatility source required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	feeHook := spec.FeeHook
	if feeHook == nil {
		feeHook = DefaultFeeHook(spec.Params)
	}
	bufSize := spec.EventBuffer
	if bufSize <= 0 {
		bufSize = DefaultEventBuffer
	}

	p := &Pool{
		params:   spec.Params,
		feeHook:  feeHook,
		vol:      vol,
		price:    price,
		logger:   logger.With("pool", spec.Params.Address.String()),
		bins:     make(map[int32]*binState),
		accounts: make(map[solana.PublicKey]*account),
		events:   make(chan model.Event, bufSize),
	}

	for _, b := range spec.Bins {
		if err := p.addBinLocked(b); err != nil {
			return nil, fmt.Errorf("bin %d: %w", b.ID, err)
		}
	}

	return p, nil
}

// Address returns the pool's on-chain address.
func (p *Pool) Address() solana.PublicKey {
	return p.params.Address
}

// Params returns the pool's immutable parameters.
func (p *Pool) Params() model.PoolParams {
	return p.params
}

// Events returns the pool's event stream. The channel is never closed;
// consumers stop through their own lifecycle.
func (p *Pool) Events() <-chan model.Event {
	return p.events
}

// Swap fills amount at price against the covering bin. The fee comes
// out of the fill and accrues pro rata to the bin's share holders; the
// remainder goes back to the aggressor. An empty aggressor defaults to
// "taker".
func (p *Pool) Swap(price, amount decimal.Decimal, aggressor string) (model.SwapResult, error) {
	if !amount.IsPositive() {
		return model.SwapResult{}, ErrInvalidAmount
	}
	if aggressor == "" {
		aggressor = "taker"
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	bs, ok := p.findBinLocked(price)
	if !ok {
		return model.SwapResult{}, ErrNoBinForPrice
	}
	if bs.bin.Liquidity.Cmp(amount) < 0 {
		return model.SwapResult{}, ErrInsufficientLiquidity
	}

	vol, err := p.vol.Volatility()
	if err != nil {
		return model.SwapResult{}, fmt.Errorf("%w: %v", ErrVolatilityUnavailable, err)
	}

	fee := p.feeHook(price, vol)
	if fee.Cmp(amount) >= 0 {
		return model.SwapResult{}, ErrFeeExceedsAmount
	}
	received := amount.Sub(fee)

	bs.bin.Liquidity = bs.bin.Liquidity.Sub(amount)

	p.emit(&model.SwapEvent{
		EventMeta:  p.nextMeta(),
		BinID:      bs.bin.ID,
		Price:      price,
		AmountIn:   amount,
		Fee:        fee,
		AmountOut:  received,
		Aggressor:  aggressor,
		Volatility: vol,
	})

	p.accrueLocked(bs, fee)

	p.logger.Debug("swap filled",
		"bin", bs.bin.ID,
		"price", price,
		"amount", amount,
		"fee", fee,
		"volatility", vol,
	)

	return model.SwapResult{
		BinID:      bs.bin.ID,
		Filled:     amount,
		Fee:        fee,
		Received:   received,
		Volatility: vol,
	}, nil
}

// AddLiquidity deposits amount into a bin, minting shares 1:1.
func (p *Pool) AddLiquidity(provider solana.PublicKey, binID int32, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	bs, ok := p.bins[binID]
	if !ok {
		return ErrUnknownBin
	}

	bs.bin.Liquidity = bs.bin.Liquidity.Add(amount)
	bs.shares[provider] = bs.shares[provider].Add(amount)

	acct, ok := p.accounts[provider]
	if !ok {
		acct = newAccount(provider)
		p.accounts[provider] = acct
	}
	acct.totalShares = acct.totalShares.Add(amount)
	acct.positions[binID] = acct.positions[binID].Add(amount)

	p.emit(&model.LiquidityEvent{
		EventMeta:      p.nextMeta(),
		Kind:           model.EventTypeLiquidityAdded,
		BinID:          binID,
		Provider:       provider,
		Amount:         amount,
		LiquidityAfter: bs.bin.Liquidity,
	})

	p.logger.Debug("liquidity added",
		"bin", binID,
		"provider", provider,
		"amount", amount,
	)

	return nil
}

// RemoveLiquidity burns shares and withdraws the backing liquidity.
// Swaps deplete bins without burning shares, so a withdrawal can fail
// on bin liquidity even when the provider holds enough shares.
func (p *Pool) RemoveLiquidity(provider solana.PublicKey, binID int32, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	bs, ok := p.bins[binID]
	if !ok {
		return ErrUnknownBin
	}

	held := bs.shares[provider]
	if held.Cmp(amount) < 0 {
		return ErrInsufficientShares
	}

	if err := bs.adjustLiquidity(amount.Neg()); err != nil {
		return err
	}

	// Burn across all three books; entries at zero are dropped.
	remaining := held.Sub(amount)
	if remaining.IsZero() {
		delete(bs.shares, provider)
	} else {
		bs.shares[provider] = remaining
	}

	acct := p.accounts[provider]
	acct.totalShares = acct.totalShares.Sub(amount)
	pos := acct.positions[binID].Sub(amount)
	if pos.IsZero() {
		delete(acct.positions, binID)
	} else {
		acct.positions[binID] = pos
	}

	p.emit(&model.LiquidityEvent{
		EventMeta:      p.nextMeta(),
		Kind:           model.EventTypeLiquidityRemoved,
		BinID:          binID,
		Provider:       provider,
		Amount:         amount,
		LiquidityAfter: bs.bin.Liquidity,
	})

	p.logger.Debug("liquidity removed",
		"bin", binID,
		"provider", provider,
		"amount", amount,
	)

	return nil
}

// ClaimRewards withdraws a provider's accrued fee rewards. Claiming
// with nothing accrued returns zero without error.
func (p *Pool) ClaimRewards(provider solana.PublicKey) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[provider]
	if !ok {
		return decimal.Zero, ErrUnknownProvider
	}

	claimed := acct.rewards
	acct.rewards = decimal.Zero

	p.emit(&model.FeeEvent{
		EventMeta: p.nextMeta(),
		Kind:      model.EventTypeFeeClaimed,
		BinID:     model.NoBin,
		Provider:  provider,
		Amount:    claimed,
	})

	p.logger.Debug("rewards claimed", "provider", provider, "amount", claimed)

	return claimed, nil
}

// ProviderSummary reports a provider's aggregate position.
func (p *Pool) ProviderSummary(provider solana.PublicKey) (model.ProviderSummary, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	acct, ok := p.accounts[provider]
	if !ok {
		return model.ProviderSummary{}, ErrUnknownProvider
	}

	positions := make(map[int32]decimal.Decimal, len(acct.positions))
	for id, shares := range acct.positions {
		positions[id] = shares
	}

	return model.ProviderSummary{
		Address:     provider,
		TotalShares: acct.totalShares,
		Positions:   positions,
		Rewards:     acct.rewards,
	}, nil
}

// AddBin adds a new bin to a live pool.
func (p *Pool) AddBin(b model.Bin) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addBinLocked(b)
}

// Bins returns a snapshot of all bins sorted by lower bound.
func (p *Pool) Bins() []model.Bin {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.binsLocked()
}

// Liquidity returns the total liquidity across all bins.
func (p *Pool) Liquidity() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.liquidityLocked()
}

// Rebalance runs a strategy over the pool and applies its plan
// atomically: the whole plan is validated against a working copy before
// any bin changes, so either every move lands or none do.
func (p *Pool) Rebalance(s strategy.Strategy) ([]strategy.Move, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	vol, err := p.vol.Volatility()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVolatilityUnavailable, err)
	}

	view := strategy.View{
		Pool:       p.params.Address,
		Bins:       p.binsLocked(),
		Volatility: vol,
	}
	if p.price != nil {
		if mid, err := p.price.Price(); err == nil {
			view.Mid = &mid
		}
	}

	moves := s.Plan(view)
	if len(moves) == 0 {
		return nil, nil
	}

	if err := p.validatePlanLocked(moves); err != nil {
		return nil, err
	}

	for _, m := range moves {
		p.bins[m.FromBin].bin.Liquidity = p.bins[m.FromBin].bin.Liquidity.Sub(m.Amount)
		p.bins[m.ToBin].bin.Liquidity = p.bins[m.ToBin].bin.Liquidity.Add(m.Amount)

		p.emit(&model.RebalanceEvent{
			EventMeta: p.nextMeta(),
			Strategy:  s.Name(),
			FromBin:   m.FromBin,
			ToBin:     m.ToBin,
			Amount:    m.Amount,
		})
	}

	p.logger.Info("rebalanced",
		"strategy", s.Name(),
		"moves", len(moves),
	)

	return moves, nil
}

// PoolStats is a point-in-time operational snapshot.
type PoolStats struct {
	Address       solana.PublicKey
	Bins          int
	Providers     int
	Liquidity     decimal.Decimal
	EventsEmitted uint64
	EventsDropped int64
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return PoolStats{
		Address:       p.params.Address,
		Bins:          len(p.bins),
		Providers:     len(p.accounts),
		Liquidity:     p.liquidityLocked(),
		EventsEmitted: p.seq,
		EventsDropped: p.dropped,
	}
}

// addBinLocked validates and inserts a bin. Caller holds mu or owns the
// pool exclusively during construction.
func (p *Pool) addBinLocked(b model.Bin) error {
	if b.Upper.Cmp(b.Lower) <= 0 {
		return ErrInvalidBounds
	}
	if b.Liquidity.IsNegative() {
		return ErrNegativeLiquidity
	}
	if _, exists := p.bins[b.ID]; exists {
		return ErrDuplicateBin
	}
	for _, id := range p.order {
		other := p.bins[id].bin
		// Half-open ranges [lower, upper) overlap unless disjoint.
		if b.Lower.Cmp(other.Upper) < 0 && other.Lower.Cmp(b.Upper) < 0 {
			return ErrBinOverlap
		}
	}

	p.bins[b.ID] = newBinState(b)
	p.order = append(p.order, b.ID)
	sort.Slice(p.order, func(i, j int) bool {
		return p.bins[p.order[i]].bin.Lower.Cmp(p.bins[p.order[j]].bin.Lower) < 0
	})

	return nil
}

// findBinLocked locates the bin covering price. Bins are disjoint and
// order is sorted by lower bound, so upper bounds ascend too.
func (p *Pool) findBinLocked(price decimal.Decimal) (*binState, bool) {
	i := sort.Search(len(p.order), func(i int) bool {
		return p.bins[p.order[i]].bin.Upper.Cmp(price) > 0
	})
	if i == len(p.order) {
		return nil, false
	}
	bs := p.bins[p.order[i]]
	if !bs.bin.Contains(price) {
		return nil, false
	}
	return bs, true
}

// accrueLocked distributes a fee pro rata across the bin's share book.
// Bins with no shares accrue nothing; per-holder quotients truncate at
// accrualPrecision, leaving any remainder un-accrued.
func (p *Pool) accrueLocked(bs *binState, fee decimal.Decimal) {
	total := bs.totalShares()
	if !total.IsPositive() {
		return
	}

	for _, addr := range bs.holders() {
		reward, _ := fee.Mul(bs.shares[addr]).QuoRem(total, accrualPrecision)
		if !reward.IsPositive() {
			continue
		}

		acct := p.accounts[addr]
		acct.rewards = acct.rewards.Add(reward)

		p.emit(&model.FeeEvent{
			EventMeta: p.nextMeta(),
			Kind:      model.EventTypeFeeAccrued,
			BinID:     bs.bin.ID,
			Provider:  addr,
			Amount:    reward,
		})
	}
}

// binsLocked snapshots bins in lower-bound order. Caller holds mu.
func (p *Pool) binsLocked() []model.Bin {
	out := make([]model.Bin, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.bins[id].bin)
	}
	return out
}

// liquidityLocked sums bin liquidity. Caller holds mu.
func (p *Pool) liquidityLocked() decimal.Decimal {
	total := decimal.Zero
	for _, bs := range p.bins {
		total = total.Add(bs.bin.Liquidity)
	}
	return total
}

// validatePlanLocked checks a plan against a working copy of bin
// liquidity. Moves apply in order, so a later move may spend liquidity
// an earlier move deposited.
func (p *Pool) validatePlanLocked(moves []strategy.Move) error {
	working := make(map[int32]decimal.Decimal, len(p.bins))
	for id, bs := range p.bins {
		working[id] = bs.bin.Liquidity
	}

	for _, m := range moves {
		if !m.Amount.IsPositive() {
			return fmt.Errorf("%w: non-positive amount %s", ErrInvalidMove, m.Amount)
		}
		if m.FromBin == m.ToBin {
			return fmt.Errorf("%w: bin %d moves to itself", ErrInvalidMove, m.FromBin)
		}
		from, ok := working[m.FromBin]
		if !ok {
			return fmt.Errorf("%w: unknown source bin %d", ErrInvalidMove, m.FromBin)
		}
		if _, ok := working[m.ToBin]; !ok {
			return fmt.Errorf("%w: unknown target bin %d", ErrInvalidMove, m.ToBin)
		}
		next := from.Sub(m.Amount)
		if next.IsNegative() {
			return fmt.Errorf("%w: bin %d overdrawn by %s", ErrInvalidMove, m.FromBin, next.Abs())
		}
		working[m.FromBin] = next
		working[m.ToBin] = working[m.ToBin].Add(m.Amount)
	}

	return nil
}

// nextMeta stamps the next event. Caller holds mu, which keeps the
// per-pool sequence strictly increasing.
func (p *Pool) nextMeta() model.EventMeta {
	p.seq++
	return model.EventMeta{
		ID:   uuid.New(),
		Pool: p.params.Address,
		Seq:  p.seq,
		At:   time.Now().UTC(),
	}
}

// emit publishes without blocking: under pressure the oldest queued
// event is dropped and counted rather than stalling the operation.
func (p *Pool) emit(ev model.Event) {
	select {
	case p.events <- ev:
	default:
		select {
		case <-p.events:
			p.dropped++
		default:
		}
		select {
		case p.events <- ev:
		default:
			p.dropped++
		}
	}
}
