// simulator exercises a pool in memory, without a database: it seeds
// bins, runs swaps against an oracle, claims rewards, rebalances, and
// prints every journaled event to the console.
//
// Usage:
//
//	go run ./cmd/simulator -mode=reference
//	go run ./cmd/simulator -mode=random -swaps=2000 -seed=7
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/st-techno/DLMM/internal/model"
	"github.com/st-techno/DLMM/internal/oracle"
	"github.com/st-techno/DLMM/internal/pool"
	"github.com/st-techno/DLMM/internal/strategy"
)

func main() {
	mode := flag.String("mode", "reference", "scenario to run: reference or random")
	swaps := flag.Int("swaps", 2000, "number of swaps in random mode")
	seed := flag.Uint64("seed", 42, "rng seed in random mode")
	verbose := flag.Bool("verbose", false, "print full event JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var err error
	switch *mode {
	case "reference":
		err = runReference(*verbose, logger)
	case "random":
		err = runRandom(*swaps, *seed, *verbose, logger)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		logger.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

// runReference walks one pool through a full lifecycle with fixed
// numbers: deposit, swap, accrual, claim, rebalance.
func runReference(verbose bool, logger *slog.Logger) error {
	d := decimal.RequireFromString

	params := model.PoolParams{
		Address:    solana.PublicKey{1},
		BaseMint:   solana.PublicKey{2},
		QuoteMint:  solana.PublicKey{3},
		BaseFactor: d("0.0005"),
		BinStep:    d("0.05"),
		MinFee:     d("0.0001"),
	}
	bins := []model.Bin{
		{ID: 1, Lower: d("0"), Upper: d("1"), Liquidity: d("500000")},
		{ID: 2, Lower: d("1"), Upper: d("2"), Liquidity: d("500000")},
		{ID: 3, Lower: d("2"), Upper: d("3"), Liquidity: d("500000")},
	}

	src := oracle.NewStatic(1.0, d("1.5"))
	p, err := pool.New(pool.Spec{Params: params, Bins: bins}, src, src, logger)
	if err != nil {
		return err
	}

	alice := solana.PublicKey{0xA1}

	fmt.Println("=== deposit: alice adds 100000 to bin 1 ===")
	if err := p.AddLiquidity(alice, 1, d("100000")); err != nil {
		return err
	}
	drainEvents(p, verbose)

	fmt.Println("=== swap: 10000 at price 1.5, volatility 1.0 ===")
	res, err := p.Swap(d("1.5"), d("10000"), "taker")
	if err != nil {
		return err
	}
	fmt.Printf("filled bin=%d fee=%s received=%s\n", res.BinID, res.Fee, res.Received)
	drainEvents(p, verbose)

	fmt.Println("=== claim: alice claims accrued rewards ===")
	reward, err := p.ClaimRewards(alice)
	if err != nil {
		return err
	}
	fmt.Printf("claimed %s\n", reward)
	drainEvents(p, verbose)

	fmt.Println("=== rebalance: skim 10% of heavy bins into the widest ===")
	moves, err := p.Rebalance(strategy.NewSkimToWidest())
	if err != nil {
		return err
	}
	fmt.Printf("applied %d moves\n", len(moves))
	drainEvents(p, verbose)

	printSummary(p, alice)
	return nil
}

// runRandom seeds a bin ladder, then fires seeded random swaps at it.
func runRandom(swaps int, seed uint64, verbose bool, logger *slog.Logger) error {
	d := decimal.RequireFromString

	params := model.PoolParams{
		Address:    solana.PublicKey{1},
		BaseMint:   solana.PublicKey{2},
		QuoteMint:  solana.PublicKey{3},
		BaseFactor: d("0.0005"),
		BinStep:    d("0.005"),
		MinFee:     d("0.0001"),
	}

	anchor := d("100")
	bins, err := pool.Ladder(anchor, params.BinStep, d("250000"), 21)
	if err != nil {
		return err
	}

	vol := oracle.NewRandom(0.01, 0.2, seed)
	p, err := pool.New(pool.Spec{Params: params, Bins: bins}, vol, oracle.NewStatic(0, anchor), logger)
	if err != nil {
		return err
	}

	providers := []solana.PublicKey{{0xA1}, {0xB2}, {0xC3}}
	rng := rand.New(rand.NewPCG(seed, seed))

	fmt.Println("=== seeding provider positions ===")
	for _, lp := range providers {
		for j := 0; j < 5; j++ {
			binID := int32(rng.IntN(len(bins)))
			if err := p.AddLiquidity(lp, binID, d("50000")); err != nil {
				return err
			}
		}
	}
	drainEvents(p, verbose)

	fmt.Printf("=== running %d random swaps ===\n", swaps)
	var filled, missed, rejected int
	for i := 0; i < swaps; i++ {
		price := decimal.NewFromFloat(100 * (1 + (rng.Float64()-0.5)*0.02))
		amount := decimal.NewFromFloat(100 + rng.Float64()*900)

		_, err := p.Swap(price, amount, "sim")
		switch {
		case err == nil:
			filled++
		case errors.Is(err, pool.ErrNoBinForPrice):
			missed++
		default:
			rejected++
		}
		drainEvents(p, verbose)

		if (i+1)%500 == 0 {
			stats := p.Stats()
			logger.Info("progress",
				"swaps", i+1,
				"filled", filled,
				"missed", missed,
				"liquidity", stats.Liquidity,
				"events", stats.EventsEmitted,
			)
		}
	}
	fmt.Printf("swaps done: filled=%d missed=%d rejected=%d\n", filled, missed, rejected)

	fmt.Println("=== claiming rewards ===")
	for _, lp := range providers {
		reward, err := p.ClaimRewards(lp)
		if err != nil {
			return err
		}
		fmt.Printf("provider %s claimed %s\n", short(lp), reward)
	}
	drainEvents(p, verbose)

	fmt.Println("=== rebalancing ===")
	moves, err := p.Rebalance(strategy.NewSkimToWidest())
	if err != nil {
		return err
	}
	fmt.Printf("applied %d moves\n", len(moves))
	drainEvents(p, verbose)

	printSummary(p, providers...)
	return nil
}

// drainEvents prints everything currently queued on the pool's event
// channel. Pool operations are synchronous, so after an operation
// returns its events are ready.
func drainEvents(p *pool.Pool, verbose bool) {
	for {
		select {
		case ev := <-p.Events():
			printEvent(ev, verbose)
		default:
			return
		}
	}
}

func printEvent(ev model.Event, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(ev, "", "  ")
		fmt.Printf("[%s] %s\n", strings.ToUpper(string(ev.Type())), data)
		return
	}

	switch e := ev.(type) {
	case *model.SwapEvent:
		fmt.Printf("[SWAP] seq=%d bin=%d price=%s in=%s fee=%s out=%s vol=%.4f\n",
			e.Sequence(), e.BinID, e.Price, e.AmountIn, e.Fee, e.AmountOut, e.Volatility)
	case *model.LiquidityEvent:
		fmt.Printf("[LIQUIDITY] seq=%d kind=%s bin=%d provider=%s amount=%s after=%s\n",
			e.Sequence(), e.Kind, e.BinID, short(e.Provider), e.Amount, e.LiquidityAfter)
	case *model.FeeEvent:
		fmt.Printf("[FEE] seq=%d kind=%s bin=%d provider=%s amount=%s\n",
			e.Sequence(), e.Kind, e.BinID, short(e.Provider), e.Amount)
	case *model.RebalanceEvent:
		fmt.Printf("[REBALANCE] seq=%d strategy=%s from=%d to=%d amount=%s\n",
			e.Sequence(), e.Strategy, e.FromBin, e.ToBin, e.Amount)
	default:
		fmt.Printf("[%s] seq=%d\n", strings.ToUpper(string(ev.Type())), ev.Sequence())
	}
}

func printSummary(p *pool.Pool, providers ...solana.PublicKey) {
	stats := p.Stats()
	fmt.Println("=== final state ===")
	fmt.Printf("bins=%d providers=%d liquidity=%s events=%d dropped=%d\n",
		stats.Bins, stats.Providers, stats.Liquidity, stats.EventsEmitted, stats.EventsDropped)

	for _, b := range p.Bins() {
		fmt.Printf("bin %2d [%s, %s) liquidity=%s\n", b.ID, b.Lower, b.Upper, b.Liquidity)
	}

	for _, lp := range providers {
		summary, err := p.ProviderSummary(lp)
		if err != nil {
			continue
		}
		fmt.Printf("provider %s shares=%s unclaimed=%s positions=%d\n",
			short(lp), summary.TotalShares, summary.Rewards, len(summary.Positions))
	}
}

func short(key solana.PublicKey) string {
	return key.String()[:8]
}
