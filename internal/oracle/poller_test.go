package oracle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

type fakeFetcher struct {
	mu    sync.Mutex
	px    decimal.Decimal
	err   error
	calls int
}

func (f *fakeFetcher) FetchPrice(ctx context.Context, mint, vsToken solana.PublicKey) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return decimal.Decimal{}, f.err
	}
	return f.px, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPricePoller_Poll(t *testing.T) {
	f := &fakeFetcher{px: decimal.RequireFromString("178.5")}
	p := NewPricePoller(DefaultPollerConfig(), f, testMintSOL, testMintUSDC, nil)
	p.ctx, p.cancel = context.WithCancel(context.Background())
	defer p.cancel()

	p.poll()

	got, err := p.Price()
	if err != nil {
		t.Fatalf("Price() error = %v", err)
	}
	if !got.Equal(decimal.RequireFromString("178.5")) {
		t.Errorf("Price() = %s, want 178.5", got)
	}

	stats := p.Stats()
	if stats.Fetches != 1 {
		t.Errorf("Fetches = %d, want 1", stats.Fetches)
	}
	if stats.Errors != 0 {
		t.Errorf("Errors = %d, want 0", stats.Errors)
	}
}

func TestPricePoller_NoPriceBeforeFirstPoll(t *testing.T) {
	p := NewPricePoller(DefaultPollerConfig(), &fakeFetcher{}, testMintSOL, testMintUSDC, nil)

	if _, err := p.Price(); !errors.Is(err, ErrNoPrice) {
		t.Fatalf("Price() error = %v, want ErrNoPrice", err)
	}
}

func TestPricePoller_FetchErrorCounted(t *testing.T) {
	f := &fakeFetcher{err: errors.New("boom")}
	p := NewPricePoller(DefaultPollerConfig(), f, testMintSOL, testMintUSDC, nil)
	p.ctx, p.cancel = context.WithCancel(context.Background())
	defer p.cancel()

	p.poll()

	if _, err := p.Price(); !errors.Is(err, ErrNoPrice) {
		t.Fatalf("Price() error = %v, want ErrNoPrice after failed poll", err)
	}
	if stats := p.Stats(); stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
}

func TestPricePoller_Stale(t *testing.T) {
	cfg := DefaultPollerConfig()
	cfg.StaleAfter = 20 * time.Millisecond

	f := &fakeFetcher{px: decimal.RequireFromString("1")}
	p := NewPricePoller(cfg, f, testMintSOL, testMintUSDC, nil)
	p.ctx, p.cancel = context.WithCancel(context.Background())
	defer p.cancel()

	p.poll()

	if _, err := p.Price(); err != nil {
		t.Fatalf("Price() error = %v, want nil while fresh", err)
	}

	time.Sleep(50 * time.Millisecond)

	if _, err := p.Price(); !errors.Is(err, ErrStalePrice) {
		t.Fatalf("Price() error = %v, want ErrStalePrice", err)
	}
}

func TestPricePoller_Lifecycle(t *testing.T) {
	cfg := DefaultPollerConfig()
	cfg.Interval = time.Hour // only the immediate poll should fire

	f := &fakeFetcher{px: decimal.RequireFromString("2")}
	p := NewPricePoller(cfg, f, testMintSOL, testMintUSDC, nil)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Wait for the immediate poll.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := p.Price(); err == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := p.Price(); err != nil {
		t.Fatalf("Price() error = %v after immediate poll", err)
	}
	if got := f.callCount(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
