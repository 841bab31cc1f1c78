package oracle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// PriceFetcher fetches a spot price from a remote API.
type PriceFetcher interface {
	FetchPrice(ctx context.Context, mint, vsToken solana.PublicKey) (decimal.Decimal, error)
}

// PollerConfig holds price poller configuration.
type PollerConfig struct {
	Interval   time.Duration // Poll interval (default: 5s)
	Timeout    time.Duration // Per-fetch timeout (default: 10s)
	StaleAfter time.Duration // Price returns ErrStalePrice beyond this age (default: 30s)
}

// DefaultPollerConfig returns sensible defaults.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:   5 * time.Second,
		Timeout:    10 * time.Second,
		StaleAfter: 30 * time.Second,
	}
}

// PollerStats contains runtime statistics.
type PollerStats struct {
	Fetches int64
	Errors  int64
	LastAt  time.Time
}

// PricePoller periodically fetches a pair price and serves the last
// observation as a non-blocking PriceSource.
type PricePoller struct {
	cfg     PollerConfig
	fetcher PriceFetcher
	mint    solana.PublicKey
	vsToken solana.PublicKey
	logger  *slog.Logger

	mu      sync.RWMutex
	last    decimal.Decimal
	lastAt  time.Time
	fetches int64
	errs    int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPricePoller creates a new PricePoller.
func NewPricePoller(cfg PollerConfig, fetcher PriceFetcher, mint, vsToken solana.PublicKey, logger *slog.Logger) *PricePoller {
	if logger == nil {
		logger = slog.Default()
	}
	return &PricePoller{
		cfg:     cfg,
		fetcher: fetcher,
		mint:    mint,
		vsToken: vsToken,
		logger:  logger,
	}
}

// Start begins the polling loop.
func (p *PricePoller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("price poller started",
		"mint", p.mint,
		"vs_token", p.vsToken,
		"interval", p.cfg.Interval,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *PricePoller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("price poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Price returns the last observed price.
func (p *PricePoller) Price() (decimal.Decimal, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.lastAt.IsZero() {
		return decimal.Decimal{}, ErrNoPrice
	}
	if p.cfg.StaleAfter > 0 && time.Since(p.lastAt) > p.cfg.StaleAfter {
		return decimal.Decimal{}, ErrStalePrice
	}

	return p.last, nil
}

// Stats returns current poller statistics.
func (p *PricePoller) Stats() PollerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PollerStats{
		Fetches: p.fetches,
		Errors:  p.errs,
		LastAt:  p.lastAt,
	}
}

// run polls immediately on start, then per tick.
func (p *PricePoller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.poll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

// poll fetches one price and caches it.
func (p *PricePoller) poll() {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	px, err := p.fetcher.FetchPrice(ctx, p.mint, p.vsToken)
	if err != nil {
		p.mu.Lock()
		p.errs++
		p.mu.Unlock()

		p.logger.Warn("price fetch failed",
			"mint", p.mint,
			"err", err,
		)
		return
	}

	p.mu.Lock()
	p.last = px
	p.lastAt = time.Now()
	p.fetches++
	p.mu.Unlock()

	p.logger.Debug("price updated", "mint", p.mint, "price", px)
}
