package strategy

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Rebalancer is a pool that can run a strategy over itself.
type Rebalancer interface {
	Address() solana.PublicKey
	Rebalance(s Strategy) ([]Move, error)
}

// PoolSource provides the pools to rebalance each cycle.
type PoolSource interface {
	ActivePools() []Rebalancer
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	Interval    time.Duration // Rebalance interval (default: 1m)
	Concurrency int           // Max pools rebalanced at once (default: 8)
}

// DefaultSchedulerConfig returns sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:    time.Minute,
		Concurrency: 8,
	}
}

// Scheduler periodically runs one strategy across every active pool.
type Scheduler struct {
	cfg    SchedulerConfig
	strat  Strategy
	pools  PoolSource
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new Scheduler.
func NewScheduler(cfg SchedulerConfig, strat Strategy, pools PoolSource, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:    cfg,
		strat:  strat,
		pools:  pools,
		logger: logger,
	}
}

// Start begins the rebalance loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("rebalance scheduler started",
		"strategy", s.strat.Name(),
		"interval", s.cfg.Interval,
		"concurrency", s.cfg.Concurrency,
	)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("rebalance scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run rebalances immediately on start, then per tick.
func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.rebalanceAll()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.rebalanceAll()
		}
	}
}

// rebalanceAll runs the strategy across all pools concurrently.
func (s *Scheduler) rebalanceAll() {
	start := time.Now()

	pools := s.pools.ActivePools()
	if len(pools) == 0 {
		s.logger.Debug("no pools to rebalance")
		return
	}

	// Semaphore for bounded concurrency.
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup
	var moved, errors atomic.Int64

	for _, p := range pools {
		wg.Add(1)
		go func(r Rebalancer) {
			defer wg.Done()

			// Acquire semaphore slot.
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-s.ctx.Done():
				return
			}

			moves, err := r.Rebalance(s.strat)
			if err != nil {
				s.logger.Warn("rebalance failed",
					"pool", r.Address(),
					"strategy", s.strat.Name(),
					"err", err,
				)
				errors.Add(1)
				return
			}

			moved.Add(int64(len(moves)))
		}(p)
	}

	wg.Wait()

	s.logger.Info("rebalance cycle complete",
		"pools", len(pools),
		"moves", moved.Load(),
		"errors", errors.Load(),
		"duration", time.Since(start),
	)
}
