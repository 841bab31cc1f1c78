package pool

import (
	"bytes"
	"log/slog"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/st-techno/DLMM/internal/oracle"
	"github.com/st-techno/DLMM/internal/strategy"
)

// Service is the pool registry. It creates pools, serves lookups, and
// exposes the active set to the rebalance scheduler.
type Service struct {
	logger *slog.Logger

	mu    sync.RWMutex
	pools map[solana.PublicKey]*Pool
}

// NewService creates an empty registry.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger: logger,
		pools:  make(map[solana.PublicKey]*Pool),
	}
}

// CreatePool builds a pool from spec and registers it under its
// address.
func (s *Service) CreatePool(spec Spec, vol oracle.VolatilitySource, price oracle.PriceSource) (*Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pools[spec.Params.Address]; exists {
		return nil, ErrPoolExists
	}

	p, err := New(spec, vol, price, s.logger)
	if err != nil {
		return nil, err
	}

	s.pools[spec.Params.Address] = p
	s.logger.Info("pool created",
		"pool", spec.Params.Address.String(),
		"bins", len(spec.Bins),
	)

	return p, nil
}

// Get looks up a pool by address.
func (s *Service) Get(address solana.PublicKey) (*Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pools[address]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return p, nil
}

// List returns all pools sorted by address.
func (s *Service) List() []*Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Pool, 0, len(s.pools))
	for _, p := range s.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Address(), out[j].Address()
		return bytes.Compare(a[:], b[:]) < 0
	})
	return out
}

// ActivePools adapts the registry for the rebalance scheduler.
func (s *Service) ActivePools() []strategy.Rebalancer {
	pools := s.List()
	out := make([]strategy.Rebalancer, len(pools))
	for i, p := range pools {
		out[i] = p
	}
	return out
}

// ServiceStats aggregates registry-wide statistics.
type ServiceStats struct {
	Pools          int
	TotalLiquidity decimal.Decimal
	EventsEmitted  uint64
	EventsDropped  int64
}

// Stats sums per-pool statistics across the registry.
func (s *Service) Stats() ServiceStats {
	stats := ServiceStats{TotalLiquidity: decimal.Zero}
	for _, p := range s.List() {
		ps := p.Stats()
		stats.Pools++
		stats.TotalLiquidity = stats.TotalLiquidity.Add(ps.Liquidity)
		stats.EventsEmitted += ps.EventsEmitted
		stats.EventsDropped += ps.EventsDropped
	}
	return stats
}
