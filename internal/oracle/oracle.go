package oracle

import (
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/shopspring/decimal"
)

// Errors
var (
	ErrInsufficientHistory = errors.New("insufficient candle history")
	ErrStaleFeed           = errors.New("candle feed stale")
	ErrNoPrice             = errors.New("no price observed yet")
	ErrStalePrice          = errors.New("price stale")
	ErrStreamClosed        = errors.New("stream already closed")
)

// VolatilitySource supplies the current volatility estimate as a
// dimensionless fraction (0.04 = 4%). Implementations must be safe for
// concurrent use and must not block: callers hold the pool lock.
type VolatilitySource interface {
	Volatility() (float64, error)
}

// PriceSource supplies the current mid price. Same contract as
// VolatilitySource: concurrent-safe and non-blocking.
type PriceSource interface {
	Price() (decimal.Decimal, error)
}

// StaticSource returns fixed values. It backs deterministic simulation
// and test fixtures.
type StaticSource struct {
	Vol float64
	Px  decimal.Decimal
}

// NewStatic creates a source pinned to the given volatility and price.
func NewStatic(vol float64, price decimal.Decimal) *StaticSource {
	return &StaticSource{Vol: vol, Px: price}
}

func (s *StaticSource) Volatility() (float64, error) { return s.Vol, nil }

func (s *StaticSource) Price() (decimal.Decimal, error) { return s.Px, nil }

// Default bounds for RandomSource draws.
const (
	DefaultRandomMin = 0.01
	DefaultRandomMax = 0.2
)

// RandomSource draws volatility uniformly from [Min, Max). It stands in
// for a live feed during simulation; a fixed seed makes runs
// reproducible.
type RandomSource struct {
	min float64
	max float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom creates a seeded uniform source over [min, max).
func NewRandom(min, max float64, seed uint64) *RandomSource {
	return &RandomSource{
		min: min,
		max: max,
		rng: rand.New(rand.NewPCG(seed, seed)),
	}
}

func (r *RandomSource) Volatility() (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.min + r.rng.Float64()*(r.max-r.min), nil
}
