package oracle

import (
	"math"
	"sync"
	"time"

	"github.com/markcheno/go-talib"
)

// Candle is one OHLCV bar from a market data stream.
type Candle struct {
	Time   int64 // Bar open time, milliseconds since epoch
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Final  bool // True once the bar has closed
}

// Supported realized volatility estimators.
const (
	EstimatorATR    = "atr"    // average true range normalized by last close
	EstimatorStdDev = "stddev" // standard deviation of log returns
)

// RealizedConfig configures a RealizedVol source.
type RealizedConfig struct {
	Estimator      string        // "atr" or "stddev" (default: "atr")
	Window         int           // Lookback in candles (default: 20)
	MaxStale       time.Duration // Reject estimates older than this (0 = no check)
	Annualize      bool          // Scale by sqrt(PeriodsPerYear)
	PeriodsPerYear float64       // Candle periods per year (default: 525600, 1m bars)
}

// DefaultRealizedConfig returns sensible defaults.
func DefaultRealizedConfig() RealizedConfig {
	return RealizedConfig{
		Estimator:      EstimatorATR,
		Window:         20,
		PeriodsPerYear: 525600,
	}
}

// RealizedVol estimates volatility from a rolling candle window. Feed it
// closed candles via Update; Volatility serves from the buffered window
// without blocking. Estimates need Window+1 candles to warm up.
type RealizedVol struct {
	cfg RealizedConfig

	mu      sync.Mutex
	highs   []float64
	lows    []float64
	closes  []float64
	updated time.Time
}

// NewRealizedVol creates an estimator, applying defaults for zero fields.
func NewRealizedVol(cfg RealizedConfig) *RealizedVol {
	if cfg.Estimator == "" {
		cfg.Estimator = EstimatorATR
	}
	if cfg.Window <= 0 {
		cfg.Window = 20
	}
	if cfg.PeriodsPerYear <= 0 {
		cfg.PeriodsPerYear = 525600
	}
	return &RealizedVol{cfg: cfg}
}

// Update appends a candle to the window.
func (r *RealizedVol) Update(c Candle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.highs = append(r.highs, c.High)
	r.lows = append(r.lows, c.Low)
	r.closes = append(r.closes, c.Close)

	// Trim to a bounded history; talib only needs Window+1 points.
	if max := r.cfg.Window * 4; len(r.closes) > max {
		trim := len(r.closes) - max
		r.highs = r.highs[trim:]
		r.lows = r.lows[trim:]
		r.closes = r.closes[trim:]
	}

	r.updated = time.Now()
}

// Samples returns the number of candles currently buffered.
func (r *RealizedVol) Samples() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.closes)
}

// Volatility returns the current estimate, or ErrInsufficientHistory
// until the window has warmed up and ErrStaleFeed once the last candle
// is older than MaxStale.
func (r *RealizedVol) Volatility() (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.closes) < r.cfg.Window+1 {
		return 0, ErrInsufficientHistory
	}
	if r.cfg.MaxStale > 0 && time.Since(r.updated) > r.cfg.MaxStale {
		return 0, ErrStaleFeed
	}

	var v float64
	switch r.cfg.Estimator {
	case EstimatorStdDev:
		v = r.stddevVol()
	default:
		v = r.atrVol()
	}

	if r.cfg.Annualize {
		v *= math.Sqrt(r.cfg.PeriodsPerYear)
	}

	return v, nil
}

// atrVol is the average true range over the window normalized by the
// last close, so the estimate is a price fraction.
func (r *RealizedVol) atrVol() float64 {
	atr := talib.Atr(r.highs, r.lows, r.closes, r.cfg.Window)
	last := r.closes[len(r.closes)-1]
	if last == 0 {
		return 0
	}
	return atr[len(atr)-1] / last
}

// stddevVol is the standard deviation of log returns over the window.
func (r *RealizedVol) stddevVol() float64 {
	returns := make([]float64, 0, len(r.closes)-1)
	for i := 1; i < len(r.closes); i++ {
		if r.closes[i-1] <= 0 || r.closes[i] <= 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, math.Log(r.closes[i]/r.closes[i-1]))
	}

	dev := talib.StdDev(returns, r.cfg.Window, 1.0)
	return dev[len(dev)-1]
}
