package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultBatchSize     = 500
	DefaultFlushInterval = 1 * time.Second
	DefaultBufferSize    = 1024

	DefaultVolatilityMode = "random"
	DefaultRandomMin      = 0.01
	DefaultRandomMax      = 0.2

	DefaultEstimator      = "atr"
	DefaultWindow         = 20
	DefaultMaxStale       = 5 * time.Minute
	DefaultPeriodsPerYear = 525600 // 1-minute candles

	DefaultPriceMode         = "none"
	DefaultJupiterURL        = "https://api.jup.ag/price/v2"
	DefaultJupiterInterval   = 5 * time.Second
	DefaultJupiterStaleAfter = 30 * time.Second
	DefaultJupiterTimeout    = 10 * time.Second
	DefaultJupiterRetries    = 3

	DefaultMinFee = "0.0001"

	DefaultStrategyName        = "skim_to_widest"
	DefaultStrategyInterval    = 1 * time.Minute
	DefaultStrategyConcurrency = 8
	DefaultMinLiquidity        = "100000"
	DefaultFraction            = "0.1"

	DefaultServerPort = 8080
)

func (c *Config) applyDefaults() {
	applyDBDefaults(&c.Database.Postgres)

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultBufferSize
	}

	// Oracle defaults
	if c.Oracle.Volatility.Mode == "" {
		c.Oracle.Volatility.Mode = DefaultVolatilityMode
	}
	if c.Oracle.Volatility.Random.Min == 0 && c.Oracle.Volatility.Random.Max == 0 {
		c.Oracle.Volatility.Random.Min = DefaultRandomMin
		c.Oracle.Volatility.Random.Max = DefaultRandomMax
	}
	if c.Oracle.Volatility.Stream.Estimator == "" {
		c.Oracle.Volatility.Stream.Estimator = DefaultEstimator
	}
	if c.Oracle.Volatility.Stream.Window == 0 {
		c.Oracle.Volatility.Stream.Window = DefaultWindow
	}
	if c.Oracle.Volatility.Stream.MaxStale == 0 {
		c.Oracle.Volatility.Stream.MaxStale = DefaultMaxStale
	}
	if c.Oracle.Volatility.Stream.PeriodsPerYear == 0 {
		c.Oracle.Volatility.Stream.PeriodsPerYear = DefaultPeriodsPerYear
	}
	if c.Oracle.Price.Mode == "" {
		c.Oracle.Price.Mode = DefaultPriceMode
	}
	if c.Oracle.Price.Jupiter.URL == "" {
		c.Oracle.Price.Jupiter.URL = DefaultJupiterURL
	}
	if c.Oracle.Price.Jupiter.Interval == 0 {
		c.Oracle.Price.Jupiter.Interval = DefaultJupiterInterval
	}
	if c.Oracle.Price.Jupiter.StaleAfter == 0 {
		c.Oracle.Price.Jupiter.StaleAfter = DefaultJupiterStaleAfter
	}
	if c.Oracle.Price.Jupiter.Timeout == 0 {
		c.Oracle.Price.Jupiter.Timeout = DefaultJupiterTimeout
	}
	if c.Oracle.Price.Jupiter.MaxRetries == 0 {
		c.Oracle.Price.Jupiter.MaxRetries = DefaultJupiterRetries
	}

	// Pool defaults
	for i := range c.Pools {
		if c.Pools[i].MinFee == "" {
			c.Pools[i].MinFee = DefaultMinFee
		}
	}

	// Strategy defaults
	if c.Strategy.Name == "" {
		c.Strategy.Name = DefaultStrategyName
	}
	if c.Strategy.Interval == 0 {
		c.Strategy.Interval = DefaultStrategyInterval
	}
	if c.Strategy.Concurrency == 0 {
		c.Strategy.Concurrency = DefaultStrategyConcurrency
	}
	if c.Strategy.MinLiquidity == "" {
		c.Strategy.MinLiquidity = DefaultMinLiquidity
	}
	if c.Strategy.Fraction == "" {
		c.Strategy.Fraction = DefaultFraction
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
