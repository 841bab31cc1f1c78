package config

import "time"

// Config is the root configuration for a dlmmd instance.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Database DatabaseConfig `yaml:"database"`
	Journal  JournalConfig  `yaml:"journal"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Pools    []PoolConfig   `yaml:"pools"`
	Strategy StrategyConfig `yaml:"strategy"`
	Server   ServerConfig   `yaml:"server"`
}

// InstanceConfig identifies this daemon.
type InstanceConfig struct {
	ID  string `yaml:"id"`
	Env string `yaml:"env"`
}

// DatabaseConfig holds the PostgreSQL connection for the event journal.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// JournalConfig holds event journal and batch writer settings.
type JournalConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// OracleConfig holds volatility and price feed settings.
type OracleConfig struct {
	Volatility VolatilityConfig `yaml:"volatility"`
	Price      PriceConfig      `yaml:"price"`
}

// VolatilityConfig selects the volatility source.
type VolatilityConfig struct {
	Mode   string       `yaml:"mode"` // "static", "random", or "stream"
	Static float64      `yaml:"static"`
	Random RandomConfig `yaml:"random"`
	Stream StreamConfig `yaml:"stream"`
}

// RandomConfig holds bounds for the seeded random volatility source.
type RandomConfig struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Seed uint64  `yaml:"seed"`
}

// StreamConfig holds settings for realized volatility from a candle
// stream.
type StreamConfig struct {
	URL            string        `yaml:"url"`
	Estimator      string        `yaml:"estimator"` // "atr" or "stddev"
	Window         int           `yaml:"window"`
	MaxStale       time.Duration `yaml:"max_stale"`
	Annualize      bool          `yaml:"annualize"`
	PeriodsPerYear float64       `yaml:"periods_per_year"`
}

// PriceConfig selects the mid price source.
type PriceConfig struct {
	Mode    string        `yaml:"mode"` // "none", "static", or "jupiter"
	Static  string        `yaml:"static"`
	Jupiter JupiterConfig `yaml:"jupiter"`
}

// JupiterConfig holds Jupiter Price API polling settings.
type JupiterConfig struct {
	URL        string        `yaml:"url"`
	Mint       string        `yaml:"mint"`     // Base58 mint to price
	VsToken    string        `yaml:"vs_token"` // Base58 quote mint
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// PoolConfig describes one pool to run. Bins and Ladder are mutually
// exclusive ways to seed the bin set.
type PoolConfig struct {
	Address    string        `yaml:"address"`
	BaseMint   string        `yaml:"base_mint"`
	QuoteMint  string        `yaml:"quote_mint"`
	BaseFactor string        `yaml:"base_factor"`
	BinStep    string        `yaml:"bin_step"`
	MinFee     string        `yaml:"min_fee"`
	Bins       []BinConfig   `yaml:"bins"`
	Ladder     *LadderConfig `yaml:"ladder"`
}

// BinConfig describes one explicit bin.
type BinConfig struct {
	ID        int32  `yaml:"id"`
	Lower     string `yaml:"lower"`
	Upper     string `yaml:"upper"`
	Liquidity string `yaml:"liquidity"`
}

// LadderConfig seeds a geometric run of bins around an anchor price.
type LadderConfig struct {
	AnchorPrice     string `yaml:"anchor_price"`
	Count           int    `yaml:"count"`
	LiquidityPerBin string `yaml:"liquidity_per_bin"`
}

// StrategyConfig holds rebalance scheduler settings.
type StrategyConfig struct {
	Name         string        `yaml:"name"` // "skim_to_widest" or "center_on_price"
	Interval     time.Duration `yaml:"interval"`
	Concurrency  int           `yaml:"concurrency"`
	MinLiquidity string        `yaml:"min_liquidity"`
	Fraction     string        `yaml:"fraction"`
}

// ServerConfig holds the health/debug HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}
