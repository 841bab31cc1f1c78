package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-dlmmd
  env: dev
database:
  postgres:
    host: localhost
    port: 5432
    name: test_db
    user: testuser
    password: testpass
journal:
  batch_size: 200
  flush_interval: 2s
oracle:
  volatility:
    mode: static
    static: 0.04
  price:
    mode: static
    static: "178.42"
pools:
  - address: "11111111111111111111111111111111"
    base_mint: So11111111111111111111111111111111111111112
    quote_mint: EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
    base_factor: "0.0005"
    bin_step: "0.05"
    min_fee: "0.0001"
    bins:
      - id: 1
        lower: "0.9"
        upper: "1.1"
        liquidity: "500000"
strategy:
  name: center_on_price
  interval: 30s
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-dlmmd" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-dlmmd")
	}
	if cfg.Database.Postgres.Host != "localhost" {
		t.Errorf("Database.Postgres.Host = %q, want %q", cfg.Database.Postgres.Host, "localhost")
	}
	if cfg.Journal.FlushInterval != 2*time.Second {
		t.Errorf("Journal.FlushInterval = %v, want %v", cfg.Journal.FlushInterval, 2*time.Second)
	}
	if cfg.Oracle.Volatility.Mode != "static" {
		t.Errorf("Oracle.Volatility.Mode = %q, want %q", cfg.Oracle.Volatility.Mode, "static")
	}
	if cfg.Oracle.Price.Static != "178.42" {
		t.Errorf("Oracle.Price.Static = %q, want %q", cfg.Oracle.Price.Static, "178.42")
	}
	if len(cfg.Pools) != 1 {
		t.Fatalf("len(Pools) = %d, want 1", len(cfg.Pools))
	}
	if cfg.Pools[0].Address != "11111111111111111111111111111111" {
		t.Errorf("Pools[0].Address = %q", cfg.Pools[0].Address)
	}
	if len(cfg.Pools[0].Bins) != 1 || cfg.Pools[0].Bins[0].Upper != "1.1" {
		t.Errorf("Pools[0].Bins = %+v, want one bin with upper 1.1", cfg.Pools[0].Bins)
	}
	if cfg.Pools[0].Ladder != nil {
		t.Errorf("Pools[0].Ladder = %+v, want nil", cfg.Pools[0].Ladder)
	}
	if cfg.Strategy.Name != "center_on_price" {
		t.Errorf("Strategy.Name = %q, want %q", cfg.Strategy.Name, "center_on_price")
	}
	if cfg.Strategy.Interval != 30*time.Second {
		t.Errorf("Strategy.Interval = %v, want %v", cfg.Strategy.Interval, 30*time.Second)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: test-dlmmd
database:
  postgres:
    host: localhost
    name: test_db
    user: testuser
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Postgres.Password != "secret123" {
		t.Errorf("Database.Postgres.Password = %q, want %q", cfg.Database.Postgres.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-dlmmd
database:
  postgres:
    host: localhost
    name: test_db
    user: testuser
    password: testpass
pools:
  - address: "11111111111111111111111111111111"
    base_mint: So11111111111111111111111111111111111111112
    quote_mint: EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
    base_factor: "0.0005"
    bin_step: "0.05"
    bins:
      - id: 1
        lower: "0.9"
        upper: "1.1"
        liquidity: "500000"
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Database.Postgres.Port != DefaultDBPort {
		t.Errorf("Database.Postgres.Port = %d, want default %d", cfg.Database.Postgres.Port, DefaultDBPort)
	}
	if cfg.Database.Postgres.MaxConns != DefaultMaxConns {
		t.Errorf("Database.Postgres.MaxConns = %d, want default %d", cfg.Database.Postgres.MaxConns, DefaultMaxConns)
	}
	if cfg.Journal.BatchSize != DefaultBatchSize {
		t.Errorf("Journal.BatchSize = %d, want default %d", cfg.Journal.BatchSize, DefaultBatchSize)
	}
	if cfg.Oracle.Volatility.Mode != DefaultVolatilityMode {
		t.Errorf("Oracle.Volatility.Mode = %q, want default %q", cfg.Oracle.Volatility.Mode, DefaultVolatilityMode)
	}
	if cfg.Oracle.Volatility.Random.Max != DefaultRandomMax {
		t.Errorf("Oracle.Volatility.Random.Max = %v, want default %v", cfg.Oracle.Volatility.Random.Max, DefaultRandomMax)
	}
	if cfg.Oracle.Price.Jupiter.URL != DefaultJupiterURL {
		t.Errorf("Oracle.Price.Jupiter.URL = %q, want default %q", cfg.Oracle.Price.Jupiter.URL, DefaultJupiterURL)
	}
	if cfg.Pools[0].MinFee != DefaultMinFee {
		t.Errorf("Pools[0].MinFee = %q, want default %q", cfg.Pools[0].MinFee, DefaultMinFee)
	}
	if cfg.Strategy.Name != DefaultStrategyName {
		t.Errorf("Strategy.Name = %q, want default %q", cfg.Strategy.Name, DefaultStrategyName)
	}
	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, DefaultServerPort)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing instance id",
			mutate:  func(c *Config) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "missing postgres host",
			mutate:  func(c *Config) { c.Database.Postgres.Host = "" },
			wantErr: "database.postgres.host is required",
		},
		{
			name:    "missing postgres password",
			mutate:  func(c *Config) { c.Database.Postgres.Password = "" },
			wantErr: "database.postgres.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Database.Postgres.MaxConns = 5
				c.Database.Postgres.MinConns = 10
			},
			wantErr: "database.postgres.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "zero journal batch size",
			mutate:  func(c *Config) { c.Journal.BatchSize = 0 },
			wantErr: "journal.batch_size must be >= 1",
		},
		{
			name:    "unknown volatility mode",
			mutate:  func(c *Config) { c.Oracle.Volatility.Mode = "bogus" },
			wantErr: `oracle.volatility.mode must be one of static, random, stream, got "bogus"`,
		},
		{
			name: "random bounds inverted",
			mutate: func(c *Config) {
				c.Oracle.Volatility.Random = RandomConfig{Min: 0.3, Max: 0.1}
			},
			wantErr: "oracle.volatility.random.max must exceed min",
		},
		{
			name: "stream missing url",
			mutate: func(c *Config) {
				c.Oracle.Volatility.Mode = "stream"
				c.Oracle.Volatility.Stream = StreamConfig{Estimator: "atr", Window: 20}
			},
			wantErr: "oracle.volatility.stream.url is required",
		},
		{
			name: "non-positive static price",
			mutate: func(c *Config) {
				c.Oracle.Price = PriceConfig{Mode: "static", Static: "0"}
			},
			wantErr: "oracle.price.static must be positive",
		},
		{
			name:    "no pools",
			mutate:  func(c *Config) { c.Pools = nil },
			wantErr: "at least one pool is required",
		},
		{
			name: "bins and ladder both set",
			mutate: func(c *Config) {
				c.Pools[0].Ladder = &LadderConfig{AnchorPrice: "1", Count: 3, LiquidityPerBin: "1000"}
			},
			wantErr: "pools[0]: exactly one of bins or ladder must be set",
		},
		{
			name: "bin bounds inverted",
			mutate: func(c *Config) {
				c.Pools[0].Bins[0].Lower = "1.1"
				c.Pools[0].Bins[0].Upper = "0.9"
			},
			wantErr: "pools[0].bins[0].upper must exceed lower",
		},
		{
			name: "ladder with zero count",
			mutate: func(c *Config) {
				c.Pools[0].Bins = nil
				c.Pools[0].Ladder = &LadderConfig{AnchorPrice: "178.42", Count: 0, LiquidityPerBin: "1000"}
			},
			wantErr: "pools[0].ladder.count must be >= 1",
		},
		{
			name:    "unknown strategy",
			mutate:  func(c *Config) { c.Strategy.Name = "bogus" },
			wantErr: `strategy.name must be skim_to_widest or center_on_price, got "bogus"`,
		},
		{
			name:    "fraction above one",
			mutate:  func(c *Config) { c.Strategy.Fraction = "1.5" },
			wantErr: "strategy.fraction must be in (0, 1]",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port must be between 1 and 65535, got 70000",
		},
		{
			name: "ladder in place of bins",
			mutate: func(c *Config) {
				c.Pools[0].Bins = nil
				c.Pools[0].Ladder = &LadderConfig{AnchorPrice: "178.42", Count: 21, LiquidityPerBin: "250000"}
			},
			wantErr: "",
		},
		{
			name:    "valid config",
			mutate:  nil,
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestValidate_RejectsBadPoolAddress(t *testing.T) {
	cfg := validConfig()
	cfg.Pools[0].Address = "not-base58"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "pools[0].address") {
		t.Errorf("Validate() error = %q, want pools[0].address mention", err.Error())
	}
}

func validConfig() Config {
	return Config{
		Instance: InstanceConfig{ID: "test"},
		Database: DatabaseConfig{
			Postgres: DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 10, MinConns: 2},
		},
		Journal: JournalConfig{BatchSize: 500, FlushInterval: time.Second, BufferSize: 1024},
		Oracle: OracleConfig{
			Volatility: VolatilityConfig{Mode: "random", Random: RandomConfig{Min: 0.01, Max: 0.2}},
			Price:      PriceConfig{Mode: "none"},
		},
		Pools: []PoolConfig{
			{
				Address:    "11111111111111111111111111111111",
				BaseMint:   "So11111111111111111111111111111111111111112",
				QuoteMint:  "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
				BaseFactor: "0.0005",
				BinStep:    "0.05",
				MinFee:     "0.0001",
				Bins: []BinConfig{
					{ID: 1, Lower: "0.9", Upper: "1.1", Liquidity: "500000"},
				},
			},
		},
		Strategy: StrategyConfig{Name: "skim_to_widest", Interval: time.Minute, Concurrency: 8, MinLiquidity: "100000", Fraction: "0.1"},
		Server:   ServerConfig{Port: 8080},
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
