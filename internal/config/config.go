// Package config loads the pipeline's single YAML configuration,
// modeled on the teacher's LoadProvidersConfig (internal/config/providers.go).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document (spec §6).
type Config struct {
	Funnel        FunnelConfig        `yaml:"funnel"`
	Concurrency   ConcurrencyConfig   `yaml:"concurrency"`
	LLM           LLMConfig           `yaml:"llm"`
	Orchestration OrchestrationConfig `yaml:"orchestration"`
	Arbitrage     ArbitrageConfig     `yaml:"arbitrage"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	BucketsPath   string              `yaml:"buckets_path"`
}

// FunnelConfig holds the thresholds named in spec §6.
type FunnelConfig struct {
	MinSpread          float64 `yaml:"min_spread"`
	MinVolume          float64 `yaml:"min_volume"`
	MinTextSimilarity  float64 `yaml:"min_text_sim"`
	MinLiquidityScore  float64 `yaml:"min_liquidity_score"`
	MaxTimeDeltaDays   int     `yaml:"max_time_delta_days"`
	MLThreshold        float64 `yaml:"ml_threshold"`
	LLMConfidenceThreshold float64 `yaml:"llm_confidence_threshold"`
	MinProfitPct       float64 `yaml:"min_profit_pct"`
	MaxRiskLevel       string  `yaml:"max_risk_level"`
}

// ConcurrencyConfig holds the worker/buffer sizing named in spec §6.
type ConcurrencyConfig struct {
	MaxConcurrentNormalizations int `yaml:"max_concurrent_normalizations"`
	MaxConcurrentExtractions    int `yaml:"max_concurrent_extractions"`
	LLMRatePerMin               int `yaml:"llm_rate_per_min"`
	LLMConcurrency              int `yaml:"llm_concurrency"`
	StageBufferCapacity         int `yaml:"stage_buffer_capacity"`
}

// LLMConfig holds the LLM provider/cost settings named in spec §6.
type LLMConfig struct {
	Provider         string  `yaml:"provider"`
	Model            string  `yaml:"model"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
	CacheTTLHours    int     `yaml:"cache_ttl_hours"`
	MaxCostPerBatchUSD float64 `yaml:"max_cost_per_batch_usd"`
	RetryAttempts    int     `yaml:"retry_attempts"`
	RequestTimeoutMS int     `yaml:"request_timeout_ms"`
}

// OrchestrationConfig holds the run-level gates named in spec §6.
type OrchestrationConfig struct {
	FailOnStageError  bool `yaml:"fail_on_stage_error"`
	MaxExecutionHours int  `yaml:"max_execution_hours"`
	MaxMarketsPerVenue int `yaml:"max_markets_per_venue"`
}

// ArbitrageConfig holds the stage-F cost/position tuning (spec §4.F).
type ArbitrageConfig struct {
	FeePercentage       float64 `yaml:"fee_percentage"`
	FixedGasUSD         float64 `yaml:"fixed_gas_usd"`
	SlippageCoefficient float64 `yaml:"slippage_coefficient"`
	MaxPositionUSD      float64 `yaml:"max_position_usd"`
	KellyWinRate        float64 `yaml:"kelly_win_rate"`
	MaxKellyFraction    float64 `yaml:"max_kelly_fraction"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	DSN            string `yaml:"dsn"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// RedisConfig holds the LLM-evaluation cache connection settings.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	KeyPrefix  string `yaml:"key_prefix"`
}

// Default returns a Config populated with the defaults named throughout
// spec §4 and §6.
func Default() Config {
	return Config{
		Funnel: FunnelConfig{
			MinSpread:              0.02,
			MinVolume:              100,
			MinTextSimilarity:      0.3,
			MinLiquidityScore:      0.1,
			MaxTimeDeltaDays:       30,
			MLThreshold:            0.3,
			LLMConfidenceThreshold: 0.75,
			MinProfitPct:           0.02,
			MaxRiskLevel:           "medium",
		},
		Concurrency: ConcurrencyConfig{
			MaxConcurrentNormalizations: 8,
			MaxConcurrentExtractions:    4,
			LLMRatePerMin:               60,
			LLMConcurrency:              5,
			StageBufferCapacity:         100,
		},
		LLM: LLMConfig{
			Provider:           "anthropic",
			Model:              "claude",
			Temperature:        0.1,
			MaxTokens:          1000,
			CacheTTLHours:      24,
			MaxCostPerBatchUSD: 10.0,
			RetryAttempts:      3,
			RequestTimeoutMS:   15000,
		},
		Orchestration: OrchestrationConfig{
			FailOnStageError:   false,
			MaxExecutionHours:  72,
			MaxMarketsPerVenue: 5000,
		},
		Arbitrage: ArbitrageConfig{
			FeePercentage:       0.01,
			FixedGasUSD:         1.0,
			SlippageCoefficient: 0.5,
			MaxPositionUSD:      10000,
			KellyWinRate:        0.8,
			MaxKellyFraction:    0.25,
		},
		BucketsPath: "",
	}
}

// Load reads and parses the YAML config at path, falling back to
// Default() for any field the file omits.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: invalid: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field consistency the way the teacher's
// ProvidersConfig.Validate does.
func (c Config) Validate() error {
	if c.Funnel.MinTextSimilarity < 0 || c.Funnel.MinTextSimilarity > 1 {
		return fmt.Errorf("funnel.min_text_sim must be in [0,1], got %f", c.Funnel.MinTextSimilarity)
	}
	if c.Funnel.MLThreshold < 0 || c.Funnel.MLThreshold > 1 {
		return fmt.Errorf("funnel.ml_threshold must be in [0,1], got %f", c.Funnel.MLThreshold)
	}
	if c.Funnel.LLMConfidenceThreshold < 0 || c.Funnel.LLMConfidenceThreshold > 1 {
		return fmt.Errorf("funnel.llm_confidence_threshold must be in [0,1], got %f", c.Funnel.LLMConfidenceThreshold)
	}
	if c.Concurrency.LLMConcurrency < 1 {
		return fmt.Errorf("concurrency.llm_concurrency must be >= 1")
	}
	switch c.Funnel.MaxRiskLevel {
	case "very_low", "low", "medium", "high", "very_high":
	default:
		return fmt.Errorf("funnel.max_risk_level %q is not a recognized risk level", c.Funnel.MaxRiskLevel)
	}
	return nil
}
