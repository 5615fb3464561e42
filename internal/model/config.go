package model

import "time"

// Config is the complete claimexpiry configuration
type Config struct {
	Expiration ExpirationConfig `json:"expiration" yaml:"expiration" mapstructure:"expiration"`
	Sync       SyncConfig       `json:"sync" yaml:"sync" mapstructure:"sync"`
	Host       HostConfig       `json:"host" yaml:"host" mapstructure:"host"`
	Cache      CacheConfig      `json:"cache" yaml:"cache" mapstructure:"cache"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
	Output     OutputConfig     `json:"output" yaml:"output" mapstructure:"output"`
}

// ExpirationConfig holds the claim expiration rules
type ExpirationConfig struct {
	Evaluation  EvaluationConfig       `json:"evaluation" yaml:"evaluation" mapstructure:"evaluation"`
	DaysPerArea map[string]interface{} `json:"days_per_area" yaml:"days_per_area" mapstructure:"days_per_area"`
	Bypass      BypassConfig           `json:"bypass" yaml:"bypass" mapstructure:"bypass"`
	Claim       ClaimConfig            `json:"claim" yaml:"claim" mapstructure:"claim"`
	Worlds      map[string]WorldConfig `json:"worlds,omitempty" yaml:"worlds,omitempty" mapstructure:"worlds"`
}

// EvaluationConfig controls candidate selection and pacing
type EvaluationConfig struct {
	Random bool       `json:"random" yaml:"random" mapstructure:"random"`
	Rate   RateConfig `json:"rate" yaml:"rate" mapstructure:"rate"`
}

// RateConfig is the throughput target
type RateConfig struct {
	Type  string  `json:"type" yaml:"type" mapstructure:"type"`    // percent or count
	Value float64 `json:"value" yaml:"value" mapstructure:"value"` // Floored at 0.1
}

// BypassConfig lists the conditions exempting an owner from expiration
type BypassConfig struct {
	ClaimBlocks      int      `json:"claim_blocks" yaml:"claim_blocks" mapstructure:"claim_blocks"`                   // -1 disables
	BonusClaimBlocks int      `json:"bonus_claim_blocks" yaml:"bonus_claim_blocks" mapstructure:"bonus_claim_blocks"` // -1 disables
	Permissions      []string `json:"permissions" yaml:"permissions" mapstructure:"permissions"`
}

// ClaimConfig holds per-claim follow-up actions
type ClaimConfig struct {
	Commands []string `json:"commands" yaml:"commands" mapstructure:"commands"`
}

// WorldConfig overrides expiration rules for a single world.
// Nil fields inherit the global value.
type WorldConfig struct {
	DaysPerArea map[string]interface{} `json:"days_per_area,omitempty" yaml:"days_per_area,omitempty" mapstructure:"days_per_area"`
	Bypass      *WorldBypassConfig     `json:"bypass,omitempty" yaml:"bypass,omitempty" mapstructure:"bypass"`
	Claim       *ClaimConfig           `json:"claim,omitempty" yaml:"claim,omitempty" mapstructure:"claim"`
}

// WorldBypassConfig overrides single bypass conditions in one world
type WorldBypassConfig struct {
	ClaimBlocks      *int     `json:"claim_blocks,omitempty" yaml:"claim_blocks,omitempty" mapstructure:"claim_blocks"`
	BonusClaimBlocks *int     `json:"bonus_claim_blocks,omitempty" yaml:"bonus_claim_blocks,omitempty" mapstructure:"bonus_claim_blocks"`
	Permissions      []string `json:"permissions,omitempty" yaml:"permissions,omitempty" mapstructure:"permissions"`
}

// SyncConfig paces requests made to the synchronized context
type SyncConfig struct {
	RequestsPerSecond float64       `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `json:"burst" yaml:"burst" mapstructure:"burst"`
	RefreshPerSecond  float64       `json:"refresh_per_second" yaml:"refresh_per_second" mapstructure:"refresh_per_second"` // Full snapshots; zero uses requests_per_second
	Timeout           time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// HostConfig configures the simulated host
type HostConfig struct {
	World        string        `json:"world" yaml:"world" mapstructure:"world"`                         // Path to the world file
	TickDuration time.Duration `json:"tick_duration" yaml:"tick_duration" mapstructure:"tick_duration"` // Wall time per tick
}

// CacheConfig configures the owner name cache
type CacheConfig struct {
	Enabled   bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `json:"dir" yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `json:"memory_ttl" yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `json:"disk_ttl" yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// MetricsConfig configures the prometheus endpoint
type MetricsConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"` // Empty disables the endpoint
}

// OutputConfig controls CLI output
type OutputConfig struct {
	Verbose bool `json:"verbose" yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Expiration: ExpirationConfig{
			Evaluation: EvaluationConfig{
				Random: false,
				Rate: RateConfig{
					Type:  "percent",
					Value: 4.35,
				},
			},
			DaysPerArea: map[string]interface{}{
				"0":      0,
				"1000":   60,
				"10000":  90,
				"250000": -1,
			},
			Bypass: BypassConfig{
				ClaimBlocks:      -1,
				BonusClaimBlocks: -1,
				Permissions:      []string{"claimexpiry.persist"},
			},
			Claim: ClaimConfig{
				Commands: []string{},
			},
		},
		Sync: SyncConfig{
			RequestsPerSecond: 20,
			Burst:             5,
			RefreshPerSecond:  1,
			Timeout:           30 * time.Second,
		},
		Host: HostConfig{
			TickDuration: 50 * time.Millisecond,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
	}
}
