package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/holdex/internal/domain"
	"github.com/kailas-cloud/holdex/internal/domain/quota"
)

// Config holds the holdex API configuration.
type Config struct {
	HTTP        HTTPConfig             `yaml:"http"`
	RemoteCache RemoteCacheConfig      `yaml:"remote_cache"`
	Holdings    HoldingsConfig         `yaml:"holdings"`
	Quotas      map[string]QuotaConfig `yaml:"quotas"`
	Cache       CacheConfig            `yaml:"cache"`
	Fallback    FallbackConfig         `yaml:"fallback"`
	Usage       UsageConfig            `yaml:"usage"`
	Degrade     DegradeConfig          `yaml:"degrade"`
	Funds       []FundConfig           `yaml:"funds"`
	Auth        AuthConfig             `yaml:"auth"`
	Logging     LoggingConfig          `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// RemoteCacheConfig holds the optional Redis/Valkey connection.
// No addrs means the remote tier is disabled.
type RemoteCacheConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	TLS              bool     `yaml:"tls"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	OpTimeoutMs      int      `yaml:"op_timeout_ms"`
}

// Enabled reports whether a remote cache is configured.
func (c RemoteCacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// HoldingsConfig holds the SQLite store location.
type HoldingsConfig struct {
	Path string `yaml:"path"`
}

// QuotaConfig is one service's free-tier quota.
type QuotaConfig struct {
	Metric         string  `yaml:"metric"` // daily_requests | monthly_hours
	Limit          int64   `yaml:"limit"`
	WarningPercent float64 `yaml:"warning_percent"`
}

// CacheConfig holds tiered cache settings.
type CacheConfig struct {
	RefreshWindowSec int    `yaml:"refresh_window_sec"`
	HighWater        int    `yaml:"high_water"`
	KeyPrefix        string `yaml:"key_prefix"`
}

// FallbackConfig holds static snapshot settings.
type FallbackConfig struct {
	Dir string `yaml:"dir"`
	// WriteThrough saves every live lookup result as its snapshot.
	WriteThrough bool `yaml:"write_through"`
}

// UsageConfig holds usage tracking settings.
type UsageConfig struct {
	// Persist mirrors counters to the remote cache so restarts keep them.
	Persist                 bool `yaml:"persist"`
	HostingMeterIntervalSec int  `yaml:"hosting_meter_interval_sec"`
}

// DegradeConfig holds payload truncation limits.
type DegradeConfig struct {
	ReducedLimit int `yaml:"reduced_limit"`
	MinimalLimit int `yaml:"minimal_limit"`
}

// FundConfig is a supported fund catalogue entry.
type FundConfig struct {
	Symbol       string  `yaml:"symbol"`
	Name         string  `yaml:"name"`
	Description  string  `yaml:"description"`
	ExpenseRatio float64 `yaml:"expense_ratio"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	// Unset ${VAR} expansions leave empty list items behind.
	c.RemoteCache.Addrs = nonEmpty(c.RemoteCache.Addrs)
	c.Auth.APIKeys = nonEmpty(c.Auth.APIKeys)
	if c.RemoteCache.Driver == "" {
		c.RemoteCache.Driver = "valkey"
	}
	if c.RemoteCache.ReadinessTimeout <= 0 {
		c.RemoteCache.ReadinessTimeout = 10
	}
	if c.RemoteCache.OpTimeoutMs <= 0 {
		c.RemoteCache.OpTimeoutMs = 500
	}
	if c.Holdings.Path == "" {
		c.Holdings.Path = "data/holdings.db"
	}
	if len(c.Quotas) == 0 {
		c.Quotas = make(map[string]QuotaConfig)
		for _, s := range quota.Defaults() {
			c.Quotas[s.Service()] = QuotaConfig{
				Metric:         string(s.Metric()),
				Limit:          s.Limit(),
				WarningPercent: s.WarningPercent(),
			}
		}
	}
	for name, q := range c.Quotas {
		if q.WarningPercent <= 0 {
			q.WarningPercent = 80
			c.Quotas[name] = q
		}
	}
	if c.Cache.RefreshWindowSec <= 0 {
		c.Cache.RefreshWindowSec = 300
	}
	if c.Cache.HighWater <= 0 {
		c.Cache.HighWater = 1000
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = domain.KeyPrefix + "cache:"
	}
	if c.Fallback.Dir == "" {
		c.Fallback.Dir = "static/cache"
	}
	if c.Usage.HostingMeterIntervalSec <= 0 {
		c.Usage.HostingMeterIntervalSec = 3600
	}
	if c.Degrade.ReducedLimit <= 0 {
		c.Degrade.ReducedLimit = 100
	}
	if c.Degrade.MinimalLimit <= 0 {
		c.Degrade.MinimalLimit = 20
	}
	if len(c.Funds) == 0 {
		c.Funds = defaultFunds()
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.RemoteCache.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("remote_cache.driver must be \"valkey\" or \"redis\", got %q", c.RemoteCache.Driver)
	}
	if _, err := c.QuotaSpecs(); err != nil {
		return err
	}
	if c.Degrade.MinimalLimit > c.Degrade.ReducedLimit {
		return fmt.Errorf("degrade.minimal_limit (%d) must not exceed degrade.reduced_limit (%d)",
			c.Degrade.MinimalLimit, c.Degrade.ReducedLimit)
	}
	for i, f := range c.Funds {
		if strings.TrimSpace(f.Symbol) == "" {
			return fmt.Errorf("funds[%d].symbol is required", i)
		}
	}
	return nil
}

// QuotaSpecs converts the quotas section into validated specs, ordered by service.
func (c *Config) QuotaSpecs() ([]quota.Spec, error) {
	names := make([]string, 0, len(c.Quotas))
	for name := range c.Quotas {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]quota.Spec, 0, len(names))
	for _, name := range names {
		q := c.Quotas[name]
		m := quota.Metric(q.Metric)
		if !m.Valid() {
			return nil, fmt.Errorf("quotas.%s.metric must be %q or %q, got %q",
				name, quota.DailyRequests, quota.MonthlyHours, q.Metric)
		}
		s, err := quota.New(name, m, q.Limit, q.WarningPercent)
		if err != nil {
			return nil, fmt.Errorf("quotas.%s: %w", name, err)
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// Catalogue returns the supported funds as domain funds.
func (c *Config) Catalogue() []domain.Fund {
	out := make([]domain.Fund, 0, len(c.Funds))
	for _, f := range c.Funds {
		out = append(out, domain.Fund{
			Symbol:       strings.ToUpper(f.Symbol),
			Name:         f.Name,
			Description:  f.Description,
			ExpenseRatio: f.ExpenseRatio,
		})
	}
	return out
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func defaultFunds() []FundConfig {
	return []FundConfig{
		{Symbol: "VTSAX", Name: "Vanguard Total Stock Market Index Fund Admiral", Description: "Total US Stock Market", ExpenseRatio: 0.04},
		{Symbol: "VOO", Name: "Vanguard S&P 500 ETF", Description: "S&P 500 Index", ExpenseRatio: 0.03},
		{Symbol: "VTI", Name: "Vanguard Total Stock Market ETF", Description: "Total US Stock Market ETF", ExpenseRatio: 0.03},
		{Symbol: "VUG", Name: "Vanguard Growth ETF", Description: "Large-Cap Growth", ExpenseRatio: 0.04},
		{Symbol: "VTV", Name: "Vanguard Value ETF", Description: "Large-Cap Value", ExpenseRatio: 0.04},
	}
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
