package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the prodsearch configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Search     SearchConfig     `yaml:"search"`
	Cache      CacheConfig      `yaml:"cache"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
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
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
}

// DatabaseConfig holds Redis/Valkey connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
}

// CatalogConfig selects where products come from and how the index is rebuilt.
type CatalogConfig struct {
	Source             string `yaml:"source"` // redis, postgres, sqlite
	DSN                string `yaml:"dsn"`
	Table              string `yaml:"table"`
	OrderBy            string `yaml:"order_by"`
	DefaultStock       int    `yaml:"default_stock"`
	EmbedMissing       bool   `yaml:"embed_missing"`
	RebuildIntervalSec int    `yaml:"rebuild_interval_sec"` // 0 = only on startup and /admin/reindex
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// Enabled reports whether any limit is set.
func (b BudgetConfig) Enabled() bool {
	return b.DailyTokenLimit > 0 || b.MonthlyTokenLimit > 0
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string       `yaml:"provider"`
	APIKey              string       `yaml:"api_key"`
	BaseURL             string       `yaml:"base_url"`
	Model               string       `yaml:"model"`
	Dimensions          int          `yaml:"dimensions"`
	QueryInstruction    string       `yaml:"query_instruction"`
	DocumentInstruction string       `yaml:"document_instruction"`
	BatchSize           int          `yaml:"batch_size"`
	CacheTTLHours       int          `yaml:"cache_ttl_hours"`
	TimeoutSec          int          `yaml:"timeout_sec"`
	Budget              BudgetConfig `yaml:"budget"`
}

// GenerationConfig holds answer generation settings.
type GenerationConfig struct {
	Provider       string       `yaml:"provider"`
	APIKey         string       `yaml:"api_key"`
	BaseURL        string       `yaml:"base_url"`
	Model          string       `yaml:"model"`
	Temperature    float32      `yaml:"temperature"`
	MaxTokens      int          `yaml:"max_tokens"`
	TimeoutSec     int          `yaml:"timeout_sec"`
	TopK           int          `yaml:"top_k"`
	MaxPromptChars int          `yaml:"max_prompt_chars"`
	RatePerSec     float64      `yaml:"rate_per_sec"` // 0 = unlimited
	Burst          int          `yaml:"burst"`
	Budget         BudgetConfig `yaml:"budget"`
}

// ClassifierConfig holds intent classification and entity extraction settings.
// Credentials default to the generation backend.
type ClassifierConfig struct {
	Enabled           bool    `yaml:"enabled"`
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Model             string  `yaml:"model"`
	ClassifyTimeoutMS int     `yaml:"classify_timeout_ms"`
	ExtractTimeoutMS  int     `yaml:"extract_timeout_ms"`
	MinConfidence     float64 `yaml:"min_confidence"`
	PopularQuery      string  `yaml:"popular_query"`
	TopK              int     `yaml:"top_k"`
}

// SearchConfig holds ranking settings.
type SearchConfig struct {
	DefaultK        int     `yaml:"default_k"`
	MaxK            int     `yaml:"max_k"`
	Overfetch       int     `yaml:"overfetch"`
	BoostWeight     float64 `yaml:"boost_weight"`
	ExtractEntities bool    `yaml:"extract_entities"`
	RecommendK      int     `yaml:"recommend_k"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Capacity int `yaml:"capacity"`
	TTLSec   int `yaml:"ttl_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

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
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 1 << 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "prodsearch:"
	}
	if c.Catalog.Source == "" {
		c.Catalog.Source = "redis"
	}
	if c.Catalog.Table == "" {
		c.Catalog.Table = "products"
	}
	if c.Catalog.OrderBy == "" {
		c.Catalog.OrderBy = "id"
	}
	if c.Catalog.DefaultStock <= 0 {
		c.Catalog.DefaultStock = 1
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 100
	}
	if c.Embedding.CacheTTLHours <= 0 {
		c.Embedding.CacheTTLHours = 24 * 7
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = "openai"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "gpt-4o-mini"
	}
	if c.Generation.Temperature <= 0 {
		c.Generation.Temperature = 0.3
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 512
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 20
	}
	if c.Generation.TopK <= 0 {
		c.Generation.TopK = 5
	}
	if c.Generation.MaxPromptChars <= 0 {
		c.Generation.MaxPromptChars = 6000
	}
	if c.Generation.Burst <= 0 {
		c.Generation.Burst = 1
	}
	if c.Classifier.APIKey == "" {
		c.Classifier.APIKey = c.Generation.APIKey
	}
	if c.Classifier.BaseURL == "" {
		c.Classifier.BaseURL = c.Generation.BaseURL
	}
	if c.Classifier.Model == "" {
		c.Classifier.Model = c.Generation.Model
	}
	if c.Classifier.ClassifyTimeoutMS <= 0 {
		c.Classifier.ClassifyTimeoutMS = 3000
	}
	if c.Classifier.ExtractTimeoutMS <= 0 {
		c.Classifier.ExtractTimeoutMS = 3000
	}
	if c.Classifier.MinConfidence <= 0 {
		c.Classifier.MinConfidence = 0.5
	}
	if c.Classifier.TopK <= 0 {
		c.Classifier.TopK = 5
	}
	if c.Search.DefaultK <= 0 {
		c.Search.DefaultK = 10
	}
	if c.Search.MaxK <= 0 {
		c.Search.MaxK = 50
	}
	if c.Search.Overfetch <= 0 {
		c.Search.Overfetch = 3
	}
	if c.Search.BoostWeight <= 0 {
		c.Search.BoostWeight = 0.05
	}
	if c.Search.RecommendK <= 0 {
		c.Search.RecommendK = 10
	}
	if c.Cache.Capacity <= 0 {
		c.Cache.Capacity = 1000
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Catalog.Source {
	case "redis":
	case "postgres", "sqlite":
		if c.Catalog.DSN == "" {
			return fmt.Errorf("catalog.dsn is required for source %q", c.Catalog.Source)
		}
	default:
		return fmt.Errorf("catalog.source must be one of redis, postgres, sqlite, got %q", c.Catalog.Source)
	}
	if c.Catalog.RebuildIntervalSec < 0 {
		return fmt.Errorf("catalog.rebuild_interval_sec must be non-negative")
	}
	budgets := map[string]BudgetConfig{
		"embedding":  c.Embedding.Budget,
		"generation": c.Generation.Budget,
	}
	for name, b := range budgets {
		switch b.Action {
		case "", "warn", "reject":
			// ok
		default:
			return fmt.Errorf("%s.budget.action must be \"warn\" or \"reject\", got %q", name, b.Action)
		}
	}
	if c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be at most 2, got %v", c.Generation.Temperature)
	}
	if c.Generation.RatePerSec < 0 {
		return fmt.Errorf("generation.rate_per_sec must be non-negative")
	}
	if c.Classifier.MinConfidence > 1 {
		return fmt.Errorf("classifier.min_confidence must be within (0, 1], got %v", c.Classifier.MinConfidence)
	}
	if c.Search.DefaultK > c.Search.MaxK {
		return fmt.Errorf("search.default_k (%d) must not exceed search.max_k (%d)", c.Search.DefaultK, c.Search.MaxK)
	}
	return nil
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
