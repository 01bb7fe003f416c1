package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// LocalProvider names the built-in offline embedding model.
const LocalProvider = "local"

// Config holds the canonic configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Index     IndexConfig     `yaml:"index"`
	Matching  MatchingConfig  `yaml:"matching"`
	Output    OutputConfig    `yaml:"output"`
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
	MaxUploadMB     int `yaml:"max_upload_mb"`
}

// EmbeddingConfig holds embedding settings.
// Models are tried in order: the first one is primary, the rest are fallbacks.
type EmbeddingConfig struct {
	Providers    map[string]ProviderConfig `yaml:"providers"`
	Models       []ModelConfig             `yaml:"models"`
	MaxBatchSize int                       `yaml:"max_batch_size"`
	ProbeText    string                    `yaml:"probe_text"`
}

// ProviderConfig holds OpenAI-compatible endpoint settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ModelConfig describes one embedding model candidate.
type ModelConfig struct {
	Name        string `yaml:"name"`
	Provider    string `yaml:"provider"` // key in providers, or "local"
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	Instruction string `yaml:"instruction"` // prefix prepended to every text, e.g. "query: "
}

// ID returns the identifier recorded in index artifacts.
func (m ModelConfig) ID() string {
	if m.Name != "" {
		return m.Name
	}
	if m.Model == "" {
		return m.Provider
	}
	return m.Provider + "/" + m.Model
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // none, memory, redis, valkey (default: none)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds persisted index settings.
type IndexConfig struct {
	Storage string `yaml:"storage"` // file, sqlite (default: file)
	Path    string `yaml:"path"`
}

// MatchingConfig holds cleaning run settings.
type MatchingConfig struct {
	Threshold      float64 `yaml:"threshold"`
	MinThreshold   float64 `yaml:"min_threshold"`
	MaxThreshold   float64 `yaml:"max_threshold"`
	ColumnSuffix   string  `yaml:"column_suffix"`
	ColumnFallback bool    `yaml:"column_fallback"`
}

// OutputConfig holds export settings.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 32
	}
	if len(c.Embedding.Models) == 0 {
		c.Embedding.Models = []ModelConfig{{Name: "local-ngram", Provider: LocalProvider, Dimensions: 384}}
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 256
	}
	if c.Embedding.ProbeText == "" {
		c.Embedding.ProbeText = "probe"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "none"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Index.Storage == "" {
		c.Index.Storage = "file"
	}
	if c.Index.Path == "" {
		c.Index.Path = filepath.Join("data", "catalog_index.json")
	}
	if c.Matching.Threshold == 0 {
		c.Matching.Threshold = 0.75
	}
	if c.Matching.MinThreshold == 0 {
		c.Matching.MinThreshold = 0.5
	}
	if c.Matching.MaxThreshold == 0 {
		c.Matching.MaxThreshold = 0.99
	}
	if c.Matching.ColumnSuffix == "" {
		c.Matching.ColumnSuffix = "_NORMALIZED"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = filepath.Join("data", "output")
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if err := c.validateEmbedding(); err != nil {
		return err
	}
	switch c.Cache.Driver {
	case "none", "memory":
	case "redis", "valkey":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", c.Cache.Driver)
		}
	default:
		return fmt.Errorf("cache.driver must be none, memory, redis or valkey, got %q", c.Cache.Driver)
	}
	switch c.Index.Storage {
	case "file", "sqlite":
	default:
		return fmt.Errorf("index.storage must be \"file\" or \"sqlite\", got %q", c.Index.Storage)
	}
	return c.validateMatching()
}

func (c *Config) validateEmbedding() error {
	if len(c.Embedding.Models) == 0 {
		return errors.New("embedding.models must list at least one model")
	}
	for i, m := range c.Embedding.Models {
		if m.Provider == LocalProvider {
			continue
		}
		if _, ok := c.Embedding.Providers[m.Provider]; !ok {
			return fmt.Errorf("embedding.models[%d].provider %q is not defined in embedding.providers", i, m.Provider)
		}
		if m.Model == "" {
			return fmt.Errorf("embedding.models[%d].model is required", i)
		}
	}
	return nil
}

func (c *Config) validateMatching() error {
	m := c.Matching
	if m.MinThreshold < 0 || m.MaxThreshold > 1 || m.MinThreshold > m.MaxThreshold {
		return fmt.Errorf("matching thresholds must satisfy 0 <= min <= max <= 1, got min=%v max=%v",
			m.MinThreshold, m.MaxThreshold)
	}
	if m.Threshold < m.MinThreshold || m.Threshold > m.MaxThreshold {
		return fmt.Errorf("matching.threshold %v is outside [%v, %v]", m.Threshold, m.MinThreshold, m.MaxThreshold)
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
