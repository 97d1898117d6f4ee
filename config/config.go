// Package config loads nexa settings from a TOML or YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vinayprograms/nexa/errors"
)

// DefaultModels is the candidate list tried in order at startup.
var DefaultModels = []string{
	"llama-3.3-70b-versatile",
	"llama-3.1-70b-versatile",
	"mixtral-8x7b-32768",
	"llama3-70b-8192",
}

// Config is the complete nexa configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	LLM       LLMConfig       `toml:"llm" yaml:"llm"`
	Search    SearchConfig    `toml:"search" yaml:"search"`
	Tools     ToolsConfig     `toml:"tools" yaml:"tools"`
	Telemetry TelemetryConfig `toml:"telemetry" yaml:"telemetry"`
	Log       LogConfig       `toml:"log" yaml:"log"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr"`

	// SessionIdle is how long an unused browser session is kept.
	SessionIdle time.Duration `toml:"session_idle" yaml:"session_idle"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LLMConfig configures model selection.
type LLMConfig struct {
	// Provider forces a provider for every candidate. Empty infers it per model.
	Provider    string   `toml:"provider" yaml:"provider"`
	Models      []string `toml:"models" yaml:"models"`
	MaxTokens   int      `toml:"max_tokens" yaml:"max_tokens"`
	Temperature float64  `toml:"temperature" yaml:"temperature"`
	BaseURL     string   `toml:"base_url" yaml:"base_url"`
}

// SearchConfig configures the search engine.
type SearchConfig struct {
	DefaultMode     string        `toml:"default_mode" yaml:"default_mode"`
	DefaultLanguage string        `toml:"default_language" yaml:"default_language"`
	CacheTTL        time.Duration `toml:"cache_ttl" yaml:"cache_ttl"`
	CacheEnabled    *bool         `toml:"cache_enabled" yaml:"cache_enabled"`
}

// ToolsConfig configures the external lookups.
type ToolsConfig struct {
	// WebSearchBackend is auto, brave, tavily or duckduckgo.
	WebSearchBackend string `toml:"web_search_backend" yaml:"web_search_backend"`
	TopK             int    `toml:"top_k" yaml:"top_k"`
	MaxChars         int    `toml:"max_chars" yaml:"max_chars"`

	// RequestsPerMinute caps calls per web search backend.
	RequestsPerMinute int           `toml:"requests_per_minute" yaml:"requests_per_minute"`
	Timeout           time.Duration `toml:"timeout" yaml:"timeout"`
}

// TelemetryConfig configures OpenTelemetry tracing and the search event log.
type TelemetryConfig struct {
	Enabled    bool   `toml:"enabled" yaml:"enabled"`
	Endpoint   string `toml:"endpoint" yaml:"endpoint"`
	Project    string `toml:"project" yaml:"project"`
	Protocol   string `toml:"protocol" yaml:"protocol"`
	Insecure   bool   `toml:"insecure" yaml:"insecure"`
	EventsFile string `toml:"events_file" yaml:"events_file"`
}

// LogConfig configures console logging.
type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8501"
	}
	if c.Server.SessionIdle == 0 {
		c.Server.SessionIdle = 2 * time.Hour
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}

	if len(c.LLM.Models) == 0 {
		c.LLM.Models = append([]string(nil), DefaultModels...)
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 4096
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.3
	}

	if c.Search.DefaultMode == "" {
		c.Search.DefaultMode = "balanced"
	}
	if c.Search.DefaultLanguage == "" {
		c.Search.DefaultLanguage = "en"
	}
	if c.Search.CacheTTL == 0 {
		c.Search.CacheTTL = 30 * time.Minute
	}
	if c.Search.CacheEnabled == nil {
		enabled := true
		c.Search.CacheEnabled = &enabled
	}

	if c.Tools.WebSearchBackend == "" {
		c.Tools.WebSearchBackend = "auto"
	}
	if c.Tools.TopK == 0 {
		c.Tools.TopK = 2
	}
	if c.Tools.MaxChars == 0 {
		c.Tools.MaxChars = 1000
	}
	if c.Tools.RequestsPerMinute == 0 {
		c.Tools.RequestsPerMinute = 30
	}
	if c.Tools.Timeout == 0 {
		c.Tools.Timeout = 15 * time.Second
	}

	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4317"
	}
	if c.Telemetry.Project == "" {
		c.Telemetry.Project = "nexa-search"
	}
	if c.Telemetry.Protocol == "" {
		c.Telemetry.Protocol = "grpc"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// CacheOn reports whether the response cache is enabled.
func (c *Config) CacheOn() bool {
	return c.Search.CacheEnabled == nil || *c.Search.CacheEnabled
}

var (
	validModes    = map[string]bool{"quick": true, "balanced": true, "deep": true}
	validBackends = map[string]bool{"auto": true, "brave": true, "tavily": true, "duckduckgo": true}
	validProtocol = map[string]bool{"grpc": true, "http": true}
)

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if !validModes[c.Search.DefaultMode] {
		return invalid("search.default_mode", c.Search.DefaultMode)
	}
	if !validBackends[c.Tools.WebSearchBackend] {
		return invalid("tools.web_search_backend", c.Tools.WebSearchBackend)
	}
	if !validProtocol[c.Telemetry.Protocol] {
		return invalid("telemetry.protocol", c.Telemetry.Protocol)
	}
	if c.LLM.MaxTokens < 0 {
		return invalid("llm.max_tokens", strconv.Itoa(c.LLM.MaxTokens))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return invalid("llm.temperature", strconv.FormatFloat(c.LLM.Temperature, 'g', -1, 64))
	}
	if c.Search.CacheTTL < 0 {
		return invalid("search.cache_ttl", c.Search.CacheTTL.String())
	}
	for _, m := range c.LLM.Models {
		if strings.TrimSpace(m) == "" {
			return invalid("llm.models", "empty model name")
		}
	}
	return nil
}

func invalid(field, value string) error {
	return errors.InvalidInput(fmt.Sprintf("invalid %s: %q", field, value),
		errors.WithMetadata("field", field))
}

// StandardPaths returns the config file locations in order of priority.
func StandardPaths() []string {
	paths := []string{"nexa.toml", "nexa.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, ".config", "nexa")
		paths = append(paths, filepath.Join(dir, "nexa.toml"), filepath.Join(dir, "nexa.yaml"))
	}
	return paths
}

// Load reads path, or the first standard path that exists when path is
// empty, then applies environment overrides and defaults and validates.
// It returns the file actually read, empty when none was found.
func Load(path string) (*Config, string, error) {
	cfg := &Config{}

	if path == "" {
		for _, candidate := range StandardPaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, path, err
		}
		cfg = loaded
	}

	cfg.ApplyEnv(os.Getenv)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// LoadFile decodes a single file. The format follows the extension:
// .yaml and .yml are YAML, everything else is TOML.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes config data in the format named by ext.
func Parse(data []byte, ext string) (*Config, error) {
	cfg := &Config{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parse yaml config", errors.WithCategory(errors.CategoryPermanent))
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, errors.Wrap(err, "parse toml config", errors.WithCategory(errors.CategoryPermanent))
		}
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables read through getenv.
// NEXA_TRACING* take precedence over their LANGCHAIN_* aliases.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("NEXA_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("NEXA_MODELS"); v != "" {
		var models []string
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		c.LLM.Models = models
	}
	if v := getenv("NEXA_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := getenv("NEXA_MODE"); v != "" {
		c.Search.DefaultMode = strings.ToLower(v)
	}
	if v := getenv("NEXA_LANGUAGE"); v != "" {
		c.Search.DefaultLanguage = strings.ToLower(v)
	}
	if v := getenv("NEXA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	if v := firstEnv(getenv, "NEXA_TRACING", "LANGCHAIN_TRACING_V2"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			c.Telemetry.Enabled = on
		}
	}
	if v := firstEnv(getenv, "NEXA_TRACING_ENDPOINT", "LANGCHAIN_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
	if v := firstEnv(getenv, "NEXA_TRACING_PROJECT", "LANGCHAIN_PROJECT"); v != "" {
		c.Telemetry.Project = v
	}
}

func firstEnv(getenv func(string) string, names ...string) string {
	for _, n := range names {
		if v := getenv(n); v != "" {
			return v
		}
	}
	return ""
}
