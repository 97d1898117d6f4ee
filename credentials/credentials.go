// Package credentials loads API keys for model providers and search backends.
//
// Keys come from a credentials.toml file with one section per provider:
//
//	[groq]
//	api_key = "gsk_..."
//
//	[brave]
//	api_key = "..."
//
// Any key missing from the file falls back to the provider's environment
// variable (GROQ_API_KEY, BRAVE_API_KEY, TAVILY_API_KEY, ...).
package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/vinayprograms/nexa/errors"
)

// ErrInsecurePermissions is returned when credentials file has overly permissive permissions.
var ErrInsecurePermissions = fmt.Errorf("credentials file has insecure permissions")

// Credentials holds API keys loaded from credentials.toml.
type Credentials struct {
	// LLM is the generic model API key, used when a model provider has no section.
	LLM *ProviderCreds

	providers map[string]*ProviderCreds
}

// ProviderCreds holds credentials for a single provider.
type ProviderCreds struct {
	APIKey string `toml:"api_key"`
}

// searchBackends never fall back to the generic [llm] key.
var searchBackends = map[string]bool{
	"brave":  true,
	"tavily": true,
}

// StandardPaths returns the standard credential file locations in order of priority.
func StandardPaths() []string {
	paths := []string{"credentials.toml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "nexa", "credentials.toml"))
		paths = append(paths, filepath.Join(home, ".nexa", "credentials.toml"))
	}

	return paths
}

// Load loads credentials from the first available standard location.
// A missing file is not an error: the returned Credentials is nil and every
// lookup falls back to the environment.
func Load() (*Credentials, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			creds, err := LoadFile(path)
			if err != nil {
				return nil, path, err
			}
			return creds, path, nil
		}
	}
	return nil, "", nil
}

// LoadFile loads credentials from a specific file.
// Returns ErrInsecurePermissions if the file is not 0400.
func LoadFile(path string) (*Credentials, error) {
	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		mode := info.Mode().Perm()
		if mode != 0400 {
			return nil, fmt.Errorf("%w: %s has mode %04o (must be 0400)",
				ErrInsecurePermissions, path, mode)
		}
	}

	var raw map[string]ProviderCreds
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	creds := &Credentials{providers: make(map[string]*ProviderCreds)}
	for name, section := range raw {
		if section.APIKey == "" {
			continue
		}
		section := section
		if name == "llm" {
			creds.LLM = &section
			continue
		}
		creds.providers[normalize(name)] = &section
	}
	return creds, nil
}

// GetAPIKey returns the API key for a provider.
// Priority: [provider] section > [llm] section (model providers only) > environment.
func (c *Credentials) GetAPIKey(provider string) string {
	name := normalize(provider)
	if c != nil {
		if creds, ok := c.providers[name]; ok && creds.APIKey != "" {
			return creds.APIKey
		}
		if !searchBackends[name] && c.LLM != nil && c.LLM.APIKey != "" {
			return c.LLM.APIKey
		}
	}
	return os.Getenv(EnvVar(provider))
}

// Require returns the API key for a provider or an UNAUTHORIZED error naming
// the environment variable to set.
func (c *Credentials) Require(provider string) (string, error) {
	if key := c.GetAPIKey(provider); key != "" {
		return key, nil
	}
	return "", errors.Unauthorized(
		fmt.Sprintf("API key not found for %s: set %s or add [%s] to credentials.toml",
			provider, EnvVar(provider), normalize(provider)),
		errors.WithMetadata("provider", provider))
}

// Providers lists the sections present in the file, sorted.
func (c *Credentials) Providers() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnvVar returns the environment variable consulted for a provider.
func EnvVar(provider string) string {
	switch normalize(provider) {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai", "openaicompat":
		return "OPENAI_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	case "brave":
		return "BRAVE_API_KEY"
	case "tavily":
		return "TAVILY_API_KEY"
	default:
		return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(provider)) + "_API_KEY"
	}
}

func normalize(provider string) string {
	return strings.ToLower(strings.ReplaceAll(provider, "-", ""))
}
