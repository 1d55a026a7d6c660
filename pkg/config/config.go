// devopsmcp - MCP tool gateway for DevOps services
// License: MIT
//
// Copyright (c) 2026 devopsmcp contributors

// Package config loads the gateway configuration: a YAML file for services,
// timeouts and policies, and the environment for credentials and model
// selection.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultOneShotTimeout = 8 * time.Second
	DefaultMaxInFlight    = 1
	DefaultMaxChars       = 12000
)

// Config is the full gateway configuration.
type Config struct {
	Services  []ServiceConfig           `yaml:"services"`
	Gateway   GatewayConfig             `yaml:"gateway"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Audit     AuditConfig               `yaml:"audit"`

	// Env is never read from the file.
	Env Environment `yaml:"-"`

	path string
}

// ServiceConfig describes one provider the gateway brings up.
type ServiceConfig struct {
	ID     string `yaml:"id"`
	Family string `yaml:"family"`
	// Command overrides the provider executable. Empty means this binary
	// run as "provider <family>".
	Command string            `yaml:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	// Disabled services stay unregistered and answer from the mock policy.
	Disabled bool `yaml:"disabled,omitempty"`
}

// GatewayConfig holds gateway timeouts and bounds. Zero CallTimeout means
// calls are bounded only by the caller's context.
type GatewayConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	CallTimeout    time.Duration `yaml:"call_timeout"`
	OneShotTimeout time.Duration `yaml:"oneshot_timeout"`
	MaxInFlight    int           `yaml:"max_in_flight"`
}

// ProviderConfig holds per-family provider settings.
type ProviderConfig struct {
	// Validation maps a tool name to "strict" or "lenient".
	Validation map[string]string `yaml:"validation,omitempty"`
}

// AuditConfig controls the invocation audit log.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Backend string `yaml:"backend,omitempty"` // jsonl (default), sqlite, postgres
	Dir     string `yaml:"dir,omitempty"`
	// DSN is the SQLite file or PostgreSQL connection string.
	// DEVOPSMCP_AUDIT_DSN overrides it.
	DSN string `yaml:"dsn,omitempty"`
}

// Environment is everything taken from environment variables.
type Environment struct {
	NotionAPIKey     string `env:"NOTION_API_KEY"`
	NotionRootPageID string `env:"NOTION_ROOT_PAGE_ID"`
	NotionBaseURL    string `env:"NOTION_BASE_URL" envDefault:"https://api.notion.com"`

	SlackBotToken   string `env:"SLACK_BOT_TOKEN"`
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`
	SlackAPIURL     string `env:"SLACK_API_URL"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	ClaudeAPIKey    string `env:"CLAUDE_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	LLM             string `env:"DEVOPSMCP_LLM" envDefault:"auto"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-5"`
	OpenAIModel     string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	MaxChars        int    `env:"MAX_CHARS" envDefault:"12000"`

	AuditDSN string `env:"DEVOPSMCP_AUDIT_DSN"`
}

// AnthropicKey prefers ANTHROPIC_API_KEY over the CLAUDE_API_KEY alias.
func (e Environment) AnthropicKey() string {
	if e.AnthropicAPIKey != "" {
		return e.AnthropicAPIKey
	}
	return e.ClaudeAPIKey
}

// SlackToken returns the bot token, or "" for placeholder test tokens.
func (e Environment) SlackToken() string {
	t := strings.TrimSpace(e.SlackBotToken)
	if t == "" || strings.HasPrefix(t, "xoxb-test") {
		return ""
	}
	return t
}

// DefaultServices is the service set used when the file names none.
func DefaultServices() []ServiceConfig {
	return []ServiceConfig{
		{ID: "devops", Family: "docs"},
		{ID: "notion", Family: "notes"},
		{ID: "slack", Family: "messaging"},
		{ID: "reviewer", Family: "reviewer"},
	}
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return &Config{
		Services: DefaultServices(),
		Gateway: GatewayConfig{
			ConnectTimeout: DefaultConnectTimeout,
			OneShotTimeout: DefaultOneShotTimeout,
			MaxInFlight:    DefaultMaxInFlight,
		},
		Providers: map[string]ProviderConfig{},
		Env: Environment{
			NotionBaseURL:  "https://api.notion.com",
			LLM:            "auto",
			AnthropicModel: "claude-sonnet-4-5",
			OpenAIModel:    "gpt-4o-mini",
			MaxChars:       DefaultMaxChars,
		},
	}
}

// DefaultPath is ~/.devopsmcp/config.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".devopsmcp", "config.yaml")
}

// Dir is the directory holding the config file.
func (c *Config) Dir() string {
	if c.path == "" {
		return filepath.Dir(DefaultPath())
	}
	return filepath.Dir(c.path)
}

// Path is the file the configuration was loaded from ("" for defaults).
func (c *Config) Path() string { return c.path }

// LoadConfig reads path (missing file means defaults) and the process
// environment.
func LoadConfig(path string) (*Config, error) {
	return load(path, env.Options{})
}

// LoadConfigWithEnv is LoadConfig with an explicit environment instead of
// the process one.
func LoadConfigWithEnv(path string, environ map[string]string) (*Config, error) {
	if environ == nil {
		environ = map[string]string{}
	}
	return load(path, env.Options{Environment: environ})
}

func load(path string, opts env.Options) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
			cfg.path = path
		}
	}

	if err := env.ParseWithOptions(&cfg.Env, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Services) == 0 {
		c.Services = DefaultServices()
	}
	if c.Gateway.ConnectTimeout <= 0 {
		c.Gateway.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Gateway.OneShotTimeout <= 0 {
		c.Gateway.OneShotTimeout = DefaultOneShotTimeout
	}
	if c.Gateway.MaxInFlight <= 0 {
		c.Gateway.MaxInFlight = DefaultMaxInFlight
	}
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	if c.Env.MaxChars <= 0 {
		c.Env.MaxChars = DefaultMaxChars
	}
	if c.Env.AuditDSN != "" {
		c.Audit.DSN = c.Env.AuditDSN
	}
	if c.Audit.Dir == "" {
		c.Audit.Dir = filepath.Join(c.Dir(), "audit")
	}
}

var knownFamilies = map[string]bool{"docs": true, "notes": true, "messaging": true, "reviewer": true}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	seen := map[string]bool{}
	for i, s := range c.Services {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("services[%d]: id is required", i))
		} else if seen[s.ID] {
			errs = append(errs, fmt.Errorf("services[%d]: duplicate id %q", i, s.ID))
		}
		seen[s.ID] = true
		if !knownFamilies[s.Family] {
			errs = append(errs, fmt.Errorf("services[%d]: unknown family %q", i, s.Family))
		}
	}
	if c.Gateway.CallTimeout < 0 {
		errs = append(errs, errors.New("gateway.call_timeout must not be negative"))
	}
	for family, pc := range c.Providers {
		if !knownFamilies[family] {
			errs = append(errs, fmt.Errorf("providers: unknown family %q", family))
		}
		for tool, v := range pc.Validation {
			switch strings.ToLower(v) {
			case "strict", "lenient":
			default:
				errs = append(errs, fmt.Errorf("providers.%s.validation[%s]: %q is not strict or lenient", family, tool, v))
			}
		}
	}
	switch c.Audit.Backend {
	case "", "jsonl", "sqlite":
	case "postgres":
		if c.Audit.DSN == "" {
			errs = append(errs, errors.New("audit.dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("audit.backend: %q is not jsonl, sqlite or postgres", c.Audit.Backend))
	}
	switch c.Env.LLM {
	case "auto", "anthropic", "openai", "mock":
	default:
		errs = append(errs, fmt.Errorf("DEVOPSMCP_LLM: %q is not auto, anthropic, openai or mock", c.Env.LLM))
	}
	return errors.Join(errs...)
}

// Service returns the configuration of one service.
func (c *Config) Service(id string) (ServiceConfig, bool) {
	for _, s := range c.Services {
		if s.ID == id {
			return s, true
		}
	}
	return ServiceConfig{}, false
}
