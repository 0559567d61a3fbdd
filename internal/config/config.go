// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package config resolves the server's connection parameters and tuning knobs from the
// process environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPollInterval      = time.Second
	DefaultRunTimeout        = 10 * time.Minute
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultEvalConcurrency   = 4
	DefaultEvalDataDir       = "."
)

// OpenAIConfig is the Azure OpenAI deployment used by model-backed evaluators.
type OpenAIConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
}

// Configured reports whether a judge model can be called.
func (c OpenAIConfig) Configured() bool {
	return c.Endpoint != "" && c.APIKey != "" && c.Deployment != ""
}

// Config is constructed once at startup and passed explicitly to every component.
type Config struct {
	SubscriptionID string
	ResourceGroup  string
	ProjectName    string
	TenantID       string

	OpenAI OpenAIConfig

	EvalDataDir string

	ProjectConnectionString string
	ProjectEndpoint         string
	DefaultAgentID          string

	PollInterval      time.Duration
	RunTimeout        time.Duration
	HeartbeatInterval time.Duration
	EvalConcurrency   int

	Debug bool
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads envFile (when non-empty, or ./.env when present) into the process environment
// without overriding variables that are already set, then resolves the configuration.
func Load(envFile string) (*Config, error) {
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	return FromLookup(os.LookupEnv)
}

func loadDotEnv(envFile string) error {
	explicit := envFile != ""
	if !explicit {
		envFile = ".env"
	}

	values, err := godotenv.Read(envFile)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("can't read %s: %w", envFile, err)
	}

	for key, value := range values {
		if _, has := os.LookupEnv(key); has {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("setting %s from %s: %w", key, envFile, err)
		}
	}

	return nil
}

// FromLookup resolves the configuration through lookup.
func FromLookup(lookup LookupFunc) (*Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := &Config{
		SubscriptionID: get("AZURE_SUBSCRIPTION_ID"),
		ResourceGroup:  get("AZURE_RESOURCE_GROUP"),
		ProjectName:    get("AZURE_PROJECT_NAME"),
		TenantID:       get("AZURE_TENANT_ID"),
		OpenAI: OpenAIConfig{
			Endpoint:   get("AZURE_OPENAI_ENDPOINT"),
			APIKey:     get("AZURE_OPENAI_API_KEY"),
			Deployment: get("AZURE_OPENAI_DEPLOYMENT"),
			APIVersion: get("AZURE_OPENAI_API_VERSION"),
		},
		EvalDataDir:             get("EVAL_DATA_DIR"),
		ProjectConnectionString: get("PROJECT_CONNECTION_STRING"),
		ProjectEndpoint:         get("AZURE_AI_PROJECT_ENDPOINT"),
		DefaultAgentID:          get("DEFAULT_AGENT_ID"),
	}
	if cfg.EvalDataDir == "" {
		cfg.EvalDataDir = DefaultEvalDataDir
	}

	var err error
	if cfg.PollInterval, err = durationOr(get("FOUNDRY_AGENT_POLL_INTERVAL"), DefaultPollInterval); err != nil {
		return nil, fmt.Errorf("FOUNDRY_AGENT_POLL_INTERVAL: %w", err)
	}
	if cfg.RunTimeout, err = durationOr(get("FOUNDRY_AGENT_RUN_TIMEOUT"), DefaultRunTimeout); err != nil {
		return nil, fmt.Errorf("FOUNDRY_AGENT_RUN_TIMEOUT: %w", err)
	}
	if cfg.HeartbeatInterval, err = durationOr(
		get("FOUNDRY_EVAL_HEARTBEAT_INTERVAL"), DefaultHeartbeatInterval); err != nil {
		return nil, fmt.Errorf("FOUNDRY_EVAL_HEARTBEAT_INTERVAL: %w", err)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("FOUNDRY_AGENT_POLL_INTERVAL must be positive, got %s", cfg.PollInterval)
	}
	if cfg.HeartbeatInterval <= 0 {
		return nil, fmt.Errorf("FOUNDRY_EVAL_HEARTBEAT_INTERVAL must be positive, got %s", cfg.HeartbeatInterval)
	}

	cfg.EvalConcurrency = DefaultEvalConcurrency
	if v := get("FOUNDRY_EVAL_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("FOUNDRY_EVAL_CONCURRENCY must be a positive integer, got %q", v)
		}
		cfg.EvalConcurrency = n
	}

	if v := get("FOUNDRY_MCP_DEBUG"); v != "" {
		cfg.Debug, _ = strconv.ParseBool(v)
	}

	return cfg, nil
}

// durationOr parses a Go duration, falling back to def when raw is empty.
// A bare integer is read as seconds.
func durationOr(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	var d time.Duration
	if secs, err := strconv.Atoi(raw); err == nil {
		d = time.Duration(secs) * time.Second
	} else if d, err = time.ParseDuration(raw); err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

// EvaluationInitialized reports whether the evaluation subsystem is usable.
func (c *Config) EvaluationInitialized() bool {
	return c.SubscriptionID != "" && c.OpenAI.Endpoint != ""
}

// AgentInitialized reports whether the agent subsystem is usable.
func (c *Config) AgentInitialized() bool {
	return c.ProjectConnectionString != "" || c.ProjectEndpoint != ""
}

// HasProjectScope reports whether subscription, resource group and project are all known.
func (c *Config) HasProjectScope() bool {
	return c.SubscriptionID != "" && c.ResourceGroup != "" && c.ProjectName != ""
}

// Warnings lists the missing settings that disable part of the server.
func (c *Config) Warnings() []string {
	var warnings []string
	if !c.EvaluationInitialized() {
		var missing []string
		if c.SubscriptionID == "" {
			missing = append(missing, "AZURE_SUBSCRIPTION_ID")
		}
		if c.OpenAI.Endpoint == "" {
			missing = append(missing, "AZURE_OPENAI_ENDPOINT")
		}
		warnings = append(warnings,
			fmt.Sprintf("evaluation tools disabled, missing %s", strings.Join(missing, ", ")))
	}
	if !c.AgentInitialized() {
		warnings = append(warnings,
			"agent tools disabled, set PROJECT_CONNECTION_STRING or AZURE_AI_PROJECT_ENDPOINT")
	}
	if c.DefaultAgentID == "" {
		warnings = append(warnings, "DEFAULT_AGENT_ID not set, query_default_agent is unavailable")
	}
	return warnings
}
