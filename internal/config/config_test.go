// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func lookupFrom(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	require.NoError(t, err)

	require.Equal(t, DefaultPollInterval, cfg.PollInterval)
	require.Equal(t, DefaultRunTimeout, cfg.RunTimeout)
	require.Equal(t, DefaultHeartbeatInterval, cfg.HeartbeatInterval)
	require.Equal(t, DefaultEvalConcurrency, cfg.EvalConcurrency)
	require.Equal(t, ".", cfg.EvalDataDir)
	require.False(t, cfg.EvaluationInitialized())
	require.False(t, cfg.AgentInitialized())
	require.False(t, cfg.HasProjectScope())
	require.Len(t, cfg.Warnings(), 3)
}

func TestFromLookup_Initialized(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"AZURE_SUBSCRIPTION_ID":     "sub",
		"AZURE_RESOURCE_GROUP":      "rg",
		"AZURE_PROJECT_NAME":        "proj",
		"AZURE_OPENAI_ENDPOINT":     "https://example.openai.azure.com",
		"AZURE_OPENAI_API_KEY":      "key",
		"AZURE_OPENAI_DEPLOYMENT":   "gpt-4o",
		"PROJECT_CONNECTION_STRING": "host;sub;rg;proj",
		"DEFAULT_AGENT_ID":          "asst_1",
		"FOUNDRY_MCP_DEBUG":         "true",
	}))
	require.NoError(t, err)

	require.True(t, cfg.EvaluationInitialized())
	require.True(t, cfg.AgentInitialized())
	require.True(t, cfg.HasProjectScope())
	require.True(t, cfg.OpenAI.Configured())
	require.True(t, cfg.Debug)
	require.Empty(t, cfg.Warnings())
}

func TestFromLookup_Durations(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{name: "go duration", raw: "90s", want: 90 * time.Second},
		{name: "bare seconds", raw: "30", want: 30 * time.Second},
		{name: "zero means unbounded", raw: "0", want: 0},
		{name: "garbage", raw: "soon", wantErr: true},
		{name: "negative", raw: "-1m", wantErr: true},
		{name: "negative bare seconds", raw: "-60", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromLookup(lookupFrom(map[string]string{"FOUNDRY_AGENT_RUN_TIMEOUT": tt.raw}))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, cfg.RunTimeout)
		})
	}
}

func TestFromLookup_RejectsZeroPollInterval(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{"FOUNDRY_AGENT_POLL_INTERVAL": "0s"}))
	require.Error(t, err)
}

func TestFromLookup_RejectsBadConcurrency(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{"FOUNDRY_EVAL_CONCURRENCY": "0"}))
	require.Error(t, err)
}

func TestLoad_EnvFileDoesNotOverride(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"AZURE_PROJECT_NAME=from-file\nAZURE_RESOURCE_GROUP=rg-from-file\n"), 0600))

	t.Setenv("AZURE_PROJECT_NAME", "from-env")
	t.Setenv("AZURE_RESOURCE_GROUP", "")
	require.NoError(t, os.Unsetenv("AZURE_RESOURCE_GROUP"))

	cfg, err := Load(envFile)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.ProjectName)
	require.Equal(t, "rg-from-file", cfg.ResourceGroup)
}

func TestLoad_MissingExplicitEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}
