// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestStart_Disabled(t *testing.T) {
	system, err := Start("")
	require.NoError(t, err)
	require.Nil(t, system)
	require.NoError(t, system.Shutdown(context.Background()))
}

func TestStart_WritesSpans(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	path := filepath.Join(t.TempDir(), "trace.jsonl")
	system, err := Start(path)
	require.NoError(t, err)

	_, span := GetTracer().Start(context.Background(), "tools/list_agents")
	span.SetAttributes(ToolNameKey.String("list_agents"))
	span.End()

	require.NoError(t, system.Shutdown(context.Background()))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "tools/list_agents")
	require.Contains(t, string(contents), "mcp.tool.name")
	require.Contains(t, string(contents), "azure-ai-foundry")
}
