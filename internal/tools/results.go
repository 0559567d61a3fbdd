// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/azure"
	"github.com/azure/azure-ai-foundry-mcp/internal/telemetry"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// jsonResult marshals data to JSON and creates a text-content CallToolResult.
func jsonResult(data any) *mcp.CallToolResult {
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal JSON: %s", err))
	}

	return mcp.NewToolResultText(string(jsonBytes))
}

// errorResult renders err as {"error": message} plus any identifiers it carries
// (thread_id, run_id, agent_id, ...) and marks the result as an error.
func errorResult(err error, prefix string) *mcp.CallToolResult {
	message := err.Error()
	if prefix != "" {
		message = prefix + message
	}

	payload := map[string]any{"error": message}
	for key, value := range exterrors.DetailsOf(err) {
		payload[key] = value
	}

	result := jsonResult(payload)
	result.IsError = true
	return result
}

// withIDs adds the non-empty thread and run ids of a partially completed query to the error payload.
func withIDs(err error, threadID, runID string) error {
	details := map[string]string{}
	if threadID != "" {
		details["thread_id"] = threadID
	}
	if runID != "" {
		details["run_id"] = runID
	}
	if len(details) == 0 {
		return err
	}
	for key, value := range exterrors.DetailsOf(err) {
		details[key] = value
	}

	return &exterrors.LocalError{
		Message:  err.Error(),
		Code:     exterrors.CodeAgentClientFailed,
		Category: exterrors.LocalErrorCategoryDependency,
		Details:  details,
		Cause:    err,
	}
}

// handler tags every call with a correlation id shared by the Azure requests it issues and
// records the call as a span.
func handler(name string, fn server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = azure.WithCorrelationID(ctx)
		correlationID := azure.CorrelationID(ctx)
		log.Printf("tool %s called (correlation id: %s)", name, correlationID)

		ctx, span := telemetry.GetTracer().Start(ctx, "tools/"+name, trace.WithAttributes(
			telemetry.ToolNameKey.String(name),
			telemetry.CorrelationIDKey.String(correlationID),
		))
		defer span.End()

		result, err := fn(ctx, request)
		if err != nil {
			// handlers report failures in the payload; never surface a protocol error
			log.Printf("tool %s failed: %v", name, err)
			span.SetStatus(codes.Error, err.Error())
			return errorResult(err, ""), nil
		}
		if result != nil && result.IsError {
			log.Printf("tool %s returned an error result", name)
			span.SetStatus(codes.Error, "ToolError")
		}
		return result, nil
	}
}

// stringList reads an argument that may be a single string or an array of strings.
func stringList(request mcp.CallToolRequest, key string) ([]string, error) {
	raw, has := request.GetArguments()[key]
	if !has || raw == nil {
		return nil, nil
	}

	switch value := raw.(type) {
	case string:
		if value == "" {
			return nil, nil
		}
		return []string{value}, nil
	case []string:
		return value, nil
	case []any:
		values := make([]string, 0, len(value))
		for _, item := range value {
			s, ok := item.(string)
			if !ok {
				return nil, exterrors.Validation(
					exterrors.CodeInvalidArguments,
					fmt.Sprintf("%s must be a list of strings", key),
					"",
				)
			}
			values = append(values, s)
		}
		return values, nil
	}

	return nil, exterrors.Validation(
		exterrors.CodeInvalidArguments,
		fmt.Sprintf("%s must be a string or a list of strings", key),
		"",
	)
}

// rawJSON reads an argument that clients may send either as a JSON string or as structured JSON.
// Structured values are re-encoded so they can be decoded the same way as strings.
func rawJSON(request mcp.CallToolRequest, key string) (string, error) {
	raw, has := request.GetArguments()[key]
	if !has || raw == nil {
		return "", nil
	}
	if s, ok := raw.(string); ok {
		return s, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return "", exterrors.Validation(
			exterrors.CodeInvalidArguments,
			fmt.Sprintf("%s is not valid JSON: %s", key, err),
			"",
		)
	}
	return string(data), nil
}
