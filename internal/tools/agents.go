// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package tools

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/agents"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const noDefaultAgentMessage = "No default agent configured. Set DEFAULT_AGENT_ID environment variable or use connect_agent tool."

func (t *Toolset) newListAgentsTool() server.ServerTool {
	return server.ServerTool{
		Tool: mcp.NewTool(
			"list_agents",
			mcp.WithDescription("List available agents in the Azure AI Agent Service."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(true),
		),
		Handler: handler("list_agents", t.handleListAgents),
	}
}

func (t *Toolset) handleListAgents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.agentReady(); err != nil {
		return mcp.NewToolResultError("Error: " + agentNotInitializedMessage), nil
	}

	list, err := t.gateway.ListAgents(ctx)
	if err != nil {
		log.Printf("Error listing agents: %v", err)
		return mcp.NewToolResultError(fmt.Sprintf("Error listing agents: %s", err)), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No agents found in the Azure AI Agent Service."), nil
	}

	var sb strings.Builder
	sb.WriteString("## Available Azure AI Agents\n\n")
	for _, agent := range list {
		sb.WriteString(fmt.Sprintf("- **%s**: `%s`\n", agent.Name, agent.ID))
	}
	if t.cfg.DefaultAgentID != "" {
		sb.WriteString(fmt.Sprintf("\n**Default Agent ID**: `%s`", t.cfg.DefaultAgentID))
	}

	return mcp.NewToolResultText(sb.String()), nil
}

func (t *Toolset) newConnectAgentTool() server.ServerTool {
	return server.ServerTool{
		Tool: mcp.NewTool(
			"connect_agent",
			mcp.WithDescription(
				"Connect to a specific Azure AI Agent and run a query. "+
					"Returns the agent's response and the thread and run ids for later evaluation."),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(true),
			mcp.WithString("agent_id",
				mcp.Description("ID of the agent to connect to"),
				mcp.Required(),
			),
			mcp.WithString("query",
				mcp.Description("Text query to send to the agent"),
				mcp.Required(),
			),
		),
		Handler: handler("connect_agent", t.handleConnectAgent),
	}
}

func (t *Toolset) handleConnectAgent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.agentReady(); err != nil {
		return nil, err
	}
	agentID, err := request.RequireString("agent_id")
	if err != nil {
		return nil, exterrors.Validation(exterrors.CodeInvalidArguments, err.Error(), "")
	}
	query, err := request.RequireString("query")
	if err != nil {
		return nil, exterrors.Validation(exterrors.CodeInvalidArguments, err.Error(), "")
	}

	result, err := t.query(ctx, agentID, query)
	if err != nil {
		log.Printf("Error connecting to agent: %v", err)
		return errorResult(err, "Error connecting to agent: "), nil
	}
	return jsonResult(result), nil
}

func (t *Toolset) newQueryDefaultAgentTool() server.ServerTool {
	return server.ServerTool{
		Tool: mcp.NewTool(
			"query_default_agent",
			mcp.WithDescription(
				"Send a query to the default configured Azure AI Agent. "+
					"Returns the agent's response and the thread and run ids for later evaluation."),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(true),
			mcp.WithString("query",
				mcp.Description("Text query to send to the default agent"),
				mcp.Required(),
			),
		),
		Handler: handler("query_default_agent", t.handleQueryDefaultAgent),
	}
}

func (t *Toolset) handleQueryDefaultAgent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.agentReady(); err != nil {
		return nil, err
	}
	if t.cfg.DefaultAgentID == "" {
		return nil, exterrors.Configuration(exterrors.CodeMissingDefaultAgent, noDefaultAgentMessage, "")
	}
	query, err := request.RequireString("query")
	if err != nil {
		return nil, exterrors.Validation(exterrors.CodeInvalidArguments, err.Error(), "")
	}

	result, err := t.query(ctx, t.cfg.DefaultAgentID, query)
	if err != nil {
		log.Printf("Error querying default agent: %v", err)
		return errorResult(err, "Error querying default agent: "), nil
	}
	return jsonResult(result), nil
}

// query runs the agent and attaches the ids of a partially completed query to its error.
func (t *Toolset) query(ctx context.Context, agentID, query string) (*agents.QueryResult, error) {
	result, err := t.orchestrator.QueryAgent(ctx, agentID, query)
	if err != nil {
		if result != nil {
			return nil, withIDs(err, result.ThreadID, result.RunID)
		}
		return nil, err
	}
	return result, nil
}
