// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package tools

import (
	"context"
	"log"

	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/agents"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/evaluation"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// QueryAndEvaluateResult pairs an agent answer with the evaluation of the run that produced it.
type QueryAndEvaluateResult struct {
	Query      *agents.QueryResult          `json:"query_result"`
	Evaluation *evaluation.ThreadEvalResult `json:"evaluation,omitempty"`
	Error      string                       `json:"error,omitempty"`
}

func (t *Toolset) newEvaluateAgentThreadTool() server.ServerTool {
	return server.ServerTool{
		Tool: mcp.NewTool(
			"evaluate_agent_thread",
			mcp.WithDescription(
				"Evaluate an agent run recorded in a thread. The thread's messages, the run's steps and "+
					"the agent's tool definitions are converted into agent evaluator inputs."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithIdempotentHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(true),
			mcp.WithString("thread_id",
				mcp.Description("ID of the thread, as returned by connect_agent or query_default_agent"),
				mcp.Required(),
			),
			mcp.WithString("run_id",
				mcp.Description("ID of the run to evaluate. Defaults to the run of the latest agent response."),
			),
			mcp.WithArray("evaluator_names",
				mcp.Description("Agent evaluator names. Defaults to every agent evaluator."),
				mcp.WithStringItems(),
			),
		),
		Handler: handler("evaluate_agent_thread", t.handleEvaluateAgentThread),
	}
}

func (t *Toolset) handleEvaluateAgentThread(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	if err := t.agentReady(); err != nil {
		return nil, err
	}
	threadID, err := request.RequireString("thread_id")
	if err != nil {
		return nil, exterrors.Validation(exterrors.CodeInvalidArguments, err.Error(), "")
	}
	names, err := stringList(request, "evaluator_names")
	if err != nil {
		return nil, err
	}

	result, err := t.evaluateThread(ctx, threadID, request.GetString("run_id", ""), names)
	if err != nil {
		return nil, err
	}
	return jsonResult(result), nil
}

func (t *Toolset) newAgentQueryAndEvaluateTool() server.ServerTool {
	return server.ServerTool{
		Tool: mcp.NewTool(
			"agent_query_and_evaluate",
			mcp.WithDescription("Query an agent, then evaluate the run that produced its answer."),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(true),
			mcp.WithString("agent_id",
				mcp.Description("ID of the agent to query"),
				mcp.Required(),
			),
			mcp.WithString("query",
				mcp.Description("Text query to send to the agent"),
				mcp.Required(),
			),
			mcp.WithArray("evaluator_names",
				mcp.Description("Agent evaluator names. Defaults to every agent evaluator."),
				mcp.WithStringItems(),
			),
		),
		Handler: handler("agent_query_and_evaluate", t.handleAgentQueryAndEvaluate),
	}
}

func (t *Toolset) handleAgentQueryAndEvaluate(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
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
	names, err := stringList(request, "evaluator_names")
	if err != nil {
		return nil, err
	}
	// reject bad names before the agent is queried
	for _, name := range names {
		if !evaluation.IsAgentEvaluator(name) {
			return nil, exterrors.UnknownEvaluator(name)
		}
	}

	queryResult, err := t.query(ctx, agentID, query)
	if err != nil {
		return errorResult(err, "Error connecting to agent: "), nil
	}

	result := &QueryAndEvaluateResult{Query: queryResult}
	if !queryResult.Success {
		result.Error = queryResult.Error
		return jsonResult(result), nil
	}

	result.Evaluation, err = t.evaluateThread(ctx, queryResult.ThreadID, queryResult.RunID, names)
	if err != nil {
		log.Printf("evaluating thread %s: %v", queryResult.ThreadID, err)
		result.Error = err.Error()
	}
	return jsonResult(result), nil
}

func (t *Toolset) evaluateThread(
	ctx context.Context,
	threadID, runID string,
	names []string,
) (*evaluation.ThreadEvalResult, error) {
	snapshot, err := t.gateway.FetchThread(ctx, threadID, runID)
	if err != nil {
		return nil, withIDs(err, threadID, runID)
	}

	return t.evaluation.EvaluateThread(ctx, snapshot, names)
}
