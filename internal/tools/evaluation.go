// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/evaluation"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (t *Toolset) newListTextEvaluatorsTool() server.ServerTool {
	return server.ServerTool{
		Tool: mcp.NewTool(
			"list_text_evaluators",
			mcp.WithDescription("Returns a list of available text evaluator names for evaluating text outputs."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(false),
		),
		Handler: handler("list_text_evaluators",
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return jsonResult(evaluation.TextEvaluatorNames()), nil
			}),
	}
}

func (t *Toolset) newListAgentEvaluatorsTool() server.ServerTool {
	return server.ServerTool{
		Tool: mcp.NewTool(
			"list_agent_evaluators",
			mcp.WithDescription("Returns a list of available agent evaluator names for evaluating agent behaviors."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(false),
		),
		Handler: handler("list_agent_evaluators",
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return jsonResult(evaluation.AgentEvaluatorNames()), nil
			}),
	}
}

func (t *Toolset) newGetTextEvaluatorRequirementsTool() server.ServerTool {
	return server.ServerTool{
		Tool: mcp.NewTool(
			"get_text_evaluator_requirements",
			mcp.WithDescription(
				"Get the required input fields for a specific text evaluator or all text evaluators."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(false),
			mcp.WithString("evaluator_name",
				mcp.Description("Name of the evaluator. Omit to return the requirements of every text evaluator."),
			),
		),
		Handler: handler("get_text_evaluator_requirements",
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return requirementsResult(evaluation.TextEvaluatorRequirements, request.GetString("evaluator_name", ""))
			}),
	}
}

func (t *Toolset) newGetAgentEvaluatorRequirementsTool() server.ServerTool {
	return server.ServerTool{
		Tool: mcp.NewTool(
			"get_agent_evaluator_requirements",
			mcp.WithDescription(
				"Get the required input fields for a specific agent evaluator or all agent evaluators."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(false),
			mcp.WithString("evaluator_name",
				mcp.Description("Name of the evaluator. Omit to return the requirements of every agent evaluator."),
			),
		),
		Handler: handler("get_agent_evaluator_requirements",
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return requirementsResult(evaluation.AgentEvaluatorRequirements, request.GetString("evaluator_name", ""))
			}),
	}
}

func requirementsResult(table evaluation.RequirementTable, name string) (*mcp.CallToolResult, error) {
	if name == "" {
		return jsonResult(table), nil
	}

	entry, ok := table.Lookup(name)
	if !ok {
		return nil, exterrors.UnknownEvaluator(name)
	}
	return jsonResult(entry), nil
}

func (t *Toolset) newRunTextEvalTool() server.ServerTool {
	return server.ServerTool{
		Tool: mcp.NewTool(
			"run_text_eval",
			mcp.WithDescription(
				"Run one or more text evaluators over a JSONL dataset given as a file path or as inline content. "+
					"Returns the aggregated metrics, the row count and optionally per-row results."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithIdempotentHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(true),
			mcp.WithArray("evaluator_names",
				mcp.Description("Text evaluator names, see list_text_evaluators. A single name is also accepted."),
				mcp.WithStringItems(),
				mcp.Required(),
			),
			mcp.WithString("file_path",
				mcp.Description("Path to a JSONL file, absolute or relative to EVAL_DATA_DIR."),
			),
			mcp.WithString("content",
				mcp.Description("Inline JSONL content, one JSON object per line. Ignored when file_path is set."),
			),
			mcp.WithBoolean("include_studio_url",
				mcp.Description("Include a link to the project's evaluation list in the Azure AI Foundry portal. "+
					"Results of this run are not uploaded there."),
				mcp.DefaultBool(true),
			),
			mcp.WithBoolean("return_row_results",
				mcp.Description("Include the inputs and outputs of every row."),
				mcp.DefaultBool(false),
			),
		),
		Handler: handler("run_text_eval", t.handleRunTextEval),
	}
}

func (t *Toolset) handleRunTextEval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := stringList(request, "evaluator_names")
	if err != nil {
		return nil, err
	}

	result, err := t.evaluation.RunTextEval(ctx, evaluation.TextEvalRequest{
		EvaluatorNames:   names,
		FilePath:         request.GetString("file_path", ""),
		Content:          request.GetString("content", ""),
		IncludeStudioURL: request.GetBool("include_studio_url", true),
		ReturnRowResults: request.GetBool("return_row_results", false),
		Progress:         progressNotifier(request),
	})
	if err != nil {
		return nil, err
	}

	return jsonResult(result), nil
}

// progressNotifier returns a ProgressFunc that forwards heartbeat ticks to the client, or nil
// when the client did not ask for progress.
func progressNotifier(request mcp.CallToolRequest) evaluation.ProgressFunc {
	if request.Params.Meta == nil || request.Params.Meta.ProgressToken == nil {
		return nil
	}
	token := request.Params.Meta.ProgressToken

	return func(ctx context.Context, elapsed time.Duration) {
		mcpServer := server.ServerFromContext(ctx)
		if mcpServer == nil {
			return
		}

		seconds := int(elapsed.Seconds())
		err := mcpServer.SendNotificationToClient(ctx, "notifications/progress", map[string]any{
			"progressToken": token,
			"progress":      seconds,
			"message":       fmt.Sprintf("Evaluation in progress... (%ds)", seconds),
		})
		if err != nil {
			log.Printf("sending progress notification: %v", err)
		}
	}
}

func (t *Toolset) newFormatEvaluationReportTool() server.ServerTool {
	return server.ServerTool{
		Tool: mcp.NewTool(
			"format_evaluation_report",
			mcp.WithDescription("Format the result of run_text_eval as a readable markdown report."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(false),
			mcp.WithObject("evaluation_result",
				mcp.Description("The evaluation result returned by run_text_eval."),
				mcp.Required(),
			),
		),
		Handler: handler("format_evaluation_report",
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				raw, err := rawJSON(request, "evaluation_result")
				if err != nil {
					return nil, err
				}
				if strings.TrimSpace(raw) == "" {
					return nil, exterrors.Validation(
						exterrors.CodeInvalidArguments, "evaluation_result is required", "")
				}

				var result map[string]any
				if err := json.Unmarshal([]byte(raw), &result); err != nil {
					return nil, exterrors.Validation(
						exterrors.CodeInvalidArguments,
						fmt.Sprintf("evaluation_result must be a JSON object: %s", err),
						"",
					)
				}

				return mcp.NewToolResultText(evaluation.FormatEvaluationReport(result)), nil
			}),
	}
}

func (t *Toolset) newRunAgentEvalTool() server.ServerTool {
	return server.ServerTool{
		Tool: mcp.NewTool(
			"run_agent_eval",
			mcp.WithDescription(
				"Evaluate a single agent interaction. query and response may be plain text or JSON; "+
					"tool_calls and tool_definitions are JSON."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithIdempotentHintAnnotation(false),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(true),
			mcp.WithString("evaluator_name",
				mcp.Description("Agent evaluator name: intent_resolution, tool_call_accuracy or task_adherence."),
				mcp.Required(),
			),
			mcp.WithString("query",
				mcp.Description("User query, plain text or a JSON list of messages."),
				mcp.Required(),
			),
			mcp.WithString("response",
				mcp.Description("Agent response, plain text or a JSON list of messages."),
			),
			mcp.WithString("tool_calls",
				mcp.Description("Tool calls made by the agent, as JSON."),
			),
			mcp.WithString("tool_definitions",
				mcp.Description("Definitions of the tools available to the agent, as JSON."),
			),
		),
		Handler: handler("run_agent_eval", t.handleRunAgentEval),
	}
}

func (t *Toolset) handleRunAgentEval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("evaluator_name")
	if err != nil {
		return nil, exterrors.Validation(exterrors.CodeInvalidArguments, err.Error(), "")
	}

	agentRequest := evaluation.AgentEvalRequest{EvaluatorName: name}
	for key, target := range map[string]*string{
		"query":            &agentRequest.Query,
		"response":         &agentRequest.Response,
		"tool_calls":       &agentRequest.ToolCalls,
		"tool_definitions": &agentRequest.ToolDefinitions,
	} {
		if *target, err = rawJSON(request, key); err != nil {
			return nil, err
		}
	}

	result, err := t.evaluation.RunAgentEval(ctx, agentRequest)
	if err != nil {
		return nil, err
	}

	return jsonResult(result), nil
}
