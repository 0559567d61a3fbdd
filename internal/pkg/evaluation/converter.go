// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package evaluation

import (
	"encoding/json"
	"time"

	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/agents"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/agents/agent_api"
	"github.com/tidwall/gjson"
)

// ConversationMessage is the message shape agent evaluators read.
type ConversationMessage struct {
	Role       string           `json:"role"`
	Content    []map[string]any `json:"content"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	CreatedAt  string           `json:"createdAt,omitempty"`
	RunID      string           `json:"run_id,omitempty"`
}

// ToolDefinitionInput describes one tool available to the agent.
type ToolDefinitionInput struct {
	Name        string          `json:"name"`
	Type        string          `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ThreadInputs converts a thread snapshot into agent evaluator inputs. The query holds the
// agent instructions and the messages that preceded the run; the response holds what the run
// produced, tool calls and tool results included, in step order.
func ThreadInputs(snapshot *agents.ThreadSnapshot) Inputs {
	var query []ConversationMessage
	if snapshot.Agent != nil && snapshot.Agent.Instructions != "" {
		query = append(query, ConversationMessage{
			Role:    "system",
			Content: []map[string]any{textContent(snapshot.Agent.Instructions)},
		})
	}

	byID := map[string]agent_api.Message{}
	var runStart int64 = -1
	for _, message := range snapshot.Messages {
		byID[message.ID] = message
		if message.RunID == snapshot.RunID && message.Role == agent_api.MessageRoleAssistant {
			if runStart < 0 || message.CreatedAt < runStart {
				runStart = message.CreatedAt
			}
		}
	}

	for _, message := range snapshot.Messages {
		if message.RunID == snapshot.RunID && message.Role == agent_api.MessageRoleAssistant {
			continue
		}
		if runStart >= 0 && message.CreatedAt > runStart {
			continue
		}
		query = append(query, convertMessage(message))
	}

	var response []ConversationMessage
	var toolCalls []map[string]any
	if len(snapshot.Steps) > 0 {
		for _, step := range snapshot.Steps {
			switch step.StepDetails.Type {
			case agent_api.RunStepTypeMessageCreation:
				if step.StepDetails.MessageCreation == nil {
					continue
				}
				if message, ok := byID[step.StepDetails.MessageCreation.MessageID]; ok {
					response = append(response, convertMessage(message))
				}
			case agent_api.RunStepTypeToolCalls:
				for _, call := range step.StepDetails.ToolCalls {
					content := toolCallContent(call)
					toolCalls = append(toolCalls, content)
					response = append(response, ConversationMessage{
						Role:      string(agent_api.MessageRoleAssistant),
						Content:   []map[string]any{content},
						CreatedAt: formatTimestamp(step.CreatedAt),
						RunID:     step.RunID,
					})
					if output, ok := toolCallOutput(call); ok {
						response = append(response, ConversationMessage{
							Role:       "tool",
							ToolCallID: call.ID,
							Content:    []map[string]any{{"type": "tool_result", "tool_result": output}},
							CreatedAt:  formatTimestamp(step.CompletedAtOr(step.CreatedAt)),
							RunID:      step.RunID,
						})
					}
				}
			}
		}
	} else {
		for _, message := range snapshot.Messages {
			if message.RunID == snapshot.RunID && message.Role == agent_api.MessageRoleAssistant {
				response = append(response, convertMessage(message))
			}
		}
	}

	inputs := Inputs{}
	if len(query) > 0 {
		inputs["query"] = query
	}
	if len(response) > 0 {
		inputs["response"] = response
	}
	if len(toolCalls) > 0 {
		inputs["tool_calls"] = toolCalls
	}
	if definitions := toolDefinitions(snapshot.Agent); len(definitions) > 0 {
		inputs["tool_definitions"] = definitions
	}
	return inputs
}

func convertMessage(message agent_api.Message) ConversationMessage {
	converted := ConversationMessage{
		Role:      string(message.Role),
		CreatedAt: formatTimestamp(message.CreatedAt),
		RunID:     message.RunID,
	}
	for _, content := range message.Content {
		if content.Type == "text" && content.Text != nil {
			converted.Content = append(converted.Content, textContent(content.Text.Value))
		}
	}
	return converted
}

func textContent(text string) map[string]any {
	return map[string]any{"type": "text", "text": text}
}

func toolCallContent(call agent_api.ToolCall) map[string]any {
	content := map[string]any{
		"type":         "tool_call",
		"tool_call_id": call.ID,
		"name":         call.Type,
	}
	if call.Function != nil {
		content["name"] = call.Function.Name
		content["arguments"] = decodeArguments(call.Function.Arguments)
		return content
	}
	// built-in tools keep their payload under a key named after the tool type
	if payload := gjson.GetBytes(call.Raw, call.Type); payload.IsObject() {
		content["arguments"] = payload.Value()
	}
	return content
}

func toolCallOutput(call agent_api.ToolCall) (any, bool) {
	if call.Function != nil {
		if call.Function.Output == "" {
			return nil, false
		}
		return decodeArguments(call.Function.Output), true
	}
	output := gjson.GetBytes(call.Raw, call.Type+".output")
	if !output.Exists() {
		return nil, false
	}
	return output.Value(), true
}

// decodeArguments returns the JSON value of raw, or raw itself when it is not JSON.
func decodeArguments(raw string) any {
	if !gjson.Valid(raw) {
		return raw
	}
	return gjson.Parse(raw).Value()
}

func toolDefinitions(agent *agent_api.Agent) []ToolDefinitionInput {
	if agent == nil {
		return nil
	}
	var definitions []ToolDefinitionInput
	for _, tool := range agent.Tools {
		if tool.Function != nil {
			definitions = append(definitions, ToolDefinitionInput{
				Name:        tool.Function.Name,
				Type:        tool.Type,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			})
			continue
		}
		definitions = append(definitions, ToolDefinitionInput{Name: tool.Type, Type: tool.Type})
	}
	return definitions
}

func formatTimestamp(unix int64) string {
	if unix == 0 {
		return ""
	}
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}
