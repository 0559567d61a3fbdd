// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package agent_api

import "encoding/json"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusExpired        RunStatus = "expired"
)

// IsTerminal reports whether a run in this state will not change any further.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusQueued, RunStatusInProgress, RunStatusRequiresAction, RunStatusCancelling:
		return false
	default:
		return true
	}
}

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// ListResponse is the cursor-paged envelope shared by every list operation.
type ListResponse[T any] struct {
	Object  string `json:"object"`
	Data    []T    `json:"data"`
	FirstID string `json:"first_id,omitempty"`
	LastID  string `json:"last_id,omitempty"`
	HasMore bool   `json:"has_more"`
}

// Agent is an agent definition as returned by the service.
type Agent struct {
	ID           string            `json:"id"`
	Object       string            `json:"object,omitempty"`
	CreatedAt    int64             `json:"created_at,omitempty"`
	Name         string            `json:"name,omitempty"`
	Description  string            `json:"description,omitempty"`
	Model        string            `json:"model,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
	Tools        []ToolDefinition  `json:"tools,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ToolDefinition describes a capability attached to an agent. Only function tools carry a
// Function block; built-in tools (code_interpreter, bing_grounding, ...) are identified by Type.
type ToolDefinition struct {
	Type     string              `json:"type"`
	Function *FunctionDefinition `json:"function,omitempty"`
}

type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type Thread struct {
	ID        string            `json:"id"`
	Object    string            `json:"object,omitempty"`
	CreatedAt int64             `json:"created_at,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type CreateMessageRequest struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

type Message struct {
	ID          string           `json:"id"`
	Object      string           `json:"object,omitempty"`
	CreatedAt   int64            `json:"created_at,omitempty"`
	ThreadID    string           `json:"thread_id"`
	Role        MessageRole      `json:"role"`
	Content     []MessageContent `json:"content"`
	AssistantID string           `json:"assistant_id,omitempty"`
	RunID       string           `json:"run_id,omitempty"`
}

// Text returns the message's text segments joined by newlines.
func (m *Message) Text() string {
	var text string
	for _, content := range m.Content {
		if content.Type != "text" || content.Text == nil {
			continue
		}
		if text != "" {
			text += "\n"
		}
		text += content.Text.Value
	}
	return text
}

type MessageContent struct {
	Type string       `json:"type"`
	Text *MessageText `json:"text,omitempty"`
}

type MessageText struct {
	Value       string              `json:"value"`
	Annotations []MessageAnnotation `json:"annotations,omitempty"`
}

type MessageAnnotation struct {
	Type        string       `json:"type"`
	Text        string       `json:"text,omitempty"`
	URLCitation *URLCitation `json:"url_citation,omitempty"`
}

type URLCitation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

type CreateRunRequest struct {
	AssistantID string `json:"assistant_id"`
}

type Run struct {
	ID          string    `json:"id"`
	Object      string    `json:"object,omitempty"`
	CreatedAt   int64     `json:"created_at,omitempty"`
	ThreadID    string    `json:"thread_id"`
	AssistantID string    `json:"assistant_id"`
	Status      RunStatus `json:"status"`
	LastError   *RunError `json:"last_error,omitempty"`
	StartedAt   *int64    `json:"started_at,omitempty"`
	CompletedAt *int64    `json:"completed_at,omitempty"`
	Usage       *RunUsage `json:"usage,omitempty"`
}

type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RunError) String() string {
	if e == nil {
		return "unknown error"
	}
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

type RunUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type RunStepType string

const (
	RunStepTypeMessageCreation RunStepType = "message_creation"
	RunStepTypeToolCalls       RunStepType = "tool_calls"
)

type RunStep struct {
	ID          string          `json:"id"`
	Object      string          `json:"object,omitempty"`
	CreatedAt   int64           `json:"created_at,omitempty"`
	RunID       string          `json:"run_id"`
	Type        RunStepType     `json:"type"`
	Status      string          `json:"status"`
	StepDetails RunStepDetails  `json:"step_details"`
	CompletedAt *int64          `json:"completed_at,omitempty"`
	LastError   *RunError       `json:"last_error,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// CompletedAtOr returns the completion time of the step, or fallback while it is running.
func (s RunStep) CompletedAtOr(fallback int64) int64 {
	if s.CompletedAt == nil {
		return fallback
	}
	return *s.CompletedAt
}

type RunStepDetails struct {
	Type            RunStepType      `json:"type"`
	ToolCalls       []ToolCall       `json:"tool_calls,omitempty"`
	MessageCreation *MessageCreation `json:"message_creation,omitempty"`
}

type MessageCreation struct {
	MessageID string `json:"message_id"`
}

// ToolCall is one tool invocation recorded in a run step. Built-in tools keep their
// type-specific payload in Raw.
type ToolCall struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Function *FunctionToolCall `json:"function,omitempty"`
	Raw      json.RawMessage   `json:"-"`
}

func (c *ToolCall) UnmarshalJSON(data []byte) error {
	type plain ToolCall
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*c = ToolCall(decoded)
	c.Raw = append(json.RawMessage(nil), data...)
	return nil
}

type FunctionToolCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Output    string `json:"output,omitempty"`
}

// ListMessagesOptions narrows a message listing.
type ListMessagesOptions struct {
	// Order is "asc" or "desc" by creation time.
	Order string
	// RunID keeps only the messages created by that run.
	RunID string
}
