// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package agents

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/agents/agent_api"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/poll"
)

// QueryResult is the outcome of a single agent query. A run that ends in failed,
// cancelled or expired is reported with Success=false rather than as an error.
type QueryResult struct {
	Success   bool     `json:"success"`
	ThreadID  string   `json:"thread_id"`
	RunID     string   `json:"run_id"`
	Result    string   `json:"result"`
	Citations []string `json:"citations"`
	Error     string   `json:"error,omitempty"`
}

// Orchestrator drives the thread, message, run and poll sequence for agent queries.
type Orchestrator struct {
	gateway      *Gateway
	pollInterval time.Duration
	runTimeout   time.Duration
}

// NewOrchestrator creates an orchestrator. A zero runTimeout bounds polling by the caller's context only.
func NewOrchestrator(gateway *Gateway, pollInterval, runTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		gateway:      gateway,
		pollInterval: pollInterval,
		runTimeout:   runTimeout,
	}
}

// QueryAgent posts query to a new thread and waits for the agent's answer.
// When an error occurs after the thread was created, the returned result is non-nil and carries
// the thread (and run, when known) ids.
func (o *Orchestrator) QueryAgent(ctx context.Context, agentID, query string) (*QueryResult, error) {
	if _, err := o.gateway.GetAgent(ctx, agentID); err != nil {
		return nil, err
	}

	client, err := o.gateway.Client(ctx)
	if err != nil {
		return nil, err
	}

	thread, err := client.CreateThread(ctx)
	if err != nil {
		return nil, err
	}
	partial := &QueryResult{ThreadID: thread.ID, Citations: []string{}}

	if _, err := client.CreateMessage(ctx, thread.ID, agent_api.CreateMessageRequest{
		Role:    agent_api.MessageRoleUser,
		Content: query,
	}); err != nil {
		return partial, err
	}

	run, err := client.CreateRun(ctx, thread.ID, agent_api.CreateRunRequest{AssistantID: agentID})
	if err != nil {
		return partial, err
	}
	partial.RunID = run.ID

	run, err = o.waitForRun(ctx, client, thread.ID, run)
	if err != nil {
		return partial, err
	}

	switch run.Status {
	case agent_api.RunStatusFailed, agent_api.RunStatusCancelled, agent_api.RunStatusExpired:
		msg := fmt.Sprintf("Agent run failed: %s", runFailureReason(run))
		log.Printf("%s (agent: %s, thread: %s, run: %s)", msg, agentID, thread.ID, run.ID)
		return &QueryResult{
			Success:   false,
			ThreadID:  thread.ID,
			RunID:     run.ID,
			Result:    "Error: " + msg,
			Citations: []string{},
			Error:     msg,
		}, nil
	}

	messages, err := client.ListMessages(ctx, thread.ID, &agent_api.ListMessagesOptions{
		Order: "desc",
		RunID: run.ID,
	})
	if err != nil {
		return partial, err
	}

	result, citations := renderResponse(latestAssistantMessage(messages))
	return &QueryResult{
		Success:   true,
		ThreadID:  thread.ID,
		RunID:     run.ID,
		Result:    result,
		Citations: citations,
	}, nil
}

// waitForRun re-fetches run until it reaches a terminal status.
func (o *Orchestrator) waitForRun(
	ctx context.Context,
	client *agent_api.AgentClient,
	threadID string,
	run *agent_api.Run,
) (*agent_api.Run, error) {
	if run.Status.IsTerminal() {
		return run, nil
	}

	start := time.Now()
	current := run
	first := true
	err := poll.Until(ctx, o.pollInterval, o.runTimeout, func(ctx context.Context) (bool, error) {
		// the run returned by CreateRun is the first observation
		if first {
			first = false
			return false, nil
		}

		latest, err := client.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return false, err
		}
		current = latest
		return latest.Status.IsTerminal(), nil
	})

	switch {
	case err == nil:
		return current, nil
	case errors.Is(err, poll.ErrDeadline), errors.Is(err, context.DeadlineExceeded):
		return nil, exterrors.Timeout(threadID, run.ID, time.Since(start).Round(time.Millisecond))
	case exterrors.IsCancellation(err):
		return nil, exterrors.Cancelled(fmt.Sprintf("agent run %s was cancelled by the caller", run.ID))
	default:
		return nil, err
	}
}

func runFailureReason(run *agent_api.Run) string {
	if run.LastError != nil {
		return run.LastError.String()
	}
	return fmt.Sprintf("run ended with status %s", run.Status)
}

// latestAssistantMessage picks the most recent assistant message from a newest-first listing.
func latestAssistantMessage(messages []agent_api.Message) *agent_api.Message {
	var latest *agent_api.Message
	for i := range messages {
		if messages[i].Role != agent_api.MessageRoleAssistant {
			continue
		}
		if latest == nil || messages[i].CreatedAt > latest.CreatedAt {
			latest = &messages[i]
		}
	}
	return latest
}

// renderResponse joins the message's text segments and appends its deduplicated url citations.
func renderResponse(message *agent_api.Message) (string, []string) {
	citations := []string{}
	if message == nil {
		return "", citations
	}

	seen := map[string]struct{}{}
	var segments []string
	for _, content := range message.Content {
		if content.Type != "text" || content.Text == nil {
			continue
		}
		segments = append(segments, content.Text.Value)

		for _, annotation := range content.Text.Annotations {
			if annotation.URLCitation == nil {
				continue
			}
			citation := fmt.Sprintf("[%s](%s)", annotation.URLCitation.Title, annotation.URLCitation.URL)
			if _, has := seen[citation]; has {
				continue
			}
			seen[citation] = struct{}{}
			citations = append(citations, citation)
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(segments, "\n"))
	if len(citations) > 0 {
		sb.WriteString("\n\n## Sources\n")
		for _, citation := range citations {
			sb.WriteString("- " + citation + "\n")
		}
	}

	return strings.TrimSpace(sb.String()), citations
}
