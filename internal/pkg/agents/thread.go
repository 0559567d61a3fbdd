// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package agents

import (
	"context"
	"fmt"

	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/agents/agent_api"
)

// ThreadSnapshot is everything needed to evaluate one run of a thread.
type ThreadSnapshot struct {
	ThreadID string
	RunID    string
	// Messages are in creation order.
	Messages []agent_api.Message
	Steps    []agent_api.RunStep
	// Agent is nil when the run's agent could not be resolved.
	Agent *agent_api.Agent
}

// FetchThread loads a thread's messages plus the steps and agent of one run. When runID is
// empty the run that produced the latest assistant message is used.
func (g *Gateway) FetchThread(ctx context.Context, threadID, runID string) (*ThreadSnapshot, error) {
	client, err := g.Client(ctx)
	if err != nil {
		return nil, err
	}

	messages, err := client.ListMessages(ctx, threadID, &agent_api.ListMessagesOptions{Order: "asc"})
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, exterrors.Dependency(
			exterrors.CodeThreadEmpty,
			fmt.Sprintf("thread %s has no messages", threadID),
			"query the agent first, then evaluate the returned thread_id",
		)
	}

	agentID := ""
	if runID == "" {
		for i := len(messages) - 1; i >= 0; i-- {
			if messages[i].Role == agent_api.MessageRoleAssistant && messages[i].RunID != "" {
				runID = messages[i].RunID
				agentID = messages[i].AssistantID
				break
			}
		}
	}
	if runID == "" {
		return nil, exterrors.Dependency(
			exterrors.CodeThreadEmpty,
			fmt.Sprintf("thread %s has no agent response", threadID),
			"pass run_id explicitly or wait for the run to complete",
		)
	}

	run, err := client.GetRun(ctx, threadID, runID)
	if err != nil {
		return nil, err
	}
	if run.AssistantID != "" {
		agentID = run.AssistantID
	}

	steps, err := client.ListRunSteps(ctx, threadID, runID)
	if err != nil {
		return nil, err
	}

	snapshot := &ThreadSnapshot{
		ThreadID: threadID,
		RunID:    runID,
		Messages: messages,
		Steps:    steps,
	}
	if agentID != "" {
		// tool definitions are optional for evaluation; a missing agent is not fatal
		if agent, err := g.GetAgent(ctx, agentID); err == nil {
			snapshot.Agent = agent
		}
	}

	return snapshot, nil
}
