// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package tools exposes the evaluation, agent and cognitive services operations as MCP tools.
package tools

import (
	"github.com/azure/azure-ai-foundry-mcp/internal/config"
	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/agents"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/cognitive"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/evaluation"
	"github.com/mark3labs/mcp-go/server"
)

const agentNotInitializedMessage = "Azure AI Agent service is not initialized. Check environment variables."

// Dependencies are the services behind the tools. Gateway and Orchestrator are nil when the
// agent service is not configured; Cognitive is nil without a subscription.
type Dependencies struct {
	Config       *config.Config
	Evaluation   *evaluation.Service
	Gateway      *agents.Gateway
	Orchestrator *agents.Orchestrator
	Cognitive    *cognitive.Service
}

// Toolset builds the server tools over a fixed set of dependencies.
type Toolset struct {
	cfg          *config.Config
	evaluation   *evaluation.Service
	gateway      *agents.Gateway
	orchestrator *agents.Orchestrator
	cognitive    *cognitive.Service
}

func NewToolset(deps Dependencies) *Toolset {
	return &Toolset{
		cfg:          deps.Config,
		evaluation:   deps.Evaluation,
		gateway:      deps.Gateway,
		orchestrator: deps.Orchestrator,
		cognitive:    deps.Cognitive,
	}
}

// ServerTools returns every tool in catalog order.
func (t *Toolset) ServerTools() []server.ServerTool {
	return []server.ServerTool{
		t.newListTextEvaluatorsTool(),
		t.newListAgentEvaluatorsTool(),
		t.newGetTextEvaluatorRequirementsTool(),
		t.newGetAgentEvaluatorRequirementsTool(),
		t.newRunTextEvalTool(),
		t.newFormatEvaluationReportTool(),
		t.newRunAgentEvalTool(),
		t.newListAgentsTool(),
		t.newConnectAgentTool(),
		t.newQueryDefaultAgentTool(),
		t.newEvaluateAgentThreadTool(),
		t.newAgentQueryAndEvaluateTool(),
		t.newListCognitiveServicesAccountsTool(),
		t.newListModelDeploymentsTool(),
		t.newDeployModelTool(),
	}
}

func (t *Toolset) agentReady() error {
	if !t.cfg.AgentInitialized() || t.gateway == nil || t.orchestrator == nil {
		return exterrors.Configuration(exterrors.CodeAgentNotInitialized, agentNotInitializedMessage, "")
	}
	return nil
}
