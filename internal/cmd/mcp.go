// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/azure/azure-ai-foundry-mcp/internal/config"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/agents"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/agents/agent_api"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/azure"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/cognitive"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/evaluation"
	"github.com/azure/azure-ai-foundry-mcp/internal/telemetry"
	"github.com/azure/azure-ai-foundry-mcp/internal/tools"
	"github.com/azure/azure-ai-foundry-mcp/internal/version"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

const serverInstructions = "Evaluate text datasets and agent interactions with Azure AI Foundry evaluators. " +
	"Query Azure AI Agent Service agents and evaluate the threads they produce."

func newMcpCommand() *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
	}

	mcpCmd.AddCommand(newMcpStartCommand())

	return mcpCmd
}

func newMcpStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMcpServer(cmd.Context())
		},
	}
}

func runMcpServer(ctx context.Context) error {
	cfg, err := config.Load(rootFlags.EnvFile)
	if err != nil {
		return err
	}
	if cfg.Debug && !rootFlags.Debug {
		configureLogging(true)
	}
	for _, warning := range cfg.Warnings() {
		log.Printf("warning: %s", warning)
	}

	cred, err := azure.NewCredential(cfg.TenantID)
	if err != nil {
		return err
	}

	traces, err := telemetry.Start(rootFlags.TraceFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := traces.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Printf("warning: flushing traces: %v", err)
		}
	}()

	builder := azure.NewClientOptionsBuilder()
	if rootFlags.HTTPLog != "" {
		httpLog, err := os.OpenFile(rootFlags.HTTPLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("opening http log: %w", err)
		}
		defer httpLog.Close()
		builder.WithPerRetryPolicy(azure.NewHTTPLogPolicy(httpLog))
	}

	deps, err := newDependencies(ctx, cfg, cred, builder)
	if err != nil {
		return err
	}

	s := server.NewMCPServer(
		version.ServerName, version.Version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
		server.WithInstructions(serverInstructions),
	)
	s.AddTools(tools.NewToolset(deps).ServerTools()...)

	fmt.Fprintln(os.Stderr, statusLine(cfg, deps))

	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(log.New(os.Stderr, "", log.LstdFlags))
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}

// newDependencies wires the services every enabled subsystem needs. Subsystems whose configuration
// is missing are left nil and their tools report the missing settings.
func newDependencies(
	ctx context.Context,
	cfg *config.Config,
	cred azcore.TokenCredential,
	builder *azure.ClientOptionsBuilder,
) (tools.Dependencies, error) {
	deps := tools.Dependencies{Config: cfg}

	evalDeps := evaluation.Dependencies{}
	if cfg.OpenAI.Configured() {
		judge, err := evaluation.NewOpenAIJudge(cfg.OpenAI)
		if err != nil {
			return deps, err
		}
		evalDeps.Judge = judge
	}
	if cfg.HasProjectScope() {
		safety, err := evaluation.NewSafetyClient(
			evaluation.ProjectScope{
				SubscriptionID: cfg.SubscriptionID,
				ResourceGroup:  cfg.ResourceGroup,
				ProjectName:    cfg.ProjectName,
			},
			cred,
			evaluation.SafetyClientOptions{ClientOptions: builder, Timeout: cfg.RunTimeout},
		)
		if err != nil {
			return deps, err
		}
		evalDeps.Safety = safety
	}
	deps.Evaluation = evaluation.NewService(cfg, evalDeps)

	if cfg.AgentInitialized() {
		deps.Gateway = agents.NewGateway(func(ctx context.Context) (*agent_api.AgentClient, error) {
			endpoint, err := agent_api.ResolveEndpoint(cfg.ProjectConnectionString, cfg.ProjectEndpoint)
			if err != nil {
				return nil, err
			}
			return agent_api.NewAgentClient(endpoint, cred, builder.BuildCoreClientOptions()), nil
		})
		if _, err := deps.Gateway.Client(ctx); err != nil {
			log.Printf("warning: agent service client unavailable: %v", err)
		}
		deps.Orchestrator = agents.NewOrchestrator(deps.Gateway, cfg.PollInterval, cfg.RunTimeout)
	}

	if cfg.SubscriptionID != "" {
		cognitiveService, err := cognitive.NewService(cfg.SubscriptionID, cred, builder.BuildArmClientOptions())
		if err != nil {
			return deps, err
		}
		deps.Cognitive = cognitiveService
	}

	return deps, nil
}

// statusLine summarizes which subsystems are usable.
func statusLine(cfg *config.Config, deps tools.Dependencies) string {
	var status []string
	if cfg.EvaluationInitialized() {
		status = append(status, "evaluation")
	}
	if cfg.AgentInitialized() && deps.Gateway != nil && deps.Gateway.Ready() {
		status = append(status, "agent service")
	}

	if len(status) == 0 {
		return "Azure AI Foundry MCP Server initialized with limited functionality"
	}
	return "Azure AI Foundry MCP Server initialized with: " + strings.Join(status, ", ")
}
