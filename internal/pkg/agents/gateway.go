// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package agents

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/agents/agent_api"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/lazy"
)

// Gateway owns the lazily created agent service client and the agent descriptor cache.
type Gateway struct {
	client *lazy.Lazy[*agent_api.AgentClient]

	mu    sync.RWMutex
	cache map[string]*agent_api.Agent
}

// NewGateway returns a gateway whose client is built by newClient on first use.
// A failed initialization is retried on the next call.
func NewGateway(newClient lazy.InitializerFn[*agent_api.AgentClient]) *Gateway {
	return &Gateway{
		client: lazy.NewLazy(newClient),
		cache:  map[string]*agent_api.Agent{},
	}
}

// Client returns the agent service client, creating it if needed.
func (g *Gateway) Client(ctx context.Context) (*agent_api.AgentClient, error) {
	client, err := g.client.GetValue(ctx)
	if err != nil {
		var localErr *exterrors.LocalError
		if errors.As(err, &localErr) {
			return nil, err
		}
		return nil, &exterrors.LocalError{
			Message:  "failed to create agent service client: " + err.Error(),
			Code:     exterrors.CodeAgentClientFailed,
			Category: exterrors.LocalErrorCategoryInternal,
			Cause:    err,
		}
	}
	return client, nil
}

// Ready reports whether the client has been created.
func (g *Gateway) Ready() bool {
	return g.client.Initialized()
}

// GetAgent returns the cached descriptor for agentID, fetching it on a miss.
// Concurrent first lookups may both fetch; the last write wins.
func (g *Gateway) GetAgent(ctx context.Context, agentID string) (*agent_api.Agent, error) {
	g.mu.RLock()
	agent, has := g.cache[agentID]
	g.mu.RUnlock()
	if has {
		return agent, nil
	}

	client, err := g.Client(ctx)
	if err != nil {
		return nil, err
	}

	agent, err = client.GetAgent(ctx, agentID)
	if err != nil {
		log.Printf("agent retrieval failed, id: %s, error: %v", agentID, err)
		if exterrors.IsCancellation(err) || exterrors.HasCode(err, exterrors.CodeCancelled) {
			return nil, err
		}
		return nil, exterrors.AgentNotFound(agentID, err)
	}

	g.mu.Lock()
	g.cache[agentID] = agent
	g.mu.Unlock()

	return agent, nil
}

// ListAgents lists every agent in the project. Listing does not populate the cache.
func (g *Gateway) ListAgents(ctx context.Context) ([]agent_api.Agent, error) {
	client, err := g.Client(ctx)
	if err != nil {
		return nil, err
	}

	return client.ListAgents(ctx)
}
