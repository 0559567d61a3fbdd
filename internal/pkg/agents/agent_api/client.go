// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package agent_api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
	"github.com/azure/azure-ai-foundry-mcp/internal/version"
)

const listPageSize = 100

// AgentClient talks to the agent service's assistants-compatible REST surface.
type AgentClient struct {
	endpoint Endpoint
	pipeline runtime.Pipeline
}

// NewAgentClient creates a client for endpoint. options may carry a transport and extra
// policies; the bearer token policy for endpoint.Scope is always added.
func NewAgentClient(endpoint Endpoint, cred azcore.TokenCredential, options *policy.ClientOptions) *AgentClient {
	if options == nil {
		options = &policy.ClientOptions{}
	}

	authPolicy := runtime.NewBearerTokenPolicy(cred, []string{string(endpoint.Scope)}, nil)
	pipeline := runtime.NewPipeline(
		"agent-api",
		version.Version,
		runtime.PipelineOptions{PerRetry: []policy.Policy{authPolicy}},
		options,
	)

	return &AgentClient{
		endpoint: endpoint,
		pipeline: pipeline,
	}
}

// Endpoint returns the endpoint the client was created for.
func (c *AgentClient) Endpoint() Endpoint {
	return c.endpoint
}

func (c *AgentClient) GetAgent(ctx context.Context, agentID string) (*Agent, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/assistants/"+url.PathEscape(agentID), nil)
	if err != nil {
		return nil, err
	}

	var agent Agent
	if err := c.do(req, &agent, exterrors.OpGetAgent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// ListAgents returns every agent in the project.
func (c *AgentClient) ListAgents(ctx context.Context) ([]Agent, error) {
	return listAll[Agent](ctx, c, "/assistants", url.Values{}, exterrors.OpListAgents)
}

func (c *AgentClient) CreateThread(ctx context.Context) (*Thread, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/threads", nil)
	if err != nil {
		return nil, err
	}
	if err := runtime.MarshalAsJSON(req, map[string]any{}); err != nil {
		return nil, err
	}

	var thread Thread
	if err := c.do(req, &thread, exterrors.OpCreateThread); err != nil {
		return nil, err
	}
	return &thread, nil
}

func (c *AgentClient) CreateMessage(
	ctx context.Context,
	threadID string,
	request CreateMessageRequest,
) (*Message, error) {
	req, err := c.newRequest(ctx, http.MethodPost, threadPath(threadID, "messages"), nil)
	if err != nil {
		return nil, err
	}
	if err := runtime.MarshalAsJSON(req, request); err != nil {
		return nil, err
	}

	var message Message
	if err := c.do(req, &message, exterrors.OpCreateMessage); err != nil {
		return nil, err
	}
	return &message, nil
}

func (c *AgentClient) CreateRun(ctx context.Context, threadID string, request CreateRunRequest) (*Run, error) {
	req, err := c.newRequest(ctx, http.MethodPost, threadPath(threadID, "runs"), nil)
	if err != nil {
		return nil, err
	}
	if err := runtime.MarshalAsJSON(req, request); err != nil {
		return nil, err
	}

	var run Run
	if err := c.do(req, &run, exterrors.OpCreateRun); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *AgentClient) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	req, err := c.newRequest(ctx, http.MethodGet, threadPath(threadID, "runs", runID), nil)
	if err != nil {
		return nil, err
	}

	var run Run
	if err := c.do(req, &run, exterrors.OpGetRun); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListMessages returns every message of a thread, following the cursor across pages.
func (c *AgentClient) ListMessages(
	ctx context.Context,
	threadID string,
	options *ListMessagesOptions,
) ([]Message, error) {
	query := url.Values{}
	if options != nil {
		if options.Order != "" {
			query.Set("order", options.Order)
		}
		if options.RunID != "" {
			query.Set("run_id", options.RunID)
		}
	}

	return listAll[Message](ctx, c, threadPath(threadID, "messages"), query, exterrors.OpListMessages)
}

// ListRunSteps returns every step of a run in creation order.
func (c *AgentClient) ListRunSteps(ctx context.Context, threadID, runID string) ([]RunStep, error) {
	query := url.Values{"order": []string{"asc"}}
	return listAll[RunStep](ctx, c, threadPath(threadID, "runs", runID, "steps"), query, exterrors.OpListRunSteps)
}

// listAll reads pages of path until the service reports no more data. query is extended with
// the page size and the cursor.
func listAll[T any](ctx context.Context, c *AgentClient, path string, query url.Values, op string) ([]T, error) {
	items := []T{}
	after := ""
	for {
		pageQuery := url.Values{}
		for key, values := range query {
			pageQuery[key] = values
		}
		pageQuery.Set("limit", strconv.Itoa(listPageSize))
		if after != "" {
			pageQuery.Set("after", after)
		}

		req, err := c.newRequest(ctx, http.MethodGet, path, pageQuery)
		if err != nil {
			return nil, err
		}

		var page ListResponse[T]
		if err := c.do(req, &page, op); err != nil {
			return nil, err
		}
		items = append(items, page.Data...)

		if !page.HasMore || page.LastID == "" || page.LastID == after {
			return items, nil
		}
		after = page.LastID
	}
}

func (c *AgentClient) newRequest(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
) (*policy.Request, error) {
	req, err := runtime.NewRequest(ctx, method, runtime.JoinPaths(c.endpoint.BaseURL, path))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", c.endpoint.APIVersion)
	req.Raw().URL.RawQuery = query.Encode()
	req.Raw().Header.Set("Accept", "application/json")

	return req, nil
}

func (c *AgentClient) do(req *policy.Request, out any, operation string) error {
	resp, err := c.pipeline.Do(req)
	if err != nil {
		return exterrors.ServiceFromAzure(err, operation)
	}
	defer resp.Body.Close()

	if !runtime.HasStatusCode(resp, http.StatusOK, http.StatusCreated) {
		return exterrors.ServiceFromAzure(runtime.NewResponseError(resp), operation)
	}

	if err := runtime.UnmarshalAsJSON(resp, out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", operation, err)
	}
	return nil
}

func threadPath(threadID string, segments ...string) string {
	path := "/threads/" + url.PathEscape(threadID)
	for _, segment := range segments {
		path += "/" + url.PathEscape(segment)
	}
	return path
}
