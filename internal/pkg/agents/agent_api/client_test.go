// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package agent_api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/azure"
	"github.com/azure/azure-ai-foundry-mcp/test/mocks"
	"github.com/azure/azure-ai-foundry-mcp/test/mocks/mockhttp"
	"github.com/stretchr/testify/require"
)

const testConnectionString = "eastus.api.azureml.ms;sub-1;rg-1;proj-1"

func newTestClient(t *testing.T, httpClient *mockhttp.MockHttpClient) (*AgentClient, *mocks.MockCredentials) {
	t.Helper()

	endpoint, err := ParseConnectionString(testConnectionString)
	require.NoError(t, err)

	cred := &mocks.MockCredentials{}
	return NewAgentClient(endpoint, cred, &policy.ClientOptions{Transport: httpClient}), cred
}

func TestParseConnectionString(t *testing.T) {
	endpoint, err := ParseConnectionString(testConnectionString)
	require.NoError(t, err)

	require.Equal(t,
		"https://eastus.api.azureml.ms/agents/v1.0/subscriptions/sub-1/resourceGroups/rg-1/providers/"+
			"Microsoft.MachineLearningServices/workspaces/proj-1",
		endpoint.BaseURL)
	require.Equal(t, HubAPIVersion, endpoint.APIVersion)
	require.Equal(t, azure.ScopeAzureML, endpoint.Scope)
	require.Equal(t, "sub-1", endpoint.SubscriptionID)
	require.Equal(t, "rg-1", endpoint.ResourceGroup)
	require.Equal(t, "proj-1", endpoint.ProjectName)
}

func TestParseConnectionString_Invalid(t *testing.T) {
	for _, value := range []string{"", "host;sub;rg", "host;sub;;proj", "a;b;c;d;e"} {
		_, err := ParseConnectionString(value)
		require.Error(t, err, value)
		require.True(t, exterrors.HasCode(err, exterrors.CodeInvalidConnectionString), value)
	}
}

func TestResolveEndpoint(t *testing.T) {
	endpoint, err := ResolveEndpoint("", "https://res.services.ai.azure.com/api/projects/proj/")
	require.NoError(t, err)
	require.Equal(t, "https://res.services.ai.azure.com/api/projects/proj", endpoint.BaseURL)
	require.Equal(t, ProjectAPIVersion, endpoint.APIVersion)
	require.Equal(t, azure.ScopeAIFoundry, endpoint.Scope)

	_, err = ResolveEndpoint("", "")
	require.True(t, exterrors.HasCode(err, exterrors.CodeAgentNotInitialized))
}

func TestAgentClient_GetAgent(t *testing.T) {
	httpClient := mockhttp.NewMockHttpClient()
	httpClient.When(mockhttp.MethodAndPath(http.MethodGet, "/assistants/asst_1")).
		RespondJSON(http.StatusOK, map[string]any{
			"id":    "asst_1",
			"name":  "helper",
			"model": "gpt-4o",
			"tools": []map[string]any{
				{"type": "bing_grounding"},
				{"type": "function", "function": map[string]any{
					"name":       "get_weather",
					"parameters": map[string]any{"type": "object"},
				}},
			},
		})

	client, cred := newTestClient(t, httpClient)
	agent, err := client.GetAgent(context.Background(), "asst_1")
	require.NoError(t, err)

	require.Equal(t, "helper", agent.Name)
	require.Len(t, agent.Tools, 2)
	require.Equal(t, "get_weather", agent.Tools[1].Function.Name)

	requests := httpClient.Requests()
	require.Len(t, requests, 1)
	require.Equal(t, HubAPIVersion, requests[0].URL.Query().Get("api-version"))
	require.Equal(t, "Bearer ABC123", requests[0].Header.Get("Authorization"))
	require.Contains(t, cred.Scopes, string(azure.ScopeAzureML))
}

func TestAgentClient_GetAgent_NotFound(t *testing.T) {
	httpClient := mockhttp.NewMockHttpClient()
	httpClient.When(mockhttp.MethodAndPath(http.MethodGet, "/assistants/missing")).
		RespondJSON(http.StatusNotFound, map[string]any{
			"error": map[string]any{"code": "NotFound", "message": "no such assistant"},
		})

	client, _ := newTestClient(t, httpClient)
	_, err := client.GetAgent(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, exterrors.IsNotFound(err))

	var svcErr *exterrors.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.True(t, strings.HasPrefix(svcErr.ErrorCode, exterrors.OpGetAgent+"."))
}

func TestAgentClient_ListAgents_FollowsCursor(t *testing.T) {
	httpClient := mockhttp.NewMockHttpClient()
	httpClient.When(func(request *http.Request) bool {
		return request.URL.Path != "" && strings.HasSuffix(request.URL.Path, "/assistants") &&
			request.URL.Query().Get("after") == ""
	}).RespondJSON(http.StatusOK, map[string]any{
		"object":   "list",
		"data":     []map[string]any{{"id": "asst_1", "name": "one"}},
		"last_id":  "asst_1",
		"has_more": true,
	})
	httpClient.When(func(request *http.Request) bool {
		return strings.HasSuffix(request.URL.Path, "/assistants") && request.URL.Query().Get("after") == "asst_1"
	}).RespondJSON(http.StatusOK, map[string]any{
		"object":   "list",
		"data":     []map[string]any{{"id": "asst_2", "name": "two"}},
		"last_id":  "asst_2",
		"has_more": false,
	})

	client, _ := newTestClient(t, httpClient)
	agents, err := client.ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)
	require.Equal(t, "asst_2", agents[1].ID)
}

func TestAgentClient_ThreadLifecycle(t *testing.T) {
	httpClient := mockhttp.NewMockHttpClient()

	var messageBody map[string]any
	var runBody map[string]any

	httpClient.When(mockhttp.MethodAndPath(http.MethodPost, "/threads")).
		RespondJSON(http.StatusOK, map[string]any{"id": "thread_1"})
	httpClient.When(mockhttp.MethodAndPath(http.MethodPost, "/threads/thread_1/messages")).
		RespondFn(func(request *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(request.Body)
			_ = json.Unmarshal(body, &messageBody)
			return mockhttp.JSONResponse(request, http.StatusOK, map[string]any{
				"id": "msg_1", "thread_id": "thread_1", "role": "user",
			})
		})
	httpClient.When(mockhttp.MethodAndPath(http.MethodPost, "/threads/thread_1/runs")).
		RespondFn(func(request *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(request.Body)
			_ = json.Unmarshal(body, &runBody)
			return mockhttp.JSONResponse(request, http.StatusOK, map[string]any{
				"id": "run_1", "thread_id": "thread_1", "assistant_id": "asst_1", "status": "queued",
			})
		})
	httpClient.When(mockhttp.MethodAndPath(http.MethodGet, "/threads/thread_1/runs/run_1")).
		RespondJSON(http.StatusOK, map[string]any{
			"id":         "run_1",
			"thread_id":  "thread_1",
			"status":     "failed",
			"last_error": map[string]any{"code": "rate_limit_exceeded", "message": "slow down"},
		})
	httpClient.When(mockhttp.MethodAndPath(http.MethodGet, "/threads/thread_1/runs/run_1/steps")).
		RespondJSON(http.StatusOK, map[string]any{
			"object": "list",
			"data": []map[string]any{{
				"id":     "step_1",
				"run_id": "run_1",
				"type":   "tool_calls",
				"status": "completed",
				"step_details": map[string]any{
					"type": "tool_calls",
					"tool_calls": []map[string]any{{
						"id":   "call_1",
						"type": "function",
						"function": map[string]any{
							"name": "get_weather", "arguments": `{"city":"Paris"}`, "output": "sunny",
						},
					}},
				},
			}},
		})

	client, _ := newTestClient(t, httpClient)
	ctx := context.Background()

	thread, err := client.CreateThread(ctx)
	require.NoError(t, err)
	require.Equal(t, "thread_1", thread.ID)

	_, err = client.CreateMessage(ctx, thread.ID, CreateMessageRequest{Role: MessageRoleUser, Content: "hello"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"role": "user", "content": "hello"}, messageBody)

	run, err := client.CreateRun(ctx, thread.ID, CreateRunRequest{AssistantID: "asst_1"})
	require.NoError(t, err)
	require.Equal(t, "asst_1", runBody["assistant_id"])
	require.False(t, run.Status.IsTerminal())

	run, err = client.GetRun(ctx, thread.ID, run.ID)
	require.NoError(t, err)
	require.True(t, run.Status.IsTerminal())
	require.Equal(t, "rate_limit_exceeded: slow down", run.LastError.String())

	steps, err := client.ListRunSteps(ctx, thread.ID, run.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	call := steps[0].StepDetails.ToolCalls[0]
	require.Equal(t, "get_weather", call.Function.Name)
	require.Equal(t, "sunny", call.Function.Output)
	require.NotEmpty(t, call.Raw)
}

func TestAgentClient_ListMessages(t *testing.T) {
	httpClient := mockhttp.NewMockHttpClient()
	httpClient.When(mockhttp.MethodAndPath(http.MethodGet, "/threads/thread_1/messages")).
		RespondJSON(http.StatusOK, map[string]any{
			"object": "list",
			"data": []map[string]any{{
				"id":        "msg_2",
				"thread_id": "thread_1",
				"role":      "assistant",
				"content": []map[string]any{
					{"type": "text", "text": map[string]any{"value": "first"}},
					{"type": "image_file"},
					{"type": "text", "text": map[string]any{
						"value": "second",
						"annotations": []map[string]any{{
							"type":         "url_citation",
							"url_citation": map[string]any{"url": "https://example.com", "title": "Example"},
						}},
					}},
				},
			}},
		})

	client, _ := newTestClient(t, httpClient)
	messages, err := client.ListMessages(context.Background(), "thread_1", &ListMessagesOptions{
		Order: "desc",
		RunID: "run_1",
	})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "first\nsecond", messages[0].Text())
	require.Equal(t, "https://example.com", messages[0].Content[2].Text.Annotations[0].URLCitation.URL)

	query := httpClient.Requests()[0].URL.Query()
	require.Equal(t, "desc", query.Get("order"))
	require.Equal(t, "run_1", query.Get("run_id"))
	require.Equal(t, "100", query.Get("limit"))
}
