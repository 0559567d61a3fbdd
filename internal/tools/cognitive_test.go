// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package tools

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/azure/azure-ai-foundry-mcp/test/mocks/mockhttp"
	"github.com/stretchr/testify/require"
)

const deploymentsPath = "/subscriptions/sub-1/resourceGroups/rg-1/providers/Microsoft.CognitiveServices/accounts/ai-acct/deployments"

func TestListCognitiveServicesAccounts(t *testing.T) {
	httpClient := mockhttp.NewMockHttpClient()
	httpClient.When(mockhttp.MethodAndPath(http.MethodGet, "/subscriptions/sub-1/providers/Microsoft.CognitiveServices/accounts")).
		RespondJSON(http.StatusOK, map[string]any{
			"value": []any{map[string]any{
				"id":   "/subscriptions/sub-1/resourceGroups/rg-1/providers/Microsoft.CognitiveServices/accounts/ai-acct",
				"name": "ai-acct",
				"kind": "AIServices",
			}},
		})
	toolset := newTestToolset(t, testConfig(t.TempDir()), httpClient)

	result := callTool(t, toolset, "list_cognitive_services_accounts", nil)
	require.False(t, result.IsError, resultText(t, result))
	require.JSONEq(t, `[{
		"name": "ai-acct",
		"id": "/subscriptions/sub-1/resourceGroups/rg-1/providers/Microsoft.CognitiveServices/accounts/ai-acct",
		"kind": "AIServices",
		"resource_group": "rg-1"
	}]`, resultText(t, result))
}

func TestListModelDeployments_RequiresAccount(t *testing.T) {
	toolset := newTestToolset(t, testConfig(t.TempDir()), mockhttp.NewMockHttpClient())

	result := callTool(t, toolset, "list_model_deployments", map[string]any{"resource_group": "rg-1"})
	require.True(t, result.IsError)
	require.Contains(t, resultJSON(t, result)["error"], "account_name")
}

func TestDeployModel(t *testing.T) {
	var sku map[string]any

	httpClient := mockhttp.NewMockHttpClient()
	httpClient.When(mockhttp.MethodAndPath(http.MethodPut, deploymentsPath+"/chat")).
		RespondFn(func(request *http.Request) (*http.Response, error) {
			var body map[string]any
			if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
				return nil, err
			}
			sku = body["sku"].(map[string]any)
			body["name"] = "chat"
			body["properties"].(map[string]any)["provisioningState"] = "Succeeded"
			return mockhttp.JSONResponse(request, http.StatusOK, body)
		})
	toolset := newTestToolset(t, testConfig(t.TempDir()), httpClient)

	result := callTool(t, toolset, "deploy_model", map[string]any{
		"resource_group":  "rg-1",
		"account_name":    "ai-acct",
		"deployment_name": "chat",
		"model_name":      "gpt-4o",
		"model_version":   "2024-08-06",
		"sku_name":        "GlobalStandard",
		"sku_capacity":    float64(5),
	})
	require.False(t, result.IsError, resultText(t, result))
	require.Equal(t, map[string]any{"name": "GlobalStandard", "capacity": 5.0}, sku)

	payload := resultJSON(t, result)
	require.Equal(t, "chat", payload["name"])
	require.Equal(t, "OpenAI", payload["model_format"])
	require.Equal(t, "Succeeded", payload["provisioning_state"])
}

func TestCognitiveTools_WithoutSubscription(t *testing.T) {
	toolset := newTestToolset(t, testConfig(t.TempDir()), mockhttp.NewMockHttpClient())
	toolset.cognitive = nil

	result := callTool(t, toolset, "list_cognitive_services_accounts", nil)
	require.True(t, result.IsError)
	require.Equal(t,
		"AZURE_SUBSCRIPTION_ID required for cognitive services tools. Suggestion: check the server environment variables",
		resultJSON(t, result)["error"])
}
