// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package agent_api

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/azure"
)

const (
	// HubAPIVersion is used with hub-based projects addressed by connection string.
	HubAPIVersion = "2024-12-01-preview"
	// ProjectAPIVersion is used with Foundry project endpoints.
	ProjectAPIVersion = "2025-05-01"
)

// Endpoint locates an agent service and the token scope it accepts.
type Endpoint struct {
	BaseURL    string
	APIVersion string
	Scope      azure.CredentialScope

	// Project scope, known only when parsed from a connection string.
	SubscriptionID string
	ResourceGroup  string
	ProjectName    string
}

// ParseConnectionString parses "<host>;<subscription id>;<resource group>;<project name>".
func ParseConnectionString(connectionString string) (Endpoint, error) {
	parts := strings.Split(strings.TrimSpace(connectionString), ";")
	if len(parts) != 4 {
		return Endpoint{}, invalidConnectionString(
			fmt.Sprintf("expected 4 ';'-separated parts, found %d", len(parts)))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return Endpoint{}, invalidConnectionString(fmt.Sprintf("part %d is empty", i+1))
		}
	}

	host := strings.TrimSuffix(parts[0], "/")
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		host = u.Host
	}

	return Endpoint{
		BaseURL: fmt.Sprintf(
			"https://%s/agents/v1.0/subscriptions/%s/resourceGroups/%s/providers/"+
				"Microsoft.MachineLearningServices/workspaces/%s",
			host, parts[1], parts[2], parts[3]),
		APIVersion:     HubAPIVersion,
		Scope:          azure.ScopeAzureML,
		SubscriptionID: parts[1],
		ResourceGroup:  parts[2],
		ProjectName:    parts[3],
	}, nil
}

// ProjectEndpoint builds an Endpoint from a Foundry project endpoint URL
// (https://<resource>.services.ai.azure.com/api/projects/<project>).
func ProjectEndpoint(endpoint string) (Endpoint, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return Endpoint{}, exterrors.Validation(
			exterrors.CodeInvalidConnectionString,
			fmt.Sprintf("invalid project endpoint %q", endpoint),
			"use the https endpoint shown on the project's overview page",
		)
	}

	return Endpoint{
		BaseURL:    strings.TrimSuffix(u.String(), "/"),
		APIVersion: ProjectAPIVersion,
		Scope:      azure.ScopeAIFoundry,
	}, nil
}

// ResolveEndpoint prefers the connection string and falls back to the project endpoint.
func ResolveEndpoint(connectionString, projectEndpoint string) (Endpoint, error) {
	if connectionString != "" {
		return ParseConnectionString(connectionString)
	}
	if projectEndpoint != "" {
		return ProjectEndpoint(projectEndpoint)
	}
	return Endpoint{}, exterrors.Configuration(
		exterrors.CodeAgentNotInitialized,
		"Azure AI Agent service is not initialized. Check environment variables.",
		"set PROJECT_CONNECTION_STRING or AZURE_AI_PROJECT_ENDPOINT",
	)
}

func invalidConnectionString(reason string) error {
	return exterrors.Validation(
		exterrors.CodeInvalidConnectionString,
		fmt.Sprintf("invalid project connection string: %s", reason),
		"copy the connection string from the project's overview page in Azure AI Foundry",
	)
}
