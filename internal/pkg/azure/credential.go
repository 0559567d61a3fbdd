// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package azure

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// CredentialScope defines the Azure resource scope requested for bearer tokens.
type CredentialScope string

const (
	// ScopeAIFoundry is the scope for Azure AI Foundry project endpoints.
	ScopeAIFoundry CredentialScope = "https://ai.azure.com/.default"
	// ScopeAzureML is the scope for hub-based (connection string) agent endpoints.
	ScopeAzureML CredentialScope = "https://ml.azure.com/.default"
	// ScopeARM is the scope for Azure Resource Manager APIs.
	ScopeARM CredentialScope = "https://management.azure.com/.default"
)

// NewCredential creates the DefaultAzureCredential chain (environment, workload identity,
// managed identity, Azure CLI, Azure Developer CLI). Token acquisition is deferred until
// the first request that needs one.
func NewCredential(tenantID string) (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		TenantID:                   tenantID,
		AdditionallyAllowedTenants: []string{"*"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	return cred, nil
}
