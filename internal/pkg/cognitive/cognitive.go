// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package cognitive queries Azure AI Services (Cognitive Services) accounts and deploys models
// to them.
package cognitive

import (
	"context"
	"fmt"
	"log"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/cognitiveservices/armcognitiveservices"
	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
)

const (
	DefaultModelFormat = "OpenAI"
	DefaultSKUName     = "Standard"
	DefaultSKUCapacity = 1
)

// Account is the summary of a Cognitive Services account.
type Account struct {
	Name              string `json:"name"`
	ID                string `json:"id"`
	Kind              string `json:"kind,omitempty"`
	Location          string `json:"location,omitempty"`
	ResourceGroup     string `json:"resource_group,omitempty"`
	Endpoint          string `json:"endpoint,omitempty"`
	ProvisioningState string `json:"provisioning_state,omitempty"`
}

// Deployment is the summary of a model deployment.
type Deployment struct {
	Name              string `json:"name"`
	ID                string `json:"id,omitempty"`
	ModelName         string `json:"model_name,omitempty"`
	ModelVersion      string `json:"model_version,omitempty"`
	ModelFormat       string `json:"model_format,omitempty"`
	SKUName           string `json:"sku_name,omitempty"`
	SKUCapacity       int32  `json:"sku_capacity,omitempty"`
	ProvisioningState string `json:"provisioning_state,omitempty"`
}

// DeployModelRequest creates or updates a deployment. Empty format and SKU fields take the
// package defaults.
type DeployModelRequest struct {
	ResourceGroup  string
	AccountName    string
	DeploymentName string
	ModelName      string
	ModelVersion   string
	ModelFormat    string
	SKUName        string
	SKUCapacity    int32
}

// Service wraps the armcognitiveservices clients of one subscription.
type Service struct {
	factory *armcognitiveservices.ClientFactory
}

func NewService(subscriptionID string, cred azcore.TokenCredential, options *arm.ClientOptions) (*Service, error) {
	if subscriptionID == "" {
		return nil, exterrors.MissingConfiguration("cognitive services tools", "AZURE_SUBSCRIPTION_ID")
	}

	factory, err := armcognitiveservices.NewClientFactory(subscriptionID, cred, options)
	if err != nil {
		return nil, exterrors.Dependency(
			exterrors.CodeCognitiveServicesClientFailed,
			fmt.Sprintf("failed to create cognitive services client: %s", err),
			"",
		)
	}

	return &Service{factory: factory}, nil
}

// ListAccounts lists the accounts of the subscription, or of one resource group.
func (s *Service) ListAccounts(ctx context.Context, resourceGroup string) ([]Account, error) {
	client := s.factory.NewAccountsClient()

	if resourceGroup == "" {
		return collectAccounts(ctx, client.NewListPager(nil),
			func(page armcognitiveservices.AccountsClientListResponse) []*armcognitiveservices.Account {
				return page.Value
			})
	}

	return collectAccounts(ctx, client.NewListByResourceGroupPager(resourceGroup, nil),
		func(page armcognitiveservices.AccountsClientListByResourceGroupResponse) []*armcognitiveservices.Account {
			return page.Value
		})
}

func collectAccounts[T any](
	ctx context.Context,
	pager *runtime.Pager[T],
	values func(T) []*armcognitiveservices.Account,
) ([]Account, error) {
	accounts := []Account{}
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, exterrors.ServiceFromAzure(err, exterrors.OpListAccounts)
		}
		for _, account := range values(page) {
			if account == nil {
				continue
			}
			accounts = append(accounts, toAccount(account))
		}
	}

	return accounts, nil
}

// ListDeployments lists the model deployments of an account.
func (s *Service) ListDeployments(ctx context.Context, resourceGroup, accountName string) ([]Deployment, error) {
	pager := s.factory.NewDeploymentsClient().NewListPager(resourceGroup, accountName, nil)

	deployments := []Deployment{}
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, exterrors.ServiceFromAzure(err, exterrors.OpListDeployments)
		}
		for _, deployment := range page.Value {
			if deployment == nil {
				continue
			}
			deployments = append(deployments, toDeployment(deployment))
		}
	}

	return deployments, nil
}

// DeployModel creates or updates a deployment and waits for it to finish provisioning.
func (s *Service) DeployModel(ctx context.Context, request DeployModelRequest) (*Deployment, error) {
	required := []struct{ field, value string }{
		{"resource_group", request.ResourceGroup},
		{"account_name", request.AccountName},
		{"deployment_name", request.DeploymentName},
		{"model_name", request.ModelName},
		{"model_version", request.ModelVersion},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, exterrors.Validation(
				exterrors.CodeInvalidArguments,
				fmt.Sprintf("%s is required to deploy a model", r.field),
				"",
			)
		}
	}
	if request.ModelFormat == "" {
		request.ModelFormat = DefaultModelFormat
	}
	if request.SKUName == "" {
		request.SKUName = DefaultSKUName
	}
	if request.SKUCapacity <= 0 {
		request.SKUCapacity = DefaultSKUCapacity
	}

	log.Printf("deploying %s %s to %s/%s as %s",
		request.ModelName, request.ModelVersion, request.ResourceGroup, request.AccountName, request.DeploymentName)

	poller, err := s.factory.NewDeploymentsClient().BeginCreateOrUpdate(
		ctx,
		request.ResourceGroup,
		request.AccountName,
		request.DeploymentName,
		armcognitiveservices.Deployment{
			Properties: &armcognitiveservices.DeploymentProperties{
				Model: &armcognitiveservices.DeploymentModel{
					Name:    to.Ptr(request.ModelName),
					Format:  to.Ptr(request.ModelFormat),
					Version: to.Ptr(request.ModelVersion),
				},
			},
			SKU: &armcognitiveservices.SKU{
				Name:     to.Ptr(request.SKUName),
				Capacity: to.Ptr(request.SKUCapacity),
			},
		},
		nil,
	)
	if err != nil {
		return nil, exterrors.ServiceFromAzure(err, exterrors.OpDeployModel)
	}

	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, exterrors.ServiceFromAzure(err, exterrors.OpDeployModel)
	}

	deployment := toDeployment(&resp.Deployment)
	return &deployment, nil
}

func toAccount(account *armcognitiveservices.Account) Account {
	result := Account{
		Name:     value(account.Name),
		ID:       value(account.ID),
		Kind:     value(account.Kind),
		Location: value(account.Location),
	}
	if account.ID != nil {
		if id, err := arm.ParseResourceID(*account.ID); err == nil {
			result.ResourceGroup = id.ResourceGroupName
		}
	}
	if account.Properties != nil {
		result.Endpoint = value(account.Properties.Endpoint)
		if account.Properties.ProvisioningState != nil {
			result.ProvisioningState = string(*account.Properties.ProvisioningState)
		}
	}
	return result
}

func toDeployment(deployment *armcognitiveservices.Deployment) Deployment {
	result := Deployment{
		Name: value(deployment.Name),
		ID:   value(deployment.ID),
	}
	if deployment.Properties != nil {
		if model := deployment.Properties.Model; model != nil {
			result.ModelName = value(model.Name)
			result.ModelVersion = value(model.Version)
			result.ModelFormat = value(model.Format)
		}
		if deployment.Properties.ProvisioningState != nil {
			result.ProvisioningState = string(*deployment.Properties.ProvisioningState)
		}
	}
	if deployment.SKU != nil {
		result.SKUName = value(deployment.SKU.Name)
		if deployment.SKU.Capacity != nil {
			result.SKUCapacity = *deployment.SKU.Capacity
		}
	}
	return result
}

func value[T any](ptr *T) T {
	var zero T
	if ptr == nil {
		return zero
	}
	return *ptr
}
