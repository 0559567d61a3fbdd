// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package tools

import (
	"context"

	"github.com/azure/azure-ai-foundry-mcp/internal/exterrors"
	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/cognitive"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (t *Toolset) cognitiveReady() error {
	if t.cognitive == nil {
		return exterrors.MissingConfiguration("cognitive services tools", "AZURE_SUBSCRIPTION_ID")
	}
	return nil
}

func (t *Toolset) newListCognitiveServicesAccountsTool() server.ServerTool {
	return server.ServerTool{
		Tool: mcp.NewTool(
			"list_cognitive_services_accounts",
			mcp.WithDescription("List the Azure AI Services (Cognitive Services) accounts of the subscription."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(true),
			mcp.WithString("resource_group",
				mcp.Description("Only list the accounts of this resource group."),
			),
		),
		Handler: handler("list_cognitive_services_accounts",
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				if err := t.cognitiveReady(); err != nil {
					return nil, err
				}

				accounts, err := t.cognitive.ListAccounts(ctx, request.GetString("resource_group", ""))
				if err != nil {
					return nil, err
				}
				return jsonResult(accounts), nil
			}),
	}
}

func (t *Toolset) newListModelDeploymentsTool() server.ServerTool {
	return server.ServerTool{
		Tool: mcp.NewTool(
			"list_model_deployments",
			mcp.WithDescription("List the model deployments of an Azure AI Services account."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(true),
			mcp.WithString("resource_group",
				mcp.Description("Resource group of the account"),
				mcp.Required(),
			),
			mcp.WithString("account_name",
				mcp.Description("Name of the account"),
				mcp.Required(),
			),
		),
		Handler: handler("list_model_deployments",
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				if err := t.cognitiveReady(); err != nil {
					return nil, err
				}
				resourceGroup, err := request.RequireString("resource_group")
				if err != nil {
					return nil, exterrors.Validation(exterrors.CodeInvalidArguments, err.Error(), "")
				}
				accountName, err := request.RequireString("account_name")
				if err != nil {
					return nil, exterrors.Validation(exterrors.CodeInvalidArguments, err.Error(), "")
				}

				deployments, err := t.cognitive.ListDeployments(ctx, resourceGroup, accountName)
				if err != nil {
					return nil, err
				}
				return jsonResult(deployments), nil
			}),
	}
}

func (t *Toolset) newDeployModelTool() server.ServerTool {
	return server.ServerTool{
		Tool: mcp.NewTool(
			"deploy_model",
			mcp.WithDescription(
				"Create or update a model deployment on an Azure AI Services account and wait for it to finish."),
			mcp.WithReadOnlyHintAnnotation(false),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(true),
			mcp.WithString("resource_group",
				mcp.Description("Resource group of the account"),
				mcp.Required(),
			),
			mcp.WithString("account_name",
				mcp.Description("Name of the account"),
				mcp.Required(),
			),
			mcp.WithString("deployment_name",
				mcp.Description("Name of the deployment to create or update"),
				mcp.Required(),
			),
			mcp.WithString("model_name",
				mcp.Description("Model to deploy, for example gpt-4o"),
				mcp.Required(),
			),
			mcp.WithString("model_version",
				mcp.Description("Model version, for example 2024-08-06"),
				mcp.Required(),
			),
			mcp.WithString("model_format",
				mcp.Description("Model format"),
				mcp.DefaultString(cognitive.DefaultModelFormat),
			),
			mcp.WithString("sku_name",
				mcp.Description("Deployment SKU"),
				mcp.DefaultString(cognitive.DefaultSKUName),
			),
			mcp.WithNumber("sku_capacity",
				mcp.Description("Deployment capacity in SKU units"),
				mcp.DefaultNumber(cognitive.DefaultSKUCapacity),
			),
		),
		Handler: handler("deploy_model",
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				if err := t.cognitiveReady(); err != nil {
					return nil, err
				}

				deployment, err := t.cognitive.DeployModel(ctx, cognitive.DeployModelRequest{
					ResourceGroup:  request.GetString("resource_group", ""),
					AccountName:    request.GetString("account_name", ""),
					DeploymentName: request.GetString("deployment_name", ""),
					ModelName:      request.GetString("model_name", ""),
					ModelVersion:   request.GetString("model_version", ""),
					ModelFormat:    request.GetString("model_format", cognitive.DefaultModelFormat),
					SKUName:        request.GetString("sku_name", cognitive.DefaultSKUName),
					SKUCapacity:    int32(request.GetInt("sku_capacity", cognitive.DefaultSKUCapacity)),
				})
				if err != nil {
					return nil, err
				}
				return jsonResult(deployment), nil
			}),
	}
}
