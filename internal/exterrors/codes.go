// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package exterrors

// Error codes for user cancellation.
const (
	CodeCancelled = "cancelled"
)

// Error codes for validation errors.
const (
	CodeInvalidArguments    = "invalid_arguments"
	CodeUnknownEvaluator    = "unknown_evaluator"
	CodeMissingInput        = "missing_input"
	CodeFileNotFound        = "file_not_found"
	CodeInvalidDataset      = "invalid_dataset"
	CodeMissingDefaultAgent = "missing_default_agent"
)

// Error codes for configuration errors.
const (
	CodeConfigurationError       = "configuration_error"
	CodeEvaluationNotInitialized = "evaluation_not_initialized"
	CodeAgentNotInitialized      = "agent_not_initialized"
	CodeInvalidConnectionString  = "invalid_connection_string"
)

// Error codes for dependency errors.
const (
	CodeAgentNotFound = "agent_not_found"
	CodeRunTimeout    = "run_timeout"
	CodeThreadEmpty   = "thread_empty"
)

// Error codes for auth errors.
const (
	CodeCredentialCreationFailed = "credential_creation_failed"
)

// Error codes for internal errors.
const (
	CodeAgentClientFailed             = "agent_client_failed"
	CodeCognitiveServicesClientFailed = "cognitiveservices_client_failed"
	CodeEvaluationFailed              = "evaluation_failed"
)

// Operation names for ServiceFromAzure errors.
// These are prefixed to the Azure error code (e.g., "get_agent.NotFound").
const (
	OpGetAgent         = "get_agent"
	OpListAgents       = "list_agents"
	OpCreateThread     = "create_thread"
	OpCreateMessage    = "create_message"
	OpCreateRun        = "create_run"
	OpGetRun           = "get_run"
	OpListMessages     = "list_messages"
	OpListRunSteps     = "list_run_steps"
	OpListAccounts     = "list_accounts"
	OpListDeployments  = "list_deployments"
	OpDeployModel      = "deploy_model"
	OpGetWorkspace     = "get_workspace"
	OpSubmitAnnotation = "submit_annotation"
	OpGetAnnotation    = "get_annotation"
)
