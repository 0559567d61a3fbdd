// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package exterrors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// LocalErrorCategory classifies errors raised by this server (as opposed to errors returned by a service).
type LocalErrorCategory string

const (
	LocalErrorCategoryValidation LocalErrorCategory = "validation"
	LocalErrorCategoryDependency LocalErrorCategory = "dependency"
	LocalErrorCategoryAuth       LocalErrorCategory = "auth"
	LocalErrorCategoryLocal      LocalErrorCategory = "local"
	LocalErrorCategoryUser       LocalErrorCategory = "user"
	LocalErrorCategoryInternal   LocalErrorCategory = "internal"
)

// LocalError is a structured error raised before or around a remote call.
type LocalError struct {
	Message    string
	Code       string
	Category   LocalErrorCategory
	Suggestion string
	// Details carries diagnostic identifiers (thread_id, run_id, ...) surfaced to tool callers.
	Details map[string]string
	Cause   error
}

func (e *LocalError) Error() string {
	if e.Suggestion == "" {
		return e.Message
	}

	return fmt.Sprintf("%s. Suggestion: %s", e.Message, e.Suggestion)
}

func (e *LocalError) Unwrap() error {
	return e.Cause
}

// ServiceError is an error returned by a remote Azure service.
type ServiceError struct {
	Message     string
	ErrorCode   string
	StatusCode  int
	ServiceName string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func Validation(code, message, suggestion string) error {
	return &LocalError{
		Message:    message,
		Code:       code,
		Category:   LocalErrorCategoryValidation,
		Suggestion: suggestion,
	}
}

func Dependency(code, message, suggestion string) error {
	return &LocalError{
		Message:    message,
		Code:       code,
		Category:   LocalErrorCategoryDependency,
		Suggestion: suggestion,
	}
}

func Auth(code, message, suggestion string) error {
	return &LocalError{
		Message:    message,
		Code:       code,
		Category:   LocalErrorCategoryAuth,
		Suggestion: suggestion,
	}
}

func Configuration(code, message, suggestion string) error {
	return &LocalError{
		Message:    message,
		Code:       code,
		Category:   LocalErrorCategoryLocal,
		Suggestion: suggestion,
	}
}

func User(code, message string) error {
	return &LocalError{
		Message:  message,
		Code:     code,
		Category: LocalErrorCategoryUser,
	}
}

func Internal(code, message string) error {
	return &LocalError{
		Message:  message,
		Code:     code,
		Category: LocalErrorCategoryInternal,
	}
}

// UnknownEvaluator reports an evaluator name that is not part of the static catalog.
func UnknownEvaluator(name string) error {
	return &LocalError{
		Message:  fmt.Sprintf("Unknown evaluator: %s", name),
		Code:     CodeUnknownEvaluator,
		Category: LocalErrorCategoryValidation,
		Details:  map[string]string{"evaluator": name},
	}
}

// MissingConfiguration reports that an evaluator or subsystem cannot be constructed from the current configuration.
func MissingConfiguration(subject, what string) error {
	return &LocalError{
		Message:    fmt.Sprintf("%s required for %s", what, subject),
		Code:       CodeConfigurationError,
		Category:   LocalErrorCategoryLocal,
		Suggestion: "check the server environment variables",
	}
}

// AgentNotFound wraps a failed agent lookup, keeping the identifier for diagnostics.
func AgentNotFound(agentID string, cause error) error {
	return &LocalError{
		Message:  fmt.Sprintf("Agent not found or inaccessible: %s", agentID),
		Code:     CodeAgentNotFound,
		Category: LocalErrorCategoryDependency,
		Details:  map[string]string{"agent_id": agentID},
		Cause:    cause,
	}
}

// Timeout reports an agent run that did not reach a terminal state in time.
func Timeout(threadID, runID string, after time.Duration) error {
	return &LocalError{
		Message: fmt.Sprintf(
			"agent run %s on thread %s did not reach a terminal state within %s", runID, threadID, after),
		Code:     CodeRunTimeout,
		Category: LocalErrorCategoryDependency,
		Details:  map[string]string{"thread_id": threadID, "run_id": runID},
	}
}

// ServiceFromAzure wraps an azcore.ResponseError into a ServiceError with operation context.
// If the error is not an azcore.ResponseError, it returns a generic internal LocalError.
func ServiceFromAzure(err error, operation string) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		serviceName := ""
		if respErr.RawResponse != nil && respErr.RawResponse.Request != nil {
			serviceName = respErr.RawResponse.Request.Host
		}
		code := respErr.ErrorCode
		if code == "" {
			code = fmt.Sprintf("%d", respErr.StatusCode)
		}
		return &ServiceError{
			Message:     fmt.Sprintf("%s: %s", operation, respErr.Error()),
			ErrorCode:   fmt.Sprintf("%s.%s", operation, code),
			StatusCode:  respErr.StatusCode,
			ServiceName: serviceName,
		}
	}
	if IsCancellation(err) {
		return Cancelled(fmt.Sprintf("%s was cancelled", operation))
	}
	return &LocalError{
		Message:  fmt.Sprintf("%s: %s", operation, err.Error()),
		Code:     operation,
		Category: LocalErrorCategoryInternal,
		Cause:    err,
	}
}

// IsCancellation checks if an error represents caller cancellation.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Cancelled returns a user cancellation error.
func Cancelled(message string) error {
	return User(CodeCancelled, message)
}

// HasCode reports whether err (or anything it wraps) is a LocalError with the given code.
func HasCode(err error, code string) bool {
	var localErr *LocalError
	for e := err; e != nil; {
		if !errors.As(e, &localErr) {
			return false
		}
		if localErr.Code == code {
			return true
		}
		e = localErr.Cause
	}
	return false
}

// IsNotFound reports whether err is a 404 returned by an Azure service.
func IsNotFound(err error) bool {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == 404
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.StatusCode == 404
	}
	return false
}

// DetailsOf returns the diagnostic identifiers attached to err, if any.
func DetailsOf(err error) map[string]string {
	var localErr *LocalError
	if errors.As(err, &localErr) {
		return localErr.Details
	}
	return nil
}

func IsConfiguration(err error) bool {
	return HasCode(err, CodeConfigurationError)
}

func IsUnknownEvaluator(err error) bool {
	return HasCode(err, CodeUnknownEvaluator)
}

func IsAgentNotFound(err error) bool {
	return HasCode(err, CodeAgentNotFound)
}

func IsTimeout(err error) bool {
	return HasCode(err, CodeRunTimeout)
}
