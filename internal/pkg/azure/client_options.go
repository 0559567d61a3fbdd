// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package azure

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/azure/azure-ai-foundry-mcp/internal/version"
	"github.com/google/uuid"
)

// MsCorrelationIdHeader is the header used to correlate requests made for a single tool call.
const MsCorrelationIdHeader = "x-ms-correlation-request-id"

type correlationIDKey struct{}

// WithCorrelationID returns a context carrying a fresh correlation id. Every request issued
// with the returned context (through a pipeline built by ClientOptionsBuilder) shares it.
func WithCorrelationID(ctx context.Context) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, uuid.NewString())
}

// CorrelationID returns the correlation id stored in ctx, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

type correlationPolicy struct{}

func (p *correlationPolicy) Do(req *policy.Request) (*http.Response, error) {
	if id := CorrelationID(req.Raw().Context()); id != "" {
		req.Raw().Header.Set(MsCorrelationIdHeader, id)
	}

	return req.Next()
}

type userAgentPolicy struct {
	userAgent string
}

func (p *userAgentPolicy) Do(req *policy.Request) (*http.Response, error) {
	rawRequest := req.Raw()
	if existing := rawRequest.Header.Get("User-Agent"); existing != "" {
		rawRequest.Header.Set("User-Agent", fmt.Sprintf("%s %s", p.userAgent, existing))
	} else {
		rawRequest.Header.Set("User-Agent", p.userAgent)
	}

	return req.Next()
}

// UserAgent is the product token sent with every request.
func UserAgent() string {
	return fmt.Sprintf("%s-mcp/%s", version.ServerName, version.Version)
}

type ClientOptionsBuilder struct {
	transport        policy.Transporter
	perCallPolicies  []policy.Policy
	perRetryPolicies []policy.Policy
}

func NewClientOptionsBuilder() *ClientOptionsBuilder {
	return &ClientOptionsBuilder{}
}

// Sets the underlying transport used for executing HTTP requests
func (b *ClientOptionsBuilder) WithTransport(transport policy.Transporter) *ClientOptionsBuilder {
	b.transport = transport
	return b
}

// Appends per-call policies into the HTTP pipeline
func (b *ClientOptionsBuilder) WithPerCallPolicy(policy policy.Policy) *ClientOptionsBuilder {
	if policy != nil {
		b.perCallPolicies = append(b.perCallPolicies, policy)
	}
	return b
}

// Appends per-retry policies into the HTTP pipeline
func (b *ClientOptionsBuilder) WithPerRetryPolicy(policy policy.Policy) *ClientOptionsBuilder {
	if policy != nil {
		b.perRetryPolicies = append(b.perRetryPolicies, policy)
	}
	return b
}

func (b *ClientOptionsBuilder) buildPerCallPolicies() []policy.Policy {
	policies := make([]policy.Policy, 0, len(b.perCallPolicies)+2)
	policies = append(policies, &userAgentPolicy{userAgent: UserAgent()}, &correlationPolicy{})
	return append(policies, b.perCallPolicies...)
}

// BuildCoreClientOptions builds the options for a data-plane pipeline.
func (b *ClientOptionsBuilder) BuildCoreClientOptions() *policy.ClientOptions {
	return &policy.ClientOptions{
		Logging: policy.LogOptions{
			AllowedHeaders: []string{MsCorrelationIdHeader},
		},
		Transport:        b.transport,
		PerCallPolicies:  b.buildPerCallPolicies(),
		PerRetryPolicies: b.perRetryPolicies,
	}
}

// BuildArmClientOptions builds the options for Azure Resource Manager clients.
func (b *ClientOptionsBuilder) BuildArmClientOptions() *arm.ClientOptions {
	return &arm.ClientOptions{
		ClientOptions: *b.BuildCoreClientOptions(),
	}
}
