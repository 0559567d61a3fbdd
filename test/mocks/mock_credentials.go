// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

// MockCredentials hands out a static token and records the scopes it was asked for.
type MockCredentials struct {
	mu     sync.Mutex
	Scopes []string
}

func (c *MockCredentials) GetToken(ctx context.Context, options policy.TokenRequestOptions) (azcore.AccessToken, error) {
	c.mu.Lock()
	c.Scopes = append(c.Scopes, options.Scopes...)
	c.mu.Unlock()

	return azcore.AccessToken{
		Token:     "ABC123",
		ExpiresOn: time.Now().Add(time.Hour * 1),
	}, nil
}

// RefOf returns a pointer for the specified value
func RefOf[T any](value T) *T {
	return &value
}
