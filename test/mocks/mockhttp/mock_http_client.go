// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package mockhttp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockHttpClient is a policy.Transporter that answers requests from registered expressions.
// Expressions are evaluated in registration order; the first matching predicate wins.
type MockHttpClient struct {
	mu          sync.Mutex
	expressions []*HttpExpression
	requests    []*http.Request
}

type HttpExpression struct {
	http        *MockHttpClient
	predicateFn RequestPredicate
	responseFn  RespondFn
	error       error
}

type RequestPredicate func(request *http.Request) bool
type RespondFn func(request *http.Request) (*http.Response, error)

func NewMockHttpClient() *MockHttpClient {
	return &MockHttpClient{}
}

func (c *MockHttpClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	var match *HttpExpression
	for _, expr := range c.expressions {
		if expr.predicateFn(req) {
			match = expr
			break
		}
	}
	c.mu.Unlock()

	if match == nil {
		panic(fmt.Sprintf("No mock found for request: '%s %s'", req.Method, req.URL.String()))
	}

	if match.error != nil {
		return nil, match.error
	}

	resp, err := match.responseFn(req)
	if resp != nil && resp.Request == nil {
		resp.Request = req
	}
	return resp, err
}

func (c *MockHttpClient) When(predicate RequestPredicate) *HttpExpression {
	c.mu.Lock()
	defer c.mu.Unlock()

	expr := &HttpExpression{
		http:        c,
		predicateFn: predicate,
	}
	c.expressions = append(c.expressions, expr)
	return expr
}

// Requests returns the requests received so far.
func (c *MockHttpClient) Requests() []*http.Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]*http.Request(nil), c.requests...)
}

// CountMatching returns how many received requests satisfy predicate.
func (c *MockHttpClient) CountMatching(predicate RequestPredicate) int {
	count := 0
	for _, req := range c.Requests() {
		if predicate(req) {
			count++
		}
	}
	return count
}

func (e *HttpExpression) RespondFn(responseFn RespondFn) *MockHttpClient {
	e.responseFn = responseFn
	return e.http
}

// RespondJSON answers with status and body marshaled as JSON.
func (e *HttpExpression) RespondJSON(status int, body any) *MockHttpClient {
	return e.RespondFn(func(request *http.Request) (*http.Response, error) {
		return JSONResponse(request, status, body)
	})
}

func (e *HttpExpression) SetError(err error) *MockHttpClient {
	e.error = err
	return e.http
}

// JSONResponse builds an *http.Response carrying body as JSON.
func JSONResponse(request *http.Request, status int, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(data)),
		Request:    request,
	}, nil
}

// MethodAndPath matches requests by method and a URL path suffix.
func MethodAndPath(method, pathSuffix string) RequestPredicate {
	return func(request *http.Request) bool {
		return request.Method == method && strings.HasSuffix(request.URL.Path, pathSuffix)
	}
}
