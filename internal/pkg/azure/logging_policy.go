// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package azure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

// httpLogPolicy dumps every request and response (bodies pretty-printed when JSON) to a writer.
// Authorization headers are never written.
type httpLogPolicy struct {
	mu  sync.Mutex
	out io.Writer
}

// NewHTTPLogPolicy returns a policy writing to out, or nil when out is nil.
func NewHTTPLogPolicy(out io.Writer) policy.Policy {
	if out == nil {
		return nil
	}
	return &httpLogPolicy{out: out}
}

func (p *httpLogPolicy) Do(req *policy.Request) (*http.Response, error) {
	reqBody := readAndRestore(&req.Raw().Body)

	resp, err := req.Next()

	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\n=== REQUEST [%s] ===\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(p.out, "%s %s\n", req.Raw().Method, req.Raw().URL.String())
	if id := req.Raw().Header.Get(MsCorrelationIdHeader); id != "" {
		fmt.Fprintf(p.out, "Correlation: %s\n", id)
	}
	p.writeBody(reqBody)

	if err != nil {
		fmt.Fprintf(p.out, "\n=== ERROR [%s] ===\n", time.Now().Format(time.RFC3339))
		fmt.Fprintf(p.out, "Error: %v\n\n", err)
		return resp, err
	}

	fmt.Fprintf(p.out, "\n=== RESPONSE [%s] ===\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(p.out, "Status Code: %d\n", resp.StatusCode)
	fmt.Fprintf(p.out, "Headers:\n")
	for _, key := range slices.Sorted(maps.Keys(resp.Header)) {
		for _, value := range resp.Header[key] {
			fmt.Fprintf(p.out, "  %s: %s\n", key, value)
		}
	}
	p.writeBody(readAndRestore(&resp.Body))
	fmt.Fprintln(p.out)

	return resp, nil
}

func (p *httpLogPolicy) writeBody(body []byte) {
	if len(body) == 0 {
		fmt.Fprintf(p.out, "Body: (empty)\n")
		return
	}

	fmt.Fprintf(p.out, "Body:\n")
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err == nil {
		fmt.Fprintf(p.out, "%s\n", pretty.String())
	} else {
		fmt.Fprintf(p.out, "%s\n", string(body))
	}
}

// readAndRestore drains *body and replaces it with an in-memory copy of what was read.
func readAndRestore(body *io.ReadCloser) []byte {
	if *body == nil || *body == http.NoBody {
		return nil
	}

	data, _ := io.ReadAll(*body)
	*body = io.NopCloser(bytes.NewReader(data))
	return data
}
