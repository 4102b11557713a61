// caller.go defines the boundary to the "smart-contract read-only call
// executor" collaborator (explicitly out of scope per §1: its specific
// upstream wire schema is not re-specified here). Rather than guess at
// the real Stacks consensus serialization, this package defines its own
// simplified {type,value} wire contract, reusing clarity.ToSimplified/
// clarity.FromSimplified as both request and response codec. This
// is a deliberate, documented simplification of an out-of-scope
// collaborator boundary, not an attempt to replicate the real executor.
package contractcalls

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"encore.app/pkg/apierr"
	"encore.app/pkg/clarity"
)

// ClarityCaller invokes a read-only contract function and returns its
// decoded result.
type ClarityCaller interface {
	CallReadOnly(ctx context.Context, address, name, fn, network, senderAddress string, args []clarity.Value) (clarity.Value, error)
}

// httpClarityCaller posts a simplified call request to the configured
// contract-call base URL and decodes the simplified response back into
// a clarity.Value tree.
type httpClarityCaller struct {
	client  *http.Client
	baseURL string
}

func NewHTTPClarityCaller(client *http.Client, baseURL string) *httpClarityCaller {
	return &httpClarityCaller{client: client, baseURL: baseURL}
}

type callRequest struct {
	Sender    string           `json:"sender"`
	Arguments []map[string]any `json:"arguments"`
}

type callResponse struct {
	Result map[string]any `json:"result"`
}

func (c *httpClarityCaller) CallReadOnly(ctx context.Context, address, name, fn, network, senderAddress string, args []clarity.Value) (clarity.Value, error) {
	req := callRequest{Sender: senderAddress, Arguments: make([]map[string]any, len(args))}
	for i, arg := range args {
		req.Arguments[i] = clarity.ToSimplified(arg)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return clarity.Value{}, apierr.Wrap(apierr.CodeInternal, err, "encode call arguments")
	}

	url := c.baseURL + "/v2/contracts/call-read/" + address + "/" + name + "/" + fn + "?network=" + network
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return clarity.Value{}, apierr.Wrap(apierr.CodeInternal, err, "build call request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return clarity.Value{}, apierr.Wrap(apierr.CodeUpstreamAPIError, err, "call %s.%s::%s", address, name, fn)
	}
	defer resp.Body.Close()

	var out callResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return clarity.Value{}, apierr.Wrap(apierr.CodeUpstreamAPIError, err, "decode call response")
	}
	if resp.StatusCode >= 400 {
		return clarity.Value{}, apierr.New(apierr.CodeUpstreamAPIError, "contract call returned status %d", resp.StatusCode)
	}

	return clarity.FromSimplified(out.Result)
}

// httpAbiFetcher asks the upstream Stacks API for a contract's
// interface.
type httpAbiFetcher struct {
	client  *http.Client
	baseURL string
}

func NewHTTPAbiFetcher(client *http.Client, baseURL string) *httpAbiFetcher {
	return &httpAbiFetcher{client: client, baseURL: baseURL}
}

func (f *httpAbiFetcher) FetchAbi(ctx context.Context, address, name string) (clarity.Abi, error) {
	url := f.baseURL + "/v2/contracts/interface/" + address + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return clarity.Abi{}, apierr.Wrap(apierr.CodeInternal, err, "build abi request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return clarity.Abi{}, apierr.Wrap(apierr.CodeUpstreamAPIError, err, "fetch abi for %s.%s", address, name)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return clarity.Abi{}, apierr.New(apierr.CodeUpstreamAPIError, "abi fetch returned status %d", resp.StatusCode)
	}

	var abi clarity.Abi
	if err := json.NewDecoder(resp.Body).Decode(&abi); err != nil {
		return clarity.Abi{}, apierr.Wrap(apierr.CodeUpstreamAPIError, err, "decode abi response")
	}
	return abi, nil
}
