// Package hooks dispatches repository lifecycle events (pre/post pull,
// pre/post push) to an external hook receiver, and implements the
// Git-specific commit-id computation that the post-receive hook needs to
// report which commits a push introduced.
//
// It mirrors vcsserver/hooks.py: HooksHttpClient becomes HTTPTransport,
// and HooksPyro4Client/HooksDummyClient are both covered by
// InProcessTransport, the two Transport implementations below; Pyro4 (a
// Python-only RPC protocol) has no Go equivalent so its
// transport is replaced by a direct in-process call, matching how a Go
// deployment would colocate the hook receiver instead of reaching for a
// remote object protocol.
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rhodecode/vcsserver/internal/wire"
)

// Transport delivers one named hook call to whatever is listening for
// hook events and returns its status/output.
type Transport interface {
	Call(ctx context.Context, hookName string, extras wire.Extras) (wire.HookResponse, error)
}

// HTTPTransport posts the hook call as JSON to a fixed URI, mirroring
// HooksHttpClient.
type HTTPTransport struct {
	URI    string
	Client *http.Client
}

type httpRequest struct {
	Method string      `json:"method"`
	Extras wire.Extras `json:"extras"`
}

func (t *HTTPTransport) Call(ctx context.Context, hookName string, extras wire.Extras) (wire.HookResponse, error) {
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	body, err := json.Marshal(httpRequest{Method: hookName, Extras: extras})
	if err != nil {
		return wire.HookResponse{}, fmt.Errorf("hooks: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URI, bytes.NewReader(body))
	if err != nil {
		return wire.HookResponse{}, fmt.Errorf("hooks: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return wire.HookResponse{}, fmt.Errorf("hooks: %s: %w", hookName, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp.Body)
}

// InProcessHandler is invoked directly by InProcessTransport, replacing
// both HooksDummyClient (a dynamically imported local module) and
// HooksPyro4Client (a remote-object protocol with no Go equivalent) with
// a plain function call.
type InProcessHandler func(ctx context.Context, hookName string, extras wire.Extras) (wire.HookResponse, error)

// InProcessTransport calls a handler registered in the same process,
// used when the hook receiver is compiled into the vcsserver binary
// itself rather than reached over the network.
type InProcessTransport struct {
	Handler InProcessHandler
}

func (t *InProcessTransport) Call(ctx context.Context, hookName string, extras wire.Extras) (wire.HookResponse, error) {
	if t.Handler == nil {
		return wire.HookResponse{Status: 0, Output: ""}, nil
	}
	return t.Handler(ctx, hookName, extras)
}

func decodeResponse(r io.Reader) (wire.HookResponse, error) {
	var payload struct {
		Status         int    `json:"status"`
		Output         string `json:"output"`
		Exception      string `json:"exception"`
		ExceptionArgs  []string `json:"exception_args"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return wire.HookResponse{}, fmt.Errorf("hooks: decode response: %w", err)
	}
	if payload.Exception != "" {
		return wire.HookResponse{}, fmt.Errorf("hooks: remote exception %q: %v", payload.Exception, payload.ExceptionArgs)
	}
	return wire.HookResponse{Status: payload.Status, Output: payload.Output}, nil
}

// Resolve picks the Transport named by extras, mirroring
// hooks.py's _get_hooks_client: an HTTP URI takes priority, and
// everything else falls back to the in-process handler.
func Resolve(extras wire.Extras, inProcess InProcessHandler) Transport {
	if extras.HooksURI != "" {
		return &HTTPTransport{URI: extras.HooksURI}
	}
	return &InProcessTransport{Handler: inProcess}
}
