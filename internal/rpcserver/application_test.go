package rpcserver_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/rhodecode/vcsserver/internal/logging"
	"github.com/rhodecode/vcsserver/internal/rpcserver"
	"github.com/rhodecode/vcsserver/internal/vcsserver"
	"github.com/rhodecode/vcsserver/internal/wire"
)

// newRequest builds a test request whose context carries a logger, as the
// server's ConnContext provides in production; the handlers log through
// logging.FromContext, which panics without one.
func newRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(logging.ContextWithLogger(req.Context(), slog.Default()))
}

func TestStatusReturnsOK(t *testing.T) {
	app := &rpcserver.Application{Backends: map[string]rpcserver.Backend{}}
	mux := app.NewMux()

	req := newRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"OK"`)
}

func TestServerBackendPing(t *testing.T) {
	app := &rpcserver.Application{
		Backends: map[string]rpcserver.Backend{
			"server": &rpcserver.ServerBackend{Server: &vcsserver.Server{}},
		},
	}
	mux := app.NewMux()

	frame := rpcserver.Frame{ID: "1", Method: "ping", Params: rpcserver.Params{Wire: wire.Args{}}}
	body, err := msgpack.Marshal(frame)
	assert.NoError(t, err)

	req := newRequest(http.MethodPost, "/server", bytes.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp rpcserver.SuccessResponse
	assert.NoError(t, msgpack.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "1", resp.ID)
}

func TestServerBackendEcho(t *testing.T) {
	app := &rpcserver.Application{
		Backends: map[string]rpcserver.Backend{
			"server": &rpcserver.ServerBackend{Server: &vcsserver.Server{}},
		},
	}
	mux := app.NewMux()

	frame := rpcserver.Frame{
		ID:     "2",
		Method: "echo",
		Params: rpcserver.Params{Wire: wire.Args{}, Args: []any{[]byte("hi")}},
	}
	body, err := msgpack.Marshal(frame)
	assert.NoError(t, err)

	req := newRequest(http.MethodPost, "/server", bytes.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	var resp rpcserver.SuccessResponse
	assert.NoError(t, msgpack.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "hi", string(resp.Result.([]byte)))
}

func TestUnknownMethodProducesTaggedFailure(t *testing.T) {
	app := &rpcserver.Application{
		Backends: map[string]rpcserver.Backend{
			"server": &rpcserver.ServerBackend{Server: &vcsserver.Server{}},
		},
	}
	mux := app.NewMux()

	frame := rpcserver.Frame{ID: "3", Method: "not_a_real_method", Params: rpcserver.Params{Wire: wire.Args{}}}
	body, err := msgpack.Marshal(frame)
	assert.NoError(t, err)

	req := newRequest(http.MethodPost, "/server", bytes.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	// Dispatch failures are still HTTP 200 with a FailureResponse body —
	// the RPC contract never escalates a tagged error to a 5xx.
	assert.Equal(t, http.StatusOK, w.Code)

	var resp rpcserver.FailureResponse
	assert.NoError(t, msgpack.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "3", resp.ID)
	assert.Equal(t, "error", *resp.Error.VCSKind)
	assert.Zero(t, resp.Error.Type)
}
