package rpcserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/rhodecode/vcsserver/internal/hooks"
	"github.com/rhodecode/vcsserver/internal/logging"
	"github.com/rhodecode/vcsserver/internal/metrics"
	"github.com/rhodecode/vcsserver/internal/vcserrors"
	"github.com/rhodecode/vcsserver/internal/wire"
)

// Backend dispatches one generic RPC call against a single VCS family.
type Backend interface {
	Dispatch(ctx context.Context, method string, w wire.Args, args []any) (any, error)
}

// Application wires the routes in spec.md §4.8's table onto an
// http.ServeMux: the generic RPC backends, the out-of-process WSGI-style
// proxy routes, and the byte-transparent smart-HTTP stream routes.
type Application struct {
	Backends map[string]Backend // "git", "hg", "svn", "server"

	GitApp AppBuilder // builds a pygrack engine for a stream/proxy request
	HgApp  AppBuilder

	UseEchoApp bool
	Metrics    *metrics.Client
}

// AppBuilder constructs the http.Handler that serves one repository's
// smart-HTTP or hgweb traffic, given the repo path/name/config carried in
// the request (spec.md §6's X-RC-Repo-* headers).
type AppBuilder func(repoPath, repoName string, config wire.Args, extras wire.Extras, transport hooks.Transport) (http.Handler, error)

// NewMux registers every spec.md §4.8 route on a fresh ServeMux.
func (a *Application) NewMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", a.handleStatus)
	mux.HandleFunc("GET /_liveness", handleOK)
	mux.HandleFunc("GET /_readiness", handleOK)

	for name := range a.Backends {
		mux.HandleFunc("POST /"+name, a.handleBackend(name))
	}

	mux.HandleFunc("POST /proxy/hg", a.handleProxy(a.hgHandlerFor))
	mux.HandleFunc("POST /proxy/git", a.handleProxy(a.gitHandlerFor))

	mux.HandleFunc("/stream/hg/{repo_name}", a.handleStream(a.hgHandlerFor))
	mux.HandleFunc("/stream/git/{repo_name}", a.handleStream(a.gitHandlerFor))

	return mux
}

func handleOK(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (a *Application) handleStatus(w http.ResponseWriter, r *http.Request) {
	logging.FromContext(r.Context()).DebugContext(r.Context(), "status check")
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status": "OK"}`))
}

// handleBackend decodes one msgpack Frame, dispatches it to the named
// backend, and encodes a SuccessResponse or FailureResponse in its place
// — never an HTTP 5xx, since a raised backend exception is itself a
// valid, framed RPC outcome (spec.md §4.8/§7).
func (a *Application) handleBackend(name string) http.HandlerFunc {
	backend := a.Backends[name]
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		var frame Frame
		if err := msgpack.NewDecoder(r.Body).Decode(&frame); err != nil {
			http.Error(w, "malformed rpc frame", http.StatusBadRequest)
			return
		}

		start := time.Now()
		attrs := metric.WithAttributes(attribute.String("backend", name), attribute.String("method", frame.Method))
		if a.Metrics != nil {
			a.Metrics.RPCCalls.Add(ctx, 1, attrs)
		}

		result, err := backend.Dispatch(ctx, frame.Method, frame.Params.Wire, frame.Params.Args)

		if a.Metrics != nil {
			a.Metrics.RPCDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		}

		w.Header().Set("Content-Type", "application/msgpack")
		enc := msgpack.NewEncoder(w)

		if err != nil {
			if a.Metrics != nil {
				a.Metrics.RPCErrors.Add(ctx, 1, attrs)
			}
			logger.ErrorContext(ctx, "rpc call failed", slog.String("backend", name), slog.String("method", frame.Method), slog.Any("error", err))
			_ = enc.Encode(FailureResponse{ID: frame.ID, Error: errorBody(err)})
			return
		}

		_ = enc.Encode(SuccessResponse{ID: frame.ID, Result: result})
	}
}

func errorBody(err error) ErrorBody {
	tagged := vcserrors.Translate(err)
	body := ErrorBody{Message: tagged.Message}
	kind := string(tagged.Kind)
	body.VCSKind = &kind
	if t, ok := allowedExceptionTypes[kind]; ok {
		body.Type = &t
	}
	return body
}
