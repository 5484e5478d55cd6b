package rpcserver

import (
	"bytes"
	"encoding/base64"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/rhodecode/vcsserver/internal/appcaller"
	"github.com/rhodecode/vcsserver/internal/hooks"
	"github.com/rhodecode/vcsserver/internal/logging"
	"github.com/rhodecode/vcsserver/internal/wire"
)

// repoHeaders is the decoded form of the X-RC-Repo-* headers spec.md §6
// defines for the stream routes.
type repoHeaders struct {
	Path   string
	Name   string
	Config wire.Args
}

func parseRepoHeaders(r *http.Request) (repoHeaders, error) {
	h := repoHeaders{
		Path: r.Header.Get("X-RC-Repo-Path"),
		Name: r.Header.Get("X-RC-Repo-Name"),
	}
	raw := r.Header.Get("X-RC-Repo-Config")
	if raw == "" {
		return h, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return h, err
	}
	var cfg wire.Args
	if err := msgpack.NewDecoder(bytes.NewReader(decoded)).Decode(&cfg); err != nil {
		return h, err
	}
	h.Config = cfg
	return h, nil
}

func (a *Application) gitHandlerFor(repoPath, repoName string, config wire.Args, extras wire.Extras, transport hooks.Transport) (http.Handler, error) {
	if a.UseEchoApp {
		return appcaller.EchoApp{}, nil
	}
	return a.GitApp(repoPath, repoName, config, extras, transport)
}

func (a *Application) hgHandlerFor(repoPath, repoName string, config wire.Args, extras wire.Extras, transport hooks.Transport) (http.Handler, error) {
	if a.UseEchoApp {
		return appcaller.EchoApp{}, nil
	}
	return a.HgApp(repoPath, repoName, config, extras, transport)
}

// handleStream invokes the hg/git WSGI-equivalent handler directly
// against the incoming request, byte-transparent per spec.md §6.
func (a *Application) handleStream(build AppBuilder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		hdrs, err := parseRepoHeaders(r)
		if err != nil {
			http.Error(w, "malformed repo headers", http.StatusBadRequest)
			return
		}

		transport := hooks.Resolve(wire.Extras{RepoName: hdrs.Name}, nil)
		handler, err := build(hdrs.Path, hdrs.Name, hdrs.Config, wire.Extras{RepoName: hdrs.Name}, transport)
		if err != nil {
			logger.ErrorContext(ctx, "failed to build stream app", "repo", hdrs.Name, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if pathInfo := r.Header.Get("X-RC-Path-Info"); pathInfo != "" {
			r.URL.Path = pathInfo
		}

		handler.ServeHTTP(w, r)
	}
}

// handleProxy drives the hg/git WSGI-equivalent handler out-of-process-
// style via appcaller and streams the result back framed as a msgpack
// stream: error-or-null, status, headers, then one packet per body chunk
// (spec.md §4.8's "Stream proxy" framing).
func (a *Application) handleProxy(build AppBuilder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		hdrs, err := parseRepoHeaders(r)
		if err != nil {
			http.Error(w, "malformed repo headers", http.StatusBadRequest)
			return
		}

		transport := hooks.Resolve(wire.Extras{RepoName: hdrs.Name}, nil)
		handler, err := build(hdrs.Path, hdrs.Name, hdrs.Config, wire.Extras{RepoName: hdrs.Name}, transport)

		w.Header().Set("Content-Type", "application/msgpack")
		enc := msgpack.NewEncoder(w)

		if err != nil {
			logger.ErrorContext(ctx, "failed to build proxy app", "repo", hdrs.Name, "error", err)
			_ = enc.Encode(err.Error())
			return
		}
		_ = enc.Encode(nil)

		caller := appcaller.New(handler)
		resp := caller.Call(appcaller.Request{
			Method: r.Header.Get("X-RC-Method"),
			Path:   r.Header.Get("X-RC-Path-Info"),
			Header: r.Header,
			Body:   r.Body,
		})

		_ = enc.Encode(resp.Status)
		_ = enc.Encode(resp.Header)
		for _, chunk := range resp.Chunks {
			_ = enc.Encode(chunk)
		}
	}
}
