// Package appcaller adapts an http.Handler so it can be invoked as a pure
// function of (method, path, header, body) -> (status, header, chunks),
// equivalent to vcsserver's WSGIAppCaller: the RPC dispatcher's /proxy/*
// routes call a hg/git WSGI-equivalent handler out-of-process-style and
// forward the result over msgpack rather than a live HTTP connection.
package appcaller

import (
	"io"
	"net/http"
	"net/http/httptest"
)

// Request describes one call into the wrapped handler.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   io.Reader
}

// Response is the fully materialized result of one call, ready for
// msgpack framing by the RPC dispatcher.
type Response struct {
	Status int
	Header http.Header
	Chunks [][]byte
}

// ChunkSize is the size chunks are split into before framing. It equals
// the side-band-64k payload size pygrack uses for sideband packets; the
// subprocess output pygrack streams is chunked by subprocio instead.
const ChunkSize = 65515

// Caller adapts a single http.Handler into the pure-function call shape.
type Caller struct {
	Handler http.Handler
}

// New wraps handler for out-of-process-style invocation.
func New(handler http.Handler) *Caller {
	return &Caller{Handler: handler}
}

// Call drives the handler with an httptest.ResponseRecorder and returns
// the fully materialized response. The handler never streams directly to
// a live connection here — the whole point of the adapter is that the
// caller may be on the other end of an RPC frame, not a socket.
func (c *Caller) Call(req Request) Response {
	httpReq := httptest.NewRequest(req.Method, req.Path, req.Body)
	if req.Header != nil {
		httpReq.Header = req.Header
	}

	rec := httptest.NewRecorder()
	c.Handler.ServeHTTP(rec, httpReq)

	body := rec.Body.Bytes()
	return Response{
		Status: rec.Code,
		Header: rec.Header(),
		Chunks: chunk(body, ChunkSize),
	}
}

func chunk(body []byte, size int) [][]byte {
	if len(body) == 0 {
		return nil
	}
	var chunks [][]byte
	for len(body) > 0 {
		n := size
		if n > len(body) {
			n = len(body)
		}
		chunks = append(chunks, body[:n])
		body = body[n:]
	}
	return chunks
}
