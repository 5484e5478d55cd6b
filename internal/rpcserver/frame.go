// Package rpcserver implements the msgpack-framed RPC dispatcher and the
// smart-HTTP stream routes described in spec.md §4.8, grounded on
// vcsserver/http_main.py's VCS view. Routes are registered on a
// net/http.ServeMux using Go 1.22's method+wildcard patterns, the same
// style the teacher's cmd/cachewd main.go uses for its own mux.
package rpcserver

import (
	"github.com/rhodecode/vcsserver/internal/wire"
)

// Frame is the decoded request body of a POST to /<backend>: an RPC call
// fingerprint carrying the caller-supplied id (echoed back verbatim), the
// method name, and its parameters.
type Frame struct {
	ID     any    `msgpack:"id"`
	Method string `msgpack:"method"`
	Params Params `msgpack:"params"`
}

// Params bundles the wire descriptor with the method's remaining
// positional and keyword arguments, mirroring the Python dispatcher's
// `wire, *args, **kwargs` call shape.
type Params struct {
	Wire   wire.Args      `msgpack:"wire"`
	Args   []any          `msgpack:"args"`
	Kwargs map[string]any `msgpack:"kwargs"`
}

// SuccessResponse is the msgpack body returned for a successful call.
type SuccessResponse struct {
	ID     any `msgpack:"id"`
	Result any `msgpack:"result"`
}

// ErrorBody is the nested error object of a FailureResponse.
type ErrorBody struct {
	Message string  `msgpack:"message"`
	Type    *string `msgpack:"type"`
	VCSKind *string `msgpack:"_vcs_kind"`
}

// FailureResponse is the msgpack body returned when the dispatched method
// raised a tagged error.
type FailureResponse struct {
	ID    any       `msgpack:"id"`
	Error ErrorBody `msgpack:"error"`
}

// allowedExceptionTypes mirrors http_main.py's ALLOWED_EXCEPTIONS: only
// these Kinds get their "type" field populated on the wire, so the caller
// can special-case them; every other Kind's type is sanitized to null to
// avoid leaking internal Go type names across the RPC boundary.
var allowedExceptionTypes = map[string]string{
	"lookup":    "KeyError",
	"url_error": "URLError",
}
