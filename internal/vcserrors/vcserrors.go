// Package vcserrors implements the tagged error carrier that crosses the
// RPC boundary between the vcsserver and its caller. Backend adapters
// never return raw Go errors to the dispatcher: they classify failures
// into one of a small set of Kinds so the caller (rhodecode) can decide
// whether to retry, surface a user-facing message, or translate the
// failure into an HTTP status.
//
// This mirrors vcsserver/exceptions.py's _make_exception/functools.partial
// family: each Kind there has a dedicated constructor; here they collapse
// into one tagged struct plus one constructor per Kind for parity.
package vcserrors

import (
	"fmt"

	"github.com/alecthomas/errors"
)

// Kind classifies a translated backend failure. The set is closed and
// fixed by the wire protocol: callers switch on it by name.
type Kind string

const (
	KindLookup      Kind = "lookup"
	KindAbort       Kind = "abort"
	KindError       Kind = "error"
	KindRequirement Kind = "requirement"
	KindRepoLocked  Kind = "repo_locked"
	KindArchive     Kind = "archive"
	KindURLError    Kind = "url_error"
	KindUnhandled   Kind = "unhandled"
)

// Error is the value sent back over msgpack in place of a raised
// exception. Args carries whatever positional context the original
// failure had (e.g. the lock owner for KindRepoLocked); Cause is kept
// locally for logging and is never serialized to the wire.
type Error struct {
	Kind    Kind
	Message string
	Args    []string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a tagged Error of the given Kind, wrapping cause (which may
// be nil for synthetic failures raised directly by an adapter).
func New(kind Kind, cause error, args ...string) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: kind, Message: msg, Args: args, Cause: cause}
}

// Lookup reports that a requested object (commit, ref, path) does not exist.
func Lookup(cause error, args ...string) *Error { return New(KindLookup, cause, args...) }

// Abort reports an operation that was deliberately aborted (e.g. a hook
// veto, or a user-requested cancel).
func Abort(cause error, args ...string) *Error { return New(KindAbort, cause, args...) }

// Generic reports an adapter-level failure with no more specific Kind.
func Generic(cause error, args ...string) *Error { return New(KindError, cause, args...) }

// Requirement reports a precondition failure, e.g. an unsupported VCS
// feature requested by the caller.
func Requirement(cause error, args ...string) *Error { return New(KindRequirement, cause, args...) }

// RepoLocked reports that the repository is currently locked by another
// actor and the operation cannot proceed.
func RepoLocked(cause error, args ...string) *Error { return New(KindRepoLocked, cause, args...) }

// Archive reports a failure while building a repository archive.
func Archive(cause error, args ...string) *Error { return New(KindArchive, cause, args...) }

// URLError reports a failure reaching a remote URL (clone/fetch/push
// target, or a "check_url" probe).
func URLError(cause error, args ...string) *Error { return New(KindURLError, cause, args...) }

// Unhandled wraps any error the adapter did not anticipate. The RPC
// dispatcher (see internal/rpcserver) still answers with a framed failure
// carrying kind "unhandled"; its ALLOWED_EXCEPTIONS sanitization leaves
// the wire Type nil for this kind.
func Unhandled(cause error) *Error { return New(KindUnhandled, cause) }

// Translate returns the tagged Error found in err's chain, or wraps err
// as KindUnhandled if there is none; untagged errors are not classified
// further. It is the Go analogue of the reraise_safe_exceptions
// decorator applied to every adapter method in the Python original.
func Translate(err error) *Error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged
	}
	return Unhandled(err)
}

// Wrap attaches additional context to err while preserving its Kind (an
// untagged err becomes KindUnhandled, as in Translate), analogous to
// alecthomas/errors.Wrap but Kind-aware.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	tagged := Translate(err)
	wrapped := errors.Wrapf(tagged.Cause, "%s", context)
	if wrapped == nil {
		wrapped = fmt.Errorf("%s", context)
	}
	return &Error{Kind: tagged.Kind, Message: context + ": " + tagged.Message, Args: tagged.Args, Cause: wrapped}
}
