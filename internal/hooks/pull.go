package hooks

import (
	"context"
	"fmt"
	"slices"

	"github.com/rhodecode/vcsserver/internal/wire"
)

// GitPrePull and GitPostPull are invoked by internal/pygrack around the
// `git upload-pack` stateless-rpc call: a non-zero status from the pre
// hook aborts the pull with a synthetic empty PACK (see pygrack.go),
// while the post hook's output is injected into the sideband channel of
// a successful response.
//
// Both mirror hooks.py's git_pre_pull/git_post_pull: a no-op unless
// "pull" is among the extras' enabled hooks, and any transport error is
// downgraded to a status-128 HookResponse carrying the error text instead
// of propagating, since the caller (pygrack) must always get a usable
// status/output pair to build its response around.
func GitPrePull(ctx context.Context, transport Transport, extras wire.Extras) wire.HookResponse {
	return callGitPullHook(ctx, transport, "pre_pull", extras)
}

func GitPostPull(ctx context.Context, transport Transport, extras wire.Extras) wire.HookResponse {
	return callGitPullHook(ctx, transport, "post_pull", extras)
}

func callGitPullHook(ctx context.Context, transport Transport, hookName string, extras wire.Extras) wire.HookResponse {
	if !slices.Contains(extras.Hooks, "pull") {
		return wire.HookResponse{Status: 0, Output: ""}
	}

	resp, err := transport.Call(ctx, hookName, extras)
	if err != nil {
		return wire.HookResponse{Status: 128, Output: fmt.Sprintf("ERROR: %s\n", err)}
	}
	return resp
}
