package hooks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/rhodecode/vcsserver/internal/hooks"
	"github.com/rhodecode/vcsserver/internal/wire"
)

type fakeTransport struct {
	resp wire.HookResponse
	err  error
	last string
}

func (f *fakeTransport) Call(_ context.Context, hookName string, _ wire.Extras) (wire.HookResponse, error) {
	f.last = hookName
	return f.resp, f.err
}

func TestParseRevisionLines(t *testing.T) {
	raw := "aaa bbb refs/heads/main\n\nccc ddd refs/tags/v1\n"
	lines := hooks.ParseRevisionLines(raw)
	assert.Equal(t, 2, len(lines))
	assert.Equal(t, "refs/heads/main", lines[0].Ref)
	assert.Equal(t, "refs/tags/v1", lines[1].Ref)
}

func TestGitPrePullSkippedWithoutPullHook(t *testing.T) {
	transport := &fakeTransport{resp: wire.HookResponse{Status: 0}}
	resp := hooks.GitPrePull(context.Background(), transport, wire.Extras{Hooks: []string{"push"}})
	assert.Equal(t, 0, resp.Status)
	assert.Equal(t, "", transport.last)
}

func TestGitPrePullInvokesTransport(t *testing.T) {
	transport := &fakeTransport{resp: wire.HookResponse{Status: 1, Output: "blocked"}}
	resp := hooks.GitPrePull(context.Background(), transport, wire.Extras{Hooks: []string{"pull"}})
	assert.Equal(t, 1, resp.Status)
	assert.Equal(t, "blocked", resp.Output)
	assert.Equal(t, "pre_pull", transport.last)
}

func TestGitPrePullDowngradesTransportError(t *testing.T) {
	transport := &fakeTransport{err: errors.New("connection refused")}
	resp := hooks.GitPrePull(context.Background(), transport, wire.Extras{Hooks: []string{"pull"}})
	assert.Equal(t, 128, resp.Status)
}

func TestGitPreReceiveSkippedWithoutPushHook(t *testing.T) {
	transport := &fakeTransport{}
	status, err := hooks.GitPreReceive(context.Background(), transport, wire.Extras{Hooks: []string{"pull"}})
	assert.NoError(t, err)
	assert.Equal(t, 0, status)
}
