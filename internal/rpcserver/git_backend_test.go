package rpcserver_test

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/rhodecode/vcsserver/internal/rpcserver"
	"github.com/rhodecode/vcsserver/internal/vcs/git"
	"github.com/rhodecode/vcsserver/internal/vcserrors"
	"github.com/rhodecode/vcsserver/internal/wire"
)

func TestGitBackendCommitThenGetObject(t *testing.T) {
	factory := git.NewFactory("git")
	dir := t.TempDir()
	_, err := factory.Init(dir, false)
	assert.NoError(t, err)

	backend := &rpcserver.GitBackend{Factory: factory}
	w := wire.Args{wire.KeyPath: dir}

	result, err := backend.Dispatch(context.Background(), "commit", w, []any{
		map[string]any{"message": "hi", "author": "tester", "email": "tester@example.com"},
		"master",
		"",
		map[string]any{"a.txt": []byte("hello")},
		[]any{},
	})
	assert.NoError(t, err)
	sha, _ := result.(string)
	assert.NotZero(t, sha)

	obj, err := backend.Dispatch(context.Background(), "get_object", w, []any{sha})
	assert.NoError(t, err)
	gitObj, ok := obj.(git.Object)
	assert.True(t, ok)
	assert.Equal(t, "commit", gitObj.Type)
}

func TestGitBackendUnknownMethod(t *testing.T) {
	factory := git.NewFactory("git")
	dir := t.TempDir()
	_, err := factory.Init(dir, false)
	assert.NoError(t, err)

	backend := &rpcserver.GitBackend{Factory: factory}
	w := wire.Args{wire.KeyPath: dir}

	_, err = backend.Dispatch(context.Background(), "not_a_real_method", w, nil)
	assert.Error(t, err)
	assert.Equal(t, vcserrors.KindError, vcserrors.Translate(err).Kind)
}
