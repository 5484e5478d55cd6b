package git_test

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/rhodecode/vcsserver/internal/vcs/git"
)

func TestCommitWritesTreeAndMovesBranch(t *testing.T) {
	f := git.NewFactory("git")
	h, err := f.Init(t.TempDir(), false)
	assert.NoError(t, err)

	sha, err := f.Commit(h, git.CommitData{Message: "initial", Author: "tester", Email: "tester@example.com"},
		"master", "", map[string][]byte{"a.txt": []byte("hi")}, nil)
	assert.NoError(t, err)
	assert.NotZero(t, sha)

	refs, err := f.GetRefs(h, nil)
	assert.NoError(t, err)
	assert.Equal(t, sha, refs["refs/heads/master"])

	obj, err := f.GetObject(h, sha)
	assert.NoError(t, err)
	assert.Equal(t, "commit", obj.Type)
}

func TestCommitSecondChangeParentsFirst(t *testing.T) {
	f := git.NewFactory("git")
	h, err := f.Init(t.TempDir(), false)
	assert.NoError(t, err)

	first, err := f.Commit(h, git.CommitData{Message: "one", Author: "t", Email: "t@example.com"},
		"master", "", map[string][]byte{"a.txt": []byte("hi")}, nil)
	assert.NoError(t, err)

	firstCommit, err := h.Repo.CommitObject(plumbing.NewHash(first))
	assert.NoError(t, err)

	second, err := f.Commit(h, git.CommitData{Message: "two", Author: "t", Email: "t@example.com"},
		"master", firstCommit.TreeHash.String(), map[string][]byte{"b.txt": []byte("there")}, nil)
	assert.NoError(t, err)
	assert.NotEqual(t, first, second)

	secondCommit, err := h.Repo.CommitObject(plumbing.NewHash(second))
	assert.NoError(t, err)
	assert.Equal(t, []plumbing.Hash{plumbing.NewHash(first)}, secondCommit.ParentHashes)

	items, err := f.TreeItems(h, secondCommit.TreeHash.String())
	assert.NoError(t, err)
	names := map[string]bool{}
	for _, item := range items {
		names[item.Path] = true
	}
	assert.True(t, names["a.txt"])
	assert.True(t, names["b.txt"])
}
