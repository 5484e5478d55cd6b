package git_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/rhodecode/vcsserver/internal/vcs/git"
)

func TestInitInstallsReceiveHooks(t *testing.T) {
	f := git.NewFactory("git")
	dir := t.TempDir()

	_, err := f.Init(dir, true)
	assert.NoError(t, err)

	for _, name := range []string{"pre-receive", "post-receive"} {
		path := filepath.Join(dir, "hooks", name)
		info, err := os.Stat(path)
		assert.NoError(t, err)
		assert.True(t, info.Mode()&0o111 != 0)
	}
}

func TestInitNonBareInstallsHooksUnderDotGit(t *testing.T) {
	f := git.NewFactory("git")
	dir := t.TempDir()

	_, err := f.Init(dir, false)
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, ".git", "hooks", "pre-receive"))
	assert.NoError(t, err)
}
