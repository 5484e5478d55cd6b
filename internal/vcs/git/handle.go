// Package git adapts Git repositories to the backend adapter surface
// described in spec.md §4.4, grounded on vcsserver/git.py's GitFactory.
// Read-side operations (refs, trees, blobs, commits) use go-git/v5
// directly against the on-disk repository; fetch/push/clone and any
// operation requiring the real `git` binary's protocol implementation
// shell out via internal/subprocio, matching the original's mix of
// dulwich for reads and the `git` CLI for network operations.
package git

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	gogit "github.com/go-git/go-git/v5"

	"github.com/rhodecode/vcsserver/internal/reposcache"
	"github.com/rhodecode/vcsserver/internal/subprocio"
	"github.com/rhodecode/vcsserver/internal/vcserrors"
	"github.com/rhodecode/vcsserver/internal/wire"
)

// Handle wraps an open go-git repository plus the path needed to shell
// out to the `git` binary for operations go-git does not implement.
type Handle struct {
	Path string
	Repo *gogit.Repository
}

// Close releases the handle's storer resources (pack index file
// descriptors), the Go analogue of dulwich's dangling-fd destructor
// (spec.md §9).
func (h *Handle) Close() error {
	if h.Repo == nil {
		return nil
	}
	if c, ok := h.Repo.Storer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Factory builds and caches Handles, one LRU per spec.md §4.3.
type Factory struct {
	GitPath string
	cache   *reposcache.Factory[*Handle]
}

// NewFactory constructs a Factory backed by a fresh context-scoped cache.
func NewFactory(gitPath string) *Factory {
	if gitPath == "" {
		gitPath = "git"
	}
	return &Factory{GitPath: gitPath, cache: reposcache.New[*Handle](wire.RegionGit, reposcache.DefaultSize, reposcache.DefaultTTL)}
}

// Repo resolves a wire.Args into a cached or freshly opened Handle,
// equivalent to GitFactory.repo → RepoFactory.repo.
func (f *Factory) Repo(args wire.Args) (*Handle, error) {
	return f.cache.Get(args, func() (*Handle, error) {
		path, err := args.Path()
		if err != nil {
			return nil, vcserrors.Generic(err)
		}
		return f.open(path)
	})
}

func (f *Factory) open(path string) (*Handle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, vcserrors.Lookup(fmt.Errorf("git: repository %s: %w", path, err))
	}
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, vcserrors.Generic(fmt.Errorf("git: open %s: %w", path, err))
	}
	return &Handle{Path: path, Repo: repo}, nil
}

// Init creates a new repository at path; bare mirrors InitBare/init_bare.
// It also installs pre-receive/post-receive hook scripts so that a
// later `git receive-pack` against this repository drives
// hooks.GitPreReceive/GitPostReceive (see installHooks).
func (f *Factory) Init(path string, bare bool) (*Handle, error) {
	repo, err := gogit.PlainInit(path, bare)
	if err != nil {
		return nil, vcserrors.Generic(fmt.Errorf("git: init %s: %w", path, err))
	}
	if err := installHooks(gitDirOf(path)); err != nil {
		return nil, vcserrors.Generic(err)
	}
	return &Handle{Path: path, Repo: repo}, nil
}

// RunGitCommand shells out to the `git` binary inside the repository and
// returns its collected stdout — equivalent to run_git_command. It goes
// through the same runGit helper that fetch, push and clone use.
func (f *Factory) RunGitCommand(ctx context.Context, h *Handle, args []string, input []byte) ([]byte, error) {
	out, err := f.runGit(ctx, h.Path, args, input)
	if err != nil {
		return nil, vcserrors.Generic(err)
	}
	return out, nil
}

// runGit is the shared subprocio invocation every shelling-out operation
// in this package goes through. dir may be empty for operations that do
// not need a working repository (ls-remote, clone's destination not yet
// existing).
func (f *Factory) runGit(ctx context.Context, dir string, args []string, input []byte) ([]byte, error) {
	opts := subprocio.Options{
		Command:          f.GitPath,
		Args:             args,
		Dir:              dir,
		Env:              os.Environ(),
		FailOnReturnCode: true,
	}
	if input != nil {
		opts.Input = bytes.NewReader(input)
	}
	runner, err := subprocio.Start(ctx, opts)
	if err != nil {
		return nil, err
	}
	return runner.Collect()
}
