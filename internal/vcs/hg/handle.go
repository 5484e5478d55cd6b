// Package hg adapts Mercurial repositories to the backend adapter surface
// described in spec.md §4.4, grounded on vcsserver/hg.py's
// MercurialFactory. No maintained Go library speaks Mercurial's
// repository format or wire protocol, so every operation shells out to
// the `hg` binary (via os/exec, or internal/subprocio for calls that feed
// stdin), exactly as the original wraps
// `hglib`/direct `mercurial` library calls — the Go rendering simply
// moves that boundary from an in-process library call to a subprocess.
package hg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/rhodecode/vcsserver/internal/reposcache"
	"github.com/rhodecode/vcsserver/internal/subprocio"
	"github.com/rhodecode/vcsserver/internal/vcserrors"
	"github.com/rhodecode/vcsserver/internal/wire"
)

// hookStrippedSections lists the hgrc sections MercurialFactory._create_config
// strips from the caller-supplied config before constructing a ui, so
// that a hook configured on the rhodecode side cannot be re-triggered by
// direct `hg` invocations made by this adapter.
var hookStrippedSections = []string{"hooks", "extensions"}

// Handle wraps the path to an on-disk Mercurial repository. Unlike Git,
// there is no in-process object graph to hold open, so Close is a no-op;
// the type exists to satisfy wire.RepoHandle and keep the adapter
// surface symmetric with the Git/Subversion adapters.
type Handle struct {
	Path   string
	Config map[string]map[string]string
}

func (h *Handle) Close() error { return nil }

// Factory builds and caches Handles.
type Factory struct {
	HgPath string
	cache  *reposcache.Factory[*Handle]
}

func NewFactory(hgPath string) *Factory {
	if hgPath == "" {
		hgPath = "hg"
	}
	return &Factory{HgPath: hgPath, cache: reposcache.New[*Handle](wire.RegionHg, reposcache.DefaultSize, reposcache.DefaultTTL)}
}

// Repo resolves a wire.Args into a cached or fresh Handle, equivalent to
// MercurialFactory.repo → RepoFactory.repo.
func (f *Factory) Repo(args wire.Args) (*Handle, error) {
	return f.cache.Get(args, func() (*Handle, error) {
		path, err := args.Path()
		if err != nil {
			return nil, vcserrors.Generic(err)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, vcserrors.Lookup(fmt.Errorf("hg: repository %s: %w", path, err))
		}
		return &Handle{Path: path, Config: createConfig(args)}, nil
	})
}

// createConfig builds the hgrc-equivalent map passed to every `hg`
// invocation for this handle, stripping hook/extension sections per
// hookStrippedSections — equivalent to _create_config.
func createConfig(args wire.Args) map[string]map[string]string {
	raw, _ := args["config"].(map[string]map[string]string)
	out := map[string]map[string]string{}
	stripped := toSet(hookStrippedSections)
	for section, values := range raw {
		if stripped[section] {
			continue
		}
		out[section] = values
	}
	return out
}

func toSet(xs []string) map[string]bool {
	out := make(map[string]bool, len(xs))
	for _, x := range xs {
		out[x] = true
	}
	return out
}

// run shells out to the `hg` binary inside h's repository with
// ui.plain=1 plus the handle's stripped config flattened to --config
// flags, equivalent to make_ui_from_config's assembled command line.
func (f *Factory) run(ctx context.Context, h *Handle, args ...string) ([]byte, error) {
	full := append([]string{"--config", "ui.plain=1"}, configFlags(h.Config)...)
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, f.HgPath, full...)
	cmd.Dir = h.Path
	cmd.Env = os.Environ()
	out, err := cmd.Output()
	if err != nil {
		return nil, vcserrors.Generic(fmt.Errorf("hg %v: %w", args, err))
	}
	return out, nil
}

func configFlags(config map[string]map[string]string) []string {
	var out []string
	for section, values := range config {
		for key, val := range values {
			out = append(out, "--config", fmt.Sprintf("%s.%s=%s", section, key, val))
		}
	}
	return out
}

func runWithInput(ctx context.Context, hgPath, dir string, input []byte, args ...string) ([]byte, error) {
	opts := subprocio.Options{
		Command:          hgPath,
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
		return nil, vcserrors.Generic(err)
	}
	return runner.Collect()
}
