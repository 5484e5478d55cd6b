package git

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/rhodecode/vcsserver/internal/vcserrors"
)

// Clone clones url into path, equivalent to GitFactory.clone. Cloning
// populates a .git layout that does not exist yet, so this bypasses the
// repo cache entirely rather than resolving a Handle first — there is
// nothing valid for go-git to open until the clone completes.
func (f *Factory) Clone(ctx context.Context, path, url string) error {
	if _, err := f.runGit(ctx, "", []string{"clone", url, path}, nil); err != nil {
		return vcserrors.URLError(fmt.Errorf("git: clone %s: %w", url, err))
	}
	if err := installHooks(gitDirOf(path)); err != nil {
		return vcserrors.Generic(err)
	}
	return nil
}

// Fetch retrieves objects from url into h. If refs is non-empty only
// those refs are considered; otherwise every ref url advertises is a
// candidate, except peeled-tag markers (names ending in "^{}"), which
// are never fetchable refs in their own right. When applyRefs, each
// fetched ref is written onto h's own ref store at the same name.
// Equivalent to GitFactory.fetch.
func (f *Factory) Fetch(ctx context.Context, h *Handle, url string, applyRefs bool, refs []string) error {
	remote, err := f.lsRemote(ctx, url)
	if err != nil {
		return vcserrors.URLError(fmt.Errorf("git: fetch %s: %w", url, err))
	}

	want := toSet(refs)
	var names []string
	for name := range remote {
		if strings.HasSuffix(name, "^{}") {
			continue
		}
		if len(want) > 0 && !want[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil
	}

	refspecs := make([]string, len(names))
	for i, name := range names {
		refspecs[i] = name
		if applyRefs {
			refspecs[i] += ":" + name
		}
	}
	if _, err := f.runGit(ctx, h.Path, append([]string{"fetch", url}, refspecs...), nil); err != nil {
		return vcserrors.URLError(fmt.Errorf("git: fetch %s: %w", url, err))
	}

	if !applyRefs {
		return nil
	}
	for _, name := range names {
		ref := plumbing.NewHashReference(plumbing.ReferenceName(name), plumbing.NewHash(remote[name]))
		if err := h.Repo.Storer.SetReference(ref); err != nil {
			return vcserrors.Generic(fmt.Errorf("git: fetch apply_refs %s: %w", name, err))
		}
	}
	return nil
}

// Push sends h's objects and the named refs (or, if empty, the current
// branch via a plain `git push`) to url. Equivalent to GitFactory.push.
func (f *Factory) Push(ctx context.Context, h *Handle, url string, refs []string) error {
	args := append([]string{"push", url}, refs...)
	if _, err := f.runGit(ctx, h.Path, args, nil); err != nil {
		return vcserrors.URLError(fmt.Errorf("git: push %s: %w", url, err))
	}
	return nil
}

// CheckURL probes whether url is a reachable Git endpoint, equivalent to
// check_url.
func (f *Factory) CheckURL(ctx context.Context, url string) error {
	if _, err := f.lsRemote(ctx, url); err != nil {
		return vcserrors.URLError(fmt.Errorf("git: check_url %s: %w", url, err))
	}
	return nil
}

// UpdateServerInfo regenerates the info/refs and objects/info/packs
// files dumb-HTTP and local clients rely on. go-git has no equivalent,
// so this always shells out, matching spec.md's explicit requirement.
func (f *Factory) UpdateServerInfo(ctx context.Context, h *Handle) error {
	if _, err := f.runGit(ctx, h.Path, []string{"update-server-info"}, nil); err != nil {
		return vcserrors.Generic(fmt.Errorf("git: update_server_info: %w", err))
	}
	return nil
}

// lsRemote queries url's advertised refs without fetching any objects,
// returning name → sha1 hex.
func (f *Factory) lsRemote(ctx context.Context, url string) (map[string]string, error) {
	out, err := f.runGit(ctx, "", []string{"ls-remote", url}, nil)
	if err != nil {
		return nil, err
	}
	refs := map[string]string{}
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		refs[fields[1]] = fields[0]
	}
	return refs, nil
}
