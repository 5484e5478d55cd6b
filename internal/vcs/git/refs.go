package git

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/rhodecode/vcsserver/internal/vcserrors"
)

// GetRefs returns every ref (branches, tags, HEAD) as name → sha1 hex,
// optionally restricted to keys. Equivalent to GitFactory.get_refs.
func (f *Factory) GetRefs(h *Handle, keys []string) (map[string]string, error) {
	iter, err := h.Repo.Storer.IterReferences()
	if err != nil {
		return nil, vcserrors.Generic(err)
	}
	defer iter.Close()

	want := toSet(keys)
	out := map[string]string{}
	for {
		ref, err := iter.Next()
		if err != nil {
			break
		}
		name := ref.Name().String()
		if len(want) > 0 && !want[name] {
			continue
		}
		if ref.Type() == plumbing.HashReference {
			out[name] = ref.Hash().String()
		}
	}
	return out, nil
}

// SetRefs updates (or creates) the ref named key to point at value.
// Equivalent to GitFactory.set_refs.
func (f *Factory) SetRefs(h *Handle, key, value string) error {
	ref := plumbing.NewHashReference(plumbing.ReferenceName(key), plumbing.NewHash(value))
	if err := h.Repo.Storer.SetReference(ref); err != nil {
		return vcserrors.Generic(fmt.Errorf("git: set_refs %s: %w", key, err))
	}
	return nil
}

// RemoveRef deletes the named ref. Equivalent to GitFactory.remove_ref.
func (f *Factory) RemoveRef(h *Handle, key string) error {
	if err := h.Repo.Storer.RemoveReference(plumbing.ReferenceName(key)); err != nil {
		return vcserrors.Lookup(fmt.Errorf("git: remove_ref %s: %w", key, err))
	}
	return nil
}

// Head returns the hash the HEAD ref points at. Equivalent to
// GitFactory.head.
func (f *Factory) Head(h *Handle) (string, error) {
	ref, err := h.Repo.Head()
	if err != nil {
		return "", vcserrors.Lookup(err)
	}
	return ref.Hash().String(), nil
}

func toSet(keys []string) map[string]bool {
	if len(keys) == 0 {
		return nil
	}
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		out[k] = true
	}
	return out
}
