package git

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/rhodecode/vcsserver/internal/vcserrors"
)

// TreeItem is one entry produced by TreeItems, equivalent to the
// (path, mode, sha) tuples GitFactory.tree_items yields.
type TreeItem struct {
	Path string
	Mode string
	SHA  string
	Type string // "blob", "tree", or "commit" (submodule)
}

// TreeItems lists the immediate children of the tree identified by
// treeID. Equivalent to GitFactory.tree_items.
func (f *Factory) TreeItems(h *Handle, treeID string) ([]TreeItem, error) {
	tree, err := object.GetTree(h.Repo.Storer, plumbing.NewHash(treeID))
	if err != nil {
		return nil, vcserrors.Lookup(fmt.Errorf("git: tree_items %s: %w", treeID, err))
	}

	items := make([]TreeItem, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		kind := "blob"
		switch {
		case entry.Mode == 0o160000:
			kind = "commit"
		case entry.Mode.IsFile():
			kind = "blob"
		default:
			kind = "tree"
		}
		items = append(items, TreeItem{
			Path: entry.Name,
			Mode: entry.Mode.String(),
			SHA:  entry.Hash.String(),
			Type: kind,
		})
	}
	return items, nil
}

// TreeChange describes one path's transition between two trees,
// equivalent to the entries GitFactory.tree_changes yields.
type TreeChange struct {
	Path   string
	Action string // "add", "remove", "modify"
}

// TreeChanges diffs two trees path-by-path. Equivalent to
// GitFactory.tree_changes.
func (f *Factory) TreeChanges(h *Handle, sourceID, targetID string) ([]TreeChange, error) {
	var source, target *object.Tree
	var err error
	if sourceID != "" {
		source, err = object.GetTree(h.Repo.Storer, plumbing.NewHash(sourceID))
		if err != nil {
			return nil, vcserrors.Lookup(fmt.Errorf("git: tree_changes source %s: %w", sourceID, err))
		}
	}
	target, err = object.GetTree(h.Repo.Storer, plumbing.NewHash(targetID))
	if err != nil {
		return nil, vcserrors.Lookup(fmt.Errorf("git: tree_changes target %s: %w", targetID, err))
	}

	changes, err := object.DiffTree(source, target)
	if err != nil {
		return nil, vcserrors.Generic(err)
	}

	out := make([]TreeChange, 0, len(changes))
	for _, c := range changes {
		action, err := c.Action()
		if err != nil {
			continue
		}
		path := c.To.Name
		if path == "" {
			path = c.From.Name
		}
		out = append(out, TreeChange{Path: path, Action: actionName(action)})
	}
	return out, nil
}

func actionName(a merkletrie.Action) string {
	switch a {
	case merkletrie.Insert:
		return "add"
	case merkletrie.Delete:
		return "remove"
	default:
		return "modify"
	}
}
