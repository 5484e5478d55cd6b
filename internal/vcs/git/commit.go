package git

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/rhodecode/vcsserver/internal/vcserrors"
)

// CommitData carries the author identity, message, and timestamp
// GitFactory.commit receives in its `data` dict.
type CommitData struct {
	Message   string
	Author    string
	Email     string
	Timestamp time.Time
}

// treeNode is an in-memory, mutable view of a tree being built or
// updated, keyed by path component, so that updated/removed paths can be
// applied before anything is written back to the object store.
type treeNode struct {
	files map[string]plumbing.Hash
	dirs  map[string]*treeNode
}

func newTreeNode() *treeNode {
	return &treeNode{files: map[string]plumbing.Hash{}, dirs: map[string]*treeNode{}}
}

// loadTree populates a treeNode from an existing tree object, recursing
// into subtrees; a zero hash yields an empty node (a brand new tree).
func loadTree(s storer.EncodedObjectStorer, hash plumbing.Hash) (*treeNode, error) {
	node := newTreeNode()
	if hash.IsZero() {
		return node, nil
	}
	tree, err := object.GetTree(s, hash)
	if err != nil {
		return nil, err
	}
	for _, entry := range tree.Entries {
		if entry.Mode == filemode.Dir {
			child, err := loadTree(s, entry.Hash)
			if err != nil {
				return nil, err
			}
			node.dirs[entry.Name] = child
			continue
		}
		node.files[entry.Name] = entry.Hash
	}
	return node, nil
}

func (n *treeNode) set(path string, hash plumbing.Hash) {
	parts := strings.Split(path, "/")
	cur := n
	for _, d := range parts[:len(parts)-1] {
		child, ok := cur.dirs[d]
		if !ok {
			child = newTreeNode()
			cur.dirs[d] = child
		}
		cur = child
	}
	cur.files[parts[len(parts)-1]] = hash
}

func (n *treeNode) remove(path string) {
	parts := strings.Split(path, "/")
	cur := n
	for _, d := range parts[:len(parts)-1] {
		child, ok := cur.dirs[d]
		if !ok {
			return
		}
		cur = child
	}
	delete(cur.files, parts[len(parts)-1])
}

// write recurses depth-first, writing each subtree before its parent so
// that every directory entry's hash is known by the time the parent tree
// is encoded — the "bottom-up subtree write" spec.md §4.4 describes.
func (n *treeNode) write(s storer.EncodedObjectStorer) (plumbing.Hash, error) {
	tree := &object.Tree{}
	for name, child := range n.dirs {
		hash, err := child.write(s)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		tree.Entries = append(tree.Entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash})
	}
	for name, hash := range n.files {
		tree.Entries = append(tree.Entries, object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: hash})
	}
	sort.Slice(tree.Entries, func(i, j int) bool { return tree.Entries[i].Name < tree.Entries[j].Name })

	obj := s.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, err
	}
	return s.SetEncodedObject(obj)
}

// Commit builds or updates the tree rooted at treeID with updated blob
// content written and removed paths deleted, writing new subtrees
// bottom-up, then writes a commit object pointing at the resulting tree
// — parented on branch's current head, if any — and moves
// refs/heads/<branch> to it. Equivalent to GitFactory.commit.
func (f *Factory) Commit(h *Handle, data CommitData, branch, treeID string, updated map[string][]byte, removed []string) (string, error) {
	root, err := loadTree(h.Repo.Storer, plumbing.NewHash(treeID))
	if err != nil {
		return "", vcserrors.Lookup(fmt.Errorf("git: commit: load tree %s: %w", treeID, err))
	}

	for path, content := range updated {
		sha, err := f.AddObject(h, content)
		if err != nil {
			return "", err
		}
		root.set(path, plumbing.NewHash(sha))
	}
	for _, path := range removed {
		root.remove(path)
	}

	rootHash, err := root.write(h.Repo.Storer)
	if err != nil {
		return "", vcserrors.Generic(fmt.Errorf("git: commit: write tree: %w", err))
	}

	branchRef := plumbing.NewBranchReferenceName(branch)
	var parents []plumbing.Hash
	if ref, err := h.Repo.Storer.Reference(branchRef); err == nil {
		parents = append(parents, ref.Hash())
	}

	when := data.Timestamp
	if when.IsZero() {
		when = time.Now()
	}
	sig := object.Signature{Name: data.Author, Email: data.Email, When: when}

	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      data.Message,
		TreeHash:     rootHash,
		ParentHashes: parents,
	}
	obj := h.Repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return "", vcserrors.Generic(fmt.Errorf("git: commit: encode: %w", err))
	}
	commitHash, err := h.Repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return "", vcserrors.Generic(fmt.Errorf("git: commit: store: %w", err))
	}

	if err := f.SetRefs(h, branchRef.String(), commitHash.String()); err != nil {
		return "", err
	}
	return commitHash.String(), nil
}
