package rpcserver

import (
	"context"
	"fmt"
	"time"

	"github.com/rhodecode/vcsserver/internal/vcs/git"
	"github.com/rhodecode/vcsserver/internal/vcserrors"
	"github.com/rhodecode/vcsserver/internal/wire"
)

// GitBackend dispatches RPC methods onto internal/vcs/git, the "git"
// route in spec.md §4.8's backend table.
type GitBackend struct {
	Factory *git.Factory
}

func (b *GitBackend) Dispatch(ctx context.Context, method string, w wire.Args, args []any) (any, error) {
	if method == "check_url" {
		url, _ := arg(args, 0).(string)
		return nil, vcserrors.Translate(b.Factory.CheckURL(ctx, url))
	}
	if method == "clone" {
		path, err := w.Path()
		if err != nil {
			return nil, vcserrors.Translate(err)
		}
		url, _ := arg(args, 0).(string)
		return nil, vcserrors.Translate(b.Factory.Clone(ctx, path, url))
	}

	h, err := b.Factory.Repo(w)
	if err != nil {
		return nil, vcserrors.Translate(err)
	}

	switch method {
	case "get_refs":
		keys, _ := stringSlice(arg(args, 0))
		refs, err := b.Factory.GetRefs(h, keys)
		return refs, vcserrors.Translate(err)

	case "set_refs":
		key, _ := arg(args, 0).(string)
		value, _ := arg(args, 1).(string)
		return nil, vcserrors.Translate(b.Factory.SetRefs(h, key, value))

	case "remove_ref":
		key, _ := arg(args, 0).(string)
		return nil, vcserrors.Translate(b.Factory.RemoveRef(h, key))

	case "head":
		head, err := b.Factory.Head(h)
		return head, vcserrors.Translate(err)

	case "bulk_request":
		rev, _ := arg(args, 0).(string)
		preLoad, _ := stringSlice(arg(args, 1))
		result, err := b.Factory.BulkRequest(h, rev, preLoad)
		return result, vcserrors.Translate(err)

	case "blob_raw_length":
		sha, _ := arg(args, 0).(string)
		n, err := b.Factory.BlobRawLength(h, sha)
		return n, vcserrors.Translate(err)

	case "blob_as_pretty_string":
		sha, _ := arg(args, 0).(string)
		s, err := b.Factory.BlobAsPrettyString(h, sha)
		return s, vcserrors.Translate(err)

	case "add_object":
		content, _ := arg(args, 0).([]byte)
		sha, err := b.Factory.AddObject(h, content)
		return sha, vcserrors.Translate(err)

	case "tree_items":
		treeID, _ := arg(args, 0).(string)
		items, err := b.Factory.TreeItems(h, treeID)
		return items, vcserrors.Translate(err)

	case "tree_changes":
		sourceID, _ := arg(args, 0).(string)
		targetID, _ := arg(args, 1).(string)
		changes, err := b.Factory.TreeChanges(h, sourceID, targetID)
		return changes, vcserrors.Translate(err)

	case "run_git_command":
		cmdArgs, _ := stringSlice(arg(args, 0))
		input, _ := arg(args, 1).([]byte)
		out, err := b.Factory.RunGitCommand(ctx, h, cmdArgs, input)
		return out, vcserrors.Translate(err)

	case "fetch":
		url, _ := arg(args, 0).(string)
		applyRefs, _ := arg(args, 1).(bool)
		refs, _ := stringSlice(arg(args, 2))
		return nil, vcserrors.Translate(b.Factory.Fetch(ctx, h, url, applyRefs, refs))

	case "push":
		url, _ := arg(args, 0).(string)
		refs, _ := stringSlice(arg(args, 1))
		return nil, vcserrors.Translate(b.Factory.Push(ctx, h, url, refs))

	case "commit":
		data := commitDataArg(arg(args, 0))
		branch, _ := arg(args, 1).(string)
		tree, _ := arg(args, 2).(string)
		updated, _ := bytesMap(arg(args, 3))
		removed, _ := stringSlice(arg(args, 4))
		sha, err := b.Factory.Commit(h, data, branch, tree, updated, removed)
		return sha, vcserrors.Translate(err)

	case "get_object":
		sha, _ := arg(args, 0).(string)
		obj, err := b.Factory.GetObject(h, sha)
		return obj, vcserrors.Translate(err)

	case "update_server_info":
		return nil, vcserrors.Translate(b.Factory.UpdateServerInfo(ctx, h))

	default:
		return nil, vcserrors.Generic(fmt.Errorf("git: unknown method %q", method))
	}
}

// commitDataArg decodes the `data` dict GitBackend's "commit" method
// receives its message/author/timestamp from.
func commitDataArg(v any) git.CommitData {
	m, _ := v.(map[string]any)
	var data git.CommitData
	if m == nil {
		return data
	}
	if s, ok := m["message"].(string); ok {
		data.Message = s
	}
	if s, ok := m["author"].(string); ok {
		data.Author = s
	}
	if s, ok := m["email"].(string); ok {
		data.Email = s
	}
	if t, ok := m["timestamp"].(time.Time); ok {
		data.Timestamp = t
	}
	return data
}

func arg(args []any, i int) any {
	if i < 0 || i >= len(args) {
		return nil
	}
	return args[i]
}

func stringSlice(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
