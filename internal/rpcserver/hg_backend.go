package rpcserver

import (
	"context"
	"fmt"

	"github.com/rhodecode/vcsserver/internal/vcs/hg"
	"github.com/rhodecode/vcsserver/internal/vcserrors"
	"github.com/rhodecode/vcsserver/internal/wire"
)

// HgBackend dispatches RPC methods onto internal/vcs/hg, the "hg" route
// in spec.md §4.8's backend table.
type HgBackend struct {
	Factory *hg.Factory
}

func (b *HgBackend) Dispatch(ctx context.Context, method string, w wire.Args, args []any) (any, error) {
	if method == "check_url" {
		url, _ := arg(args, 0).(string)
		return nil, vcserrors.Translate(b.Factory.CheckURL(ctx, url))
	}

	h, err := b.Factory.Repo(w)
	if err != nil {
		return nil, vcserrors.Translate(err)
	}

	switch method {
	case "ctx":
		rev, _ := arg(args, 0).(string)
		c, err := b.Factory.Ctx(ctx, h, rev)
		return c, vcserrors.Translate(err)

	case "status":
		rev, _ := arg(args, 0).(string)
		files, err := b.Factory.Status(ctx, h, rev)
		return files, vcserrors.Translate(err)

	case "heads":
		heads, err := b.Factory.Heads(ctx, h)
		return heads, vcserrors.Translate(err)

	case "file_history":
		path, _ := arg(args, 0).(string)
		limit, _ := intArg(arg(args, 1))
		history, err := b.Factory.FileHistory(ctx, h, path, limit)
		return history, vcserrors.Translate(err)

	case "clone":
		url, _ := arg(args, 0).(string)
		return nil, vcserrors.Translate(b.Factory.Clone(ctx, h, url))

	case "pull":
		url, _ := arg(args, 0).(string)
		return nil, vcserrors.Translate(b.Factory.Pull(ctx, h, url))

	case "push":
		url, _ := arg(args, 0).(string)
		force, _ := arg(args, 1).(bool)
		return nil, vcserrors.Translate(b.Factory.Push(ctx, h, url, force))

	case "bookmark":
		name, _ := arg(args, 0).(string)
		rev, _ := arg(args, 1).(string)
		return nil, vcserrors.Translate(b.Factory.Bookmark(ctx, h, name, rev))

	case "tag":
		name, _ := arg(args, 0).(string)
		rev, _ := arg(args, 1).(string)
		message, _ := arg(args, 2).(string)
		return nil, vcserrors.Translate(b.Factory.Tag(ctx, h, name, rev, message))

	case "commit":
		message, _ := arg(args, 0).(string)
		user, _ := arg(args, 1).(string)
		node, err := b.Factory.Commit(ctx, h, message, user)
		return node, vcserrors.Translate(err)

	case "rebase":
		src, _ := arg(args, 0).(string)
		dst, _ := arg(args, 1).(string)
		return nil, vcserrors.Translate(b.Factory.Rebase(ctx, h, src, dst))

	case "strip":
		rev, _ := arg(args, 0).(string)
		return nil, vcserrors.Translate(b.Factory.Strip(ctx, h, rev))

	case "largefiles_capability":
		ok, err := b.Factory.LargefilesCapability(ctx, h)
		return ok, vcserrors.Translate(err)

	default:
		return nil, vcserrors.Generic(fmt.Errorf("hg: unknown method %q", method))
	}
}

func intArg(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	default:
		return 0, false
	}
}
