package rpcserver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rhodecode/vcsserver/internal/svndiff"
	"github.com/rhodecode/vcsserver/internal/vcs/svn"
	"github.com/rhodecode/vcsserver/internal/vcserrors"
	"github.com/rhodecode/vcsserver/internal/wire"
)

// SvnBackend dispatches RPC methods onto internal/vcs/svn, the "svn"
// route in spec.md §4.8's backend table.
type SvnBackend struct {
	Factory *svn.Factory
}

func (b *SvnBackend) Dispatch(ctx context.Context, method string, w wire.Args, args []any) (any, error) {
	if method == "check_url" {
		url, _ := arg(args, 0).(string)
		return nil, vcserrors.Translate(b.Factory.CheckURL(ctx, url))
	}
	if method == "create_repository" {
		path, _ := arg(args, 0).(string)
		h, err := b.Factory.CreateRepository(path)
		return h, vcserrors.Translate(err)
	}

	h, err := b.Factory.Repo(w)
	if err != nil {
		return nil, vcserrors.Translate(err)
	}

	switch method {
	case "lookup":
		rev, err := b.Factory.Lookup(h)
		return rev, vcserrors.Translate(err)

	case "revision_properties":
		revision, _ := intArg(arg(args, 0))
		props, err := b.Factory.RevisionProperties(h, revision)
		return props, vcserrors.Translate(err)

	case "revision_changes":
		revision, _ := intArg(arg(args, 0))
		changes, err := b.Factory.RevisionChanges(h, revision)
		return changes, vcserrors.Translate(err)

	case "get_file_content":
		path, _ := arg(args, 0).(string)
		rev, _ := arg(args, 1).(string)
		content, err := b.Factory.GetFileContent(h, path, rev)
		return content, vcserrors.Translate(err)

	case "get_file_size":
		path, _ := arg(args, 0).(string)
		revision, _ := intArg(arg(args, 1))
		size, err := b.Factory.GetFileSize(h, path, revision)
		return size, vcserrors.Translate(err)

	case "commit":
		message, _ := arg(args, 0).(string)
		author, _ := arg(args, 1).(string)
		updated, _ := bytesMap(arg(args, 2))
		removed, _ := stringSlice(arg(args, 3))
		revision, err := b.Factory.Commit(ctx, h, message, author, updated, removed)
		return revision, vcserrors.Translate(err)

	case "import_remote_repository":
		srcURL, _ := arg(args, 0).(string)
		return nil, vcserrors.Translate(b.Factory.ImportRemoteRepository(ctx, h, srcURL))

	case "diff":
		fromRev, _ := arg(args, 0).(string)
		toRev, _ := arg(args, 1).(string)
		path1, _ := arg(args, 2).(string)
		path2, _ := arg(args, 3).(string)
		if path2 == "" {
			path2 = path1
		}
		ignoreWhitespace, _ := arg(args, 4).(bool)
		contextLines, _ := intArg(arg(args, 5))
		if contextLines == 0 {
			contextLines = svndiff.DefaultContext
		}

		fromContent, err := b.Factory.GetFileContent(h, path1, fromRev)
		if err != nil {
			return nil, vcserrors.Translate(err)
		}
		toContent, err := b.Factory.GetFileContent(h, path2, toRev)
		if err != nil {
			return nil, vcserrors.Translate(err)
		}
		// svn.py's generate_diff() fans the single ignore_whitespace flag
		// out to both ignore_blank_lines and ignore_space_changes.
		out := svndiff.UnifiedDiff(splitKeepEnds(fromContent), splitKeepEnds(toContent), svndiff.Options{
			Context:          contextLines,
			IgnoreWhitespace: ignoreWhitespace,
			IgnoreBlankLines: ignoreWhitespace,
			FromFile:         path1,
			ToFile:           path2,
		})
		return out, nil

	default:
		return nil, vcserrors.Generic(fmt.Errorf("svn: unknown method %q", method))
	}
}

func bytesMap(v any) (map[string][]byte, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string][]byte, len(m))
	for k, val := range m {
		switch b := val.(type) {
		case []byte:
			out[k] = b
		case string:
			out[k] = []byte(b)
		default:
			return nil, false
		}
	}
	return out, true
}

// splitKeepEnds splits content into newline-terminated lines, matching
// the line-slice shape internal/svndiff operates on.
func splitKeepEnds(content []byte) []string {
	var lines []string
	for len(content) > 0 {
		i := bytes.IndexByte(content, '\n')
		if i < 0 {
			lines = append(lines, string(content))
			break
		}
		lines = append(lines, string(content[:i+1]))
		content = content[i+1:]
	}
	return lines
}
