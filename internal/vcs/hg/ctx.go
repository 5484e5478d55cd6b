package hg

import (
	"context"
	"fmt"
	"strings"

	"github.com/rhodecode/vcsserver/internal/vcserrors"
)

// Ctx is the subset of a Mercurial changectx the adapter exposes,
// equivalent to ctx_branch/ctx_description/ctx_date/ctx_parents/etc in
// hg.py, collapsed into one struct populated by a single `hg log`
// template query instead of one CLI call per field.
type Ctx struct {
	Rev         string
	Node        string
	Branch      string
	Description string
	Date        string
	User        string
	Parents     []string
	Files       []string
}

const ctxTemplate = `{rev}\x01{node}\x01{branch}\x01{desc}\x01{date}\x01{author}\x01{parents}\x01{files}\x02`

// Ctx resolves rev (a revision number, node id, branch, or tag) to its
// changectx fields via a single `hg log -r <rev> -T <template>` call.
// Equivalent to the ctx_* family of methods.
func (f *Factory) Ctx(ctx context.Context, h *Handle, rev string) (*Ctx, error) {
	out, err := f.run(ctx, h, "log", "-r", rev, "-T", ctxTemplate)
	if err != nil {
		return nil, vcserrors.Lookup(fmt.Errorf("hg: ctx %s: %w", rev, err))
	}

	record := strings.TrimSuffix(strings.TrimSpace(string(out)), "\x02")
	fields := strings.Split(record, "\x01")
	if len(fields) != 8 {
		return nil, vcserrors.Generic(fmt.Errorf("hg: ctx %s: unexpected template output", rev))
	}

	parents := splitNonEmpty(fields[6], " ")
	files := splitNonEmpty(fields[7], "\x00")

	return &Ctx{
		Rev:         fields[0],
		Node:        fields[1],
		Branch:      fields[2],
		Description: fields[3],
		Date:        fields[4],
		User:        fields[5],
		Parents:     parents,
		Files:       files,
	}, nil
}

// Status reports the changed-file status for rev against its first
// parent, equivalent to ctx_status.
func (f *Factory) Status(ctx context.Context, h *Handle, rev string) ([]string, error) {
	out, err := f.run(ctx, h, "status", "--change", rev)
	if err != nil {
		return nil, vcserrors.Generic(fmt.Errorf("hg: status %s: %w", rev, err))
	}
	return splitNonEmpty(strings.TrimSpace(string(out)), "\n"), nil
}

// Heads lists the repository's open-branch head nodes, equivalent to
// heads.
func (f *Factory) Heads(ctx context.Context, h *Handle) ([]string, error) {
	out, err := f.run(ctx, h, "heads", "-T", "{node}\n")
	if err != nil {
		return nil, vcserrors.Generic(err)
	}
	return splitNonEmpty(strings.TrimSpace(string(out)), "\n"), nil
}

// FileHistory lists the revisions that touched path, most recent first,
// equivalent to get_file_history.
func (f *Factory) FileHistory(ctx context.Context, h *Handle, path string, limit int) ([]string, error) {
	args := []string{"log", "--template", "{node}\n", "--follow"}
	if limit > 0 {
		args = append(args, "-l", fmt.Sprint(limit))
	}
	args = append(args, path)
	out, err := f.run(ctx, h, args...)
	if err != nil {
		return nil, vcserrors.Generic(err)
	}
	return splitNonEmpty(strings.TrimSpace(string(out)), "\n"), nil
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
