package hooks

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"github.com/rhodecode/vcsserver/internal/wire"
)

// RevisionLine is one "<old> <new> <ref>" line Git feeds pre/post-receive
// hooks on stdin.
type RevisionLine struct {
	OldRev string
	NewRev string
	Ref    string
}

const emptyCommitID = "0000000000000000000000000000000000000000"

// ParseRevisionLines parses the raw stdin payload Git sends a
// pre-receive/post-receive hook, one "old new ref" triple per line.
func ParseRevisionLines(raw string) []RevisionLine {
	var out []RevisionLine
	for _, line := range strings.Split(strings.TrimRight(raw, "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		out = append(out, RevisionLine{OldRev: fields[0], NewRev: fields[1], Ref: fields[2]})
	}
	return out
}

type pushRef struct {
	OldRev string
	NewRev string
	Ref    string
	Kind   string // "heads" or "tags"
	Name   string
}

// classifyRevisions filters revision lines down to refs/heads/* and
// refs/tags/* updates, discarding anything else (notes, pull-request refs,
// etc), matching git_post_receive's rev_data construction.
func classifyRevisions(lines []RevisionLine) []pushRef {
	var out []pushRef
	for _, l := range lines {
		parts := strings.SplitN(l.Ref, "/", 3)
		if len(parts) != 3 {
			continue
		}
		kind := parts[1]
		if kind != "tags" && kind != "heads" {
			continue
		}
		out = append(out, pushRef{OldRev: l.OldRev, NewRev: l.NewRev, Ref: l.Ref, Kind: kind, Name: parts[2]})
	}
	return out
}

// GitPreReceive invokes the pre-push hook ahead of accepting a push,
// mirroring git_pre_receive: a no-op unless "push" is among the extras'
// enabled hooks.
func GitPreReceive(ctx context.Context, transport Transport, extras wire.Extras) (int, error) {
	if !slices.Contains(extras.Hooks, "push") {
		return 0, nil
	}
	resp, err := transport.Call(ctx, "pre_push", extras)
	if err != nil {
		return 1, err
	}
	return resp.Status, nil
}

// GitPostReceive computes the commit ids introduced by a push and invokes
// the post-push (and, if enabled, repo_size) hook. repoDir is the bare
// repository's working directory, used to run `git` for ref resolution.
//
// This reimplements git_post_receive's branch/tag/new-branch/delete
// classification:
//   - a new branch (old rev all-zero) walks every commit reachable from
//     the new rev but not from any other existing head;
//   - a deleted branch (new rev all-zero) contributes a synthetic
//     "delete_branch=>name" marker instead of commit ids;
//   - an updated branch walks old..new;
//   - a tag contributes a synthetic "tag=>name" marker.
func GitPostReceive(ctx context.Context, transport Transport, repoDir string, lines []RevisionLine, extras wire.Extras) (int, error) {
	if !slices.Contains(extras.Hooks, "push") {
		return 0, nil
	}

	refs := classifyRevisions(lines)
	var commitIDs []string

	for _, ref := range refs {
		switch ref.Kind {
		case "tags":
			commitIDs = append(commitIDs, "tag=>"+ref.Name)
		case "heads":
			switch {
			case ref.OldRev == emptyCommitID:
				ids, err := newBranchCommits(ctx, repoDir, ref)
				if err != nil {
					return 1, err
				}
				commitIDs = append(commitIDs, ids...)
			case ref.NewRev == emptyCommitID:
				commitIDs = append(commitIDs, "delete_branch=>"+ref.Name)
			default:
				ids, err := runGitLog(ctx, repoDir, fmt.Sprintf("%s..%s", ref.OldRev, ref.NewRev))
				if err != nil {
					return 1, err
				}
				commitIDs = append(commitIDs, ids...)
			}
		}
	}

	extras.CommitIDs = commitIDs

	if slices.Contains(extras.Hooks, "repo_size") {
		_, _ = transport.Call(ctx, "repo_size", extras)
	}

	resp, err := transport.Call(ctx, "post_push", extras)
	if err != nil {
		return 1, err
	}
	return resp.Status, nil
}

// newBranchCommits fixes up HEAD if this is the repository's first branch,
// then lists commits on the new ref not reachable from any other head —
// the Go equivalent of the `git log --reverse --pretty=format:%H -- new
// --not $(other heads)` pipeline in git_post_receive.
func newBranchCommits(ctx context.Context, repoDir string, ref pushRef) ([]string, error) {
	if _, err := runGit(ctx, repoDir, "show", "HEAD"); err != nil {
		if _, err := runGit(ctx, repoDir, "symbolic-ref", "HEAD", "refs/heads/"+ref.Name); err != nil {
			return nil, err
		}
	}

	headsRaw, err := runGit(ctx, repoDir, "for-each-ref", "--format=%(refname)", "refs/heads/*")
	if err != nil {
		return nil, err
	}
	var otherHeads []string
	for _, head := range strings.Split(strings.TrimSpace(headsRaw), "\n") {
		head = strings.TrimSpace(head)
		if head == "" || head == ref.Ref {
			continue
		}
		otherHeads = append(otherHeads, head)
	}

	args := []string{"log", "--reverse", "--pretty=format:%H", "--", ref.NewRev, "--not"}
	args = append(args, otherHeads...)
	out, err := runGit(ctx, repoDir, args...)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func runGitLog(ctx context.Context, repoDir, revRange string) ([]string, error) {
	out, err := runGit(ctx, repoDir, "log", revRange, "--reverse", "--pretty=format:%H")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func splitLines(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}
