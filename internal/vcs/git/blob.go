package git

import (
	"fmt"
	"io"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/rhodecode/vcsserver/internal/vcserrors"
)

// BlobRawLength returns the byte size of the blob identified by sha.
// Equivalent to GitFactory.blob_raw_length.
func (f *Factory) BlobRawLength(h *Handle, sha string) (int64, error) {
	blob, err := h.Repo.BlobObject(plumbing.NewHash(sha))
	if err != nil {
		return 0, vcserrors.Lookup(fmt.Errorf("git: blob_raw_length %s: %w", sha, err))
	}
	return blob.Size, nil
}

// BlobAsPrettyString returns the blob's content decoded as UTF-8.
// Equivalent to GitFactory.blob_as_pretty_string.
func (f *Factory) BlobAsPrettyString(h *Handle, sha string) (string, error) {
	blob, err := h.Repo.BlobObject(plumbing.NewHash(sha))
	if err != nil {
		return "", vcserrors.Lookup(fmt.Errorf("git: blob_as_pretty_string %s: %w", sha, err))
	}
	r, err := blob.Reader()
	if err != nil {
		return "", vcserrors.Generic(err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", vcserrors.Generic(err)
	}
	return string(data), nil
}

// AddObject writes content as a loose blob object and returns its sha.
// Equivalent to GitFactory.add_object.
func (f *Factory) AddObject(h *Handle, content []byte) (string, error) {
	obj := h.Repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(content)))

	w, err := obj.Writer()
	if err != nil {
		return "", vcserrors.Generic(err)
	}
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return "", vcserrors.Generic(err)
	}
	if err := w.Close(); err != nil {
		return "", vcserrors.Generic(err)
	}

	sha, err := h.Repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return "", vcserrors.Generic(err)
	}
	return sha.String(), nil
}

// BulkAttr is one attribute bulk_request may compute for a revision.
type BulkAttr string

const (
	BulkAttrAuthor  BulkAttr = "author"
	BulkAttrDate    BulkAttr = "date"
	BulkAttrMessage BulkAttr = "message"
	BulkAttrParents BulkAttr = "parents"
)

var knownBulkAttrs = map[BulkAttr]bool{
	BulkAttrAuthor:  true,
	BulkAttrDate:    true,
	BulkAttrMessage: true,
	BulkAttrParents: true,
}

// BulkRequest computes a caller-selected set of commit attributes for
// rev, one goroutine per attribute — equivalent to GitFactory.bulk_request.
// An unrecognized attribute in preLoad yields a vcserrors.Generic error,
// matching spec.md scenario 5 (kind == "error").
func (f *Factory) BulkRequest(h *Handle, rev string, preLoad []string) (map[string]any, error) {
	for _, attr := range preLoad {
		if !knownBulkAttrs[BulkAttr(attr)] {
			return nil, vcserrors.Generic(fmt.Errorf("git: bulk_request: unknown attribute %q", attr))
		}
	}

	commit, err := h.Repo.CommitObject(plumbing.NewHash(rev))
	if err != nil {
		return nil, vcserrors.Lookup(fmt.Errorf("git: bulk_request %s: %w", rev, err))
	}

	type result struct {
		key string
		val any
	}
	results := make(chan result, len(preLoad))
	for _, attr := range preLoad {
		attr := attr
		go func() {
			switch BulkAttr(attr) {
			case BulkAttrAuthor:
				results <- result{attr, commit.Author.String()}
			case BulkAttrDate:
				results <- result{attr, commit.Author.When}
			case BulkAttrMessage:
				results <- result{attr, commit.Message}
			case BulkAttrParents:
				parents := make([]string, len(commit.ParentHashes))
				for i, p := range commit.ParentHashes {
					parents[i] = p.String()
				}
				results <- result{attr, parents}
			}
		}()
	}

	out := make(map[string]any, len(preLoad))
	for range preLoad {
		r := <-results
		out[r.key] = r.val
	}
	return out, nil
}
