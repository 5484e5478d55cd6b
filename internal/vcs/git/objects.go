package git

import (
	"fmt"
	"io"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/rhodecode/vcsserver/internal/vcserrors"
)

// Object is the raw form of any loose or packed object — blob, tree,
// commit, or tag — returned by GetObject.
type Object struct {
	SHA     string
	Type    string
	Content []byte
}

// GetObject returns the raw content and type of the object identified by
// sha, regardless of its kind. Equivalent to GitFactory.get_object.
func (f *Factory) GetObject(h *Handle, sha string) (Object, error) {
	hash := plumbing.NewHash(sha)
	obj, err := h.Repo.Storer.EncodedObject(plumbing.AnyObject, hash)
	if err != nil {
		return Object{}, vcserrors.Lookup(fmt.Errorf("git: get_object %s: %w", sha, err))
	}

	r, err := obj.Reader()
	if err != nil {
		return Object{}, vcserrors.Generic(err)
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		return Object{}, vcserrors.Generic(err)
	}

	return Object{SHA: sha, Type: obj.Type().String(), Content: content}, nil
}
