package git_test

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/rhodecode/vcsserver/internal/vcs/git"
	"github.com/rhodecode/vcsserver/internal/vcserrors"
)

func TestBulkRequestRejectsUnknownAttribute(t *testing.T) {
	f := git.NewFactory("git")
	_, err := f.BulkRequest(&git.Handle{}, "deadbeef", []string{"not_a_real_attr"})

	assert.Error(t, err)
	tagged := vcserrors.Translate(err)
	assert.Equal(t, vcserrors.KindError, tagged.Kind)
}
