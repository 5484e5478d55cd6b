package vcserrors_test

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/rhodecode/vcsserver/internal/vcserrors"
)

func TestTranslatePreservesKind(t *testing.T) {
	locked := vcserrors.RepoLocked(errors.New("locked by admin"), "vcs_test_git")
	translated := vcserrors.Translate(locked)
	assert.Equal(t, vcserrors.KindRepoLocked, translated.Kind)
	assert.Equal(t, []string{"vcs_test_git"}, translated.Args)
}

func TestTranslateClassifiesUnknown(t *testing.T) {
	translated := vcserrors.Translate(errors.New("boom"))
	assert.Equal(t, vcserrors.KindUnhandled, translated.Kind)
}

func TestTranslateNil(t *testing.T) {
	assert.Zero(t, vcserrors.Translate(nil))
}

func TestWrapKeepsKind(t *testing.T) {
	lookup := vcserrors.Lookup(errors.New("no such commit"))
	wrapped := vcserrors.Wrap(lookup, "resolving revision abc123")

	var tagged *vcserrors.Error
	assert.True(t, errors.As(wrapped, &tagged))
	assert.Equal(t, vcserrors.KindLookup, tagged.Kind)
}

func TestErrorString(t *testing.T) {
	err := vcserrors.Generic(errors.New("disk full"))
	assert.Equal(t, "error: disk full", err.Error())
}
