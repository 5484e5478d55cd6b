package svn

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/rhodecode/vcsserver/internal/vcserrors"
)

func TestParseCommittedRevision(t *testing.T) {
	rev, err := parseCommittedRevision("r1 committed\n")
	assert.NoError(t, err)
	assert.Equal(t, 1, rev)
}

func TestParseCommittedRevisionMalformed(t *testing.T) {
	_, err := parseCommittedRevision("nothing useful here\n")
	assert.Error(t, err)
}

func TestClassifyImportErrorCertificate(t *testing.T) {
	err := ClassifyImportError("svn: E175002: Server certificate verification failed: issuer is not trusted")
	tagged := vcserrors.Translate(err)
	assert.Equal(t, vcserrors.KindURLError, tagged.Kind)
}

func TestClassifyImportErrorUnknown(t *testing.T) {
	err := ClassifyImportError("svn: E000000: something else entirely")
	tagged := vcserrors.Translate(err)
	assert.Equal(t, vcserrors.KindURLError, tagged.Kind)
}
