package hg

import (
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/rhodecode/vcsserver/internal/wire"
)

func TestCreateConfigStripsHookSections(t *testing.T) {
	args := wire.Args{
		"config": map[string]map[string]string{
			"hooks":      {"pretxncommit.acl": "python:hooks.acl"},
			"extensions": {"largefiles": ""},
			"web":        {"baseurl": "https://example.test"},
		},
	}

	cfg := createConfig(args)
	_, hasHooks := cfg["hooks"]
	_, hasExtensions := cfg["extensions"]
	_, hasWeb := cfg["web"]

	assert.False(t, hasHooks)
	assert.False(t, hasExtensions)
	assert.True(t, hasWeb)
}

func TestSplitNonEmpty(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitNonEmpty("a\nb\n", "\n"))
	assert.Equal(t, []string(nil), splitNonEmpty("", "\n"))
}
