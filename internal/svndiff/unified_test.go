package svndiff_test

import (
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/rhodecode/vcsserver/internal/svndiff"
)

func TestUnifiedDiffInsertAtBoundary(t *testing.T) {
	out := svndiff.UnifiedDiff(nil, []string{"a\n"}, svndiff.Options{})
	assert.True(t, strings.Contains(out, "@@ -0,0 +1 @@"))
	assert.True(t, strings.Contains(out, "+a\n"))
}

func TestUnifiedDiffDeleteAtBoundary(t *testing.T) {
	out := svndiff.UnifiedDiff([]string{"a\n"}, nil, svndiff.Options{})
	assert.True(t, strings.Contains(out, "@@ -1 +0,0 @@"))
	assert.True(t, strings.Contains(out, "-a\n"))
}

func TestUnifiedDiffIdenticalIsEmpty(t *testing.T) {
	lines := []string{"one\n", "two\n", "three\n"}
	out := svndiff.UnifiedDiff(lines, lines, svndiff.Options{})
	assert.Equal(t, "", out)
}

func TestUnifiedDiffIgnoreWhitespaceIndependentOfExactSpacing(t *testing.T) {
	a := []string{"foo   bar\n"}
	b := []string{"foo bar\n"}

	out := svndiff.UnifiedDiff(a, b, svndiff.Options{IgnoreWhitespace: true})
	assert.Equal(t, "", out)
}

func TestUnifiedDiffIgnoreBlankLinesDrops(t *testing.T) {
	a := []string{"one\n", "\n", "two\n"}
	b := []string{"one\n", "two\n"}

	out := svndiff.UnifiedDiff(a, b, svndiff.Options{IgnoreBlankLines: true})
	assert.Equal(t, "", out)
}

func TestUnifiedDiffIgnoreBlankLinesLeavesRealChangesVisible(t *testing.T) {
	a := []string{"x\n", "\n", "y\n", "one\n", "z\n"}
	b := []string{"x\n", "y\n", "ONE\n", "z\n"}

	out := svndiff.UnifiedDiff(a, b, svndiff.Options{IgnoreBlankLines: true, Context: 1})
	assert.True(t, strings.Contains(out, "-one\n"))
	assert.True(t, strings.Contains(out, "+ONE\n"))
	assert.False(t, strings.Contains(out, "-\n"))
}

func TestUnifiedDiffIgnoreCaseIndependentOfLetterCase(t *testing.T) {
	a := []string{"Foo Bar\n"}
	b := []string{"foo bar\n"}

	out := svndiff.UnifiedDiff(a, b, svndiff.Options{IgnoreCase: true})
	assert.Equal(t, "", out)
}

func TestUnifiedDiffSingleLineChange(t *testing.T) {
	a := []string{"one\n", "two\n", "three\n"}
	b := []string{"one\n", "TWO\n", "three\n"}

	out := svndiff.UnifiedDiff(a, b, svndiff.Options{Context: 1})
	assert.True(t, strings.Contains(out, "-two\n"))
	assert.True(t, strings.Contains(out, "+TWO\n"))
	assert.True(t, strings.Contains(out, " one\n"))
	assert.True(t, strings.Contains(out, " three\n"))
}
