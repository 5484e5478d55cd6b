package subprocio_test

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/rhodecode/vcsserver/internal/subprocio"
)

func pythonOr(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	return path
}

func pyArgs(script string) []string {
	return []string{"-c", "import sys,time,shutil; " + script}
}

func TestRaisesOnNonZeroReturnCode(t *testing.T) {
	python := pythonOr(t)
	r, err := subprocio.Start(context.Background(), subprocio.Options{
		Command:          python,
		Args:             pyArgs("sys.exit(1)"),
		Env:              os.Environ(),
		FailOnReturnCode: true,
	})
	assert.NoError(t, err)
	_, err = r.Collect()
	assert.Error(t, err)
}

func TestDoesNotFailOnNonZeroReturnCode(t *testing.T) {
	python := pythonOr(t)
	r, err := subprocio.Start(context.Background(), subprocio.Options{
		Command: python,
		Args:    pyArgs("sys.exit(1)"),
		Env:     os.Environ(),
	})
	assert.NoError(t, err)
	out, err := r.Collect()
	assert.NoError(t, err)
	assert.Equal(t, "", string(out))
}

func TestRaisesOnStderr(t *testing.T) {
	python := pythonOr(t)
	r, err := subprocio.Start(context.Background(), subprocio.Options{
		Command:      python,
		Args:         pyArgs(`sys.stderr.write("X"); time.sleep(1)`),
		Env:          os.Environ(),
		FailOnStderr: true,
	})
	assert.NoError(t, err)
	_, err = r.Collect()
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "exited due to an error"))
}

func TestOutputWithInput(t *testing.T) {
	python := pythonOr(t)
	data := strings.Repeat("X", 100000)
	r, err := subprocio.Start(context.Background(), subprocio.Options{
		Command: python,
		Args:    pyArgs("shutil.copyfileobj(sys.stdin, sys.stdout)"),
		Env:     os.Environ(),
		Input:   bytes.NewReader([]byte(data)),
	})
	assert.NoError(t, err)
	out, err := r.Collect()
	assert.NoError(t, err)
	assert.Equal(t, data, string(out))
}

func TestStartingValuesPrefixOutput(t *testing.T) {
	python := pythonOr(t)
	r, err := subprocio.Start(context.Background(), subprocio.Options{
		Command:        python,
		Args:           pyArgs(`sys.stdout.write("tail")`),
		Env:            os.Environ(),
		StartingValues: [][]byte{[]byte("head-")},
	})
	assert.NoError(t, err)
	out, err := r.Collect()
	assert.NoError(t, err)
	assert.Equal(t, "head-tail", string(out))
}
