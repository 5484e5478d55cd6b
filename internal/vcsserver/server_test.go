package vcsserver_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/rhodecode/vcsserver/internal/vcsserver"
)

func TestPingReturnsNoError(t *testing.T) {
	s := &vcsserver.Server{}
	assert.NoError(t, s.Ping())
}

func TestEchoReturnsInputUnchanged(t *testing.T) {
	s := &vcsserver.Server{}
	assert.Equal(t, []byte("hello"), s.Echo([]byte("hello")))
}

func TestGetPIDMatchesProcess(t *testing.T) {
	s := &vcsserver.Server{}
	assert.Equal(t, os.Getpid(), s.GetPID())
}

func TestSleepHonorsContextCancellation(t *testing.T) {
	s := &vcsserver.Server{}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := s.Sleep(ctx, 10)
	assert.Error(t, err)
}

func TestShutdownSetsFlag(t *testing.T) {
	s := &vcsserver.Server{}
	assert.False(t, s.ShuttingDown())
	s.Shutdown()
	assert.True(t, s.ShuttingDown())
}
