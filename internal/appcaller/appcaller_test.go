package appcaller_test

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/rhodecode/vcsserver/internal/appcaller"
)

func TestCallEchoesBody(t *testing.T) {
	caller := appcaller.New(appcaller.EchoApp{})

	resp := caller.Call(appcaller.Request{
		Method: http.MethodPost,
		Path:   "/proxy/hg",
		Body:   bytes.NewReader([]byte("hello")),
	})

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, 1, len(resp.Chunks))
	assert.Equal(t, "hello", string(resp.Chunks[0]))
}

func TestCallEmptyBodyProducesNoChunks(t *testing.T) {
	caller := appcaller.New(appcaller.EchoApp{})

	resp := caller.Call(appcaller.Request{Method: http.MethodGet, Path: "/proxy/git"})

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, 0, len(resp.Chunks))
}

func TestCallChunksLargeBody(t *testing.T) {
	big := bytes.Repeat([]byte("x"), appcaller.ChunkSize+10)
	caller := appcaller.New(appcaller.EchoApp{})

	resp := caller.Call(appcaller.Request{
		Method: http.MethodPost,
		Path:   "/proxy/hg",
		Body:   bytes.NewReader(big),
	})

	assert.Equal(t, 2, len(resp.Chunks))
	assert.Equal(t, appcaller.ChunkSize, len(resp.Chunks[0]))
	assert.Equal(t, 10, len(resp.Chunks[1]))
}
