// Package pygrack implements the Git "smart HTTP" protocol endpoints
// (info/refs advertisement and the upload-pack/receive-pack RPC) as a
// plain net/http.Handler, shelling out to `git ... --stateless-rpc` for
// the heavy lifting via internal/subprocio. It is the Go rendering of
// vcsserver/pygrack.py's GitRepository class — same wire behavior,
// including its pre/post-pull hook integration and sideband message
// injection, expressed as an http.Handler instead of a WSGI app.
package pygrack

import (
	"net/http"
	"os"
	"strings"

	"github.com/rhodecode/vcsserver/internal/hooks"
	"github.com/rhodecode/vcsserver/internal/wire"
)

// emptyPack is the smallest valid Git packfile: version 2, zero objects.
// Sending it in place of a real pack is how a pre-pull hook veto is
// communicated to the client — an empty pack makes the clone/fetch fail
// client-side without the server needing to tear down the connection.
// The trailing 20 bytes are the SHA-1 of the preceding 12.
const emptyPack = "PACK\x00\x00\x00\x02\x00\x00\x00\x00" +
	"\x02\x9d\x08\x82\x3b\xd8\xa8\xea\xb5\x10\xad\x6a\xc7\x5c\x82\x3c\xfd\x3e\xd3\x1e"

var commands = map[string]bool{"git-upload-pack": true, "git-receive-pack": true}

// Engine serves the Git smart-HTTP endpoints for one on-disk repository.
type Engine struct {
	RepoName         string
	ContentPath      string
	GitPath          string
	UpdateServerInfo bool
	Extras           wire.Extras
	Hooks            hooks.Transport
}

// NewEngine validates that contentPath looks like a Git directory (the
// five well-known top-level entries) before constructing an Engine,
// matching GitRepository.__init__'s directory-signature check.
func NewEngine(repoName, contentPath, gitPath string, updateServerInfo bool, extras wire.Extras, transport hooks.Transport) (*Engine, error) {
	entries, err := os.ReadDir(contentPath)
	if err != nil {
		return nil, err
	}
	signature := map[string]bool{"config": false, "head": false, "info": false, "objects": false, "refs": false}
	for _, e := range entries {
		name := strings.ToLower(e.Name())
		if _, ok := signature[name]; ok {
			signature[name] = true
		}
	}
	for name, present := range signature {
		if !present {
			return nil, &os.PathError{Op: "open", Path: contentPath, Err: os.ErrNotExist}
		}
		_ = name
	}

	if gitPath == "" {
		gitPath = "git"
	}
	return &Engine{
		RepoName:         repoName,
		ContentPath:      contentPath,
		GitPath:          gitPath,
		UpdateServerInfo: updateServerInfo,
		Extras:           extras,
		Hooks:            transport,
	}, nil
}

// ServeHTTP dispatches between the info/refs advertisement and the
// upload-pack/receive-pack RPC, mirroring GitRepository.__call__.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := e.fixedPath(r.URL.Path)
	if strings.HasPrefix(path, "info/refs") {
		e.serveInfoRefs(w, r)
		return
	}
	e.serveBackend(w, r)
}

// fixedPath strips everything up to and including the repo name from the
// request path, matching _get_fixedpath.
func (e *Engine) fixedPath(path string) string {
	idx := strings.Index(path, e.RepoName)
	if idx < 0 {
		return strings.Trim(path, "/")
	}
	return strings.Trim(path[idx+len(e.RepoName):], "/")
}

func writeChunks(w http.ResponseWriter, chunks <-chan []byte) error {
	flusher, _ := w.(http.Flusher)
	for chunk := range chunks {
		if _, err := w.Write(chunk); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	return nil
}
