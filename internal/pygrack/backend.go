package pygrack

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rhodecode/vcsserver/internal/hooks"
	"github.com/rhodecode/vcsserver/internal/subprocio"
)

// serveBackend answers POST .../git-upload-pack or .../git-receive-pack,
// running the stateless-rpc command with the request body as stdin and
// streaming stdout back. Equivalent to GitRepository.backend.
func (e *Engine) serveBackend(w http.ResponseWriter, r *http.Request) {
	gitCommand := e.fixedPath(r.URL.Path)
	if !commands[gitCommand] {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var capabilities map[string]bool
	input := io.Reader(r.Body)
	if gitCommand == "git-upload-pack" {
		var firstLine string
		firstLine, input = peekLine(r.Body)
		capabilities = parseWantCapabilities(firstLine)
	}

	w.Header().Set("Content-Type", fmt.Sprintf("application/x-%s-result", gitCommand))

	var prePullMessages string
	if gitCommand == "git-upload-pack" {
		resp := hooks.GitPrePull(r.Context(), e.Hooks, e.Extras)
		prePullMessages = resp.Output
		if resp.Status != 0 {
			w.WriteHeader(http.StatusOK)
			for _, part := range e.buildFailedPrePullResponse(capabilities, prePullMessages) {
				_, _ = io.WriteString(w, part)
			}
			return
		}
	}

	extrasJSON, err := json.Marshal(e.Extras)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	env := append(os.Environ(), "GIT_CONFIG_NOGLOBAL=1", "RC_SCM_DATA="+string(extrasJSON))

	runner, err := subprocio.Start(r.Context(), subprocio.Options{
		Command: e.GitPath,
		Args:    []string{strings.TrimPrefix(gitCommand, "git-"), "--stateless-rpc", e.ContentPath},
		Dir:     e.ContentPath,
		Env:     env,
		Input:   input,
	})
	if err != nil {
		http.Error(w, "Expectation Failed", http.StatusExpectationFailed)
		return
	}

	// Both git-upload-pack (sideband injection) and git-receive-pack
	// (update-server-info) need the whole response before it is sent, so
	// unlike serveInfoRefs there is no direct passthrough streaming here —
	// matching pygrack.py's `out = list(out)` calls.
	out, err := runner.Collect()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if e.UpdateServerInfo && gitCommand == "git-receive-pack" {
		e.runUpdateServerInfo(r.Context(), env)
	}

	w.WriteHeader(http.StatusOK)
	if gitCommand == "git-upload-pack" {
		postResp := hooks.GitPostPull(r.Context(), e.Hooks, e.Extras)
		response := injectMessages(splitPktStream(out), capabilities, prePullMessages, postResp.Output)
		for _, part := range response {
			_, _ = io.WriteString(w, part)
		}
		return
	}
	_, _ = w.Write(out)
}

func (e *Engine) runUpdateServerInfo(ctx context.Context, env []string) {
	runner, err := subprocio.Start(ctx, subprocio.Options{
		Command: e.GitPath,
		Args:    []string{"update-server-info"},
		Dir:     e.ContentPath,
		Env:     env,
	})
	if err != nil {
		return
	}
	for range runner.Chunks() {
	}
}

// buildFailedPrePullResponse synthesizes an aborted-pull response: an
// empty PACK file wrapped in NAK+sideband framing if the client supports
// sideband, or just the bare empty PACK otherwise. Equivalent to
// _build_failed_pre_pull_response.
func (e *Engine) buildFailedPrePullResponse(capabilities map[string]bool, preMessages string) []string {
	if !intersectsSideBand(capabilities) {
		return []string{emptyPack}
	}

	var response []string
	response = append(response, pktLine("NAK\n"))
	writeSideband(&response, 2, preMessages, capabilities)
	writeSideband(&response, 2, "Pre pull hook failed: aborting\n", capabilities)
	writeSideband(&response, 1, emptyPack, capabilities)
	response = append(response, pktFlush)
	return response
}

// peekLine reads the first line of r without losing any subsequent bytes:
// it returns that line alongside a Reader that reproduces the full
// original stream, standing in for the Python implementation's use of a
// seekable WSGI input stream (tell/seek).
func peekLine(r io.Reader) (string, io.Reader) {
	br := bufio.NewReader(r)
	line, _ := br.ReadString('\n')
	return line, io.MultiReader(bytes.NewReader([]byte(line)), br)
}

// parseWantCapabilities extracts the capability tokens from a Git
// upload-pack "want" line, reimplementing
// dulwich.protocol.extract_want_line_capabilities: the first two
// whitespace-separated tokens are the pkt-line-prefixed "want" keyword and
// the wanted sha1; everything after is a capability name.
func parseWantCapabilities(line string) map[string]bool {
	fields := strings.Fields(strings.TrimRight(line, "\n"))
	caps := map[string]bool{}
	if len(fields) < 3 {
		return caps
	}
	for _, c := range fields[2:] {
		caps[c] = true
	}
	return caps
}

// splitPktStream treats the raw byte stream from a stateless-rpc
// upload-pack as a single opaque chunk for sideband-injection purposes,
// matching pygrack.py's behavior of injecting messages into a
// single-element `out` list when the whole response was materialized via
// `list(out)`.
func splitPktStream(raw []byte) []string {
	return []string{string(raw)}
}
