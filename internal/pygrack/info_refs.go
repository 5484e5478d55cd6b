package pygrack

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/rhodecode/vcsserver/internal/subprocio"
)

// serveInfoRefs answers GET .../info/refs?service=git-upload-pack (or
// git-receive-pack), advertising refs by running
// `git <cmd> --stateless-rpc --advertise-refs` and prefixing its output
// with the pkt-line service announcement. Equivalent to
// GitRepository.inforefs.
//
// The leading service line intentionally carries no extra newline beyond
// the one baked into the pkt-line payload: Git's client chokes if you
// pad it with an additional "\n" or sprinkle a flush-pkt mid-line.
func (e *Engine) serveInfoRefs(w http.ResponseWriter, r *http.Request) {
	gitCommand := r.URL.Query().Get("service")
	if !commands[gitCommand] {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	serviceLine := pktLine(fmt.Sprintf("# service=%s\n", gitCommand))

	extrasJSON, err := json.Marshal(e.Extras)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	env := append(os.Environ(), "RC_SCM_DATA="+string(extrasJSON))
	runner, err := subprocio.Start(r.Context(), subprocio.Options{
		Command:          e.GitPath,
		Args:             []string{strings.TrimPrefix(gitCommand, "git-"), "--stateless-rpc", "--advertise-refs", e.ContentPath},
		Env:              env,
		StartingValues:   [][]byte{[]byte(serviceLine + pktFlush)},
		FailOnReturnCode: true,
		FailOnStderr:     true,
	})
	if err != nil {
		http.Error(w, "Expectation Failed", http.StatusExpectationFailed)
		return
	}

	w.Header().Set("Content-Type", fmt.Sprintf("application/x-%s-advertisement", gitCommand))
	w.WriteHeader(http.StatusOK)
	_ = writeChunks(w, runner.Chunks())
}
