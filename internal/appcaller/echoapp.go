package appcaller

import (
	"io"
	"net/http"
)

// EchoApp is the Go equivalent of vcsserver/echo_stub: a trivial handler
// that reads the request body and writes it back unchanged, wired behind
// the dev.use_echo_app config flag so /proxy/* and /stream/* routes can be
// exercised without a real repository on disk.
type EchoApp struct{}

func (EchoApp) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, r.Body)
}
