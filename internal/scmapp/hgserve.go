package scmapp

import (
	"bufio"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/exec"
	"regexp"
	"sync"
	"time"
)

// hgServeProcess supervises one long-lived `hg serve` child bound to an
// ephemeral local port, reverse-proxying HTTP traffic to it. Mercurial
// has no CGI entry point analogous to `git http-backend`, so rather than
// spawning a fresh process per request (as pygrack does for Git) the
// adapter keeps one child alive per repository and proxies to it — the
// same trade-off scm_app.py makes by holding a long-lived in-process
// hgweb application object.
type hgServeProcess struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	proxy   *httputil.ReverseProxy
	started bool
}

var listenRe = regexp.MustCompile(`listening at http://([^/\s]+)/`)

func (p *hgServeProcess) ensureStarted(hgPath, repoPath string, args []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}

	fullArgs := append([]string{}, args...)
	fullArgs = append(fullArgs, "--port", "0", "--address", "127.0.0.1")
	cmd := exec.Command(hgPath, fullArgs...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("scmapp: hg serve stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("scmapp: hg serve start: %w", err)
	}

	addr, err := readListenAddress(stderr)
	if err != nil {
		_ = cmd.Process.Kill()
		return err
	}

	target, err := url.Parse("http://" + addr)
	if err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scmapp: parse hg serve address %q: %w", addr, err)
	}

	p.cmd = cmd
	p.proxy = httputil.NewSingleHostReverseProxy(target)
	p.started = true
	return nil
}

// readListenAddress scans hg serve's stderr for its "listening at" banner,
// with a short deadline since the process is expected to bind within a
// few hundred milliseconds.
func readListenAddress(stderr interface{ Read([]byte) (int, error) }) (string, error) {
	found := make(chan string, 1)
	go func() {
		defer close(found)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			if m := listenRe.FindStringSubmatch(scanner.Text()); m != nil {
				found <- m[1]
				return
			}
		}
	}()
	select {
	case addr, ok := <-found:
		if ok {
			return addr, nil
		}
	case <-time.After(5 * time.Second):
	}
	return "", fmt.Errorf("scmapp: hg serve did not report a listen address")
}

func proxyHgRequest(w http.ResponseWriter, r *http.Request, hgPath, repoPath string, args []string) {
	proc := hgServeProcessFor(repoPath)
	if err := proc.ensureStarted(hgPath, repoPath, args); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	proc.proxy.ServeHTTP(w, r)
}

var (
	hgServeRegistryMu sync.Mutex
	hgServeRegistry   = map[string]*hgServeProcess{}
)

func hgServeProcessFor(repoPath string) *hgServeProcess {
	hgServeRegistryMu.Lock()
	defer hgServeRegistryMu.Unlock()
	if p, ok := hgServeRegistry[repoPath]; ok {
		return p
	}
	p := &hgServeProcess{}
	hgServeRegistry[repoPath] = p
	return p
}
