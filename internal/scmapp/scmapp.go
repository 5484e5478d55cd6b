// Package scmapp builds the per-request http.Handler that serves a single
// repository's VCS-over-HTTP traffic, choosing the on-disk path and
// backend-specific wiring. It mirrors vcsserver/scm_app.py: NewGitApp is
// GitHandler/create_git_wsgi_app, NewHgApp is HgWeb/create_hg_wsgi_app.
package scmapp

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rhodecode/vcsserver/internal/hooks"
	"github.com/rhodecode/vcsserver/internal/pygrack"
	"github.com/rhodecode/vcsserver/internal/wire"
)

// NewGitApp builds a pygrack.Engine for repoPath, trying repoPath itself
// first and falling back to repoPath/.git — a bare repository is served
// directly, a working copy through its .git subdirectory, matching
// GitHandler's constructor probing.
func NewGitApp(repoPath, gitPath string, updateServerInfo bool, extras wire.Extras, transport hooks.Transport) (http.Handler, error) {
	candidate := repoPath
	if _, err := os.Stat(filepath.Join(candidate, "objects")); err != nil {
		candidate = filepath.Join(repoPath, ".git")
	}

	engine, err := pygrack.NewEngine(filepath.Base(repoPath), candidate, gitPath, updateServerInfo, extras, transport)
	if err != nil {
		return nil, fmt.Errorf("scmapp: git: %w", err)
	}
	return engine, nil
}

// HgConfig carries the subset of settings.py/hg.py's HG_UI_SECTIONS that
// the HgWeb app needs assembled into an hgrc before spawning `hg serve`
// in CGI-ish mode: mirrors make_hg_ui_from_config.
type HgConfig struct {
	RepoPath string
	HgPath   string
	BaseURL  string
	Sections map[string]map[string]string
}

// hgUISections lists the hgrc sections HG_UI_SECTIONS copies from the
// caller-supplied config into the generated ui, in order.
var hgUISections = []string{"web", "hooks", "extensions", "phases"}

// NewHgApp builds an http.Handler that proxies Mercurial's own hgweb CGI
// protocol over HTTP for repoPath, equivalent to create_hg_wsgi_app +
// HgWeb.
func NewHgApp(cfg HgConfig) (http.Handler, error) {
	if _, err := os.Stat(cfg.RepoPath); err != nil {
		return nil, fmt.Errorf("scmapp: hg: %w", err)
	}
	return &hgWebHandler{cfg: cfg}, nil
}

type hgWebHandler struct {
	cfg HgConfig
}

func (h *hgWebHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hgPath := h.cfg.HgPath
	if hgPath == "" {
		hgPath = "hg"
	}

	args := []string{"serve", "-R", h.cfg.RepoPath}
	for _, section := range hgUISections {
		for key, val := range h.cfg.Sections[section] {
			args = append(args, "--config", fmt.Sprintf("%s.%s=%s", section, key, val))
		}
	}

	proxyHgRequest(w, r, hgPath, h.cfg.RepoPath, args)
}
