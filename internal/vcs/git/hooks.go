package git

import (
	"fmt"
	"os"
	"path/filepath"
)

const hookScriptTemplate = "#!/bin/sh\nexec %q hook %s\n"

// installHooks writes pre-receive/post-receive scripts into gitDir's
// hooks directory that re-invoke this same vcsserverd binary as
// `vcsserverd hook pre-receive`/`post-receive`. Git runs these itself
// when serving `git-receive-pack`, on stdin containing the pushed
// "old new ref" lines; RC_SCM_DATA set on that process's environment
// (internal/pygrack/backend.go) is inherited unchanged by the scripts,
// so hooks.GitPreReceive/GitPostReceive see the same extras the rest of
// the request pipeline does.
func installHooks(gitDir string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("git: locate vcsserverd binary: %w", err)
	}

	hooksDir := filepath.Join(gitDir, "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return fmt.Errorf("git: create hooks dir: %w", err)
	}

	for _, name := range []string{"pre-receive", "post-receive"} {
		script := fmt.Sprintf(hookScriptTemplate, exe, name)
		if err := os.WriteFile(filepath.Join(hooksDir, name), []byte(script), 0o755); err != nil {
			return fmt.Errorf("git: write %s hook: %w", name, err)
		}
	}
	return nil
}

// gitDirOf returns the directory git itself treats as GIT_DIR for a
// repository at path: path itself if bare, path/.git otherwise.
func gitDirOf(path string) string {
	if info, err := os.Stat(filepath.Join(path, ".git")); err == nil && info.IsDir() {
		return filepath.Join(path, ".git")
	}
	return path
}
