package gerrit

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// requireGit skips tests that need a git binary and isolates them from the
// user's git configuration.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_AUTHOR_NAME", "Translation Bot")
	t.Setenv("GIT_AUTHOR_EMAIL", "bot@example.org")
	t.Setenv("GIT_COMMITTER_NAME", "Translation Bot")
	t.Setenv("GIT_COMMITTER_EMAIL", "bot@example.org")
}

func mustGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := runGit(context.Background(), dir, args...)
	require.NoError(t, err, "git %v", args)
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// newProject creates a committed checkout at base/root holding files.
func newProject(t *testing.T, base, root string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(base, root)
	require.NoError(t, os.MkdirAll(dir, 0755))
	mustGit(t, dir, "init", "-q")
	for name, content := range files {
		writeFile(t, filepath.Join(dir, name), content)
	}
	mustGit(t, dir, "add", "-A")
	mustGit(t, dir, "commit", "-q", "-m", "initial")
	return dir
}

// newRemote creates an empty bare repository for name below remoteBase.
func newRemote(t *testing.T, remoteBase, name string) string {
	t.Helper()
	bare := filepath.Join(remoteBase, name)
	require.NoError(t, os.MkdirAll(bare, 0755))
	mustGit(t, bare, "init", "-q", "--bare")
	return bare
}
