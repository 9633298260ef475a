// Package gerrit commits translation imports per project, pushes them to a
// Gerrit server for review and submits the open review requests again.
package gerrit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// runGit runs git in dir and returns its trimmed combined output.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	log.Debug().Str("dir", dir).Strs("args", args).Msg("running git")
	err := cmd.Run()
	output := strings.TrimSpace(out.String())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return output, ctxErr
		}
		if output != "" {
			return output, fmt.Errorf("git %s: %w: %s", args[0], err, output)
		}
		return output, fmt.Errorf("git %s: %w", args[0], err)
	}
	return output, nil
}

// Repo is the working tree of one project.
type Repo struct {
	Dir string
}

// Exists reports whether Dir is a git working tree.
func (r *Repo) Exists() bool {
	info, err := os.Stat(r.Dir)
	if err != nil || !info.IsDir() {
		return false
	}
	_, err = os.Stat(filepath.Join(r.Dir, ".git"))
	return err == nil
}

// RemoveDeleted stages the removal of tracked files missing from the tree.
func (r *Repo) RemoveDeleted(ctx context.Context) error {
	out, err := runGit(ctx, r.Dir, "ls-files", "-d")
	if err != nil {
		return err
	}
	var files []string
	for _, f := range strings.Split(out, "\n") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return nil
	}
	_, err = runGit(ctx, r.Dir, append([]string{"rm", "--quiet", "--"}, files...)...)
	return err
}

// AddAll stages every change.
func (r *Repo) AddAll(ctx context.Context) error {
	_, err := runGit(ctx, r.Dir, "add", "-A")
	return err
}

// HasStaged reports whether the index differs from HEAD.
func (r *Repo) HasStaged(ctx context.Context) (bool, error) {
	_, err := runGit(ctx, r.Dir, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, err
}

// Commit records the index with message.
func (r *Repo) Commit(ctx context.Context, message string) error {
	_, err := runGit(ctx, r.Dir, "commit", "--quiet", "-m", message)
	return err
}

// Push pushes refspec to url.
func (r *Repo) Push(ctx context.Context, url, refspec string) error {
	_, err := runGit(ctx, r.Dir, "push", url, refspec)
	return err
}
