package gerrit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// Restore puts a translation file back to its committed state after saving
// a copy of it below backupDir. root is the checkout root and rel the file
// path relative to it; the copy keeps that relative path. A file git does
// not track is removed instead. Restore returns the path of the copy.
func Restore(ctx context.Context, root, rel, backupDir string) (string, error) {
	file := filepath.Join(root, rel)
	backup := filepath.Join(backupDir, filepath.Clean("/"+rel))
	if err := copyFile(file, backup); err != nil {
		return "", fmt.Errorf("backing up %s: %w", file, err)
	}

	dir, name := filepath.Split(file)
	tracked, err := isTracked(ctx, dir, name)
	if err != nil {
		return backup, err
	}
	if !tracked {
		if err := os.Remove(file); err != nil {
			return backup, err
		}
		return backup, nil
	}
	if _, err := runGit(ctx, dir, "checkout", "--", name); err != nil {
		return backup, err
	}
	return backup, nil
}

// isTracked reports whether git tracks name in dir. Only exit status 1 of
// ls-files means untracked; any other failure is returned.
func isTracked(ctx context.Context, dir, name string) (bool, error) {
	_, err := runGit(ctx, dir, "ls-files", "--error-unmatch", "--", name)
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
