// Package crowdin runs the Crowdin command-line tool for one branch of one
// configuration file.
package crowdin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultBinary is the Crowdin CLI looked up on $PATH.
const DefaultBinary = "crowdin"

// ExitError is returned when the Crowdin CLI exits with a nonzero status.
type ExitError struct {
	Command string
	Code    int
	// Stderr holds the captured error output of list commands. Streaming
	// commands already showed it.
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("crowdin %s: exit status %d", e.Command, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Client invokes the Crowdin CLI.
type Client struct {
	// Binary is the executable name or path (default "crowdin").
	Binary string
	// ConfigPath is the crowdin.yaml-style configuration file.
	ConfigPath string
	// BasePath is the checkout root source patterns are relative to.
	BasePath string
	// ProjectID overrides the configuration's project id when set.
	ProjectID string
	// Branch is the Crowdin branch, named after the AICP branch.
	Branch string

	// Stdout and Stderr receive the output of upload and download commands
	// (default os.Stdout and os.Stderr).
	Stdout io.Writer
	Stderr io.Writer
}

func (c *Client) binary() string {
	if c.Binary == "" {
		return DefaultBinary
	}
	return c.Binary
}

// CheckInstalled reports an error when the CLI cannot be found.
func (c *Client) CheckInstalled() error {
	if _, err := exec.LookPath(c.binary()); err != nil {
		return fmt.Errorf("crowdin CLI %q not found: %w", c.binary(), err)
	}
	return nil
}

// args builds the command line for the given subcommand words.
func (c *Client) args(sub ...string) []string {
	args := append([]string{}, sub...)
	if c.ConfigPath != "" {
		args = append(args, "--config", c.ConfigPath)
	}
	if c.Branch != "" {
		args = append(args, "--branch", c.Branch)
	}
	if c.BasePath != "" {
		args = append(args, "--base-path", c.BasePath)
	}
	if c.ProjectID != "" {
		args = append(args, "--project-id", c.ProjectID)
	}
	return args
}

// UploadSources uploads the source strings.
func (c *Client) UploadSources(ctx context.Context) error {
	return c.stream(ctx, c.args("upload", "sources"))
}

// UploadTranslations uploads existing translations, approving them and
// importing those equal to their source.
func (c *Client) UploadTranslations(ctx context.Context) error {
	return c.stream(ctx, append(c.args("upload", "translations"),
		"--import-eq-suggestions", "--auto-approve-imported"))
}

// Download writes the translations below the base path.
func (c *Client) Download(ctx context.Context) error {
	return c.stream(ctx, c.args("download"))
}

// ListTranslations returns the translation file paths the configuration
// produces, relative to the base path.
func (c *Client) ListTranslations(ctx context.Context) ([]string, error) {
	out, err := c.capture(ctx, append(c.args("list", "translations"), "--plain"))
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// ListProject returns the files of the project branch with the branch
// directory removed, so they are relative to the base path again.
func (c *Client) ListProject(ctx context.Context) ([]string, error) {
	out, err := c.capture(ctx, append(c.args("list", "project"), "--plain"))
	if err != nil {
		return nil, err
	}
	paths := lines(out)
	for i, p := range paths {
		paths[i] = StripBranch(p, c.Branch)
	}
	return paths, nil
}

// StripBranch removes a leading branch directory from a Crowdin path.
func StripBranch(path, branch string) string {
	if branch == "" {
		return path
	}
	for _, prefix := range []string{"/" + branch + "/", branch + "/"} {
		if strings.HasPrefix(path, prefix) {
			return "/" + path[len(prefix):]
		}
	}
	return path
}

func lines(out string) []string {
	var res []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			res = append(res, l)
		}
	}
	return res
}

// ---------------------------------------------------------------------------
// Process execution
// ---------------------------------------------------------------------------

func (c *Client) stream(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, c.binary(), args...)
	cmd.Stdout = orDefault(c.Stdout, os.Stdout)
	cmd.Stderr = orDefault(c.Stderr, os.Stderr)

	log.Debug().Str("bin", c.binary()).Strs("args", args).Msg("running crowdin")
	return c.wrap(ctx, args, cmd.Run(), "")
}

func (c *Client) capture(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, c.binary(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debug().Str("bin", c.binary()).Strs("args", args).Msg("running crowdin")
	if err := cmd.Run(); err != nil {
		return "", c.wrap(ctx, args, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func (c *Client) wrap(ctx context.Context, args []string, err error, stderr string) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	command := commandName(args)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Command: command, Code: exitErr.ExitCode(), Stderr: stderr}
	}
	return fmt.Errorf("crowdin %s: %w", command, err)
}

// commandName returns the subcommand words of args ("upload sources").
func commandName(args []string) string {
	var words []string
	for _, a := range args {
		if strings.HasPrefix(a, "-") {
			break
		}
		words = append(words, a)
	}
	return strings.Join(words, " ")
}

func orDefault(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
