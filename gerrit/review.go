package gerrit

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Reviewer queries and submits open translation changes over Gerrit's ssh
// command interface.
type Reviewer struct {
	Host     string
	Port     int
	Username string
	// Owner limits the query to changes uploaded by this account.
	Owner string
	// Message is the commit message the changes were created with.
	Message string
	// SSH is the ssh client to run (default "ssh").
	SSH string
}

// SubmitError is returned when the server refuses to submit a change.
type SubmitError struct {
	Revision string
	// Reason is the server's message folded onto one line.
	Reason string
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submitting %s: %s", e.Revision, e.Reason)
}

func (r *Reviewer) run(ctx context.Context, args ...string) (stdout, stderr string, err error) {
	port := r.Port
	if port == 0 {
		port = DefaultPort
	}
	bin := r.SSH
	if bin == "" {
		bin = "ssh"
	}
	full := append([]string{"-p", strconv.Itoa(port), r.Username + "@" + r.Host, "gerrit"}, args...)

	cmd := exec.CommandContext(ctx, bin, full...)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	log.Debug().Str("bin", bin).Strs("args", full).Msg("running gerrit command")
	err = cmd.Run()
	if err != nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return out.String(), errOut.String(), err
}

// Query returns the search terms for the open translation changes of branch.
func (r *Reviewer) Query(branch string) []string {
	terms := []string{
		"status:open",
		"branch:" + branch,
		fmt.Sprintf("message:%q", r.Message),
		"topic:" + Topic(branch),
	}
	if r.Owner != "" {
		terms = append(terms, "owner:"+r.Owner)
	}
	return terms
}

// OpenChanges returns the current patch set revision of every open
// translation change on branch.
func (r *Reviewer) OpenChanges(ctx context.Context, branch string) ([]string, error) {
	args := append([]string{"query"}, r.Query(branch)...)
	args = append(args, "--current-patch-set")

	stdout, stderr, err := r.run(ctx, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("gerrit query: %w: %s", err, strings.TrimSpace(stderr))
	}
	return ParseRevisions(stdout), nil
}

// ParseRevisions extracts the "revision: <sha>" values of a text query
// result.
func ParseRevisions(out string) []string {
	var revs []string
	for _, line := range strings.Split(out, "\n") {
		value, ok := strings.CutPrefix(strings.TrimSpace(line), "revision:")
		if !ok {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			revs = append(revs, value)
		}
	}
	return revs
}

// Submit approves a revision with Verified +1 and Code-Review +2 and submits
// it.
func (r *Reviewer) Submit(ctx context.Context, revision string) error {
	_, stderr, err := r.run(ctx, "review", "--verified", "+1", "--code-review", "+2", "--submit", revision)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	reason := foldReason(stderr)
	if reason == "" {
		reason = err.Error()
	}
	return &SubmitError{Revision: revision, Reason: reason}
}

// foldReason joins a multi-paragraph server message into one line.
func foldReason(msg string) string {
	msg = strings.ReplaceAll(msg, "\n\n", "; ")
	msg = strings.ReplaceAll(msg, "\n", "")
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(msg), ";"))
}
