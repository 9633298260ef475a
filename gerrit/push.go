package gerrit

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/aicp/crowdin-sync/manifest"
)

// DefaultPort is Gerrit's ssh port.
const DefaultPort = 29418

// Outcome is what happened to one project.
type Outcome int

const (
	// Committed means a commit was created and pushed for review.
	Committed Outcome = iota
	// Empty means the project had no changes to commit.
	Empty
	// CommitFailed means the changes could not be staged or committed.
	CommitFailed
	// PushFailed means a commit was created but the push was rejected.
	PushFailed
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Empty:
		return "empty"
	case CommitFailed:
		return "commit failed"
	case PushFailed:
		return "push failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Result is the outcome for one project. Err is set for the failed outcomes.
type Result struct {
	Project manifest.Resolved
	Outcome Outcome
	Err     error
}

// Summary collects the results of a run in commit order.
type Summary struct {
	Results []Result
}

// Add appends r.
func (s *Summary) Add(r Result) {
	s.Results = append(s.Results, r)
}

func (s *Summary) filter(keep func(Outcome) bool) []Result {
	var out []Result
	for _, r := range s.Results {
		if keep(r.Outcome) {
			out = append(out, r)
		}
	}
	return out
}

// Committed returns the projects pushed for review.
func (s *Summary) Committed() []Result {
	return s.filter(func(o Outcome) bool { return o == Committed })
}

// Empty returns the projects without changes.
func (s *Summary) Empty() []Result {
	return s.filter(func(o Outcome) bool { return o == Empty })
}

// Failed returns the projects whose commit or push failed.
func (s *Summary) Failed() []Result {
	return s.filter(func(o Outcome) bool { return o == CommitFailed || o == PushFailed })
}

// HasCommits reports whether at least one project was pushed for review.
func (s *Summary) HasCommits() bool {
	return len(s.Committed()) > 0
}

// Topic is the review topic grouping the imports of branch.
func Topic(branch string) string {
	return "Translations-" + branch
}

// Refspec pushes HEAD for review on branch under the translation topic.
func Refspec(branch string) string {
	return fmt.Sprintf("HEAD:refs/for/%s%%topic=%s", branch, Topic(branch))
}

// Pusher commits and pushes the translations of resolved projects.
type Pusher struct {
	Host     string
	Port     int
	Username string
	// BasePath is the checkout root project paths are relative to.
	BasePath string
	// Message is the commit message.
	Message string
	// RemoteBase replaces the ssh URL of the server when set; the project
	// name is appended to it.
	RemoteBase string
}

// RemoteURL returns the push URL of a remote repository.
func (p *Pusher) RemoteURL(name string) string {
	if p.RemoteBase != "" {
		return p.RemoteBase + "/" + name
	}
	port := p.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("ssh://%s@%s:%d/%s", p.Username, p.Host, port, name)
}

// CommitAndPush commits every change in the project and pushes it for
// review. Failures are reported in the Result, never returned.
func (p *Pusher) CommitAndPush(ctx context.Context, proj manifest.Resolved) Result {
	res := Result{Project: proj}
	fail := func(o Outcome, err error) Result {
		res.Outcome = o
		res.Err = err
		return res
	}

	repo := &Repo{Dir: filepath.Join(p.BasePath, proj.Root)}
	if !repo.Exists() {
		return fail(CommitFailed, fmt.Errorf("%s is not a git checkout", repo.Dir))
	}

	if err := repo.RemoveDeleted(ctx); err != nil {
		return fail(CommitFailed, err)
	}
	if err := repo.AddAll(ctx); err != nil {
		return fail(CommitFailed, err)
	}
	staged, err := repo.HasStaged(ctx)
	if err != nil {
		return fail(CommitFailed, err)
	}
	if !staged {
		res.Outcome = Empty
		return res
	}
	if err := repo.Commit(ctx, p.Message); err != nil {
		return fail(CommitFailed, err)
	}

	if err := repo.Push(ctx, p.RemoteURL(proj.RemoteName), Refspec(proj.Branch)); err != nil {
		return fail(PushFailed, err)
	}
	res.Outcome = Committed
	return res
}

// Interrupted reports whether r failed because the run was canceled.
func (r Result) Interrupted() bool {
	return errors.Is(r.Err, context.Canceled)
}
