// Package settings stores what crowdin-sync remembers between runs and keeps
// the backups of files it restores.
//
// Everything lives in the XDG data directory:
//
//	$XDG_DATA_HOME/crowdin-sync/  (default: ~/.local/share/crowdin-sync/)
//
// Files stored:
//   - state.json           per-branch Gerrit username and last run
//   - backups/<stamp>/...  copies of malformed translations taken before
//     they are checked out again
//
// state.json permissions are 0600.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	dataDirName  = "crowdin-sync"
	fileName     = "state.json"
	backupLayout = "20060102-150405"
)

// Branch is what is remembered about one branch.
type Branch struct {
	// Username is the Gerrit account changes were last pushed as.
	Username string `json:"username,omitempty"`
	// LastRun is when the last download finished.
	LastRun time.Time `json:"lastRun,omitempty"`
	// LastCommits is how many projects that run committed.
	LastCommits int `json:"lastCommits,omitempty"`
}

// State is the content of state.json, keyed by branch.
type State struct {
	Branches map[string]*Branch `json:"branches"`
}

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// dataDir respects $XDG_DATA_HOME and falls back to ~/.local/share.
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

// DataDir returns the crowdin-sync data directory path.
func DataDir() (string, error) {
	return dataDir()
}

// FilePath returns the state.json path, or "" when there is no home
// directory.
func FilePath() string {
	dir, err := dataDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, fileName)
}

// BackupDir returns a fresh directory name for the backups taken at now. It
// is not created.
func BackupDir(now time.Time) (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "backups", now.Format(backupLayout)), nil
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the state from disk.
// Returns an empty state if the file doesn't exist or is invalid.
func Load() *State {
	empty := &State{Branches: make(map[string]*Branch)}

	path := FilePath()
	if path == "" {
		return empty
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return empty
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return empty
	}
	if st.Branches == nil {
		st.Branches = make(map[string]*Branch)
	}
	for name, b := range st.Branches {
		if b == nil {
			delete(st.Branches, name)
		}
	}
	return &st
}

// Save writes the state to disk with 0600 permissions.
func Save(st *State) error {
	dir, err := dataDir()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, fileName), data, 0600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

// branch returns the entry for name, creating it.
func (st *State) branch(name string) *Branch {
	b := st.Branches[name]
	if b == nil {
		b = &Branch{}
		st.Branches[name] = b
	}
	return b
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// Username returns the remembered Gerrit username for branch, or "".
func Username(branch string) string {
	if b := Load().Branches[branch]; b != nil {
		return b.Username
	}
	return ""
}

// SetUsername remembers the Gerrit username for branch.
func SetUsername(branch, username string) error {
	st := Load()
	st.branch(branch).Username = username
	return Save(st)
}

// RecordRun remembers the outcome of a download run on branch.
func RecordRun(branch string, at time.Time, commits int) error {
	st := Load()
	b := st.branch(branch)
	b.LastRun = at.UTC()
	b.LastCommits = commits
	return Save(st)
}
