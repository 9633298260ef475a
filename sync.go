package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/aicp/crowdin-sync/android"
	"github.com/aicp/crowdin-sync/config"
	"github.com/aicp/crowdin-sync/crowdin"
	"github.com/aicp/crowdin-sync/gerrit"
	"github.com/aicp/crowdin-sync/i18n"
	"github.com/aicp/crowdin-sync/manifest"
	"github.com/aicp/crowdin-sync/settings"
)

var errInterrupted = errors.New("interrupted")

type syncArgs struct {
	branch, config, username, owner, configDir string

	uploadSources, uploadTranslations bool
	download, localDownload, submit   bool
}

func (a syncArgs) anyAction() bool {
	return a.uploadSources || a.uploadTranslations || a.download || a.localDownload
}

// interruptible returns a context canceled on Ctrl-C. Files already written
// stay as they are.
func interruptible() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		select {
		case <-sigCh:
			logWarning("Interrupted, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// checkInterrupted turns a canceled context into errInterrupted.
func checkInterrupted(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errInterrupted
	}
	return err
}

func runSync(a syncArgs) error {
	ctx, stop := interruptible()
	defer stop()

	env, err := config.LoadEnv()
	if err != nil {
		return configError("%v", err)
	}

	username := a.username
	if username == "" {
		if username = settings.Username(a.branch); username != "" {
			logInfo("Using saved Gerrit username %s", username)
		}
	}

	if a.submit {
		if username == "" {
			return configError("%s", i18n.T("Argument -u/--username is required for submitting"))
		}
		return runSubmit(ctx, env, a.branch, username, a.owner)
	}

	// Configuration is checked completely before anything is changed.
	bp, err := config.ResolveBasePath(a.branch)
	if err != nil {
		return configError("%v", err)
	}
	if bp.Defaulted {
		logWarning("You have not set %s. Defaulting to %s", bp.EnvName, bp.Dir)
	}

	paths := config.NewPaths(bp.Dir, a.configDir, a.branch, a.config)
	if err := paths.Check(); err != nil {
		return configError("%v", err)
	}
	m, err := manifest.Load(
		manifest.Source{Path: paths.Platform},
		manifest.Source{Path: paths.AICP, Optional: true},
		manifest.Source{Path: paths.Extra},
	)
	if err != nil {
		return configError("%v", err)
	}
	cf, err := config.LoadCrowdinFile(paths.Crowdin)
	if err != nil {
		return configError("%v", err)
	}

	client := &crowdin.Client{
		Binary:     env.CLI,
		ConfigPath: paths.Crowdin,
		BasePath:   cf.Root(bp.Dir),
		ProjectID:  env.ProjectID,
		Branch:     a.branch,
	}
	if err := client.CheckInstalled(); err != nil {
		return configError("%v", err)
	}

	if a.download && username == "" {
		return configError("%s", i18n.T("Argument -u/--username is required to perform this action"))
	}
	if !a.anyAction() {
		logWarning("No action selected")
	}

	s := &syncer{
		branch:   a.branch,
		manifest: m,
		client:   client,
		pusher: &gerrit.Pusher{
			Host:       env.GerritHost,
			Port:       env.GerritPort,
			Username:   username,
			BasePath:   bp.Dir,
			Message:    env.CommitMessage,
			RemoteBase: env.PushURL,
		},
		started: time.Now(),
	}

	if a.uploadSources {
		logInfo("Uploading sources to Crowdin")
		if err := client.UploadSources(ctx); err != nil {
			return toolError(checkInterrupted(ctx, err))
		}
	}
	if a.uploadTranslations {
		logInfo("Uploading translations to Crowdin")
		if err := client.UploadTranslations(ctx); err != nil {
			return toolError(checkInterrupted(ctx, err))
		}
	}

	var summary gerrit.Summary
	if a.download {
		summary, err = s.download(ctx)
		if err != nil {
			return toolError(checkInterrupted(ctx, err))
		}
		if a.username != "" {
			if err := settings.SetUsername(a.branch, a.username); err != nil {
				logWarning("Could not remember username: %v", err)
			}
		}
		if err := settings.RecordRun(a.branch, time.Now(), len(summary.Committed())); err != nil {
			logWarning("Could not save state: %v", err)
		}
	}
	if a.localDownload {
		if err := s.localDownload(ctx); err != nil {
			return toolError(checkInterrupted(ctx, err))
		}
	}

	if summary.HasCommits() {
		logSuccess("%s", i18n.T("Done!"))
		return nil
	}
	logInfo("%s", i18n.T("Finished! Nothing to do or commit anymore."))
	return nothingToDo()
}

// ---------------------------------------------------------------------------
// Download
// ---------------------------------------------------------------------------

type syncer struct {
	branch   string
	manifest *manifest.Manifest
	client   *crowdin.Client
	pusher   *gerrit.Pusher
	started  time.Time
}

// cleanStats counts what cleaning did to the downloaded files.
type cleanStats struct {
	cleaned, deleted, restored int
}

// localDownload downloads the translations and cleans every file Crowdin
// wrote.
func (s *syncer) localDownload(ctx context.Context) error {
	logInfo("Downloading translations from Crowdin")
	if err := s.client.Download(ctx); err != nil {
		return err
	}

	logInfo("Removing useless translation content")
	files, err := s.client.ListTranslations(ctx)
	if err != nil {
		return err
	}
	stats, err := s.cleanAll(ctx, files)
	if err != nil {
		return err
	}

	logSuccess(i18n.N("Cleaned %d file", "Cleaned %d files", stats.cleaned), stats.cleaned)
	if stats.deleted > 0 {
		logInfo(i18n.N("Removed %d empty file", "Removed %d empty files", stats.deleted), stats.deleted)
	}
	if stats.restored > 0 {
		logWarning(i18n.N("Restored %d malformed file", "Restored %d malformed files", stats.restored), stats.restored)
	}
	return nil
}

func (s *syncer) cleanAll(ctx context.Context, files []string) (cleanStats, error) {
	var stats cleanStats
	root := s.client.BasePath
	backupDir := ""

	for _, rel := range files {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		res, err := android.CleanFile(filepath.Join(root, rel))
		var malformed *android.MalformedError
		switch {
		case errors.As(err, &malformed):
			logWarning("XML syntax error in %s: %v", rel, malformed.Err)
			if backupDir == "" {
				if backupDir, err = settings.BackupDir(s.started); err != nil {
					return stats, err
				}
			}
			backup, err := gerrit.Restore(ctx, root, rel, backupDir)
			if err != nil {
				logError("Could not restore %s: %v", rel, err)
				continue
			}
			logInfo("Restored %s, broken copy saved to %s", rel, backup)
			stats.restored++
		case err != nil:
			return stats, err
		case res == nil:
			// Not every configured translation exists.
		case res.Deleted:
			stats.deleted++
		default:
			if len(res.Pruned) > 0 {
				logWarning("%s: removed strings without a default variant: %s", rel, strings.Join(res.Pruned, ", "))
			}
			stats.cleaned++
		}
	}
	return stats, nil
}

// download runs localDownload and commits and pushes every project with
// translated files.
func (s *syncer) download(ctx context.Context) (gerrit.Summary, error) {
	var summary gerrit.Summary
	if err := s.localDownload(ctx); err != nil {
		return summary, err
	}

	logInfo("Creating a list of pushable translations")
	paths, err := s.client.ListProject(ctx)
	if err != nil {
		return summary, err
	}
	resolver := manifest.NewResolver(s.manifest, s.branch)
	resolver.OnWarning = logWarning
	projects := resolver.Resolve(paths)

	logInfo("Uploading translations to Gerrit")
	for _, proj := range projects {
		logInfo("Committing %s on branch %s", proj.RemoteName, proj.Branch)
		res := s.pusher.CommitAndPush(ctx, proj)
		summary.Add(res)

		switch res.Outcome {
		case gerrit.Committed:
			logSuccess("Successfully pushed commit for %s", proj.RemoteName)
		case gerrit.Empty:
			logInfo("Nothing to commit for %s, skipping", proj.RemoteName)
		case gerrit.CommitFailed:
			logError("Failed to create commit for %s: %v", proj.RemoteName, res.Err)
		case gerrit.PushFailed:
			logError("Failed to push commit for %s: %v", proj.RemoteName, res.Err)
		}
		if res.Interrupted() || ctx.Err() != nil {
			return summary, errInterrupted
		}
	}

	printSummary(&summary)
	return summary, nil
}

func printSummary(s *gerrit.Summary) {
	committed, empty, failed := len(s.Committed()), len(s.Empty()), len(s.Failed())
	logInfo(i18n.N("%d project pushed for review", "%d projects pushed for review", committed), committed)
	if empty > 0 {
		logInfo(i18n.N("%d project without changes", "%d projects without changes", empty), empty)
	}
	if failed > 0 {
		logWarning(i18n.N("%d project failed", "%d projects failed", failed), failed)
		for _, r := range s.Failed() {
			logWarning("  %s (%s): %v", r.Project.Root, r.Outcome, r.Err)
		}
	}
}

// ---------------------------------------------------------------------------
// Submit
// ---------------------------------------------------------------------------

func runSubmit(ctx context.Context, env config.Env, branch, username, owner string) error {
	r := &gerrit.Reviewer{
		Host:     env.GerritHost,
		Port:     env.GerritPort,
		Username: username,
		Owner:    owner,
		Message:  env.CommitMessage,
	}

	logInfo("Looking for open translation changes on %s", branch)
	revs, err := r.OpenChanges(ctx, branch)
	if err != nil {
		return toolError(checkInterrupted(ctx, err))
	}
	if len(revs) == 0 {
		logInfo("%s", i18n.T("Nothing to submit!"))
		return nothingToDo()
	}

	submitted := 0
	for _, rev := range revs {
		if err := r.Submit(ctx, rev); err != nil {
			if ctx.Err() != nil {
				return toolError(errInterrupted)
			}
			logError("%v", err)
			continue
		}
		logSuccess("Success on submitting commit %s", rev)
		submitted++
	}

	logInfo(i18n.N("Submitted %d of %d change", "Submitted %d of %d changes", len(revs)), submitted, len(revs))
	if submitted == 0 {
		return &exitError{code: exitFailure, err: errors.New(i18n.T("no change could be submitted"))}
	}
	return nil
}
