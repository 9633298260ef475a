package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aicp/crowdin-sync/android"
	"github.com/aicp/crowdin-sync/config"
	"github.com/aicp/crowdin-sync/gerrit"
	"github.com/aicp/crowdin-sync/langmeta"
	"github.com/aicp/crowdin-sync/settings"
)

// ---------------------------------------------------------------------------
// clean (run the resource cleaner on explicit files)
// ---------------------------------------------------------------------------

func newCleanCmd() *cobra.Command {
	var restore bool

	cmd := &cobra.Command{
		Use:   "clean FILE...",
		Short: "Clean translated Android resource files",
		Long: `Clean translated Android resource files in place.

Removes comments inside the resources, strings that exist only as product
variants without a default, and files left without any resource. Comments
outside the root element are kept at the top of the file.

With --restore, files that are not well-formed XML are saved to the backup
directory and checked out again from git.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(args, restore)
		},
	}

	cmd.Flags().BoolVar(&restore, "restore", false, "Restore malformed files from git")

	return cmd
}

func runClean(files []string, restore bool) error {
	backupDir := ""
	failed := 0

	for _, file := range files {
		res, err := android.CleanFile(file)
		var malformed *android.MalformedError
		switch {
		case errors.As(err, &malformed):
			if !restore {
				logError("%v", err)
				failed++
				continue
			}
			if backupDir == "" {
				if backupDir, err = settings.BackupDir(time.Now()); err != nil {
					return err
				}
			}
			abs, err := filepath.Abs(file)
			if err != nil {
				return err
			}
			backup, err := gerrit.Restore(context.Background(), filepath.Dir(abs), filepath.Base(abs), backupDir)
			if err != nil {
				logError("Could not restore %s: %v", file, err)
				failed++
				continue
			}
			logWarning("%s is malformed, restored (backup: %s)", file, backup)
		case err != nil:
			logError("%v", err)
			failed++
		case res == nil:
			logWarning("%s does not exist, skipping", file)
		case res.Deleted:
			logSuccess("%s: removed, nothing left", file)
		case res.Changed:
			logSuccess("%s: cleaned", file)
			if len(res.Pruned) > 0 {
				logInfo("  removed variant-only strings: %s", strings.Join(res.Pruned, ", "))
			}
		default:
			logInfo("%s: already clean", file)
		}
	}

	if failed > 0 {
		return &exitError{code: exitFailure, err: fmt.Errorf("%d of %d files could not be cleaned", failed, len(files))}
	}
	return nil
}

// ---------------------------------------------------------------------------
// paths (read-only: where translations of each source file go)
// ---------------------------------------------------------------------------

func newPathsCmd() *cobra.Command {
	var (
		branch    string
		custom    string
		configDir string
		langs     string
	)

	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Show source files and their translation paths",
		Long: `Show the source files matched by the Crowdin configuration of a branch and
the translation file each language is written to.

Languages default to those that already have a values-<code> directory next
to the source file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var list []string
			if langs != "" {
				for _, l := range strings.Split(langs, ",") {
					if l = strings.TrimSpace(l); l != "" {
						list = append(list, l)
					}
				}
			}
			return runPaths(branch, custom, configDir, list)
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "AICP branch (required)")
	cmd.Flags().StringVarP(&custom, "config", "c", "", "Custom Crowdin config file in the config directory")
	cmd.Flags().StringVar(&configDir, "config-dir", "config", "Directory with Crowdin configs")
	cmd.Flags().StringVar(&langs, "lang", "", "Crowdin language ids (comma-separated, default: detected)")
	_ = cmd.MarkFlagRequired("branch")

	return cmd
}

func runPaths(branch, custom, configDir string, langs []string) error {
	bp, err := config.ResolveBasePath(branch)
	if err != nil {
		return configError("%v", err)
	}
	paths := config.NewPaths(bp.Dir, configDir, branch, custom)
	cf, err := config.LoadCrowdinFile(paths.Crowdin)
	if err != nil {
		return configError("%v", err)
	}
	root := cf.Root(bp.Dir)

	fmt.Fprintf(os.Stderr, "%sCrowdin config%s  %s\n", colorBlue, colorReset, paths.Crowdin)
	fmt.Fprintf(os.Stderr, "%sBase path%s       %s\n", colorBlue, colorReset, root)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	total := 0
	for i := range cf.Files {
		f := &cf.Files[i]
		sources, err := f.Sources(root)
		if err != nil {
			return configError("%v", err)
		}
		if len(sources) == 0 {
			logWarning("%s matches no file", f.Source)
			continue
		}

		for _, src := range sources {
			total++
			fmt.Fprintf(os.Stderr, "\n%s\n", src)

			srcLangs := langs
			if len(srcLangs) == 0 {
				resDir := filepath.Join(root, filepath.FromSlash(path.Dir(path.Dir(src))))
				srcLangs = android.DetectLanguages(resDir, path.Base(src))
			}
			for _, lang := range srcLangs {
				target := f.TranslationPath(src, lang)
				state := "missing"
				if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(target))); err == nil {
					state = "present"
				}
				meta := langmeta.Resolve(lang)
				fmt.Fprintf(os.Stderr, "  %-4s %-8s %-10s %-8s %s\n", meta.Flag, lang, f.AndroidCode(lang), state, target)
			}
		}
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "Source files: %d\n", total)
	return nil
}

// ---------------------------------------------------------------------------
// status (what is remembered between runs)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the saved username and last download per branch",
		Long: `Show what crowdin-sync remembers between runs: the Gerrit username
used for each branch, when its last download finished and how many projects
it pushed for review.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.OutOrStdout(), branch)
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Only show this branch")

	return cmd
}

func runStatus(w io.Writer, branch string) error {
	dir, err := settings.DataDir()
	if err != nil {
		return configError("%v", err)
	}
	fmt.Fprintf(w, "Data directory  %s\n", dir)
	fmt.Fprintf(w, "State file      %s\n", settings.FilePath())

	st := settings.Load()
	var names []string
	for name := range st.Branches {
		if branch == "" || name == branch {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		if branch != "" {
			logInfo("Nothing saved for branch %s", branch)
		} else {
			logInfo("Nothing saved yet")
		}
		return nil
	}
	sort.Strings(names)

	for _, name := range names {
		b := st.Branches[name]
		username := b.Username
		if username == "" {
			username = "-"
		}
		lastRun := "never"
		if !b.LastRun.IsZero() {
			lastRun = fmt.Sprintf("%s, %d committed", b.LastRun.Local().Format(time.DateTime), b.LastCommits)
		}
		fmt.Fprintf(w, "\n%s\n", name)
		fmt.Fprintf(w, "  username   %s\n", username)
		fmt.Fprintf(w, "  last run   %s\n", lastRun)
	}
	return nil
}
