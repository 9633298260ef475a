// crowdin-sync synchronises AICP string resources with Crowdin and Gerrit.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aicp/crowdin-sync/crowdin"
	"github.com/aicp/crowdin-sync/i18n"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Exit status
// ---------------------------------------------------------------------------

const (
	exitOK          = 0
	exitFailure     = 1
	exitNothingToDo = 3
	exitInterrupted = 130
)

// exitError carries the process exit status out of a command. err may be nil
// when the command already reported everything.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func nothingToDo() error {
	return &exitError{code: exitNothingToDo}
}

func configError(format string, args ...any) error {
	return &exitError{code: exitFailure, err: fmt.Errorf(format, args...)}
}

// toolError maps the failure of an external tool to an exit status: the
// tool's own status for Crowdin, 130 after an interrupt, 1 otherwise.
func toolError(err error) error {
	if errors.Is(err, errInterrupted) {
		return &exitError{code: exitInterrupted, err: err}
	}
	var crowdinErr *crowdin.ExitError
	if errors.As(err, &crowdinErr) && crowdinErr.Code > 0 {
		return &exitError{code: crowdinErr.Code, err: err}
	}
	return &exitError{code: exitFailure, err: err}
}

// exitStatus reports err and returns the status to exit with.
func exitStatus(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			logError("%v", ee.err)
		}
		return ee.code
	}
	logError("%v", err)
	return exitFailure
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

var verbose bool

func newRootCmd() *cobra.Command {
	var a syncArgs

	root := &cobra.Command{
		Use:   "crowdin-sync --branch BRANCH [actions]",
		Short: "Synchronise AICP translations with Crowdin",
		Long: `crowdin-sync: synchronise AICP translations with Crowdin.

Uploads source strings and translations to Crowdin, downloads translated
resources, cleans them, commits them per project and pushes the commits to
Gerrit for review. Open translation changes can be approved and submitted.

Actions run in this order:
  --upload-sources        Upload source strings
  --upload-translations   Upload existing translations
  --download              Download, clean, commit and push for review
  --local-download        Download and clean only
  --submit                Approve and submit open translation changes

Environment:
  AICP_CROWDIN_PROJECT_ID          Crowdin project id
  AICP_CROWDIN_BASE_PATH_<branch>  Checkout root ("." replaced by "_")
  AICP_CROWDIN_CLI                 Crowdin CLI (default crowdin)
  AICP_CROWDIN_GERRIT_HOST         Gerrit host (default gerrit.aicp-rom.com)
  AICP_CROWDIN_GERRIT_PORT         Gerrit ssh port (default 29418)

Exit status is 0 when changes were committed or submitted, 3 when there was
nothing to do, and the Crowdin CLI's status when it fails.`,
		Example: `  crowdin-sync --branch s12.1 --upload-sources
  crowdin-sync --branch s12.1 --download -u alice
  crowdin-sync --branch s12.1 --submit -u alice --owner alice`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(a)
		},
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log every external command")

	root.Flags().StringVar(&a.branch, "branch", "", "AICP branch (required)")
	root.Flags().StringVarP(&a.config, "config", "c", "", "Custom Crowdin config file in the config directory")
	root.Flags().StringVarP(&a.username, "username", "u", "", "Gerrit username (remembered per branch)")
	root.Flags().StringVar(&a.owner, "owner", "", "Only submit changes owned by this Gerrit user")
	root.Flags().StringVar(&a.configDir, "config-dir", "config", "Directory with Crowdin configs and extra manifests")
	root.Flags().BoolVar(&a.uploadSources, "upload-sources", false, "Upload sources to Crowdin")
	root.Flags().BoolVar(&a.uploadTranslations, "upload-translations", false, "Upload translations to Crowdin")
	root.Flags().BoolVar(&a.download, "download", false, "Download translations from Crowdin and push them to Gerrit")
	root.Flags().BoolVar(&a.localDownload, "local-download", false, "Download translations from Crowdin without committing")
	root.Flags().BoolVar(&a.submit, "submit", false, "Approve and submit open translation changes")
	_ = root.MarkFlagRequired("branch")

	root.AddCommand(
		newCleanCmd(),
		newPathsCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// setupLogging routes the debug trace of external commands to stderr.
func setupLogging(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
}

func main() {
	i18n.Init("")
	os.Exit(exitStatus(newRootCmd().Execute()))
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("crowdin-sync version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}
