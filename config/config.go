// Package config gathers everything a sync run is configured by: the
// AICP_CROWDIN_* environment, the per-branch checkout root, and the
// Crowdin and manifest files the run reads.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is the prefix of every environment variable the tool reads.
const EnvPrefix = "AICP_CROWDIN_"

// DefaultCommitMessage is the message of translation import commits. Open
// review requests are found again by it when submitting.
const DefaultCommitMessage = "Automatic AICP translation import"

// Env is the environment configuration.
type Env struct {
	// ProjectID is the Crowdin project id, passed to every Crowdin call when set.
	ProjectID string `env:"PROJECT_ID"`
	// CLI is the Crowdin command-line tool to run.
	CLI string `env:"CLI" envDefault:"crowdin"`
	// GerritHost is the code review server.
	GerritHost string `env:"GERRIT_HOST" envDefault:"gerrit.aicp-rom.com"`
	// GerritPort is the ssh port of the code review server.
	GerritPort int `env:"GERRIT_PORT" envDefault:"29418"`
	// PushURL replaces ssh://<user>@<host>:<port> as the base of push URLs,
	// e.g. for a mirror. Project names are appended to it.
	PushURL string `env:"PUSH_URL"`
	// CommitMessage is the message of import commits.
	CommitMessage string `env:"COMMIT_MESSAGE" envDefault:"Automatic AICP translation import"`
}

// LoadEnv reads Env from the process environment.
func LoadEnv() (Env, error) {
	return loadEnv(nil)
}

// loadEnv reads Env from environ, or from the process environment when
// environ is nil.
func loadEnv(environ map[string]string) (Env, error) {
	e, err := env.ParseAsWithOptions[Env](env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	})
	if err != nil {
		return Env{}, fmt.Errorf("reading environment: %w", err)
	}
	if e.GerritPort <= 0 || e.GerritPort > 65535 {
		return Env{}, fmt.Errorf("%sGERRIT_PORT: invalid port %d", EnvPrefix, e.GerritPort)
	}
	if strings.TrimSpace(e.CommitMessage) == "" {
		return Env{}, fmt.Errorf("%sCOMMIT_MESSAGE must not be empty", EnvPrefix)
	}
	return e, nil
}

// ---------------------------------------------------------------------------
// Checkout root
// ---------------------------------------------------------------------------

// BasePathEnvName returns the variable holding the checkout root of branch.
// Dots are not allowed in variable names, so "s12.1" reads
// AICP_CROWDIN_BASE_PATH_s12_1.
func BasePathEnvName(branch string) string {
	return EnvPrefix + "BASE_PATH_" + strings.ReplaceAll(branch, ".", "_")
}

// BasePath is a resolved checkout root.
type BasePath struct {
	Dir string
	// Defaulted is set when the variable was unset and Dir is the working
	// directory.
	Defaulted bool
	// EnvName is the variable that was consulted.
	EnvName string
}

// ResolveBasePath finds the checkout root of branch. The directory must exist.
func ResolveBasePath(branch string) (*BasePath, error) {
	bp := &BasePath{EnvName: BasePathEnvName(branch)}

	// The variable name depends on the branch, so it cannot be a struct tag.
	dir, ok := os.LookupEnv(bp.EnvName)
	if !ok {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = cwd
		bp.Defaulted = true
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s is not a real directory: %s", bp.EnvName, dir)
	}
	bp.Dir = dir
	return bp, nil
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

// Paths lists the files of one run.
type Paths struct {
	// Crowdin is the Crowdin configuration file.
	Crowdin string
	// Platform is the checkout's main manifest. Required.
	Platform string
	// AICP is the checkout's AICP manifest. Optional.
	AICP string
	// Extra lists projects that are in neither checkout manifest. Required.
	Extra string
}

// NewPaths returns the files for branch. configDir holds the tool's own
// configuration; custom, when set, names a Crowdin file in it that replaces
// <branch>.yaml.
func NewPaths(basePath, configDir, branch, custom string) Paths {
	crowdin := branch + ".yaml"
	if custom != "" {
		crowdin = custom
	}
	return Paths{
		Crowdin:  filepath.Join(configDir, crowdin),
		Platform: filepath.Join(basePath, "platform_manifest", "default.xml"),
		AICP:     filepath.Join(basePath, "platform_manifest", "aicp_default.xml"),
		Extra:    filepath.Join(configDir, branch+"_extra_packages.xml"),
	}
}

// Check reports the first required file that does not exist.
func (p Paths) Check() error {
	for _, path := range []string{p.Platform, p.Extra, p.Crowdin} {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("required file not found: %s", path)
			}
			return err
		}
	}
	return nil
}
