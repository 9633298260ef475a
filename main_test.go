package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/aicp/crowdin-sync/crowdin"
	"github.com/aicp/crowdin-sync/settings"
)

func TestExitStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitOK},
		{"plain error", errors.New("boom"), exitFailure},
		{"nothing to do", nothingToDo(), exitNothingToDo},
		{"configuration", configError("missing %s", "file"), exitFailure},
		{"crowdin status", toolError(&crowdin.ExitError{Command: "download", Code: 4}), 4},
		{"crowdin killed", toolError(&crowdin.ExitError{Command: "download", Code: -1}), exitFailure},
		{"wrapped crowdin status", toolError(fmt.Errorf("x: %w", &crowdin.ExitError{Code: 2})), 2},
		{"interrupted", toolError(errInterrupted), exitInterrupted},
	}
	for _, tc := range tests {
		if got := exitStatus(tc.err); got != tc.want {
			t.Errorf("%s: exitStatus() = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestCheckInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	boom := errors.New("boom")
	if got := checkInterrupted(ctx, boom); got != boom {
		t.Fatalf("checkInterrupted(live) = %v, want %v", got, boom)
	}
	cancel()
	if got := checkInterrupted(ctx, boom); !errors.Is(got, errInterrupted) {
		t.Fatalf("checkInterrupted(canceled) = %v, want errInterrupted", got)
	}
}

func TestRootRequiresBranch(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--download"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "branch") {
		t.Fatalf("Execute() without --branch = %v, want required flag error", err)
	}
}

func TestSubmitRequiresUsername(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	err := runSync(syncArgs{branch: "s12.1", submit: true})
	if exitStatus(err) != exitFailure || !strings.Contains(err.Error(), "username") {
		t.Fatalf("runSync(--submit) without username = %v", err)
	}
}

func TestRunClean(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		return path
	}

	dirty := write("dirty.xml", "<resources>\n<!-- nested -->\n<string name=\"a\">A</string>\n</resources>\n")
	empty := write("empty.xml", "<resources>\n<!-- nothing -->\n</resources>\n")

	if err := runClean([]string{dirty, empty, filepath.Join(dir, "absent.xml")}, false); err != nil {
		t.Fatalf("runClean() = %v", err)
	}
	got, err := os.ReadFile(dirty)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if want := "<resources>\n    <string name=\"a\">A</string>\n</resources>\n"; string(got) != want {
		t.Fatalf("cleaned content = %q, want %q", got, want)
	}
	if _, err := os.Stat(empty); !os.IsNotExist(err) {
		t.Fatalf("empty document should be removed, stat err = %v", err)
	}

	broken := write("broken.xml", "<resources><string>")
	err = runClean([]string{broken}, false)
	if exitStatus(err) != exitFailure {
		t.Fatalf("runClean(malformed) = %v, want failure", err)
	}
	if data, _ := os.ReadFile(broken); string(data) != "<resources><string>" {
		t.Fatalf("malformed file modified: %q", data)
	}
}

func TestRunStatus(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	var out bytes.Buffer
	if err := runStatus(&out, ""); err != nil {
		t.Fatalf("runStatus() on empty state = %v", err)
	}
	if !strings.Contains(out.String(), filepath.Join(tmp, "crowdin-sync", "state.json")) {
		t.Fatalf("status output lacks state file path:\n%s", out.String())
	}

	if err := settings.SetUsername("s12.1", "alice"); err != nil {
		t.Fatalf("SetUsername: %v", err)
	}
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := settings.RecordRun("s12.1", at, 4); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := settings.SetUsername("r11.1", "bob"); err != nil {
		t.Fatalf("SetUsername: %v", err)
	}

	out.Reset()
	if err := runStatus(&out, "s12.1"); err != nil {
		t.Fatalf("runStatus() = %v", err)
	}
	got := out.String()
	for _, want := range []string{"s12.1", "alice", at.Local().Format(time.DateTime), "4 committed"} {
		if !strings.Contains(got, want) {
			t.Errorf("status output lacks %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "bob") {
		t.Errorf("status --branch s12.1 shows other branches:\n%s", got)
	}

	out.Reset()
	if err := runStatus(&out, ""); err != nil {
		t.Fatalf("runStatus() = %v", err)
	}
	if got := out.String(); !strings.Contains(got, "never") || strings.Index(got, "r11.1") > strings.Index(got, "s12.1") {
		t.Errorf("status output for all branches:\n%s", got)
	}
}

// ---------------------------------------------------------------------------
// End to end: fake Crowdin CLI, real git
// ---------------------------------------------------------------------------

const fakeCrowdin = `#!/bin/sh
case "$1 $2" in
"download "*)
	mkdir -p '@BASE@/packages/apps/Settings/res/values-de'
	printf '<?xml version="1.0" encoding="utf-8"?>\n<!-- Copyright -->\n<resources>\n<!-- nested -->\n<string name="title">Titel</string>\n<string name="only_tablet" product="tablet">Tablet</string>\n</resources>\n' > '@BASE@/packages/apps/Settings/res/values-de/strings.xml'
	mkdir -p '@BASE@/packages/apps/Settings/res/values-fr'
	printf '<resources>\n</resources>\n' > '@BASE@/packages/apps/Settings/res/values-fr/strings.xml'
	;;
"list translations")
	echo /packages/apps/Settings/res/values-de/strings.xml
	echo /packages/apps/Settings/res/values-fr/strings.xml
	echo /packages/apps/Settings/res/values-it/strings.xml
	;;
"list project")
	echo /s12.1/packages/apps/Settings/res/values-de/strings.xml
	echo /s12.1/packages/apps/Settings/res/values-fr/strings.xml
	echo /s12.1/misc/strings.xml
	;;
esac
`

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestSyncDownloadEndToEnd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake Crowdin CLI is a shell script")
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	for k, v := range map[string]string{
		"GIT_CONFIG_GLOBAL":   os.DevNull,
		"GIT_CONFIG_NOSYSTEM": "1",
		"GIT_AUTHOR_NAME":     "Translation Bot",
		"GIT_AUTHOR_EMAIL":    "bot@example.org",
		"GIT_COMMITTER_NAME":  "Translation Bot",
		"GIT_COMMITTER_EMAIL": "bot@example.org",
		"XDG_DATA_HOME":       t.TempDir(),
	} {
		t.Setenv(k, v)
	}

	base := t.TempDir()
	configDir := t.TempDir()
	remotes := t.TempDir()
	tools := t.TempDir()

	project := filepath.Join(base, "packages/apps/Settings")
	writeTestFile(t, filepath.Join(project, "res/values/strings.xml"), "<resources><string name=\"title\">Title</string></resources>\n")
	git(t, project, "init", "-q")
	git(t, project, "add", "-A")
	git(t, project, "commit", "-q", "-m", "initial")

	bare := filepath.Join(remotes, "AICP/packages_apps_Settings")
	if err := os.MkdirAll(bare, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	git(t, bare, "init", "-q", "--bare")

	writeTestFile(t, filepath.Join(base, "platform_manifest/default.xml"),
		`<manifest><project path="packages/apps/Settings" name="AICP/packages_apps_Settings"/></manifest>`)
	writeTestFile(t, filepath.Join(configDir, "s12.1_extra_packages.xml"), `<manifest/>`)
	writeTestFile(t, filepath.Join(configDir, "s12.1.yaml"), `files:
  - source: /packages/apps/Settings/res/values/strings.xml
    translation: /%original_path%-%android_code%/%original_file_name%
`)

	cli := filepath.Join(tools, "crowdin")
	writeTestFile(t, cli, strings.ReplaceAll(fakeCrowdin, "@BASE@", base))
	if err := os.Chmod(cli, 0755); err != nil {
		t.Fatalf("Chmod: %v", err)
	}

	t.Setenv("AICP_CROWDIN_CLI", cli)
	t.Setenv("AICP_CROWDIN_PUSH_URL", remotes)
	t.Setenv("AICP_CROWDIN_BASE_PATH_s12_1", base)

	args := syncArgs{branch: "s12.1", configDir: configDir, username: "alice", download: true}
	if err := runSync(args); err != nil {
		t.Fatalf("runSync() = %v", err)
	}

	de, err := os.ReadFile(filepath.Join(project, "res/values-de/strings.xml"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	wantDE := "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<!-- Copyright -->\n<resources>\n    <string name=\"title\">Titel</string>\n</resources>\n"
	if string(de) != wantDE {
		t.Fatalf("cleaned values-de = %q, want %q", de, wantDE)
	}
	if _, err := os.Stat(filepath.Join(project, "res/values-fr/strings.xml")); !os.IsNotExist(err) {
		t.Fatalf("empty values-fr should be removed, stat err = %v", err)
	}

	if got := git(t, project, "log", "-1", "--format=%s"); got != "Automatic AICP translation import" {
		t.Fatalf("last commit = %q", got)
	}
	if got := git(t, bare, "for-each-ref", "--format=%(refname)"); got != "refs/for/s12.1%topic=Translations-s12.1" {
		t.Fatalf("pushed refs = %q", got)
	}
	if got := settings.Username("s12.1"); got != "alice" {
		t.Fatalf("saved username = %q, want alice", got)
	}

	// Nothing changed since: the saved username is used and the run is idle.
	args.username = ""
	if err := runSync(args); exitStatus(err) != exitNothingToDo {
		t.Fatalf("second runSync() = %v, want nothing to do", err)
	}
}
