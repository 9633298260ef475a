package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoadEnvDefaults(t *testing.T) {
	e, err := loadEnv(map[string]string{})
	if err != nil {
		t.Fatalf("loadEnv: %v", err)
	}
	want := Env{
		CLI:           "crowdin",
		GerritHost:    "gerrit.aicp-rom.com",
		GerritPort:    29418,
		CommitMessage: DefaultCommitMessage,
	}
	if e != want {
		t.Fatalf("loadEnv() = %#v, want %#v", e, want)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	e, err := loadEnv(map[string]string{
		"AICP_CROWDIN_PROJECT_ID":  "aicp",
		"AICP_CROWDIN_CLI":         "/opt/crowdin/bin/crowdin",
		"AICP_CROWDIN_GERRIT_PORT": "2222",
		"CROWDIN_PROJECT_ID":       "ignored",
	})
	if err != nil {
		t.Fatalf("loadEnv: %v", err)
	}
	if e.ProjectID != "aicp" || e.CLI != "/opt/crowdin/bin/crowdin" || e.GerritPort != 2222 {
		t.Fatalf("unexpected env: %#v", e)
	}

	if _, err := loadEnv(map[string]string{"AICP_CROWDIN_GERRIT_PORT": "http"}); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
	if _, err := loadEnv(map[string]string{"AICP_CROWDIN_GERRIT_PORT": "0"}); err == nil {
		t.Fatal("expected error for port 0")
	}
}

func TestBasePathEnvName(t *testing.T) {
	if got := BasePathEnvName("s12.1"); got != "AICP_CROWDIN_BASE_PATH_s12_1" {
		t.Fatalf("BasePathEnvName = %q", got)
	}
}

func TestResolveBasePath(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(BasePathEnvName("r11.1"), dir)
		bp, err := ResolveBasePath("r11.1")
		if err != nil {
			t.Fatalf("ResolveBasePath: %v", err)
		}
		if bp.Dir != dir || bp.Defaulted {
			t.Fatalf("unexpected base path: %#v", bp)
		}
	})

	t.Run("defaults to working directory", func(t *testing.T) {
		bp, err := ResolveBasePath("no.such.branch.set")
		if err != nil {
			t.Fatalf("ResolveBasePath: %v", err)
		}
		cwd, _ := os.Getwd()
		if bp.Dir != cwd || !bp.Defaulted {
			t.Fatalf("unexpected base path: %#v", bp)
		}
	})

	t.Run("not a directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, nil, 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		t.Setenv(BasePathEnvName("q10.0"), file)
		if _, err := ResolveBasePath("q10.0"); err == nil {
			t.Fatal("expected error for non-directory base path")
		}
	})
}

func TestPaths(t *testing.T) {
	p := NewPaths("/aicp", "config", "s12.1", "")
	want := Paths{
		Crowdin:  filepath.Join("config", "s12.1.yaml"),
		Platform: filepath.Join("/aicp", "platform_manifest", "default.xml"),
		AICP:     filepath.Join("/aicp", "platform_manifest", "aicp_default.xml"),
		Extra:    filepath.Join("config", "s12.1_extra_packages.xml"),
	}
	if p != want {
		t.Fatalf("NewPaths() = %#v, want %#v", p, want)
	}

	custom := NewPaths("/aicp", "config", "s12.1", "aicp_extras.yaml")
	if custom.Crowdin != filepath.Join("config", "aicp_extras.yaml") {
		t.Fatalf("custom Crowdin path = %q", custom.Crowdin)
	}
}

func TestPathsCheck(t *testing.T) {
	root := t.TempDir()
	configDir := filepath.Join(root, "config")
	p := NewPaths(root, configDir, "s12.1", "")

	err := p.Check()
	if err == nil || !strings.Contains(err.Error(), "default.xml") {
		t.Fatalf("Check() = %v, want missing default.xml", err)
	}

	for _, f := range []string{p.Platform, p.Extra, p.Crowdin} {
		if err := os.MkdirAll(filepath.Dir(f), 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(f, []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	if err := p.Check(); err != nil {
		t.Fatalf("Check() with all files = %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadCrowdinFileDefaultsAndValidation(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "s12.1.yaml")
		writeFile(t, path, `project_id_env: AICP_CROWDIN_PROJECT_ID
preserve_hierarchy: true
files:
  - source: /packages/apps/Settings/res/values/strings.xml
    translation: /%original_path%-%android_code%/%original_file_name%
    languages_mapping:
      android_code:
        es-ES: es
`)
		cf, err := LoadCrowdinFile(path)
		if err != nil {
			t.Fatalf("LoadCrowdinFile: %v", err)
		}
		if cf.BasePath != "." || !cf.PreserveHierarchy || len(cf.Files) != 1 {
			t.Fatalf("unexpected file: %#v", cf)
		}
		if got := cf.Files[0].AndroidCode("es-ES"); got != "es" {
			t.Fatalf("AndroidCode(es-ES) = %q, want es", got)
		}
	})

	invalid := map[string]string{
		"no files":       "project_id: x\n",
		"no source":      "files:\n  - translation: /%android_code%/a.xml\n",
		"no translation": "files:\n  - source: /a.xml\n",
		"no placeholder": "files:\n  - source: /a.xml\n    translation: /b.xml\n",
		"bad yaml":       "files: [",
	}
	for name, content := range invalid {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".yaml")
			writeFile(t, path, content)
			if _, err := LoadCrowdinFile(path); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}

	t.Run("missing", func(t *testing.T) {
		if _, err := LoadCrowdinFile(filepath.Join(dir, "absent.yaml")); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

func TestTranslationPath(t *testing.T) {
	f := FileSpec{
		Translation: "/%original_path%-%android_code%/%original_file_name%",
		LanguagesMapping: map[string]map[string]string{
			"android_code": {"es-ES": "es"},
		},
	}
	tests := []struct {
		source string
		lang   string
		want   string
	}{
		{"/packages/apps/Settings/res/values/strings.xml", "pt-BR", "/packages/apps/Settings/res/values-pt-rBR/strings.xml"},
		{"packages/apps/Settings/res/values/arrays.xml", "es-ES", "/packages/apps/Settings/res/values-es/arrays.xml"},
		{"/frameworks/base/core/res/res/values/strings.xml", "ru", "/frameworks/base/core/res/res/values-ru/strings.xml"},
	}
	for _, tc := range tests {
		if got := f.TranslationPath(tc.source, tc.lang); got != tc.want {
			t.Errorf("TranslationPath(%q, %q) = %q, want %q", tc.source, tc.lang, got, tc.want)
		}
	}

	other := FileSpec{Translation: "/translations/%two_letters_code%/%file_name%.%locale_with_underscore%.%file_extension%"}
	if got := other.TranslationPath("/docs/intro.md", "pt-BR"); got != "/translations/pt/intro.pt_BR.md" {
		t.Errorf("TranslationPath(other) = %q", got)
	}
}

func TestSources(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{
		"packages/apps/Settings/res/values/strings.xml",
		"packages/apps/Settings/res/values/arrays.xml",
		"packages/apps/Settings/res/values-de/strings.xml",
		"packages/apps/Updater/res/values/strings.xml",
		"packages/apps/Updater/.git/res/values/strings.xml",
		"frameworks/base/core/res/res/values/strings.xml",
	} {
		writeFile(t, filepath.Join(root, f), "<resources/>")
	}

	tests := []struct {
		source string
		want   []string
	}{
		{
			source: "/packages/apps/*/res/values/strings.xml",
			want: []string{
				"/packages/apps/Settings/res/values/strings.xml",
				"/packages/apps/Updater/res/values/strings.xml",
			},
		},
		{
			source: "/packages/apps/Settings/res/values/*.xml",
			want: []string{
				"/packages/apps/Settings/res/values/arrays.xml",
				"/packages/apps/Settings/res/values/strings.xml",
			},
		},
		{
			source: "/**/res/values/strings.xml",
			want: []string{
				"/frameworks/base/core/res/res/values/strings.xml",
				"/packages/apps/Settings/res/values/strings.xml",
				"/packages/apps/Updater/res/values/strings.xml",
			},
		},
		{
			source: "/vendor/aicp/res/values/strings.xml",
			want:   nil,
		},
	}
	for _, tc := range tests {
		f := FileSpec{Source: tc.source}
		got, err := f.Sources(root)
		if err != nil {
			t.Fatalf("Sources(%q): %v", tc.source, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Sources(%q) = %v, want %v", tc.source, got, tc.want)
		}
	}
}

func TestStaticPrefix(t *testing.T) {
	cases := map[string]string{
		"packages/apps/*/res/values/strings.xml": "packages/apps",
		"**/res/values/strings.xml":              "",
		"a/b/c.xml":                              "a/b",
	}
	for in, want := range cases {
		if got := staticPrefix(in); got != want {
			t.Errorf("staticPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
