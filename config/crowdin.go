package config

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/aicp/crowdin-sync/langmeta"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// CrowdinFile is the part of a Crowdin CLI configuration file this tool reads.
// The Crowdin CLI itself reads the same file.
type CrowdinFile struct {
	ProjectID string `yaml:"project_id,omitempty"`
	// ProjectIDEnv names the variable the Crowdin CLI takes the project id from.
	ProjectIDEnv string `yaml:"project_id_env,omitempty"`
	// BasePath is relative to the checkout root (default ".").
	BasePath          string     `yaml:"base_path,omitempty"`
	PreserveHierarchy bool       `yaml:"preserve_hierarchy,omitempty"`
	Files             []FileSpec `yaml:"files"`
}

// FileSpec is one files[] entry: a source pattern and where its
// translations go.
type FileSpec struct {
	// Source is a glob relative to the base path, e.g.
	// /packages/apps/Settings/res/values/strings.xml or /**/res/values/*.xml.
	Source string `yaml:"source"`
	// Translation is the output template, e.g.
	// /%original_path%-%android_code%/%original_file_name%.
	Translation string `yaml:"translation"`
	// LanguagesMapping maps placeholder name to Crowdin language id to value.
	LanguagesMapping map[string]map[string]string `yaml:"languages_mapping,omitempty"`
}

// languagePlaceholders are the placeholders that make a translation path
// differ per language.
var languagePlaceholders = []string{
	"%android_code%",
	"%locale%",
	"%locale_with_underscore%",
	"%two_letters_code%",
	"%language%",
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadCrowdinFile loads and validates a Crowdin configuration file.
func LoadCrowdinFile(path string) (*CrowdinFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cf CrowdinFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if cf.BasePath == "" {
		cf.BasePath = "."
	}
	if len(cf.Files) == 0 {
		return nil, fmt.Errorf("%s: no files configured", path)
	}
	for i, f := range cf.Files {
		if f.Source == "" {
			return nil, fmt.Errorf("%s: files #%d has no source", path, i+1)
		}
		if f.Translation == "" {
			return nil, fmt.Errorf("%s: files #%d (%s) has no translation", path, i+1, f.Source)
		}
		if !hasLanguagePlaceholder(f.Translation) {
			return nil, fmt.Errorf("%s: translation %q of %s has no language placeholder", path, f.Translation, f.Source)
		}
		if _, err := glob.Compile(strings.TrimPrefix(f.Source, "/"), '/'); err != nil {
			return nil, fmt.Errorf("%s: invalid source pattern %q: %w", path, f.Source, err)
		}
	}
	return &cf, nil
}

func hasLanguagePlaceholder(s string) bool {
	for _, p := range languagePlaceholders {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// Root returns the absolute directory source patterns are relative to.
func (cf *CrowdinFile) Root(checkout string) string {
	if filepath.IsAbs(cf.BasePath) {
		return cf.BasePath
	}
	return filepath.Join(checkout, cf.BasePath)
}

// ---------------------------------------------------------------------------
// Path expansion
// ---------------------------------------------------------------------------

// AndroidCode returns the Android resource qualifier of a Crowdin language
// id, honouring languages_mapping.android_code.
func (f *FileSpec) AndroidCode(lang string) string {
	return langmeta.AndroidCode(lang, f.LanguagesMapping["android_code"])
}

// TranslationPath expands the translation template for a source file (as
// returned by Sources) and a Crowdin language id.
func (f *FileSpec) TranslationPath(source, lang string) string {
	source = "/" + strings.TrimPrefix(filepath.ToSlash(source), "/")
	dir, name := path.Split(source)
	ext := path.Ext(name)

	locale := f.mapped("locale", lang, lang)
	replacer := strings.NewReplacer(
		"%original_path%", strings.Trim(dir, "/"),
		"%original_file_name%", name,
		"%file_name%", strings.TrimSuffix(name, ext),
		"%file_extension%", strings.TrimPrefix(ext, "."),
		"%android_code%", f.AndroidCode(lang),
		"%locale%", locale,
		"%locale_with_underscore%", f.mapped("locale_with_underscore", lang, strings.ReplaceAll(lang, "-", "_")),
		"%two_letters_code%", f.mapped("two_letters_code", lang, langmeta.TwoLetters(lang)),
		"%language%", f.mapped("name", lang, langmeta.Resolve(lang).Name),
	)
	return path.Clean("/" + replacer.Replace(f.Translation))
}

func (f *FileSpec) mapped(placeholder, lang, fallback string) string {
	if v, ok := f.LanguagesMapping[placeholder][lang]; ok {
		return v
	}
	return fallback
}

// Sources returns the files under root matching the source pattern, as
// slash-separated paths with a leading slash, sorted.
func (f *FileSpec) Sources(root string) ([]string, error) {
	pattern := strings.TrimPrefix(f.Source, "/")
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid source pattern %q: %w", f.Source, err)
	}

	start := filepath.Join(root, filepath.FromSlash(staticPrefix(pattern)))
	if _, err := os.Stat(start); os.IsNotExist(err) {
		return nil, nil
	}

	var matches []string
	err = filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == ".repo" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if g.Match(rel) {
			matches = append(matches, "/"+rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// staticPrefix returns the leading directories of pattern that contain no
// glob syntax, so a walk can start below the checkout root.
func staticPrefix(pattern string) string {
	segments := strings.Split(pattern, "/")
	var prefix []string
	for _, seg := range segments[:len(segments)-1] {
		if strings.ContainsAny(seg, "*?[{\\") {
			break
		}
		prefix = append(prefix, seg)
	}
	return strings.Join(prefix, "/")
}
