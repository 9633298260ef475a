package android

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DetectLanguages scans an Android res/ directory for values-XX/ directories
// that contain the named resource file and returns the language codes.
func DetectLanguages(resDir, fileName string) []string {
	entries, err := os.ReadDir(resDir)
	if err != nil {
		return nil
	}

	var langs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "values-") {
			continue
		}
		lang := strings.TrimPrefix(name, "values-")
		if lang == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(resDir, name, fileName)); err == nil {
			langs = append(langs, AndroidLocaleToStandard(lang))
		}
	}
	sort.Strings(langs)
	return langs
}

// AndroidLocaleDirName converts a standard language code to an Android
// values directory name (e.g., "pt-BR" -> "values-pt-rBR", "ru" -> "values-ru").
func AndroidLocaleDirName(lang string) string {
	return "values-" + StandardToAndroidLocale(lang)
}

// ResourcePath returns the path of a resource file for a given language.
func ResourcePath(resDir, lang, fileName string) string {
	return filepath.Join(resDir, AndroidLocaleDirName(lang), fileName)
}

// AndroidLocaleToStandard converts Android locale format to standard BCP-47.
// e.g., "pt-rBR" -> "pt-BR", "zh-rCN" -> "zh-CN", "ru" -> "ru"
func AndroidLocaleToStandard(androidLocale string) string {
	if idx := strings.Index(androidLocale, "-r"); idx >= 0 {
		return androidLocale[:idx] + "-" + androidLocale[idx+2:]
	}
	return androidLocale
}

// StandardToAndroidLocale converts standard BCP-47 to Android locale format.
// e.g., "pt-BR" -> "pt-rBR", "zh-CN" -> "zh-rCN", "ru" -> "ru"
func StandardToAndroidLocale(lang string) string {
	parts := strings.SplitN(lang, "-", 2)
	if len(parts) == 2 && len(parts[1]) > 0 {
		return parts[0] + "-r" + parts[1]
	}
	return lang
}
