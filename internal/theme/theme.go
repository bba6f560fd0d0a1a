package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// importPattern matches @import "a.css"; @import 'a.css'; and @import url("a.css");
var importPattern = regexp.MustCompile(`@import\s+(?:url\s*\(\s*)?["']([^"']+)["']\s*\)?;?`)

// Theme is a resolved stylesheet.
type Theme struct {
	Name    string
	Path    string // Empty for bundled themes
	CSS     string
	Bundled bool
}

// Dir returns the user's themes directory.
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "reqhud", "themes"), nil
}

// Resolve finds a theme by name: first <dir>/<name>.css, then the bundled
// themes, then the bundled default. It never fails for a bundled fallback;
// the returned error reports why the requested theme was not used.
func Resolve(name, dir string) (*Theme, error) {
	if name == "" {
		name = DefaultThemeName
	}

	var userErr error
	if dir != "" {
		file := filepath.Join(dir, name+".css")
		data, err := os.ReadFile(file)
		switch {
		case err == nil:
			return &Theme{
				Name: name,
				Path: file,
				CSS:  Inline(string(data), filepath.Dir(file)),
			}, nil
		case !os.IsNotExist(err):
			userErr = fmt.Errorf("failed to read theme %s: %w", file, err)
		}
	}

	if css, ok := EmbeddedTheme(name); ok {
		return &Theme{Name: name, CSS: Inline(css, ""), Bundled: true}, userErr
	}

	css, _ := EmbeddedTheme(DefaultThemeName)
	fallback := &Theme{Name: DefaultThemeName, CSS: Inline(css, ""), Bundled: true}
	if userErr == nil {
		userErr = fmt.Errorf("theme %q not found", name)
	}
	return fallback, userErr
}

// Inline replaces @import rules with the imported stylesheet. Relative
// imports resolve against baseDir, falling back to bundled files. Each file
// is inlined at most once.
func Inline(css, baseDir string) string {
	return inline(css, baseDir, make(map[string]bool))
}

func inline(css, baseDir string, seen map[string]bool) string {
	return importPattern.ReplaceAllStringFunc(css, func(rule string) string {
		m := importPattern.FindStringSubmatch(rule)
		if len(m) < 2 {
			return rule
		}
		ref := m[1]

		file := ref
		if !filepath.IsAbs(file) && baseDir != "" {
			file = filepath.Join(baseDir, ref)
		}
		key := file
		if baseDir == "" && !filepath.IsAbs(ref) {
			key = "embedded:" + ref
		}
		if seen[key] {
			return "/* skipped repeated import: " + ref + " */"
		}
		seen[key] = true

		if baseDir != "" || filepath.IsAbs(ref) {
			if data, err := os.ReadFile(file); err == nil {
				return "/* " + ref + " */\n" + inline(string(data), filepath.Dir(file), seen)
			}
		}

		if data, ok := Embedded(filepath.Base(ref)); ok {
			return "/* " + ref + " (bundled) */\n" + inline(data, "", seen)
		}
		return "/* import not found: " + ref + " */"
	})
}

// Available lists bundled and user theme names, sorted and deduplicated.
func Available(dir string) []string {
	set := make(map[string]struct{})
	for _, name := range EmbeddedNames() {
		set[name] = struct{}{}
	}

	if dir != "" {
		entries, _ := os.ReadDir(dir)
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || strings.HasPrefix(name, "_") || filepath.Ext(name) != ".css" {
				continue
			}
			set[strings.TrimSuffix(name, ".css")] = struct{}{}
		}
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
