package theme

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed themes/*.css
var embeddedThemes embed.FS

// DefaultThemeName is the name of the built-in default theme.
const DefaultThemeName = "default"

// Embedded returns a bundled theme or partial by file name, e.g.
// "default.css" or "_base.css".
func Embedded(file string) (string, bool) {
	data, err := embeddedThemes.ReadFile(path.Join("themes", file))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// EmbeddedTheme returns a bundled theme by name.
func EmbeddedTheme(name string) (string, bool) {
	if name == "" || strings.HasPrefix(name, "_") {
		return "", false
	}
	return Embedded(name + ".css")
}

// EmbeddedNames lists bundled themes, excluding partials.
func EmbeddedNames() []string {
	entries, err := fs.ReadDir(embeddedThemes, "themes")
	if err != nil {
		return []string{DefaultThemeName}
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") || path.Ext(name) != ".css" {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".css"))
	}
	sort.Strings(names)
	return names
}
