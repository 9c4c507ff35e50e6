package charts

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang/freetype/truetype"
	"github.com/wcharczuk/go-chart/v2"

	"github.com/rmitchellscott/chartserver/internal/logging"
)

// DefaultFontFamily is the family bundled with go-chart.
const DefaultFontFamily = "Roboto"

// Registry holds the fonts and themes charts may reference by name. It is
// built once with NewRegistry and never modified afterwards, so one value can
// be shared by every request.
type Registry struct {
	fonts  map[string]*truetype.Font
	themes map[string]Theme
}

// RegistryOptions lists the extra sources loaded on top of the built-ins.
type RegistryOptions struct {
	// FontDirs are walked recursively for .ttf and .otf files.
	FontDirs []string
	// Themes maps a theme name to its JSON document.
	Themes map[string]string
}

// NewRegistry loads the default font, the built-in themes and everything
// listed in opts. Fonts and themes that fail to parse are logged and skipped;
// only a missing default font is fatal.
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	defaultFont, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("load default font: %w", err)
	}
	r := &Registry{
		fonts:  map[string]*truetype.Font{DefaultFontFamily: defaultFont},
		themes: builtinThemes(),
	}

	for _, dir := range opts.FontDirs {
		r.loadFontDir(dir)
	}

	light := r.themes[ThemeLight]
	for _, name := range sortedKeys(opts.Themes) {
		theme, err := ParseTheme(light, []byte(opts.Themes[name]))
		if err != nil {
			logging.WarnWithComponent(logging.ComponentThemes, "Skipping theme", "theme", name, "error", err)
			continue
		}
		r.themes[strings.ToLower(name)] = theme
	}
	return r, nil
}

func (r *Registry) loadFontDir(dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".ttf" && ext != ".otf" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logging.WarnWithComponent(logging.ComponentFonts, "Skipping font", "path", path, "error", err)
			return nil
		}
		f, err := truetype.Parse(data)
		if err != nil {
			logging.WarnWithComponent(logging.ComponentFonts, "Skipping font", "path", path, "error", err)
			return nil
		}
		family := f.Name(truetype.NameIDFontFamily)
		if family == "" {
			family = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		if _, exists := r.fonts[family]; exists {
			logging.DebugWithComponent(logging.ComponentFonts, "Font family already loaded", "family", family, "path", path)
			return nil
		}
		r.fonts[family] = f
		return nil
	})
	if err != nil {
		logging.WarnWithComponent(logging.ComponentFonts, "Failed to scan font directory", "dir", dir, "error", err)
	}
}

// Font returns the font for family, falling back to the default family.
func (r *Registry) Font(family string) *truetype.Font {
	if f, ok := r.fonts[family]; ok {
		return f
	}
	return r.fonts[DefaultFontFamily]
}

// HasFont reports whether family was loaded.
func (r *Registry) HasFont(family string) bool {
	_, ok := r.fonts[family]
	return ok
}

// Theme returns the named theme, falling back to light.
func (r *Registry) Theme(name string) Theme {
	if t, ok := r.themes[strings.ToLower(name)]; ok {
		return t
	}
	return r.themes[ThemeLight]
}

// Families lists the loaded font families, sorted.
func (r *Registry) Families() []string {
	return sortedKeys(r.fonts)
}

// ThemeNames lists the registered themes, sorted.
func (r *Registry) ThemeNames() []string {
	return sortedKeys(r.themes)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
