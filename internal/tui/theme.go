package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
)

// ThemeEnv names a colors.toml file that overrides the user theme.
const ThemeEnv = "TASKHUB_THEME"

// ResolveTheme picks the palette used for styled output:
//  1. NO_COLOR set: NoColorTheme
//  2. TASKHUB_THEME: the named colors.toml
//  3. <config dir>/taskhub/theme/colors.toml
//  4. DefaultTheme
//
// The theme directory may be a symlink into a desktop theme system.
func ResolveTheme() Theme {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return NoColorTheme()
	}

	if path := os.Getenv(ThemeEnv); path != "" {
		if theme, err := LoadThemeFromFile(path); err == nil {
			return theme
		}
	}

	if theme, err := LoadUserTheme(); err == nil {
		return theme
	}

	return DefaultTheme()
}

// NoColorTheme returns a theme with empty colors. Lipgloss renders empty
// colors as plain text.
func NoColorTheme() Theme {
	empty := lipgloss.AdaptiveColor{}
	return Theme{
		Primary:    empty,
		Secondary:  empty,
		Success:    empty,
		Warning:    empty,
		Error:      empty,
		Muted:      empty,
		Background: empty,
		Foreground: empty,
		Border:     empty,
	}
}

// UserThemePath is where LoadUserTheme looks for colors.toml.
func UserThemePath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "taskhub", "theme", "colors.toml"), nil
}

// LoadUserTheme loads the theme from the user's config directory.
func LoadUserTheme() (Theme, error) {
	path, err := UserThemePath()
	if err != nil {
		return Theme{}, err
	}
	return LoadThemeFromFile(path)
}

// themeFile is the colors.toml layout. Top-level keys follow the terminal
// palette convention and feed the dark variants; the optional [light]
// table uses semantic names.
type themeFile struct {
	Palette map[string]string
	Light   map[string]string
}

// LoadThemeFromFile parses a colors.toml file and returns a Theme.
func LoadThemeFromFile(path string) (Theme, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from env or config dir
	if err != nil {
		return Theme{}, err
	}
	tf, err := parseThemeFile(data)
	if err != nil {
		return Theme{}, fmt.Errorf("theme %s: %w", path, err)
	}
	return tf.theme(), nil
}

func parseThemeFile(data []byte) (themeFile, error) {
	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return themeFile{}, err
	}

	tf := themeFile{Palette: map[string]string{}, Light: map[string]string{}}
	for key, val := range raw {
		switch v := val.(type) {
		case string:
			if isValidHexColor(v) {
				tf.Palette[key] = v
			}
		case map[string]any:
			if key != "light" {
				continue
			}
			for name, c := range v {
				if s, ok := c.(string); ok && isValidHexColor(s) {
					tf.Light[strings.ToLower(name)] = s
				}
			}
		}
	}
	return tf, nil
}

// isValidHexColor reports whether s is #RGB or #RRGGBB.
func isValidHexColor(s string) bool {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || (len(hex) != 3 && len(hex) != 6) {
		return false
	}
	for _, c := range hex {
		isDigit := c >= '0' && c <= '9'
		isLower := c >= 'a' && c <= 'f'
		isUpper := c >= 'A' && c <= 'F'
		if !isDigit && !isLower && !isUpper {
			return false
		}
	}
	return true
}

// theme maps palette names onto Theme slots:
//
//	accent, color4  Primary
//	color7          Secondary
//	color2          Success
//	color3          Warning
//	color1          Error
//	color8, color0  Muted, Border
//	background      Background
//	foreground      Foreground
func (tf themeFile) theme() Theme {
	defaults := DefaultTheme()

	dark := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := tf.Palette[k]; ok {
				return v
			}
		}
		return ""
	}
	color := func(slot string, def lipgloss.AdaptiveColor, keys ...string) lipgloss.AdaptiveColor {
		return lipgloss.AdaptiveColor{
			Light: getOrDefault(tf.Light[slot], def.Light),
			Dark:  getOrDefault(dark(keys...), def.Dark),
		}
	}

	return Theme{
		Primary:    color("primary", defaults.Primary, "accent", "color4"),
		Secondary:  color("secondary", defaults.Secondary, "color7"),
		Success:    color("success", defaults.Success, "color2"),
		Warning:    color("warning", defaults.Warning, "color3"),
		Error:      color("error", defaults.Error, "color1"),
		Muted:      color("muted", defaults.Muted, "color8", "color0"),
		Background: color("background", defaults.Background, "background"),
		Foreground: color("foreground", defaults.Foreground, "foreground"),
		Border:     color("border", defaults.Border, "color8", "color0"),
	}
}

func getOrDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}
