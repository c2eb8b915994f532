// Package config loads the editor configuration: editor, terminal and
// keyboard preferences plus the settings of the workspace engine itself.
//
// The file is YAML. A missing file is created with the defaults so users
// have something to edit. Unknown keys are rejected and enumerated
// options are checked by [Config.Validate].
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/lexandro/workspace-mcp/persist"
)

// Editor themes.
const (
	ThemeDark         = "vs-dark"
	ThemeLight        = "vs-light"
	ThemeHighContrast = "hc-black"
)

// Vim modes.
const (
	VimNormal = "normal"
	VimInsert = "insert"
)

var (
	themes    = []string{ThemeDark, ThemeLight, ThemeHighContrast}
	vimModes  = []string{VimNormal, VimInsert}
	modifiers = []string{"ctrl", "alt", "shift", "meta"}
)

type Config struct {
	Editor      EditorConfig      `yaml:"editor"`
	Terminal    TerminalConfig    `yaml:"terminal"`
	Keyboard    KeyboardConfig    `yaml:"keyboard"`
	Tree        TreeConfig        `yaml:"tree"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Search      SearchConfig      `yaml:"search"`
}

type EditorConfig struct {
	Theme         string    `yaml:"theme"`
	FontSize      int       `yaml:"fontSize"`
	TabSize       int       `yaml:"tabSize"`
	WordWrap      bool      `yaml:"wordWrap"`
	LineNumbers   bool      `yaml:"lineNumbers"`
	RelativeLines bool      `yaml:"relativeLines"`
	Minimap       bool      `yaml:"minimap"`
	StickyScroll  bool      `yaml:"stickyScroll"`
	Vim           VimConfig `yaml:"vim"`
}

type VimConfig struct {
	Enabled     bool   `yaml:"enabled"`
	DefaultMode string `yaml:"defaultMode"`
}

type TerminalConfig struct {
	// DefaultShell is preferred over the other available shells. Empty
	// means the system default.
	DefaultShell string        `yaml:"defaultShell"`
	FontSize     int           `yaml:"fontSize"`
	FontFamily   string        `yaml:"fontFamily"`
	Theme        TerminalTheme `yaml:"theme"`
}

type TerminalTheme struct {
	Background          string `yaml:"background"`
	Foreground          string `yaml:"foreground"`
	Cursor              string `yaml:"cursor"`
	SelectionBackground string `yaml:"selectionBackground"`
	SelectionForeground string `yaml:"selectionForeground"`
}

type KeyboardConfig struct {
	CustomBindings map[string]KeyBinding `yaml:"customBindings"`
}

// KeyBinding maps an editor action to a key chord.
type KeyBinding struct {
	Key       string   `yaml:"key"`
	Modifiers []string `yaml:"modifiers"`
}

type TreeConfig struct {
	Excludes         []string `yaml:"excludes"`
	RespectGitignore bool     `yaml:"respectGitignore"`
	// MaxFileSize is the largest file, in bytes, that is opened or indexed.
	MaxFileSize int64 `yaml:"maxFileSize"`
}

type PersistenceConfig struct {
	Compression string `yaml:"compression"`
}

type SearchConfig struct {
	MaxResults int `yaml:"maxResults"`
}

// Default returns the configuration written to a new config file.
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			Theme:       ThemeDark,
			FontSize:    14,
			TabSize:     4,
			WordWrap:    true,
			LineNumbers: true,
			Vim:         VimConfig{DefaultMode: VimNormal},
		},
		Terminal: TerminalConfig{
			FontSize:   14,
			FontFamily: "monospace",
			Theme: TerminalTheme{
				Background:          "#181818",
				Foreground:          "#c5c8c6",
				Cursor:              "#528bff",
				SelectionBackground: "#3e4451",
				SelectionForeground: "#d1d5db",
			},
		},
		Keyboard: KeyboardConfig{CustomBindings: map[string]KeyBinding{}},
		Tree: TreeConfig{
			RespectGitignore: true,
			MaxFileSize:      1024 * 1024,
		},
		Persistence: PersistenceConfig{Compression: string(persist.CompressionZstd)},
		Search:      SearchConfig{MaxResults: 50},
	}
}

// DefaultPath returns ~/.workspace-mcp/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".workspace-mcp", "config.yaml"), nil
}

// Load reads the config file at path, creating it with the defaults when it
// does not exist. The result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		if err := cfg.Write(path); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. An empty
// document yields the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if cfg.Keyboard.CustomBindings == nil {
		cfg.Keyboard.CustomBindings = map[string]KeyBinding{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write stores the configuration at path, creating parent directories.
func (c *Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return persist.WriteFileAtomic(path, data, 0o644)
}

// Validate checks enumerated options and numeric ranges.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(themes, c.Editor.Theme) {
		errs = append(errs, fmt.Errorf("editor.theme must be one of: %v", themes))
	}
	if !slices.Contains(vimModes, c.Editor.Vim.DefaultMode) {
		errs = append(errs, fmt.Errorf("editor.vim.defaultMode must be one of: %v", vimModes))
	}
	if c.Editor.FontSize <= 0 {
		errs = append(errs, fmt.Errorf("editor.fontSize must be positive"))
	}
	if c.Editor.TabSize <= 0 {
		errs = append(errs, fmt.Errorf("editor.tabSize must be positive"))
	}
	if c.Terminal.FontSize <= 0 {
		errs = append(errs, fmt.Errorf("terminal.fontSize must be positive"))
	}
	for action, binding := range c.Keyboard.CustomBindings {
		if binding.Key == "" {
			errs = append(errs, fmt.Errorf("keyboard.customBindings.%s.key is required", action))
		}
		for _, m := range binding.Modifiers {
			if !slices.Contains(modifiers, m) {
				errs = append(errs, fmt.Errorf("keyboard.customBindings.%s: modifier %q must be one of: %v", action, m, modifiers))
			}
		}
	}
	if c.Tree.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("tree.maxFileSize must not be negative"))
	}
	if _, err := persist.ParseCompression(c.Persistence.Compression); err != nil {
		errs = append(errs, fmt.Errorf("persistence.compression: %w", err))
	}
	if c.Search.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("search.maxResults must be positive"))
	}

	return errors.Join(errs...)
}
