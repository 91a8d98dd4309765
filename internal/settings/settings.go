// Package settings provides runner preference management using Viper.
// Preferences shape how latch behaves (parallelism, color, cache
// location); the hook pipeline itself lives in the config package.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Settings holds all preference values for latch.
type Settings struct {
	Jobs        int    `mapstructure:"jobs" yaml:"jobs"`
	Color       string `mapstructure:"color" yaml:"color"`
	CacheDir    string `mapstructure:"cache_dir" yaml:"cache_dir"`
	TUI         bool   `mapstructure:"tui" yaml:"tui"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	HooksConfig string `mapstructure:"hooks_config" yaml:"hooks_config"`
}

// Load loads preferences with full precedence:
// CLI flags > ENV vars > project config > XDG global config > defaults
func Load() (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("latch")

	// Defaults; jobs 0 means one worker per CPU.
	v.SetDefault("jobs", 0)
	v.SetDefault("color", "auto")
	v.SetDefault("cache_dir", DefaultCacheDir())
	v.SetDefault("tui", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("hooks_config", "")

	// Setup ENV binding with LATCH_ prefix
	v.SetEnvPrefix("LATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Explicit ENV bindings for better bool/int parsing
	if err := v.BindEnv("jobs", "LATCH_JOBS"); err != nil {
		return nil, fmt.Errorf("binding jobs env: %w", err)
	}
	if err := v.BindEnv("color", "LATCH_COLOR"); err != nil {
		return nil, fmt.Errorf("binding color env: %w", err)
	}
	if err := v.BindEnv("cache_dir", "LATCH_CACHE_DIR"); err != nil {
		return nil, fmt.Errorf("binding cache_dir env: %w", err)
	}
	if err := v.BindEnv("tui", "LATCH_TUI"); err != nil {
		return nil, fmt.Errorf("binding tui env: %w", err)
	}
	if err := v.BindEnv("log_level", "LATCH_LOG_LEVEL"); err != nil {
		return nil, fmt.Errorf("binding log_level env: %w", err)
	}
	if err := v.BindEnv("log_file", "LATCH_LOG_FILE"); err != nil {
		return nil, fmt.Errorf("binding log_file env: %w", err)
	}
	if err := v.BindEnv("hooks_config", "LATCH_HOOKS_CONFIG"); err != nil {
		return nil, fmt.Errorf("binding hooks_config env: %w", err)
	}

	// Load global config first (if exists)
	globalPath := GlobalPath()
	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	// Merge project config on top (if exists)
	projectPath := ProjectPath()
	if fileExists(projectPath) {
		// Need to set config file explicitly for merge
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshaling settings: %w", err)
	}

	if err := validateColor(s.Color); err != nil {
		return nil, err
	}

	return &s, nil
}

func validateColor(mode string) error {
	switch mode {
	case "auto", "always", "never":
		return nil
	default:
		return fmt.Errorf("invalid color mode %q (expected auto, always or never)", mode)
	}
}

// Exists returns true if any settings file exists (global or project).
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// GlobalPath returns the XDG global settings path.
// Returns ~/.config/latch/latch.yml or $XDG_CONFIG_HOME/latch/latch.yml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "latch", "latch.yml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "latch", "latch.yml")
}

// ProjectPath returns the project-local settings path.
// Returns ./latch.yml in the current working directory.
func ProjectPath() string {
	return "latch.yml"
}

// DefaultCacheDir returns the XDG cache location for clones, the run
// journal and working-tree patches.
func DefaultCacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "latch")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "latch")
}

// WriteGlobal writes the settings to the XDG global location.
func WriteGlobal(s *Settings) error {
	path := GlobalPath()

	// Create parent directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	// Marshal to YAML
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	// Write file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}

	return nil
}

// WriteProject writes the settings to the project-local location.
func WriteProject(s *Settings) error {
	path := ProjectPath()

	// Marshal to YAML
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	// Write file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
