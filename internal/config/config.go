package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	MediaDir string `toml:"media_dir"`
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
}

// Downloads contains the caption acquisition policy.
type Downloads struct {
	// Subtitle is the comma-separated language policy: literal codes, "all",
	// regular expressions, and "-" prefixed exclusions. Empty disables captions.
	Subtitle string `toml:"subtitle"`
	// SubtitleSource is "user" (human-submitted only) or "auto" (fall back to
	// machine-generated captions for languages without a user track).
	SubtitleSource string `toml:"subtitle_source"`
	// SubtitleIndex enables pushing caption chunks to the search index.
	SubtitleIndex bool `toml:"subtitle_index"`
	// SleepInterval is the base courtesy delay between caption downloads in
	// seconds; the actual delay is randomized around it. 0 disables the delay.
	SleepInterval  int    `toml:"sleep_interval"`
	RequestTimeout int    `toml:"request_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// Index contains configuration for the full-text search index.
type Index struct {
	URL      string `toml:"url"`
	Name     string `toml:"name"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Timeout  int    `toml:"timeout"`
}

// Ownership contains the uid/gid applied to written caption files.
type Ownership struct {
	UID int `toml:"uid"`
	GID int `toml:"gid"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for subarchive.
//
// Configuration sections by subsystem:
//   - Paths: media archive, ledger data, and log directories
//   - Downloads: language policy, caption source, indexing toggle, throttling
//   - Index: search index endpoint and credentials
//   - Ownership: file ownership applied to written captions
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths     `toml:"paths"`
	Downloads Downloads `toml:"downloads"`
	Index     Index     `toml:"index"`
	Ownership Ownership `toml:"ownership"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("subarchive.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the CLI writes to.
// MediaDir is created on a best-effort basis so commands that only touch the
// ledger keep working while archive storage is offline.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.LockDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.MediaDir) != "" {
		_ = os.MkdirAll(c.Paths.MediaDir, 0o755)
	}
	return nil
}

// LedgerPath returns the SQLite database path recording persisted tracks.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.DataDir, "subarchive.db")
}

// LockDir returns the directory holding per-video advisory lock files.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.DataDir, "locks")
}

// PreferAuto reports whether machine-generated captions may fill languages
// without a human-submitted track.
func (c *Config) PreferAuto() bool {
	return c.Downloads.SubtitleSource == SourceAuto
}

// RequestTimeout returns the bounded timeout applied to caption downloads.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Downloads.RequestTimeout) * time.Second
}

// SleepInterval returns the base courtesy delay between caption downloads.
func (c *Config) SleepInterval() time.Duration {
	return time.Duration(c.Downloads.SleepInterval) * time.Second
}

// IndexTimeout returns the timeout applied to search index requests.
func (c *Config) IndexTimeout() time.Duration {
	return time.Duration(c.Index.Timeout) * time.Second
}

// HasOwnership reports whether written files should be chowned.
func (c *Config) HasOwnership() bool {
	return c.Ownership.UID > 0 && c.Ownership.GID > 0
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
