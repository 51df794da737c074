package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	userConfigPath    = "~/.config/bidsprep/config.toml"
	projectConfigName = "bidsprep.toml"
)

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(userConfigPath)
}

// ExpandPath resolves a leading ~ against the home directory and returns an
// absolute, cleaned path. Empty input stays empty.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if rest, ok := strings.CutPrefix(value, "~"); ok && (rest == "" || rest[0] == '/' || rest[0] == '\\') {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = home + rest
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}

// StatePath is the SQLite database holding operator edits.
func (c *Config) StatePath() string {
	return filepath.Join(c.Paths.StateDir, "bidsprep.db")
}

// LogPath is the file log output is mirrored to.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "bidsprep.log")
}

// LockPath is the flock file guarding the state directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "bidsprep.lock")
}

// EnsureDirectories creates the state and log directories. The output
// directory is created on demand by assembly.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}
