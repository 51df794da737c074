package testsupport

import (
	"path/filepath"
	"testing"

	"bidsprep/internal/config"
)

// ConfigOption adjusts a generated test config.
type ConfigOption func(*config.Config)

// NewConfig returns defaults rooted in a fresh temp directory: data, state,
// logs and output each get their own subdirectory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		DataDir:   filepath.Join(base, "data"),
		StateDir:  filepath.Join(base, "state"),
		LogDir:    filepath.Join(base, "logs"),
		OutputDir: filepath.Join(base, "output"),
	}
	cfg.Project.Institution = "Test Institute"
	cfg.Loader.Workers = 2
	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWorkers overrides the loader pool size.
func WithWorkers(n int) ConfigOption {
	return func(c *config.Config) { c.Loader.Workers = n }
}

// BaseDir is the temp directory NewConfig created for cfg.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
