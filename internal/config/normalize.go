package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLoader()
	c.normalizeProject()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value := strings.TrimSpace(os.Getenv("BIDSPREP_DATA_DIR")); value != "" {
		c.Paths.DataDir = value
	}
	dirs := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.data_dir", &c.Paths.DataDir, ""},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
	}
	for _, dir := range dirs {
		raw := strings.TrimSpace(*dir.value)
		if raw == "" {
			raw = dir.fallback
		}
		expanded, err := expandPath(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", dir.key, err)
		}
		*dir.value = expanded
	}
	return nil
}

func (c *Config) normalizeLoader() {
	if c.Loader.Workers <= 0 {
		c.Loader.Workers = defaultLoaderWorkers
	}
}

func (c *Config) normalizeProject() {
	c.Project.Name = strings.TrimSpace(c.Project.Name)
	c.Project.Institution = strings.TrimSpace(c.Project.Institution)
	c.Project.DewarPosition = strings.ToLower(strings.TrimSpace(c.Project.DewarPosition))
	if c.Project.DewarPosition == "" {
		c.Project.DewarPosition = defaultDewarPosition
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if value, ok := os.LookupEnv("BIDSPREP_NTFY_TOPIC"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.NtfyTopic = strings.TrimSpace(value)
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format != "json" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
