package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"bidsprep/internal/config"
	"bidsprep/internal/events"
	"bidsprep/internal/logging"
	"bidsprep/internal/notifications"
	"bidsprep/internal/session"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	log        *slog.Logger
	logErr     error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.loggerOnce.Do(func() {
		c.log, c.logErr = logging.NewFromConfig(cfg)
		if c.logErr != nil {
			c.logErr = fmt.Errorf("init logger: %w", c.logErr)
		}
	})
	return c.log, c.logErr
}

// notify sends a notification, logging delivery failures instead of
// failing the command.
func (c *commandContext) notify(ctx context.Context, fn func(context.Context, notifications.Service) error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return
	}
	if err := fn(ctx, notifications.NewService(cfg)); err != nil {
		if logger, logErr := c.logger(); logErr == nil {
			logging.WarnWithContext(logger, "notification failed", "notification_failed", logging.Error(err))
		}
	}
}

// withSession opens a session for the duration of fn.
func (c *commandContext) withSession(cmd *cobra.Command, fn func(context.Context, *session.Session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.logger()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := session.Open(ctx, session.Options{
		Config:   cfg,
		Logger:   logger,
		Sink:     events.NewLogger(logger),
		Prompter: newCLIPrompter(cmd.ErrOrStderr(), cfg.Association.ShowInstructions),
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			logging.WarnWithContext(logger, "session close failed", "session_close_failed", logging.Error(closeErr))
		}
	}()
	return fn(s.Context(ctx), s)
}

// loadFolders loads the folder of every path, failing on the first error.
func loadFolders(ctx context.Context, s *session.Session, paths []string) error {
	seen := make(map[string]struct{})
	for _, p := range paths {
		folder := filepath.Dir(p)
		if _, ok := seen[folder]; ok {
			continue
		}
		seen[folder] = struct{}{}
		if res := s.Load(ctx, folder); res.Err != nil {
			return fmt.Errorf("load %s: %w", folder, res.Err)
		}
	}
	return nil
}

func absPaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		expanded, err := config.ExpandPath(p)
		if err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		out = append(out, abs)
	}
	return out, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func baseName(path string) string {
	return filepath.Base(path)
}

func joinBaseNames(paths []string) string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return strings.Join(names, ", ")
}
