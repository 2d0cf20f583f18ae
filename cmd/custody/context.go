package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"log/slog"

	"custody/internal/auditlog"
	"custody/internal/config"
	"custody/internal/logging"
	"custody/internal/transcode"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// commandLogger builds the shared logger lazily so config load failures
// surface before any log file is touched.
func (c *commandContext) commandLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// withJournal opens the audit journal for the duration of fn. Journal
// failures never block the underlying operation; fn receives nil instead.
func (c *commandContext) withJournal(fn func(*auditlog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	journal, err := auditlog.Open(cfg)
	if err != nil {
		c.commandLogger().Warn("audit journal unavailable", logging.Error(err))
		return fn(nil)
	}
	defer journal.Close()
	return fn(journal)
}

func (c *commandContext) transcoder() (*transcode.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return transcode.New(cfg.Transcoder.Binary, cfg.Transcoder.TimeoutSeconds)
}

// resolveCaseDir turns a positional case-directory argument into a cleaned
// absolute path and requires it to exist.
func resolveCaseDir(arg string) (string, error) {
	expanded, err := config.ExpandPath(arg)
	if err != nil {
		return "", fmt.Errorf("resolve case directory: %w", err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve case directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("case directory %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("case directory %s: not a directory", abs)
	}
	return abs, nil
}
