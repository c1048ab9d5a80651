package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"manifold/internal/config"
	"manifold/internal/fsio"
	"manifold/internal/logging"
	"manifold/internal/pipeline"
	"manifold/internal/provider"
	"manifold/internal/services"
)

type commandContext struct {
	configFlag  *string
	captureFlag *string
	formatFlag  *string
	forceFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, captureFlag, formatFlag *string, forceFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		captureFlag: captureFlag,
		formatFlag:  formatFlag,
		forceFlag:   forceFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := ""
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path == "" {
			c.configErr = services.Wrap(services.ErrConfiguration, "", "load config",
				"no configuration file given (use --config)", nil)
			return
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = &cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// newPipeline wires a pipeline over the configured output root. The
// filesystem mux serves local paths directly and s3:// roots through the
// object-store backend.
func (c *commandContext) newPipeline() (*pipeline.Pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.Options{
		Config: cfg,
		FS:     fsio.NewMux(),
		Logger: logger,
		Force:  c.forceFlag != nil && *c.forceFlag,
	}), nil
}

// openSource opens the capture named by --capture with the --capture-format
// backend.
func (c *commandContext) openSource(ctx context.Context) (provider.Source, error) {
	path := ""
	if c.captureFlag != nil {
		path = strings.TrimSpace(*c.captureFlag)
	}
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "", "open capture",
			"no capture given (use --capture)", nil)
	}
	format := "replay"
	if c.formatFlag != nil && strings.TrimSpace(*c.formatFlag) != "" {
		format = strings.TrimSpace(*c.formatFlag)
	}
	src, err := provider.Open(ctx, format, path)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "", "open capture", path, err)
	}
	return src, nil
}
