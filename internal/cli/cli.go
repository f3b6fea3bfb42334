// Package cli implements the piprobe command-line interface.
//
// This package provides commands for resolving a package's dependencies
// and top-level modules, serving the same operation over HTTP, rendering
// a dependency graph, and managing the result cache. The CLI is built
// using cobra and supports verbose logging via the charmbracelet/log
// library.
//
// # Commands
//
// The main commands are:
//   - resolve: Install (unless already installed) and inspect one package
//   - serve: Expose resolve as an HTTP event handler
//   - graph: Render the resolved dependencies as a star graph
//   - cache: Manage the resolve-result cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"piprobe/internal/config"
	"piprobe/pkg/buildinfo"
	"piprobe/pkg/cache"
	"piprobe/pkg/pep508"
	"piprobe/pkg/puller"
)

// appName is the application name used for directories and display.
const appName = "piprobe"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	cfgPath string
	cfg     config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "piprobe",
		Short:        "piprobe installs one package and reports its dependencies",
		Long:         `piprobe is an installer helper: it installs a single package (without transitive dependencies) into a target directory, then scans the installed-distribution metadata there to report the package's marker-filtered dependencies and top-level importable module names.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.cfgPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.cfgPath, "config", defaultConfigPath(), "configuration file")

	// Register all subcommands
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Puller Factory
// =============================================================================

// newPuller builds a Puller from the loaded configuration.
// probe asks the configured interpreter for real marker values instead of
// using host defaults.
func (c *CLI) newPuller(ctx context.Context, noCache, probe bool) (*puller.Puller, error) {
	env, err := c.markerEnvironment(ctx, probe)
	if err != nil {
		return nil, err
	}

	results, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}

	return puller.New(puller.Options{
		Installer: c.cfg.Installer,
		Target:    c.cfg.TargetDir,
		CacheDir:  c.cfg.PipCacheDir,
		Env:       env,
		Results:   results,
		ResultTTL: c.cfg.ResultTTL(),
		Logger:    c.Logger,
	}), nil
}

func (c *CLI) markerEnvironment(ctx context.Context, probe bool) (pep508.Environment, error) {
	if probe {
		interpreter := "python3"
		env, err := pep508.ProbeEnvironment(ctx, interpreter)
		if err != nil {
			return pep508.Environment{}, err
		}
		return env, nil
	}
	return c.cfg.MarkerEnvironment()
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.cfg.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, c.cfg.Cache.RedisAddr)
	default:
		dir := c.cfg.Cache.Dir
		if dir == "" {
			var err error
			if dir, err = cacheDir(); err != nil {
				return cache.NewNullCache(), nil
			}
		}
		return cache.NewFileCache(dir)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/piprobe/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// defaultConfigPath looks for piprobe.toml in the XDG config directory.
func defaultConfigPath() string {
	if cfgHome := os.Getenv("XDG_CONFIG_HOME"); cfgHome != "" {
		return filepath.Join(cfgHome, appName, "piprobe.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "piprobe.toml"
	}
	return filepath.Join(home, ".config", appName, "piprobe.toml")
}
