// Package cli implements the fedicircle command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pmerten/fedicircle/pkg/backend/detect"
	"github.com/pmerten/fedicircle/pkg/buildinfo"
	"github.com/pmerten/fedicircle/pkg/cache"
	"github.com/pmerten/fedicircle/pkg/circle"
	"github.com/pmerten/fedicircle/pkg/config"
	"github.com/pmerten/fedicircle/pkg/webfinger"
)

// appName is the application name used for directories and display.
const appName = "fedicircle"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// backendFamilies are the accepted values of the --backend flag besides
// "auto".
var backendFamilies = []string{"mastodon", "pleroma", "fedibird", "misskey"}

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Fedicircle computes interaction circles for fediverse accounts",
		Long:         `Fedicircle ranks the people who interact with a fediverse account by reactions, boosts, and replies, and arranges the strongest connections in concentric circles.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.circleCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newBuilder wires a circle builder from the common command flags.
func (c *CLI) newBuilder(cfg config.Config, store cache.Cache) *circle.Builder {
	registry := detect.NewRegistry(store, c.Logger)
	resolver := webfinger.NewResolver(c.Logger)
	return circle.NewBuilder(registry, resolver, cfg, c.Logger)
}

// newStore selects the detection store: redis when an address is given,
// the per-user file cache for persistent CLI runs, process memory
// otherwise. A broken cache directory falls back to memory instead of
// failing the run.
func newStore(ctx context.Context, redisAddr string, persistent bool) (cache.Cache, error) {
	if redisAddr != "" {
		return cache.NewRedisCache(ctx, redisAddr, appName)
	}
	if persistent {
		dir, err := cacheDir()
		if err == nil {
			if store, err := cache.NewFileCache(dir); err == nil {
				return store, nil
			}
		}
	}
	return cache.NewMemoryCache(), nil
}

// cacheDir returns the cache directory using the XDG standard
// (~/.cache/fedicircle/).
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
