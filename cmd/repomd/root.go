package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rpmrepo/repomd"
	"github.com/rpmrepo/repomd/internal/config"
	"github.com/rpmrepo/repomd/internal/metalink"
	"github.com/rpmrepo/repomd/internal/repofile"
	"github.com/spf13/cobra"
)

// systemRepoDir is where --name falls back to when the config file has no
// matching repository. Tests point it at a scratch directory.
var systemRepoDir = repofile.DefaultDir

var (
	// Global flags
	cfgPath     string
	logLevel    string
	logFormat   string
	timeoutFlag string
	globalCfg   *config.Config
	logger      *slog.Logger
)

// repoFlags are the repository selection flags shared by the metadata
// commands. Either --repo with a base URL or --name with a configured
// repository name selects the target.
type repoFlags struct {
	repo string
	name string
	db   bool
}

func (f *repoFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.repo, "repo", "", "repository base URL (the directory containing repodata/)")
	cmd.Flags().StringVar(&f.name, "name", "", "configured repository name from the config file")
	cmd.Flags().BoolVar(&f.db, "db", false, "read the sqlite catalog instead of the XML one")
}

// resolve turns the flags into a base URL and catalog preference. Named
// repositories may point at a metalink, in which case the best mirror wins.
func (f *repoFlags) resolve(ctx context.Context) (string, bool, error) {
	if f.repo != "" {
		return f.repo, f.db || globalCfg.PreferDB, nil
	}
	if f.name == "" {
		return "", false, fmt.Errorf("either --repo or --name is required")
	}

	entry, ok := globalCfg.Repo(f.name)
	if !ok {
		return f.resolveSystemRepo(ctx)
	}

	preferDB := f.db || entry.PreferDB || globalCfg.PreferDB

	if entry.BaseURL != "" {
		return entry.BaseURL, preferDB, nil
	}
	if entry.MetalinkRepo == "" {
		return "", false, fmt.Errorf("repository %q has neither base_url nor metalink_repo", f.name)
	}

	arch := entry.Arch
	if arch == "" {
		arch = "x86_64"
	}
	mirrors, err := metalink.NewDiscovery(logger).Mirrors(ctx, entry.MetalinkRepo, arch)
	if err != nil {
		return "", false, fmt.Errorf("discovering mirrors for %q: %w", f.name, err)
	}
	if len(mirrors) == 0 {
		return "", false, fmt.Errorf("no mirrors found for %q", f.name)
	}

	logger.Debug("selected mirror", "repo", f.name, "url", mirrors[0].URL)
	return mirrors[0].URL, preferDB, nil
}

// resolveSystemRepo looks the name up in the system's .repo files after the
// config file came up empty.
func (f *repoFlags) resolveSystemRepo(ctx context.Context) (string, bool, error) {
	vars := repofile.DetectVars(logger)
	repos, err := repofile.LoadDir(systemRepoDir, vars, logger)
	if err != nil {
		return "", false, fmt.Errorf("repository %q not found in config and %s is unreadable: %w", f.name, systemRepoDir, err)
	}

	preferDB := f.db || globalCfg.PreferDB
	for _, r := range repos {
		if r.ID != f.name {
			continue
		}
		if r.BaseURL != "" {
			logger.Debug("resolved repository from system definition", "repo", f.name, "url", r.BaseURL)
			return r.BaseURL, preferDB, nil
		}
		if r.Metalink != "" {
			mirrors, err := metalink.NewDiscovery(logger).MirrorsFromURL(ctx, r.Metalink)
			if err != nil {
				return "", false, fmt.Errorf("discovering mirrors for %q: %w", f.name, err)
			}
			if len(mirrors) == 0 {
				return "", false, fmt.Errorf("no mirrors found for %q", f.name)
			}
			logger.Debug("selected mirror", "repo", f.name, "url", mirrors[0].URL)
			return mirrors[0].URL, preferDB, nil
		}
		return "", false, fmt.Errorf("repository %q has no baseurl or metalink", f.name)
	}
	return "", false, fmt.Errorf("repository %q not found in config or %s", f.name, systemRepoDir)
}

// openRepository loads the selected catalog and returns it ready to query.
// Callers own the Close.
func openRepository(ctx context.Context, flags *repoFlags) (repomd.Repository, error) {
	baseURL, preferDB, err := flags.resolve(ctx)
	if err != nil {
		return nil, err
	}

	timeout, err := resolveTimeout()
	if err != nil {
		return nil, err
	}

	client := repomd.NewClientTimeout(logger, timeout)
	if preferDB {
		return client.LoadDB(ctx, baseURL)
	}
	return client.Load(ctx, baseURL)
}

// resolveTimeout merges the --timeout flag with the configured value.
func resolveTimeout() (time.Duration, error) {
	raw := timeoutFlag
	if raw == "" {
		raw = globalCfg.Timeout
	}
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", raw, err)
	}
	return d, nil
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repomd",
		Short: "Inspect and fetch RPM repository metadata",
		Long: `repomd reads the repodata/ metadata of RPM repositories. It understands
both the XML primary catalog and the sqlite primary_db catalog, can list and
describe packages, download them with checksum verification, and discover
mirrors through metalink.`,
		Example: `  repomd list --repo https://dl.fedoraproject.org/pub/fedora/linux/releases/42/Everything/x86_64/os/
  repomd info chicken --repo https://rpm.example.com/bbq/ --db
  repomd fetch chicken brisket --name fedora --dest ./rpms
  repomd mirrors epel-9 --arch x86_64 --probe
  repomd repos --enabled-only`,
		Version: "1.0.0",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()

			if shouldSkipConfig(cmd.Name()) {
				return nil
			}

			if cfgPath == "" {
				var err error
				cfgPath, err = config.FindConfigFile()
				if err != nil {
					logger.Debug("config file not found, using defaults", "error", err)
				}
			}

			if cfgPath != "" {
				var err error
				globalCfg, err = config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				logger.Debug("config loaded", "path", cfgPath)
			} else {
				globalCfg = config.DefaultConfig()
			}

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (auto-discovered if not specified)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	cmd.PersistentFlags().StringVar(&timeoutFlag, "timeout", "", "HTTP timeout, e.g. 30s or 2m (overrides config)")

	cmd.AddCommand(
		newListCmd(),
		newInfoCmd(),
		newFetchCmd(),
		newMirrorsCmd(),
		newReposCmd(),
	)

	return cmd
}

// setupLogging initializes the slog logger based on flags
func setupLogging() {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if strings.ToLower(logFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// shouldSkipConfig checks if a command should skip config loading
func shouldSkipConfig(cmdName string) bool {
	skipConfigCmds := map[string]bool{
		"help":    true,
		"version": true,
	}
	return skipConfigCmds[cmdName]
}
