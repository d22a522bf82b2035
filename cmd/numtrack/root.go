package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"numtrack/internal/api"
	"numtrack/internal/config"
	"numtrack/internal/logger"
	"numtrack/internal/storage"
	"numtrack/internal/tracker"
	"numtrack/internal/ui"
)

type globalFlags struct {
	configPath string
	apiURL     string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "numtrack",
		Short: "Track the status of numbers 1-1421",
		Long: `numtrack keeps a status, sub-status, name and dates for every number
from 1 to 1421, synced to a backend over HTTP with a local SQLite fallback.

Run without arguments to open the terminal UI.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default $NUMTRACK_CONFIG or the user config dir)")
	root.PersistentFlags().StringVar(&flags.apiURL, "api-url", "", "backend base URL, overrides config and $TRACKER_API_URL")

	root.AddCommand(
		&cobra.Command{
			Use:   "tui",
			Short: "Open the terminal UI (the default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTUI(cmd.Context(), flags)
			},
		},
		newServeCmd(flags),
		newExportCmd(flags),
		newBulkCmd(flags),
		newStatsCmd(flags),
	)
	return root
}

func (f *globalFlags) loadConfig() (config.Config, error) {
	path := f.configPath
	if path == "" {
		path = config.ResolveConfigPath()
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if f.apiURL != "" {
		cfg.APIURL = f.apiURL
	}
	return cfg, nil
}

// client is everything a client-side command needs: the loaded store plus
// the resources to release afterwards.
type client struct {
	cfg   config.Config
	log   *zap.Logger
	cache *storage.Store
	store *tracker.Store
}

func openClient(ctx context.Context, f *globalFlags, logToFile bool) (*client, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log, logToFile)
	if err != nil {
		return nil, err
	}
	cache, err := storage.Open(cfg.CachePath)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open cache: %w", err)
	}
	backend := api.New(cfg.ResolvedAPIURL(), cfg.Timeout())
	log.Debug("client ready", zap.String("api", backend.BaseURL()), zap.String("cache", cfg.CachePath))

	store := tracker.New(backend, cache, tracker.WithLogger(log), tracker.WithContext(ctx))
	return &client{cfg: cfg, log: log, cache: cache, store: store}, nil
}

func (c *client) Close() {
	c.store.Wait()
	if err := c.cache.Close(); err != nil {
		c.log.Warn("closing cache failed", zap.Error(err))
	}
	c.log.Sync()
}

func runTUI(ctx context.Context, f *globalFlags) error {
	c, err := openClient(ctx, f, true)
	if err != nil {
		return err
	}
	defer c.Close()
	return ui.Run(ctx, c.store, c.cfg)
}
