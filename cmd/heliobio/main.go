package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sawpanic/heliobio/internal/config"
	applog "github.com/sawpanic/heliobio/internal/log"
)

const appName = "heliobio"

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "v0.1.0"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("heliobio failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Solar activity and social mood resonance monitor",
		Version: version,
		Long: `heliobio polls solar activity (NASA DONKI) and social engagement (Graph API),
scores their resonance, raises alerts and serves the results over HTTP and websocket.
Sources without credentials fall back to the built-in solar cycle and mood models.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addGlobalFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newPollCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newMigrateCmd())
	return rootCmd
}

func addGlobalFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Path to the YAML configuration file")
	fs.String("log-level", "", "Log level override (debug|info|warn|error)")
}

// loadConfig reads --config, applies --log-level and installs the logger
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if err := applog.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		return config.Config{}, fmt.Errorf("configure logging: %w", err)
	}
	return cfg, nil
}
