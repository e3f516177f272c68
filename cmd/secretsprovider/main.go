package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/secretsprovider/cmd/secretsprovider/commands"
	"github.com/systmms/secretsprovider/internal/config"
	dserrors "github.com/systmms/secretsprovider/internal/errors"
	"github.com/systmms/secretsprovider/internal/logging"
	"github.com/systmms/secretsprovider/internal/secure"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := run(os.Args[1:])
	// Wipe every sealed value before the process goes away.
	secure.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", dserrors.SimplifyError(err))
		os.Exit(1)
	}
}

func run(args []string) error {
	envCfg, err := config.GetEnv()
	if err != nil {
		return dserrors.UserError{
			Message:    "Invalid environment configuration",
			Details:    err.Error(),
			Suggestion: "Check the SECRETSPROVIDER_* and NO_COLOR environment variables",
		}
	}

	rootCmd, cfg := newRootCommand(envCfg)
	rootCmd.SetArgs(args)
	rootCmd.AddCommand(
		commands.NewGetCommand(cfg),
		commands.NewBatchCommand(cfg),
		commands.NewVersionsCommand(cfg),
		commands.NewProvidersCommand(cfg),
	)

	return rootCmd.Execute()
}

func newRootCommand(envCfg *config.Env) (*cobra.Command, *config.Config) {
	var (
		configFile string
		noColor    bool
		debug      bool
		logFormat  string
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "secretsprovider",
		Short: "Read versioned secrets from any configured backend",
		Long: `secretsprovider looks up secrets by name and version in AWS, GCP, Azure,
Akeyless, SQL databases, the OS keychain or an in-memory store, through one
configuration file.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch logFormat {
			case "json":
				cfg.Logger = logging.NewJSON(os.Stderr, debug)
			case "console":
				cfg.Logger = logging.New(debug, noColor)
			default:
				return dserrors.UserError{
					Message:    fmt.Sprintf("Unknown log format %q", logFormat),
					Suggestion: "Use --log-format console or --log-format json",
				}
			}
			cfg.Path = configFile
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", envCfg.ConfigPath, "Config file path (env SECRETSPROVIDER_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", envCfg.ColorDisabled(), "Disable colored output (env NO_COLOR)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", envCfg.Debug, "Enable debug logging (env SECRETSPROVIDER_DEBUG)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", envCfg.LogFormat, "Log format: console or json (env SECRETSPROVIDER_LOG_FORMAT)")

	return rootCmd, cfg
}
