// Package commands implements the ledgerapi command line.
package commands

import (
	"errors"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/ledgerapi/internal/cli/ui"
	"github.com/conduit-lang/ledgerapi/internal/config"
	"github.com/conduit-lang/ledgerapi/internal/logging"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// errReported marks errors that were already printed
var errReported = errors.New("error already reported")

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	noColor    bool
}

// loadConfig loads the configuration and prints every validation problem
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		source := o.configPath
		if source == "" {
			source = config.FileName
		}
		ui.Write(cmd.ErrOrStderr(), ui.ConfigError(source, err, o.noColor))
		return nil, errReported
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "ledgerapi",
		Short: "JSON:API server for ledger blocks, transactions and participants",
		Long: color.CyanString(`ledgerapi - read-only JSON:API for a permissioned ledger

Serves blocks, transactions, participants, keys, organizations and nodes
as paginated JSON:API documents.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./"+config.FileName+")")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewServeCommand(opts))
	rootCmd.AddCommand(NewRoutesCommand(opts))
	rootCmd.AddCommand(NewMigrateCommand(opts))
	rootCmd.AddCommand(NewTokenCommand(opts))
	rootCmd.AddCommand(NewInitCommand(opts))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			kv := ui.NewKeyValueTable(cmd.OutOrStdout(), color.NoColor)
			kv.AddRow("ledgerapi version", Version)
			kv.AddRow("Git commit", GitCommit)
			kv.AddRow("Build date", BuildDate)
			kv.AddRow("Go version", goVer)
			kv.Render()
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			errorColor := color.New(color.FgRed, color.Bold)
			errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return err
	}
	return nil
}
