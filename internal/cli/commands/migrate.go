package commands

import (
	"github.com/spf13/cobra"

	"github.com/conduit-lang/ledgerapi/internal/cli/ui"
	"github.com/conduit-lang/ledgerapi/internal/store"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ledger tables",
		Long: `Create the ledger tables and indexes in the configured database.
Existing tables are left untouched, so running it twice is safe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			st, err := store.Open(cmd.Context(), cfg.StoreOptions(), logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Migrate(cmd.Context()); err != nil {
				return err
			}

			ui.Success(cmd.OutOrStdout(), "ledger schema is up to date ("+cfg.Database.Driver+")", opts.noColor)
			return nil
		},
	}
}
