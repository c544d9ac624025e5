package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/ledgerapi/internal/api"
	"github.com/conduit-lang/ledgerapi/internal/cli/ui"
	"github.com/conduit-lang/ledgerapi/internal/web/router"
)

// NewRoutesCommand creates the routes command
func NewRoutesCommand(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the HTTP routes",
		Long: `List every route the server registers with its name, collection and
route-level middleware. No database connection is made.`,
		Example: `  ledgerapi routes
  ledgerapi routes --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			h, err := api.New(api.Options{Settings: cfg.Settings(), Limits: cfg.PageLimits()})
			if err != nil {
				return err
			}
			routes := api.NewRouter(h).Routes()

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(routes)
			case "table":
				renderRoutes(cmd, routes, opts.noColor)
				return nil
			default:
				return fmt.Errorf("unknown format %q (want table or json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}

func renderRoutes(cmd *cobra.Command, routes []*router.RouteInfo, noColor bool) {
	table := ui.NewTable(cmd.OutOrStdout(), []string{"METHOD", "PATTERN", "NAME", "COLLECTION", "MIDDLEWARE"}, noColor)
	for _, r := range routes {
		table.AddRow(r.Method, r.Pattern, r.Name, r.Collection, strings.Join(r.Middleware, ", "))
	}
	table.Render()
}
