package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/ledgerapi/internal/web/auth"
)

// NewTokenCommand creates the token command
func NewTokenCommand(opts *globalOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <participant-id>",
		Short: "Mint a bearer token for a participant",
		Long: `Mint an HS256 bearer token whose subject is the participant id, signed
with auth.jwt_secret. Key routes accept it in the Authorization header.`,
		Example: `  TOKEN=$(ledgerapi token p1)
  curl -H "Authorization: Bearer $TOKEN" http://localhost:3000/participants/p1/keys`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}

			token, err := auth.NewTokenService(cfg.Auth.JWTSecret, ttl).GenerateToken(args[0])
			if err != nil {
				return fmt.Errorf("mint token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default auth.token_ttl)")
	return cmd
}
