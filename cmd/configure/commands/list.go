package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/benvon/civiz/internal/config"
	"github.com/benvon/civiz/internal/database"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured OIDC providers",
		Long:  "List configured OIDC providers. The provider the server uses is marked with *.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				configs, err := database.NewOIDCConfigRepository(db).GetAll(ctx)
				if err != nil {
					return fmt.Errorf("failed to list OIDC configs: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(configs) == 0 {
					fmt.Fprintln(out, "No OIDC providers configured")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "\tPROVIDER\tISSUER\tCLIENT ID\tSECRET\tJWKS URL")
				for _, c := range configs {
					active := ""
					if c.Provider == cfg.OIDCProvider {
						active = "*"
					}
					secret := "none"
					if c.ClientSecret != nil {
						secret = "set"
					}
					jwks := "-"
					if c.JWKSUrl != nil {
						jwks = *c.JWKSUrl
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", active, c.Provider, c.Issuer, c.ClientID, secret, jwks)
				}
				return w.Flush()
			})
		},
	}
}
