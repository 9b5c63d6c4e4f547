package commands

import (
	"context"
	"fmt"

	"github.com/benvon/civiz/internal/config"
	"github.com/benvon/civiz/internal/database"
	"github.com/benvon/civiz/internal/services/oidc"
	"github.com/spf13/cobra"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test OIDC configuration",
		Long:  "Resolve the provider's login endpoints and fetch its signing keys the way the server does.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				if provider == "" {
					provider = cfg.OIDCProvider
				}
				p := oidc.NewProvider(database.NewOIDCConfigRepository(db), provider, oidc.NewJWKSManager())
				return testProvider(ctx, cmd, p)
			})
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Provider name to test (default: OIDC_PROVIDER)")

	return cmd
}

func testProvider(ctx context.Context, cmd *cobra.Command, p *oidc.Provider) error {
	out := cmd.OutOrStdout()

	stored, err := p.GetConfig(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Testing OIDC configuration for provider: %s\n", p.Name())
	fmt.Fprintf(out, "Issuer: %s\n", stored.Issuer)

	login, err := p.GetLoginConfig(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Authorization endpoint: %s\n", login.AuthorizationEndpoint)
	fmt.Fprintf(out, "Token endpoint: %s\n", login.TokenEndpoint)

	jwksURL := stored.KeySetURL()
	fmt.Fprintf(out, "JWKS URL: %s\n", jwksURL)
	keys, err := oidc.NewJWKSManager().GetJWKS(ctx, jwksURL)
	if err != nil {
		return err
	}
	if keys.Len() == 0 {
		return fmt.Errorf("JWKS at %s has no keys", jwksURL)
	}
	fmt.Fprintf(out, "✓ JWKS reachable with %d signing key(s)\n", keys.Len())
	fmt.Fprintln(out, "✓ OIDC configuration test passed")
	return nil
}
