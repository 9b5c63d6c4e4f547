package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/benvon/civiz/internal/config"
	"github.com/benvon/civiz/internal/database"
	"github.com/benvon/civiz/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type oidcFlags struct {
	issuer       string
	domain       string
	clientID     string
	clientSecret string
	redirectURI  string
	jwksURL      string
}

// NewOIDCCmd creates the OIDC configuration command
func NewOIDCCmd() *cobra.Command {
	var f oidcFlags

	cmd := &cobra.Command{
		Use:   "oidc <provider-name>",
		Short: "Configure an OIDC provider",
		Long: "Create or update the identity provider accounts sign in with. The server uses the " +
			"provider named by OIDC_PROVIDER.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := strings.TrimSpace(args[0])
			if provider == "" {
				return fmt.Errorf("provider name cannot be empty")
			}
			if err := f.validate(); err != nil {
				return err
			}

			return withDB(cmd, func(ctx context.Context, _ *config.Config, db *database.DB) error {
				created, err := saveOIDCConfig(ctx, database.NewOIDCConfigRepository(db), provider, f)
				if err != nil {
					return err
				}
				verb := "Updated"
				if created {
					verb = "Created"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s OIDC configuration for provider: %s\n", verb, provider)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&f.issuer, "issuer", "", "OIDC issuer URL (required)")
	cmd.Flags().StringVar(&f.domain, "domain", "", "Hosted login domain, for Cognito custom domains")
	cmd.Flags().StringVar(&f.clientID, "client-id", "", "OAuth2 client ID (required)")
	cmd.Flags().StringVar(&f.clientSecret, "client-secret", "", "OAuth2 client secret (omit for public clients)")
	cmd.Flags().StringVar(&f.redirectURI, "redirect-uri", "", "OAuth2 redirect URI (required)")
	cmd.Flags().StringVar(&f.jwksURL, "jwks-url", "", "JWKS URL (default: <issuer>/.well-known/jwks.json)")

	return cmd
}

func (f oidcFlags) validate() error {
	if f.issuer == "" || f.clientID == "" || f.redirectURI == "" {
		return fmt.Errorf("required flags: --issuer, --client-id, --redirect-uri")
	}
	for name, raw := range map[string]string{"--issuer": f.issuer, "--redirect-uri": f.redirectURI, "--jwks-url": f.jwksURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL", name)
		}
	}
	return nil
}

// jwksURLFor returns the explicit JWKS URL or derives one from the issuer
func jwksURLFor(issuer, explicit string) string {
	return (&models.OIDCConfig{Issuer: issuer, JWKSUrl: optional(explicit)}).KeySetURL()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// saveOIDCConfig creates or updates the named provider, reporting whether it was created
func saveOIDCConfig(ctx context.Context, repo *database.OIDCConfigRepository, provider string, f oidcFlags) (bool, error) {
	jwks := jwksURLFor(f.issuer, f.jwksURL)

	existing, err := repo.GetByProvider(ctx, provider)
	if err != nil && !errors.Is(err, database.ErrOIDCConfigNotFound) {
		return false, fmt.Errorf("failed to get OIDC config: %w", err)
	}
	if existing != nil {
		existing.Issuer = f.issuer
		if f.domain != "" {
			existing.Domain = &f.domain
		}
		existing.ClientID = f.clientID
		existing.ClientSecret = optional(f.clientSecret)
		existing.RedirectURI = f.redirectURI
		existing.JWKSUrl = &jwks
		if err := repo.Update(ctx, existing); err != nil {
			return false, fmt.Errorf("failed to update OIDC config: %w", err)
		}
		return false, nil
	}

	cfg := &models.OIDCConfig{
		ID:           uuid.New(),
		Provider:     provider,
		Issuer:       f.issuer,
		Domain:       optional(f.domain),
		ClientID:     f.clientID,
		ClientSecret: optional(f.clientSecret),
		RedirectURI:  f.redirectURI,
		JWKSUrl:      &jwks,
	}
	if err := repo.Create(ctx, cfg); err != nil {
		return false, fmt.Errorf("failed to create OIDC config: %w", err)
	}
	return true, nil
}
