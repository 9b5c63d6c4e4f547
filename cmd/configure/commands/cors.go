package commands

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/benvon/civiz/internal/config"
	"github.com/benvon/civiz/internal/database"
	"github.com/benvon/civiz/internal/models"
	"github.com/spf13/cobra"
)

// NewCorsCmd creates the cors configuration command with list and set subcommands.
func NewCorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage CORS configuration",
		Long:  "Show or update the origins allowed to call the API. The server reloads them every minute.",
	}
	cmd.AddCommand(newCorsListCmd(), newCorsSetCmd())
	return cmd
}

func newCorsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show current CORS configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				c, err := database.NewCorsConfigRepository(db).Get(ctx)
				if err != nil {
					return fmt.Errorf("get cors config: %w", err)
				}
				out := cmd.OutOrStdout()
				if c == nil {
					fmt.Fprintf(out, "No CORS configuration in database; the server allows FRONTEND_URL (%s).\n", cfg.FrontendURL)
					return nil
				}
				fmt.Fprintln(out, "CORS configuration:")
				for _, origin := range c.Origins() {
					fmt.Fprintf(out, "  Allowed origin: %s\n", origin)
				}
				fmt.Fprintf(out, "  Allow credentials: %v\n", c.AllowCredentials)
				fmt.Fprintf(out, "  Max-Age: %d\n", c.MaxAge)
				return nil
			})
		},
	}
}

func newCorsSetCmd() *cobra.Command {
	var origins string
	var allowCreds bool
	var maxAge int
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set CORS configuration",
		Long:  "Replace the allowed origins (comma-separated).",
		RunE: func(cmd *cobra.Command, args []string) error {
			normalized, err := normalizeOrigins(origins)
			if err != nil {
				return err
			}
			if maxAge < 0 {
				return fmt.Errorf("--max-age must not be negative")
			}
			return withDB(cmd, func(ctx context.Context, _ *config.Config, db *database.DB) error {
				c := &models.CorsConfig{
					AllowedOrigins:   normalized,
					AllowCredentials: allowCreds,
					MaxAge:           maxAge,
				}
				if err := database.NewCorsConfigRepository(db).Set(ctx, c); err != nil {
					return fmt.Errorf("set cors config: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "CORS configuration updated.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&origins, "origins", "", "Comma-separated allowed origins (required)")
	cmd.Flags().BoolVar(&allowCreds, "allow-credentials", true, "Allow credentials")
	cmd.Flags().IntVar(&maxAge, "max-age", 86400, "Access-Control-Max-Age (seconds)")
	return cmd
}

// normalizeOrigins checks each origin is scheme://host[:port] and rejoins them
func normalizeOrigins(raw string) (string, error) {
	list := models.ParseOrigins(raw)
	if len(list) == 0 {
		return "", fmt.Errorf("--origins is required (comma-separated list)")
	}
	for i, origin := range list {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", fmt.Errorf("invalid origin %q: want scheme://host[:port]", origin)
		}
		if u.Path != "" && u.Path != "/" {
			return "", fmt.Errorf("invalid origin %q: origins have no path", origin)
		}
		list[i] = u.Scheme + "://" + u.Host
	}
	return strings.Join(list, ","), nil
}
