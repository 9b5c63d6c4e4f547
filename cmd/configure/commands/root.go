// Package commands implements civiz-configure, the operator tool for the
// settings the API server reads from its database and category file.
package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/benvon/civiz/internal/config"
	"github.com/benvon/civiz/internal/database"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the civiz-configure command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "civiz-configure",
		Short:         "Configuration tool for the civic visions API",
		Long:          "Manage OIDC providers, CORS, rate limits and the category registry.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		NewOIDCCmd(),
		NewListCmd(),
		NewTestCmd(),
		NewCorsCmd(),
		NewRatelimitCmd(),
		NewCategoriesCmd(),
	)
	return root
}

// withDB connects using DATABASE_URL, makes sure the schema exists and runs fn
func withDB(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, db *database.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	if err := db.InitSchema(ctx); err != nil {
		return err
	}
	return fn(ctx, cfg, db)
}
