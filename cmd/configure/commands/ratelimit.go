package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/civiz/internal/config"
	"github.com/benvon/civiz/internal/database"
	"github.com/benvon/civiz/internal/middleware"
	"github.com/benvon/civiz/internal/models"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
)

// NewRatelimitCmd creates the ratelimit configuration command with list and set subcommands.
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage rate limit configuration",
		Long: "Show or update the general API rate (e.g. 5-S, 100-M) and the number of free " +
			"image generations an anonymous visitor gets per day.",
	}
	cmd.AddCommand(newRatelimitListCmd(), newRatelimitSetCmd())
	return cmd
}

func newRatelimitListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show current rate limit configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				c, err := database.NewRatelimitConfigRepository(db).Get(ctx)
				if err != nil {
					return fmt.Errorf("get ratelimit config: %w", err)
				}
				out := cmd.OutOrStdout()
				rate, anon := cfg.APIRateLimit, fmt.Sprintf("%d (ANON_GENERATION_LIMIT)", cfg.AnonGenerationLimit)
				if c != nil {
					if c.Rate != "" {
						rate = c.Rate
					}
					if c.AnonymousLimit > 0 {
						anon = fmt.Sprintf("%d", c.AnonymousLimit)
					}
				} else {
					fmt.Fprintln(out, "No rate limit configuration in database; showing server defaults.")
				}
				fmt.Fprintln(out, "Rate limit configuration:")
				fmt.Fprintf(out, "  API rate: %s\n", rate)
				fmt.Fprintf(out, "  Anonymous generations per day: %s\n", anon)
				return nil
			})
		},
	}
}

func newRatelimitSetCmd() *cobra.Command {
	var rate string
	var anonLimit int
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set rate limit configuration",
		Long:  "Update the API rate, the anonymous generation limit, or both. Omitted values keep their stored setting.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rate = strings.TrimSpace(rate)
			if rate == "" && !cmd.Flags().Changed("anonymous-limit") {
				return fmt.Errorf("set --rate (e.g. 5-S, 100-M) and/or --anonymous-limit")
			}
			if rate != "" {
				if _, err := limiter.NewRateFromFormatted(rate); err != nil {
					return fmt.Errorf("invalid --rate %q: %w", rate, err)
				}
			}
			if cmd.Flags().Changed("anonymous-limit") && anonLimit <= 0 {
				return fmt.Errorf("--anonymous-limit must be positive")
			}

			return withDB(cmd, func(ctx context.Context, _ *config.Config, db *database.DB) error {
				repo := database.NewRatelimitConfigRepository(db)
				stored, err := repo.Get(ctx)
				if err != nil {
					return fmt.Errorf("get ratelimit config: %w", err)
				}
				if err := repo.Set(ctx, mergeRatelimit(stored, rate, anonLimit)); err != nil {
					return fmt.Errorf("set ratelimit config: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Rate limit configuration updated.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "API rate (e.g. 5-S, 100-M, 1000-H)")
	cmd.Flags().IntVar(&anonLimit, "anonymous-limit", 0, "Free image generations per anonymous visitor per day")
	return cmd
}

// mergeRatelimit applies the non-zero settings over the stored config
func mergeRatelimit(stored *models.RatelimitConfig, rate string, anonLimit int) *models.RatelimitConfig {
	merged := &models.RatelimitConfig{Rate: middleware.DefaultAPIRate}
	if stored != nil {
		if stored.Rate != "" {
			merged.Rate = stored.Rate
		}
		merged.AnonymousLimit = stored.AnonymousLimit
	}
	if rate != "" {
		merged.Rate = rate
	}
	if anonLimit > 0 {
		merged.AnonymousLimit = anonLimit
	}
	return merged
}
