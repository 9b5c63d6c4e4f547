package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Move guest visions and points into your account",
		Long:  "Sends the guest data once. On failure the guest data is kept and nothing is retried; run migrate again to retry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			if !c.Authenticated() {
				return errors.New("migrate needs --token (or $" + envToken + ") for the account to migrate into")
			}

			store, err := a.guestStore()
			if err != nil {
				return err
			}
			snap, err := store.Snapshot()
			if err != nil {
				return err
			}
			if snap.Empty() {
				a.printf("Nothing to migrate\n")
				return nil
			}

			result, err := store.Migrate(cmd.Context(), c)
			if err != nil {
				return fmt.Errorf("migration failed, guest data kept: %w", err)
			}
			a.printf("Migrated %d visions and %d points\n", result.MigratedCount, result.PointsAdded)
			if result.FailedCount > 0 {
				a.printf("%d visions could not be migrated\n", result.FailedCount)
			}
			return nil
		},
	}
}
