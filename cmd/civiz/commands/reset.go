package commands

import "github.com/spf13/cobra"

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete all local guest data",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.guestStore()
			if err != nil {
				return err
			}
			if err := store.Reset(); err != nil {
				return err
			}
			a.printf("Guest data cleared\n")
			return nil
		},
	}
}
