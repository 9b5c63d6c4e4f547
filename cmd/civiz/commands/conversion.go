package commands

import (
	"github.com/benvon/civiz/internal/conversion"
	"github.com/spf13/cobra"
)

func newConversionCmd(a *app) *cobra.Command {
	var trigger string
	cmd := &cobra.Command{
		Use:   "conversion",
		Short: "Show the pending sign-up prompt",
		Long:  "Shows the prompt saved by the last blocked action and forgets it. --trigger previews any prompt instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if trigger != "" {
				printPresentation(a, conversion.DecideTrigger(conversion.ParseTrigger(trigger)))
				return nil
			}

			store, err := a.guestStore()
			if err != nil {
				return err
			}
			c, ok, err := store.ConversionContext()
			if err != nil {
				return err
			}
			if !ok {
				a.printf("No pending prompt\n")
				return nil
			}
			printPresentation(a, conversion.Decide(c))
			return store.ClearConversionContext()
		},
	}
	cmd.Flags().StringVar(&trigger, "trigger", "", "preview the prompt for a trigger (share, like, my-view, rate-limit, watermark)")
	return cmd
}
