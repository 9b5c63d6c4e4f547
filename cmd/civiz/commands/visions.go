package commands

import (
	"fmt"

	"github.com/benvon/civiz/internal/logger"
	"github.com/spf13/cobra"
)

func newVisionsCmd(a *app) *cobra.Command {
	var (
		community bool
		page      int
		pageSize  int
	)
	cmd := &cobra.Command{
		Use:   "visions",
		Short: "List your guest visions, or the community feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if community {
				c, err := a.client()
				if err != nil {
					return err
				}
				feed, err := c.Community(cmd.Context(), page, pageSize)
				if err != nil {
					return fmt.Errorf("failed to load community visions: %w", err)
				}
				for _, v := range feed.Visions {
					mark := " "
					if v.LikedByMe {
						mark = "*"
					}
					a.printf("%s %s  %3d pts %3d likes  %-22s %s\n", mark, v.ID, v.Points, v.Likes, v.CategoryID, logger.Preview(v.Text))
				}
				a.printf("page %d of %d (%d visions)\n", feed.Page, feed.TotalPages, feed.Total)
				return nil
			}

			store, err := a.guestStore()
			if err != nil {
				return err
			}
			visions, err := store.Visions()
			if err != nil {
				return err
			}
			if len(visions) == 0 {
				a.printf("No guest visions yet\n")
				return nil
			}
			for _, v := range visions {
				a.printf("%s  %-22s %s\n", v.ID, v.CategoryID, logger.Preview(v.Text))
				a.printf("    %s\n", v.ImageURL)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&community, "community", false, "list the community feed instead of local guest visions")
	cmd.Flags().IntVar(&page, "page", 1, "community feed page")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "community feed page size")
	return cmd
}
