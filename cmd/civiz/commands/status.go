package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show guest quota and points, or the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			if c.Authenticated() {
				me, err := c.Me(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to load account: %w", err)
				}
				a.printf("Signed in as %s\n", me.Email)
				a.printf("  Visions:     %d\n", me.VisionCount)
				a.printf("  Likes given: %d\n", me.LikesGiven)
				printPoints(a, me.Points.TotalPoints, me.Points.PointsFromVisions, me.Points.PointsFromLikes, me.Points.PointsFromFunding)
			}

			store, err := a.guestStore()
			if err != nil {
				return err
			}
			sess, ok, err := store.Session()
			if err != nil {
				return err
			}
			if !ok {
				if !c.Authenticated() {
					a.printf("No guest session yet. Try: civiz imagine \"more trees on Market Street\"\n")
				}
				return nil
			}
			quota, err := store.CanGenerate()
			if err != nil {
				return err
			}
			visions, err := store.Visions()
			if err != nil {
				return err
			}

			a.printf("Guest %s\n", sess.AnonymousID)
			a.printf("  Visions:   %d\n", len(visions))
			a.printf("  Remaining: %d of 3 free generations\n", quota.Remaining)
			if !quota.ResetAt.IsZero() {
				a.printf("  Resets:    %s\n", quota.ResetAt.Local().Format(time.RFC1123))
			}
			p := sess.Points
			printPoints(a, p.TotalPoints, p.PointsFromVisions, p.PointsFromLikes, p.PointsFromFunding)
			return nil
		},
	}
}

func printPoints(a *app, total, visions, likes, funding int) {
	a.printf("  Points:    %d (visions %d, likes %d, funding %d)\n", total, visions, likes, funding)
}
