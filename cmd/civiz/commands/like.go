package commands

import (
	"fmt"

	"github.com/benvon/civiz/internal/conversion"
	"github.com/spf13/cobra"
)

func newLikeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "like <vision-id>",
		Short: "Like or unlike a vision",
		Long:  "Toggle a like. Liking needs an account; as a guest this shows how to sign up and changes nothing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			c, err := a.client()
			if err != nil {
				return err
			}

			if !c.Authenticated() {
				cc := conversion.Context{Trigger: conversion.TriggerLike, VisionID: id}
				if store, err := a.guestStore(); err == nil {
					if visions, err := store.Visions(); err == nil {
						for _, v := range visions {
							if v.ID.String() == id {
								cc.ThumbnailURL = v.ImageURL
							}
						}
					}
				}
				return a.promptSignUp(cc)
			}

			res, err := c.ToggleLike(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to toggle like: %w", err)
			}
			verb := "Unliked"
			if res.Liked {
				verb = "Liked"
			}
			a.printf("%s %s: %d likes, %d points\n", verb, res.VisionID, res.Likes, res.Points)
			a.printf("Your points: %d\n", res.Account.TotalPoints)
			return nil
		},
	}
}
