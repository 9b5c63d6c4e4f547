package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/civiz/internal/client"
	"github.com/benvon/civiz/internal/conversion"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newImagineCmd(a *app) *cobra.Command {
	var categoryID string
	cmd := &cobra.Command{
		Use:   "imagine <vision>",
		Short: "Turn a vision into an image",
		Long:  "Describe a change to the city. Guests get three free visions a day; signed-in accounts keep every vision and earn points.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			c, err := a.client()
			if err != nil {
				return err
			}
			if c.Authenticated() {
				created, err := c.CreateVision(cmd.Context(), text, categoryID)
				if err != nil {
					return fmt.Errorf("failed to create vision: %w", err)
				}
				a.printf("Vision %s saved in %s\n", created.Vision.ID, created.Vision.CategoryID)
				a.printf("  Image:  %s\n", created.Vision.ImageURL)
				a.printf("  Points: %d total (+3)\n", created.Account.TotalPoints)
				return nil
			}
			return a.imagineAsGuest(cmd, c, text, categoryID)
		},
	}
	cmd.Flags().StringVar(&categoryID, "category", "", "category id instead of automatic matching")
	return cmd
}

// imagineAsGuest checks the local quota before spending the server's, then
// records the result locally.
func (a *app) imagineAsGuest(cmd *cobra.Command, c *client.Client, text, categoryID string) error {
	store, err := a.guestStore()
	if err != nil {
		return err
	}

	quota, err := store.CanGenerate()
	if err != nil {
		return err
	}
	if !quota.Allowed {
		a.log.Debug("guest_quota_exhausted", zap.Time("reset_at", quota.ResetAt))
		return a.promptSignUp(conversion.Context{Trigger: conversion.TriggerRateLimit})
	}

	res, err := c.CreateAnonymousVision(cmd.Context(), text, categoryID)
	var limited *client.RateLimitedError
	if errors.As(err, &limited) {
		a.printf("%s\n\n", limited.Error())
		return a.promptSignUp(conversion.Context{Trigger: conversion.TriggerRateLimit})
	}
	if err != nil {
		return fmt.Errorf("failed to create vision: %w", err)
	}

	v, sess, err := store.RecordVision(res.Vision)
	if err != nil {
		return fmt.Errorf("failed to save guest vision: %w", err)
	}
	a.printf("Vision %s (%s, watermarked)\n", v.ID, v.CategoryID)
	a.printf("  Image:  %s\n", v.ImageURL)
	a.printf("  Points: %d guest points\n", sess.Points.TotalPoints)
	a.printf("  %s\n", res.Message)
	return nil
}

// promptSignUp shows the bundle for c and keeps c for after sign-up
func (a *app) promptSignUp(c conversion.Context) error {
	store, err := a.guestStore()
	if err != nil {
		return err
	}
	if err := store.SetConversionContext(c); err != nil {
		return err
	}
	printPresentation(a, conversion.Decide(c))
	return nil
}

func printPresentation(a *app, p conversion.Presentation) {
	a.printf("%s\n", p.Title)
	a.printf("%s\n", p.Subtitle)
	if p.Description != "" {
		a.printf("\n%s\n", p.Description)
	}
	for _, b := range p.Benefits {
		a.printf("  * %s\n", b)
	}
	a.printf("\n%s: run civiz with --token after signing in, then civiz migrate\n", p.CTALabel)
}
