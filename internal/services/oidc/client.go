package oidc

import (
	"context"
	"fmt"

	"github.com/benvon/civiz/internal/models"
	"golang.org/x/oauth2"
)

// Client runs the authorization code flow against a provider
type Client struct {
	config *oauth2.Config
}

// NewClient creates a client from stored settings and resolved endpoints
func NewClient(oidcConfig *models.OIDCConfig, login *LoginConfig) *Client {
	clientSecret := ""
	if oidcConfig.ClientSecret != nil {
		clientSecret = *oidcConfig.ClientSecret
	}

	return &Client{config: &oauth2.Config{
		ClientID:     oidcConfig.ClientID,
		ClientSecret: clientSecret,
		RedirectURL:  oidcConfig.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  login.AuthorizationEndpoint,
			TokenURL: login.TokenEndpoint,
		},
	}}
}

// Tokens are the credentials returned by a code exchange
type Tokens struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token,omitempty"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}

// ExchangeCode exchanges an authorization code for tokens
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Tokens, error) {
	tok, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	out := &Tokens{
		AccessToken: tok.AccessToken,
		TokenType:   tok.Type(),
		ExpiresIn:   tok.ExpiresIn,
	}
	if id, ok := tok.Extra("id_token").(string); ok {
		out.IDToken = id
	}
	return out, nil
}

// AuthCodeURL returns the URL that starts a login
func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state)
}
