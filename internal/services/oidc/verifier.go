package oidc

import (
	"context"
	"fmt"

	"github.com/benvon/civiz/internal/models"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Verifier checks token signatures and the issuer
type Verifier struct {
	jwksManager *JWKSManager
	issuer      string
}

// NewVerifier creates a new JWT verifier
func NewVerifier(jwksManager *JWKSManager, issuer string) *Verifier {
	return &Verifier{
		jwksManager: jwksManager,
		issuer:      issuer,
	}
}

// Verify validates tokenString against the key set at jwksURL and returns
// its claims.
func (v *Verifier) Verify(ctx context.Context, tokenString string, jwksURL string) (*models.JWTClaims, error) {
	keys, err := v.jwksManager.GetJWKS(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	// The provider may have rotated its signing key since the set was cached
	if kid := keyID(tokenString); kid != "" {
		if _, ok := keys.LookupKeyID(kid); !ok {
			if keys, err = v.jwksManager.Refresh(ctx, jwksURL); err != nil {
				return nil, fmt.Errorf("failed to refresh JWKS: %w", err)
			}
		}
	}

	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}

	claims := &models.JWTClaims{
		Sub: token.Subject(),
		Iss: token.Issuer(),
		Exp: token.Expiration().Unix(),
		Iat: token.IssuedAt().Unix(),
	}
	if aud := token.Audience(); len(aud) > 0 {
		claims.Aud = aud[0]
	}
	if email, ok := token.Get("email"); ok {
		claims.Email, _ = email.(string)
	}
	if name, ok := token.Get("name"); ok {
		claims.Name, _ = name.(string)
	}
	if verified, ok := token.Get("email_verified"); ok {
		claims.EmailVerified, _ = verified.(bool)
	}
	if claims.Sub == "" {
		return nil, fmt.Errorf("token missing subject claim")
	}
	return claims, nil
}

// keyID returns the kid of the token's first signature, or "" if it has none
func keyID(tokenString string) string {
	msg, err := jws.Parse([]byte(tokenString))
	if err != nil || len(msg.Signatures()) == 0 {
		return ""
	}
	return msg.Signatures()[0].ProtectedHeaders().KeyID()
}
