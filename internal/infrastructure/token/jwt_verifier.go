package token

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"karsaz/pkg/errors"
	"karsaz/pkg/logger"
)

// Claims is the access token payload issued by the marketplace auth service.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens signed with a shared secret, or RS256
// tokens whose keys are published at a JWKS endpoint.
type JWTVerifier struct {
	secret []byte
	issuer string
	jwks   *keyfunc.JWKS
	parser *jwt.Parser
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		issuer: issuer,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// NewJWKSVerifier fetches the key set once and keeps it refreshed in the
// background until Close is called.
func NewJWKSVerifier(jwksURL, issuer string) (*JWTVerifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Error("refresh jwks", "url", jwksURL, "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load jwks from %s: %w", jwksURL, err)
	}
	return &JWTVerifier{
		issuer: issuer,
		jwks:   jwks,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})),
	}, nil
}

func (v *JWTVerifier) VerifyToken(ctx context.Context, raw string) (string, error) {
	claims := &Claims{}
	tok, err := v.parser.ParseWithClaims(raw, claims, v.keyFunc)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.Unauthorized("Token expired", err)
		}
		return "", errors.Unauthorized("Invalid token", err)
	}
	if !tok.Valid {
		return "", errors.Unauthorized("Invalid token", nil)
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return "", errors.Unauthorized("Invalid token issuer", nil)
	}
	if claims.UserID == "" {
		return "", errors.Unauthorized("Invalid token format", nil)
	}
	return claims.UserID, nil
}

// Close stops the JWKS refresh goroutine, if any.
func (v *JWTVerifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

func (v *JWTVerifier) keyFunc(t *jwt.Token) (interface{}, error) {
	if v.jwks != nil {
		return v.jwks.Keyfunc(t)
	}
	return v.secret, nil
}
