package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"karsaz/pkg/errors"
)

// idTokenVerifier is the part of *auth.Client used here.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthClient verifies Firebase ID tokens.
type AuthClient struct {
	client idTokenVerifier
}

func NewAuthClient(client *auth.Client) *AuthClient {
	return &AuthClient{
		client: client,
	}
}

func (f *AuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		if auth.IsIDTokenExpired(err) {
			return "", errors.Unauthorized("Token expired", err)
		}
		return "", errors.Unauthorized("Invalid token", err)
	}
	return result.UID, nil
}
