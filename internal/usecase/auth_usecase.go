package usecase

import (
	"context"
	"strings"

	"karsaz/internal/domain/entity"
	"karsaz/internal/domain/repository"
	"karsaz/pkg/errors"
	"karsaz/pkg/logger"
)

// Session is the outcome of authenticating a request or handshake. It is
// either Unauthenticated or Authenticated.
type Session interface {
	session()
}

type Unauthenticated struct {
	Reason string
}

type Authenticated struct {
	User *entity.User
}

func (Unauthenticated) session() {}
func (Authenticated) session()   {}

// Err converts the rejection into the error returned to HTTP clients.
func (u Unauthenticated) Err() error {
	return errors.Unauthorized(u.Reason, nil)
}

type AuthUseCase struct {
	verifier TokenVerifier
	userRepo repository.UserRepository
}

func NewAuthUseCase(verifier TokenVerifier, userRepo repository.UserRepository) *AuthUseCase {
	return &AuthUseCase{
		verifier: verifier,
		userRepo: userRepo,
	}
}

// Authenticate resolves a bearer token to an active user. remoteAddr is only
// used for security logging.
func (uc *AuthUseCase) Authenticate(ctx context.Context, token, remoteAddr string) Session {
	token = strings.TrimSpace(token)
	if token == "" {
		return Unauthenticated{Reason: "Authentication token required"}
	}

	userID, err := uc.verifier.VerifyToken(ctx, token)
	if err != nil {
		logger.Security("authentication failed", "remote_addr", remoteAddr, "error", err)
		return Unauthenticated{Reason: errors.Public(err, "Authentication failed")}
	}
	if userID == "" {
		logger.Security("token without subject", "remote_addr", remoteAddr)
		return Unauthenticated{Reason: "Invalid token format"}
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			logger.Security("unknown user presented a valid token", "user_id", userID, "remote_addr", remoteAddr)
			return Unauthenticated{Reason: "User not found"}
		}
		logger.Error("load user during authentication", "user_id", userID, "error", err)
		return Unauthenticated{Reason: "Authentication failed"}
	}
	if !user.Active() {
		logger.Security("deleted user presented a valid token", "user_id", userID, "remote_addr", remoteAddr)
		return Unauthenticated{Reason: "User not found"}
	}

	return Authenticated{User: user}
}
