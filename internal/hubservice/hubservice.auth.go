package hubservice

import (
	"context"
	"regexp"
	"time"

	nuts "github.com/vaudience/go-nuts"

	"github.com/gridsense/telemetry-hub/internal/auth"
	"github.com/gridsense/telemetry-hub/internal/errors"
	"github.com/gridsense/telemetry-hub/internal/models"
)

// AuthService handles registration and API-key verification
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.APIKeyResponse, error)
	AuthenticateKey(ctx context.Context, key string) (*models.User, error)
}

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{2,63}$`)

// Register activates a pre-created user and issues their API key. The
// key is returned exactly once and only its salted hash is stored.
func (s *HubService) Register(ctx context.Context, req *models.RegisterRequest) (*models.APIKeyResponse, error) {
	if !usernameRe.MatchString(req.Username) {
		return nil, errors.NewValidationError(
			"username must be 3-64 characters of letters, digits, '_', '.' or '-'", nil,
		).WithErrorCode("INVALID_USERNAME_FORMAT")
	}

	user, err := s.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError("username not found", nil).
				WithErrorCode("USERNAME_NOT_FOUND")
		}
		return nil, err
	}
	if user.IsRegistered {
		return nil, errors.NewConflictError("user is already registered", nil).
			WithErrorCode("USER_ALREADY_REGISTERED")
	}

	key, hash, salt, err := auth.GenerateKeyWithHash()
	if err != nil {
		return nil, errors.NewInternalError("failed to generate api key", err)
	}

	if err := s.Users.SetCredentials(ctx, user.ID, hash, salt, time.Now().UTC()); err != nil {
		return nil, err
	}

	nuts.L.Infof("[AuthService] Registered user %s (%d)", user.Username, user.ID)
	return &models.APIKeyResponse{
		UserID:   user.ID,
		Username: user.Username,
		APIKey:   key,
		Message:  "Store this key securely. It will not be shown again.",
	}, nil
}

// AuthenticateKey resolves an API key to its user. Hashes are salted
// per user, so verification walks every credentialed user; the set is
// small and the PBKDF2 cost dominates anyway.
func (s *HubService) AuthenticateKey(ctx context.Context, key string) (*models.User, error) {
	if !auth.ValidKeyFormat(key) {
		return nil, errors.NewAuthError("invalid api key", nil).
			WithErrorCode("INVALID_API_KEY")
	}

	users, err := s.Users.ListCredentialed(ctx)
	if err != nil {
		return nil, err
	}

	for _, user := range users {
		if user.APIKeyHash == nil || user.APIKeySalt == nil {
			continue
		}
		if !auth.VerifyKey(key, *user.APIKeyHash, *user.APIKeySalt) {
			continue
		}
		if !user.IsRegistered {
			return nil, errors.NewAuthorizationError("user is not registered", nil).
				WithErrorCode("USER_NOT_REGISTERED")
		}
		if !user.IsActive {
			return nil, errors.NewAuthorizationError("user is deactivated", nil).
				WithErrorCode("USER_NOT_ACTIVE")
		}
		if err := s.Users.TouchLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
			nuts.L.Warnf("[AuthService] Failed to update last login for user %d: %v", user.ID, err)
		}
		return user, nil
	}

	return nil, errors.NewAuthError("invalid api key", nil).
		WithErrorCode("INVALID_API_KEY")
}
