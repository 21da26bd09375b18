package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gridsense/telemetry-hub/internal/errors"
	"github.com/gridsense/telemetry-hub/internal/hubservice"
	"github.com/gridsense/telemetry-hub/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// APIKeyMiddleware authenticates requests against stored API keys.
// Keys are accepted from the X-API-Key header or as a bearer token.
type APIKeyMiddleware struct {
	svc *hubservice.HubService
}

func NewAPIKeyMiddleware(svc *hubservice.HubService) *APIKeyMiddleware {
	return &APIKeyMiddleware{svc: svc}
}

// Authenticate validates the API key and adds the user to the request
// context. A missing key, an unknown key and a valid key on a
// deactivated account each produce a distinct error code.
func (m *APIKeyMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := extractKey(r)
		if key == "" {
			handleError(w, errors.NewAuthError("no api key provided", nil).
				WithErrorCode("MISSING_API_KEY"))
			return
		}

		user, err := m.svc.AuthenticateKey(r.Context(), key)
		if err != nil {
			handleError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the authenticated user stored by Authenticate.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}

func extractKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func handleError(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*errors.APIError)
	if !ok {
		apiErr = errors.NewInternalError("internal server error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Code)
	json.NewEncoder(w).Encode(apiErr)
}
