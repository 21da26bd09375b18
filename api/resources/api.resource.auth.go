// FilePath: api/resources/api.resource.auth.go
package resources

import (
	"encoding/json"
	"net/http"

	nuts "github.com/vaudience/go-nuts"

	"github.com/gridsense/telemetry-hub/internal/errors"
	"github.com/gridsense/telemetry-hub/internal/hubservice"
	"github.com/gridsense/telemetry-hub/internal/models"
)

// AuthHandlers encapsulates registration and key issuance
type AuthHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary Register a pre-created user
// @Description Activate a user account and issue its API key. The key is returned exactly once.
// @Tags auth
// @Accept json
// @Produce json
// @Param registration body models.RegisterRequest true "Registration details"
// @Success 201 {object} models.APIKeyResponse
// @Failure 404 {object} errors.APIError
// @Failure 409 {object} errors.APIError
// @Failure 422 {object} errors.APIError
// @Router /auth/register [post]
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	resp, err := h.hubservice.Register(r.Context(), &req)
	if err != nil {
		respondWithError(w, asAPIError(err, requestID))
		return
	}

	respondWithJSON(w, http.StatusCreated, resp)
}
