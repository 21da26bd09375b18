// FilePath: api/resources/api.resource.devices.go
package resources

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"

	"github.com/gridsense/telemetry-hub/internal/errors"
	"github.com/gridsense/telemetry-hub/internal/hubservice"
	"github.com/gridsense/telemetry-hub/internal/models"
)

// DeviceHandlers encapsulates the device-related HTTP handlers
type DeviceHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary Create a new device
// @Description Register a physical sensor unit
// @Tags devices
// @Accept json
// @Produce json
// @Param device body models.CreateDeviceRequest true "Device details"
// @Success 201 {object} models.Device
// @Failure 409 {object} errors.APIError
// @Failure 422 {object} errors.APIError
// @Router /devices [post]
// @Security ApiKeyAuth
func (h *DeviceHandlers) CreateDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req models.CreateDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	device, err := h.hubservice.CreateDevice(r.Context(), &req)
	if err != nil {
		respondWithError(w, asAPIError(err, requestID))
		return
	}

	respondWithJSON(w, http.StatusCreated, device)
}

// @Summary Get a device by ID
// @Tags devices
// @Produce json
// @Param id path int true "Device ID"
// @Success 200 {object} models.Device
// @Failure 404 {object} errors.APIError
// @Router /devices/{id} [get]
// @Security ApiKeyAuth
func (h *DeviceHandlers) GetDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	id, err := deviceIDFromPath(r)
	if err != nil {
		respondWithError(w, asAPIError(err, requestID))
		return
	}

	device, err := h.hubservice.GetDevice(r.Context(), id)
	if err != nil {
		respondWithError(w, asAPIError(err, requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, device)
}

// @Summary List devices
// @Description Get a paginated list of devices, newest first
// @Tags devices
// @Produce json
// @Param limit query int false "Page size, 1-200 (default 50)"
// @Param page query int false "Page number, starting at 1"
// @Param name query string false "Filter by exact name"
// @Success 200 {object} models.PaginatedDevices
// @Router /devices [get]
// @Security ApiKeyAuth
func (h *DeviceHandlers) ListDevices(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var params models.ListDevicesParams
	if err := queryDecoder.Decode(&params, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	filters := models.DeviceFilters{
		Name:        params.Name,
		GroundCover: params.GroundCover,
		Orientation: params.Orientation,
		Shading:     params.Shading,
		TagCategory: params.TagCategory,
		TagName:     params.TagName,
	}

	result, err := h.hubservice.ListDevices(r.Context(), filters, params.Limit, params.Page)
	if err != nil {
		respondWithError(w, asAPIError(err, requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// @Summary Update a device
// @Description Apply a partial update; omitted fields are left unchanged
// @Tags devices
// @Accept json
// @Produce json
// @Param id path int true "Device ID"
// @Param device body models.UpdateDeviceRequest true "Fields to update"
// @Success 200 {object} models.Device
// @Failure 404 {object} errors.APIError
// @Failure 409 {object} errors.APIError
// @Router /devices/{id} [put]
// @Security ApiKeyAuth
func (h *DeviceHandlers) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	id, err := deviceIDFromPath(r)
	if err != nil {
		respondWithError(w, asAPIError(err, requestID))
		return
	}

	var req models.UpdateDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	device, err := h.hubservice.UpdateDevice(r.Context(), id, &req)
	if err != nil {
		respondWithError(w, asAPIError(err, requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, device)
}

// @Summary Delete a device
// @Description Delete a device and all its metrics and messages
// @Tags devices
// @Param id path int true "Device ID"
// @Success 204
// @Failure 404 {object} errors.APIError
// @Router /devices/{id} [delete]
// @Security ApiKeyAuth
func (h *DeviceHandlers) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	id, err := deviceIDFromPath(r)
	if err != nil {
		respondWithError(w, asAPIError(err, requestID))
		return
	}

	if err := h.hubservice.DeleteDevice(r.Context(), id); err != nil {
		respondWithError(w, asAPIError(err, requestID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Get device status
// @Description Get a device together with its most recent metric
// @Tags devices
// @Produce json
// @Param id path int true "Device ID"
// @Success 200 {object} models.DeviceLatestData
// @Failure 404 {object} errors.APIError
// @Router /devices/{id}/status [get]
// @Security ApiKeyAuth
func (h *DeviceHandlers) GetDeviceStatus(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	id, err := deviceIDFromPath(r)
	if err != nil {
		respondWithError(w, asAPIError(err, requestID))
		return
	}

	status, err := h.hubservice.GetDeviceStatus(r.Context(), id)
	if err != nil {
		respondWithError(w, asAPIError(err, requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

func deviceIDFromPath(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError("invalid device id", err).
			WithErrorCode("INVALID_DEVICE_ID")
	}
	return id, nil
}
