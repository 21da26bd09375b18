// FilePath: api/resources/api.resource.metrics.go
package resources

import (
	"encoding/json"
	"net/http"

	nuts "github.com/vaudience/go-nuts"

	"github.com/gridsense/telemetry-hub/internal/dates"
	"github.com/gridsense/telemetry-hub/internal/errors"
	"github.com/gridsense/telemetry-hub/internal/hubservice"
	"github.com/gridsense/telemetry-hub/internal/models"
)

// MetricHandlers encapsulates the metric-related HTTP handlers
type MetricHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary List sensor metrics
// @Description Get metrics filtered by server-timestamp range, newest first. Small results are a bare array; results over 200 rows carry a pagination envelope.
// @Tags metrics
// @Produce json
// @Param min_date query string false "Lower bound, ISO-8601 or Unix epoch seconds"
// @Param max_date query string false "Upper bound, ISO-8601 or Unix epoch seconds"
// @Param limit query int false "Page size, 1-1000 (default 100)"
// @Param page query int false "Page number, starting at 1"
// @Success 200 {array} models.SensorMetric
// @Failure 400 {object} errors.APIError
// @Failure 422 {object} errors.APIError
// @Router /metrics [get]
func (h *MetricHandlers) ListMetrics(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var params models.ListMetricsParams
	if err := queryDecoder.Decode(&params, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	filters, err := parseDateFilters(params.MinDate, params.MaxDate)
	if err != nil {
		respondWithError(w, asAPIError(err, requestID))
		return
	}

	result, err := h.hubservice.ListMetrics(r.Context(), filters, params.Limit, params.Page)
	if err != nil {
		respondWithError(w, asAPIError(err, requestID))
		return
	}

	if result.Pagination == nil {
		respondWithJSON(w, http.StatusOK, result.Metrics)
		return
	}
	respondWithJSON(w, http.StatusOK, models.PaginatedMetrics{
		Data:       result.Metrics,
		Pagination: *result.Pagination,
	})
}

// @Summary Report a sensor metric
// @Description Store one observation with its radio messages. The metric and all messages are persisted atomically.
// @Tags metrics
// @Accept json
// @Produce json
// @Param metric body models.CreateMetricRequest true "Metric payload"
// @Success 201 {object} models.SensorMetric
// @Failure 404 {object} errors.APIError
// @Failure 422 {object} errors.APIError
// @Router /metrics [post]
// @Security ApiKeyAuth
func (h *MetricHandlers) CreateMetric(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var req models.CreateMetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	metric, err := h.hubservice.CreateMetric(r.Context(), &req)
	if err != nil {
		respondWithError(w, asAPIError(err, requestID))
		return
	}

	respondWithJSON(w, http.StatusCreated, metric)
}

// parseDateFilters turns the raw min_date/max_date query values into a
// filter window. Unparsable values surface as 400s with the offending
// input in the error details.
func parseDateFilters(minDate, maxDate string) (models.MetricFilters, error) {
	filters := models.MetricFilters{}
	if minDate != "" {
		t, err := dates.Parse(minDate)
		if err != nil {
			return filters, err
		}
		filters.MinDate = &t
	}
	if maxDate != "" {
		t, err := dates.Parse(maxDate)
		if err != nil {
			return filters, err
		}
		filters.MaxDate = &t
	}
	return filters, nil
}
