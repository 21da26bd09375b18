package hubservice

import (
	"context"
	"fmt"
	"time"

	nuts "github.com/vaudience/go-nuts"

	"github.com/gridsense/telemetry-hub/internal/errors"
	"github.com/gridsense/telemetry-hub/internal/models"
)

const (
	// DefaultListLimit is the page size used when no limit is requested.
	DefaultListLimit = 100
	// MaxListLimit is the largest accepted page size for metric queries.
	MaxListLimit = 1000

	// Result sets up to this total are returned as a bare array; larger
	// ones get the pagination envelope. Existing firmware parses the
	// bare form, so the threshold is part of the wire contract.
	envelopeThreshold = 200

	minSpreadingFactor = 7
	maxSpreadingFactor = 12
)

// MetricService handles metric-related business logic
type MetricService interface {
	ListMetrics(ctx context.Context, filters models.MetricFilters, limit, page *int) (*MetricList, error)
	CreateMetric(ctx context.Context, req *models.CreateMetricRequest) (*models.SensorMetric, error)
}

// MetricList is a metric query result. Pagination is nil for small
// result sets, which are serialized as a bare array.
type MetricList struct {
	Metrics    []*models.SensorMetric
	Pagination *models.Pagination
}

// ListMetrics runs a filtered, paginated metric query. The total count
// is taken before the page fetch so the envelope decision and the page
// math see the same number.
func (s *HubService) ListMetrics(ctx context.Context, filters models.MetricFilters, limit, page *int) (*MetricList, error) {
	pageSize := DefaultListLimit
	if limit != nil {
		pageSize = *limit
	}
	if pageSize < 1 || pageSize > MaxListLimit {
		return nil, errors.NewValidationError(
			fmt.Sprintf("limit must be between 1 and %d", MaxListLimit), nil,
		).WithErrorCode("INVALID_LIMIT")
	}

	pageNum := 1
	if page != nil {
		pageNum = *page
	}
	if pageNum < 1 {
		return nil, errors.NewValidationError("page must be 1 or greater", nil).
			WithErrorCode("INVALID_PAGE")
	}

	// An inverted date window matches nothing. Short-circuit without
	// touching the store.
	if filters.Empty() {
		return &MetricList{Metrics: []*models.SensorMetric{}}, nil
	}

	total, err := s.Metrics.Count(ctx, filters)
	if err != nil {
		return nil, err
	}

	// Pages past the last one come back empty without a fetch. Checking
	// the page number instead of the offset keeps the offset
	// multiplication from wrapping for huge page values.
	metrics := []*models.SensorMetric{}
	lastPage := (total + int64(pageSize) - 1) / int64(pageSize)
	if int64(pageNum) <= lastPage {
		metrics, err = s.Metrics.List(ctx, filters, (pageNum-1)*pageSize, pageSize)
		if err != nil {
			return nil, err
		}
	}

	if total <= envelopeThreshold {
		return &MetricList{Metrics: metrics}, nil
	}

	pagination := models.NewPagination(total, pageNum, pageSize)
	return &MetricList{Metrics: metrics, Pagination: &pagination}, nil
}

// CreateMetric validates and persists one reported observation together
// with its radio messages.
func (s *HubService) CreateMetric(ctx context.Context, req *models.CreateMetricRequest) (*models.SensorMetric, error) {
	if req.DeviceID <= 0 {
		return nil, errors.NewValidationError("device_id is required", nil).
			WithErrorCode("DEVICE_ID_REQUIRED")
	}
	if req.TimestampDevice <= 0 {
		return nil, errors.NewValidationError("timestamp_device is required", nil).
			WithErrorCode("TIMESTAMP_DEVICE_REQUIRED")
	}
	for i, msg := range req.Messages {
		if err := validateMessage(i, msg); err != nil {
			return nil, err
		}
	}

	if _, err := s.getDeviceCached(ctx, req.DeviceID); err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewNotFoundError(
				fmt.Sprintf("device %d not found", req.DeviceID), nil,
			).WithErrorCode("DEVICE_NOT_FOUND")
		}
		return nil, err
	}

	serverTime := time.Now().UTC()
	if req.TimestampServer != nil {
		serverTime = time.Unix(*req.TimestampServer, 0).UTC()
	}

	metric := &models.SensorMetric{
		DeviceID:        req.DeviceID,
		TimestampDevice: time.Unix(req.TimestampDevice, 0).UTC(),
		TimestampServer: serverTime,
		Temperature:     req.Temperature,
		Humidity:        req.Humidity,
		AirPressure:     req.AirPressure,
		BatteryVoltage:  req.BatteryVoltage,
		Confirmed:       req.Confirmed,
		ConsumedAirtime: req.ConsumedAirtime,
		FCnt:            req.FCnt,
		Frequency:       req.Frequency,
		Messages:        make([]models.SensorMessage, 0, len(req.Messages)),
	}
	for _, msg := range req.Messages {
		metric.Messages = append(metric.Messages, models.SensorMessage{
			GatewayID:           msg.GatewayID,
			RSSI:                msg.RSSI,
			SNR:                 msg.SNR,
			ChannelRSSI:         msg.ChannelRSSI,
			LoraBandwidth:       msg.LoraBandwidth,
			LoraSpreadingFactor: msg.LoraSpreadingFactor,
			LoraCodingRate:      msg.LoraCodingRate,
			Frequency:           msg.Frequency,
		})
	}

	if err := s.Metrics.Insert(ctx, metric); err != nil {
		return nil, err
	}

	nuts.L.Infof("[MetricService] Stored metric %d for device %d (%d messages)",
		metric.ID, metric.DeviceID, len(metric.Messages))
	return metric, nil
}

func validateMessage(idx int, msg models.SensorMessageRequest) error {
	if msg.GatewayID == "" {
		return errors.NewValidationError(
			fmt.Sprintf("sensor_messages[%d]: gateway_id is required", idx), nil,
		).WithErrorCode("GATEWAY_ID_REQUIRED")
	}
	if sf := msg.LoraSpreadingFactor; sf != nil && (*sf < minSpreadingFactor || *sf > maxSpreadingFactor) {
		return errors.NewValidationError(
			fmt.Sprintf("sensor_messages[%d]: lora_spreading_factor must be between %d and %d",
				idx, minSpreadingFactor, maxSpreadingFactor), nil,
		).WithErrorCode("INVALID_SPREADING_FACTOR")
	}
	if msg.LoraBandwidth != nil && *msg.LoraBandwidth <= 0 {
		return errors.NewValidationError(
			fmt.Sprintf("sensor_messages[%d]: lora_bandwidth must be positive", idx), nil,
		).WithErrorCode("INVALID_BANDWIDTH")
	}
	if msg.Frequency != nil && *msg.Frequency <= 0 {
		return errors.NewValidationError(
			fmt.Sprintf("sensor_messages[%d]: frequency must be positive", idx), nil,
		).WithErrorCode("INVALID_FREQUENCY")
	}
	return nil
}
