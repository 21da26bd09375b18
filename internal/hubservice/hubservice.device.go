package hubservice

import (
	"context"
	"fmt"
	"time"

	nuts "github.com/vaudience/go-nuts"

	"github.com/gridsense/telemetry-hub/internal/cache"
	"github.com/gridsense/telemetry-hub/internal/errors"
	"github.com/gridsense/telemetry-hub/internal/models"
)

const (
	// DefaultDeviceLimit is the page size for device listings when none
	// is requested.
	DefaultDeviceLimit = 50
	// MaxDeviceLimit caps the device listing page size.
	MaxDeviceLimit = 200
)

// DeviceService handles device-related business logic
type DeviceService interface {
	CreateDevice(ctx context.Context, req *models.CreateDeviceRequest) (*models.Device, error)
	GetDevice(ctx context.Context, id int64) (*models.Device, error)
	UpdateDevice(ctx context.Context, id int64, req *models.UpdateDeviceRequest) (*models.Device, error)
	DeleteDevice(ctx context.Context, id int64) error
	ListDevices(ctx context.Context, filters models.DeviceFilters, limit, page *int) (*models.PaginatedDevices, error)
	GetDeviceStatus(ctx context.Context, id int64) (*models.DeviceLatestData, error)
}

func deviceCacheKey(id int64) string {
	return fmt.Sprintf("device:%d", id)
}

// getDeviceCached serves device lookups from Redis when possible. The
// ingestion path hits this for every reported metric.
func (s *HubService) getDeviceCached(ctx context.Context, id int64) (*models.Device, error) {
	key := deviceCacheKey(id)

	cached := &models.Device{}
	if err := s.Cache.Get(ctx, key, cached); err == nil {
		return cached, nil
	} else if err != cache.ErrMiss {
		nuts.L.Warnf("[DeviceService] Cache read for device %d failed: %v", id, err)
	}

	device, err := s.Devices.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.Set(ctx, key, device); err != nil {
		nuts.L.Warnf("[DeviceService] Cache write for device %d failed: %v", id, err)
	}
	return device, nil
}

// CreateDevice creates a new device with proper validation
func (s *HubService) CreateDevice(ctx context.Context, req *models.CreateDeviceRequest) (*models.Device, error) {
	if req.Name == "" {
		return nil, errors.NewValidationError("device name is required", nil).
			WithErrorCode("DEVICE_NAME_REQUIRED")
	}
	if err := validateDeviceFields(req.Latitude, req.Longitude, req.Shading); err != nil {
		return nil, err
	}

	if _, err := s.Devices.GetByName(ctx, req.Name); err == nil {
		return nil, errors.NewConflictError(
			fmt.Sprintf("device name %q is already taken", req.Name), nil,
		).WithErrorCode("DEVICE_NAME_TAKEN")
	} else if !errors.IsNotFound(err) {
		return nil, err
	}

	device := &models.Device{
		Name:                     req.Name,
		HardwareID:               req.HardwareID,
		SoftwareID:               req.SoftwareID,
		Latitude:                 req.Latitude,
		Longitude:                req.Longitude,
		CreatedAt:                time.Now().UTC(),
		AppEUI:                   req.AppEUI,
		DevEUI:                   req.DevEUI,
		AppKey:                   req.AppKey,
		GroundCover:              req.GroundCover,
		HeightAboveGround:        req.HeightAboveGround,
		Shading:                  req.Shading,
		CloseToATree:             req.CloseToATree,
		CloseToWater:             req.CloseToWater,
		Orientation:              req.Orientation,
		DistanceToNextBuildingCm: req.DistanceToNextBuildingCm,
		Comment:                  req.Comment,
		Tags:                     []models.Tag{},
	}

	if err := s.Devices.Create(ctx, device); err != nil {
		return nil, err
	}

	if len(req.Tags) > 0 {
		tags, err := s.Devices.ReplaceTags(ctx, device.ID, req.Tags)
		if err != nil {
			return nil, err
		}
		device.Tags = tags
	}

	nuts.L.Infof("[DeviceService] Created device %d (%s)", device.ID, device.Name)
	return device, nil
}

// GetDevice retrieves a single device
func (s *HubService) GetDevice(ctx context.Context, id int64) (*models.Device, error) {
	return s.getDeviceCached(ctx, id)
}

// UpdateDevice applies a partial update. Nil request fields are left
// unchanged.
func (s *HubService) UpdateDevice(ctx context.Context, id int64, req *models.UpdateDeviceRequest) (*models.Device, error) {
	device, err := s.Devices.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != device.Name {
		if *req.Name == "" {
			return nil, errors.NewValidationError("device name must not be empty", nil).
				WithErrorCode("DEVICE_NAME_REQUIRED")
		}
		if other, err := s.Devices.GetByName(ctx, *req.Name); err == nil && other.ID != id {
			return nil, errors.NewConflictError(
				fmt.Sprintf("device name %q is already taken", *req.Name), nil,
			).WithErrorCode("DEVICE_NAME_TAKEN")
		} else if err != nil && !errors.IsNotFound(err) {
			return nil, err
		}
		device.Name = *req.Name
	}

	lat, lon, shading := device.Latitude, device.Longitude, device.Shading
	if req.Latitude != nil {
		lat = req.Latitude
	}
	if req.Longitude != nil {
		lon = req.Longitude
	}
	if req.Shading != nil {
		shading = req.Shading
	}
	if err := validateDeviceFields(lat, lon, shading); err != nil {
		return nil, err
	}
	device.Latitude, device.Longitude, device.Shading = lat, lon, shading

	if req.HardwareID != nil {
		device.HardwareID = req.HardwareID
	}
	if req.SoftwareID != nil {
		device.SoftwareID = req.SoftwareID
	}
	if req.AppEUI != nil {
		device.AppEUI = req.AppEUI
	}
	if req.DevEUI != nil {
		device.DevEUI = req.DevEUI
	}
	if req.AppKey != nil {
		device.AppKey = req.AppKey
	}
	if req.GroundCover != nil {
		device.GroundCover = req.GroundCover
	}
	if req.HeightAboveGround != nil {
		device.HeightAboveGround = req.HeightAboveGround
	}
	if req.CloseToATree != nil {
		device.CloseToATree = req.CloseToATree
	}
	if req.CloseToWater != nil {
		device.CloseToWater = req.CloseToWater
	}
	if req.Orientation != nil {
		device.Orientation = req.Orientation
	}
	if req.DistanceToNextBuildingCm != nil {
		device.DistanceToNextBuildingCm = req.DistanceToNextBuildingCm
	}
	if req.Comment != nil {
		device.Comment = req.Comment
	}

	if err := s.Devices.Update(ctx, device); err != nil {
		return nil, err
	}

	if req.Tags != nil {
		tags, err := s.Devices.ReplaceTags(ctx, id, *req.Tags)
		if err != nil {
			return nil, err
		}
		device.Tags = tags
	}

	if err := s.Cache.Delete(ctx, deviceCacheKey(id)); err != nil {
		nuts.L.Warnf("[DeviceService] Cache invalidation for device %d failed: %v", id, err)
	}

	nuts.L.Infof("[DeviceService] Updated device %d", id)
	return device, nil
}

// DeleteDevice handles device deletion with cascading cleanup of its
// metrics and messages.
func (s *HubService) DeleteDevice(ctx context.Context, id int64) error {
	if _, err := s.Devices.Get(ctx, id); err != nil {
		return err
	}

	if err := s.Cleanup.DeleteDevice(ctx, id); err != nil {
		return err
	}

	if err := s.Cache.Delete(ctx, deviceCacheKey(id)); err != nil {
		nuts.L.Warnf("[DeviceService] Cache invalidation for device %d failed: %v", id, err)
	}

	nuts.L.Infof("[DeviceService] Deleted device %d", id)
	return nil
}

// ListDevices retrieves a paginated list of devices. Device listings
// are always enveloped.
func (s *HubService) ListDevices(ctx context.Context, filters models.DeviceFilters, limit, page *int) (*models.PaginatedDevices, error) {
	pageSize := DefaultDeviceLimit
	if limit != nil {
		pageSize = *limit
	}
	if pageSize < 1 || pageSize > MaxDeviceLimit {
		return nil, errors.NewValidationError(
			fmt.Sprintf("limit must be between 1 and %d", MaxDeviceLimit), nil,
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

	total, devices, err := s.Devices.List(ctx, filters, pageNum, pageSize)
	if err != nil {
		return nil, err
	}

	return &models.PaginatedDevices{
		Data:       devices,
		Pagination: models.NewPagination(total, pageNum, pageSize),
	}, nil
}

// GetDeviceStatus combines a device with its most recent metric.
func (s *HubService) GetDeviceStatus(ctx context.Context, id int64) (*models.DeviceLatestData, error) {
	device, err := s.getDeviceCached(ctx, id)
	if err != nil {
		return nil, err
	}

	status := &models.DeviceLatestData{
		Device:    device,
		UpdatedAt: device.CreatedAt,
	}

	latest, err := s.Metrics.GetLatestByDevice(ctx, id)
	switch {
	case err == nil:
		status.Latest = latest
		status.UpdatedAt = latest.TimestampServer
	case errors.IsNotFound(err):
		// Device has never reported. Not an error.
	default:
		return nil, err
	}

	return status, nil
}

func validateDeviceFields(lat, lon *float64, shading *int) error {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return errors.NewValidationError("latitude must be between -90 and 90", nil).
			WithErrorCode("INVALID_LATITUDE")
	}
	if lon != nil && (*lon < -180 || *lon > 180) {
		return errors.NewValidationError("longitude must be between -180 and 180", nil).
			WithErrorCode("INVALID_LONGITUDE")
	}
	if shading != nil && (*shading < 0 || *shading > 100) {
		return errors.NewValidationError("shading must be between 0 and 100", nil).
			WithErrorCode("INVALID_SHADING")
	}
	return nil
}
