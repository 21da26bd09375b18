package hubservice

import (
	"github.com/gridsense/telemetry-hub/internal/cache"
	"github.com/gridsense/telemetry-hub/internal/cleanup"
	"github.com/gridsense/telemetry-hub/internal/errors"
	"github.com/gridsense/telemetry-hub/internal/repository"
)

// HubService contains all repositories and service-wide dependencies
type HubService struct {
	Metrics repository.MetricRepository
	Devices repository.DeviceRepository
	Users   repository.UserRepository
	Cache   *cache.Cache
	Cleanup *cleanup.CleanupService
}

// New creates a new HubService instance
func New(
	metrics repository.MetricRepository,
	devices repository.DeviceRepository,
	users repository.UserRepository,
	c *cache.Cache,
) *HubService {
	svc := &HubService{
		Metrics: metrics,
		Devices: devices,
		Users:   users,
		Cache:   c,
	}
	svc.Cleanup = cleanup.New(devices, metrics)
	return svc
}

// Validate checks if all required repositories are initialized
func (s *HubService) Validate() error {
	if s.Metrics == nil {
		return ErrMissingRepository("metrics")
	}
	if s.Devices == nil {
		return ErrMissingRepository("devices")
	}
	if s.Users == nil {
		return ErrMissingRepository("users")
	}
	return nil
}

func ErrMissingRepository(name string) error {
	return errors.NewInternalError("missing repository: "+name, nil)
}
