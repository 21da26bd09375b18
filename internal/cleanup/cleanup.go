package cleanup

import (
	"context"
	"fmt"
	"strconv"

	nuts "github.com/vaudience/go-nuts"

	"github.com/gridsense/telemetry-hub/internal/repository"
)

// CleanupService coordinates deletion of hierarchical data
type CleanupService struct {
	devices repository.DeviceRepository
	metrics repository.MetricRepository
	events  *nuts.EventEmitter
}

// New creates a new CleanupService
func New(devices repository.DeviceRepository, metrics repository.MetricRepository) *CleanupService {
	return &CleanupService{
		devices: devices,
		metrics: metrics,
		events:  nuts.NewEventEmitter(),
	}
}

// DeleteDevice deletes a device together with all its metrics and radio
// messages in a single transaction.
func (s *CleanupService) DeleteDevice(ctx context.Context, deviceID int64) error {
	tx, err := s.devices.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if transaction is committed

	if err := s.metrics.DeleteByDeviceID(ctx, deviceID, tx); err != nil {
		return fmt.Errorf("failed to delete device metrics: %w", err)
	}

	if err := s.devices.Delete(ctx, deviceID, tx); err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Emit event after successful deletion
	s.events.Emit("device.deleted", strconv.FormatInt(deviceID, 10))
	return nil
}

// OnCleanup registers a callback for cleanup events
func (s *CleanupService) OnCleanup(event string, handler func(id string)) {
	s.events.On(event, "cleanup_handler", func(args ...interface{}) {
		if len(args) > 0 {
			if id, ok := args[0].(string); ok {
				handler(id)
			}
		}
	})
}
