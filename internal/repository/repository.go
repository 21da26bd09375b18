// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gridsense/telemetry-hub/internal/database"
	"github.com/gridsense/telemetry-hub/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates that a resource already exists
	ErrDuplicate = errors.New("resource already exists")
	// ErrInvalidInput indicates that the input data is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// MetricRepository defines the interface for sensor metric storage.
type MetricRepository interface {
	database.Repository
	// Insert persists a metric and its nested messages in one
	// transaction and fills in the assigned identifiers.
	Insert(ctx context.Context, metric *models.SensorMetric) error
	Count(ctx context.Context, filters models.MetricFilters) (int64, error)
	List(ctx context.Context, filters models.MetricFilters, offset, limit int) ([]*models.SensorMetric, error)
	GetLatestByDevice(ctx context.Context, deviceID int64) (*models.SensorMetric, error)
	DeleteByDeviceID(ctx context.Context, deviceID int64, tx database.Transaction) error
}

// DeviceRepository defines the interface for device data operations
type DeviceRepository interface {
	database.Repository
	Create(ctx context.Context, device *models.Device) error
	Get(ctx context.Context, id int64) (*models.Device, error)
	GetByName(ctx context.Context, name string) (*models.Device, error)
	Update(ctx context.Context, device *models.Device) error
	Delete(ctx context.Context, id int64, tx database.Transaction) error
	List(ctx context.Context, filters models.DeviceFilters, page, limit int) (int64, []*models.Device, error)
	GetTags(ctx context.Context, deviceID int64) ([]models.Tag, error)
	ReplaceTags(ctx context.Context, deviceID int64, tags []string) ([]models.Tag, error)
}

// UserRepository defines the interface for API-key principal storage.
type UserRepository interface {
	database.Repository
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// ListCredentialed returns every user with a stored key hash,
	// including deactivated ones; key verification walks this set
	// since hashes are salted per user, and the caller decides what
	// an inactive match means.
	ListCredentialed(ctx context.Context) ([]*models.User, error)
	SetCredentials(ctx context.Context, userID int64, keyHash, keySalt string, registeredAt time.Time) error
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error
}
