package hubservice

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/gridsense/telemetry-hub/internal/cache"
	"github.com/gridsense/telemetry-hub/internal/config"
	"github.com/gridsense/telemetry-hub/internal/database"
	"github.com/gridsense/telemetry-hub/internal/errors"
	"github.com/gridsense/telemetry-hub/internal/models"
)

// In-memory repository fakes. They mirror the query semantics of the
// postgres implementations closely enough for service-level tests.

type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit() error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func (t *fakeTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (t *fakeTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

type fakeMetricRepo struct {
	metrics    []*models.SensorMetric
	nextID     int64
	insertErr  error
	countCalls int
	listCalls  int
	lastTx     *fakeTx
}

func (r *fakeMetricRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	r.lastTx = &fakeTx{}
	return r.lastTx, nil
}

func (r *fakeMetricRepo) Insert(ctx context.Context, metric *models.SensorMetric) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.nextID++
	metric.ID = r.nextID
	for i := range metric.Messages {
		metric.Messages[i].ID = int64(i + 1)
		metric.Messages[i].MetricID = metric.ID
	}
	r.metrics = append(r.metrics, metric)
	return nil
}

func (r *fakeMetricRepo) matching(filters models.MetricFilters) []*models.SensorMetric {
	out := []*models.SensorMetric{}
	for _, m := range r.metrics {
		if filters.MinDate != nil && m.TimestampServer.Before(*filters.MinDate) {
			continue
		}
		if filters.MaxDate != nil && m.TimestampServer.After(*filters.MaxDate) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TimestampServer.Equal(out[j].TimestampServer) {
			return out[i].TimestampServer.After(out[j].TimestampServer)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *fakeMetricRepo) Count(ctx context.Context, filters models.MetricFilters) (int64, error) {
	r.countCalls++
	return int64(len(r.matching(filters))), nil
}

func (r *fakeMetricRepo) List(ctx context.Context, filters models.MetricFilters, offset, limit int) ([]*models.SensorMetric, error) {
	r.listCalls++
	rows := r.matching(filters)
	if offset >= len(rows) {
		return []*models.SensorMetric{}, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func (r *fakeMetricRepo) GetLatestByDevice(ctx context.Context, deviceID int64) (*models.SensorMetric, error) {
	var latest *models.SensorMetric
	for _, m := range r.matching(models.MetricFilters{}) {
		if m.DeviceID == deviceID {
			latest = m
			break
		}
	}
	if latest == nil {
		return nil, errors.NewNotFoundError("no metrics for device", nil)
	}
	return latest, nil
}

func (r *fakeMetricRepo) DeleteByDeviceID(ctx context.Context, deviceID int64, tx database.Transaction) error {
	kept := r.metrics[:0]
	for _, m := range r.metrics {
		if m.DeviceID != deviceID {
			kept = append(kept, m)
		}
	}
	r.metrics = kept
	return nil
}

type fakeDeviceRepo struct {
	devices map[int64]*models.Device
	tags    map[int64][]models.Tag
	nextID  int64
	lastTx  *fakeTx
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{
		devices: map[int64]*models.Device{},
		tags:    map[int64][]models.Tag{},
	}
}

func (r *fakeDeviceRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	r.lastTx = &fakeTx{}
	return r.lastTx, nil
}

func (r *fakeDeviceRepo) Create(ctx context.Context, device *models.Device) error {
	r.nextID++
	device.ID = r.nextID
	copied := *device
	r.devices[device.ID] = &copied
	return nil
}

func (r *fakeDeviceRepo) Get(ctx context.Context, id int64) (*models.Device, error) {
	device, ok := r.devices[id]
	if !ok {
		return nil, errors.NewNotFoundError("device not found", nil)
	}
	copied := *device
	copied.Tags = r.tags[id]
	if copied.Tags == nil {
		copied.Tags = []models.Tag{}
	}
	return &copied, nil
}

func (r *fakeDeviceRepo) GetByName(ctx context.Context, name string) (*models.Device, error) {
	for id, device := range r.devices {
		if device.Name == name {
			return r.Get(ctx, id)
		}
	}
	return nil, errors.NewNotFoundError("device not found", nil)
}

func (r *fakeDeviceRepo) Update(ctx context.Context, device *models.Device) error {
	if _, ok := r.devices[device.ID]; !ok {
		return errors.NewNotFoundError("device not found", nil)
	}
	copied := *device
	r.devices[device.ID] = &copied
	return nil
}

func (r *fakeDeviceRepo) Delete(ctx context.Context, id int64, tx database.Transaction) error {
	if _, ok := r.devices[id]; !ok {
		return errors.NewNotFoundError("device not found", nil)
	}
	delete(r.devices, id)
	delete(r.tags, id)
	return nil
}

func (r *fakeDeviceRepo) List(ctx context.Context, filters models.DeviceFilters, page, limit int) (int64, []*models.Device, error) {
	all := []*models.Device{}
	for id := range r.devices {
		device, _ := r.Get(ctx, id)
		if filters.Name != "" && device.Name != filters.Name {
			continue
		}
		all = append(all, device)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	total := int64(len(all))
	offset := (page - 1) * limit
	if offset >= len(all) {
		return total, []*models.Device{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return total, all[offset:end], nil
}

func (r *fakeDeviceRepo) GetTags(ctx context.Context, deviceID int64) ([]models.Tag, error) {
	tags := r.tags[deviceID]
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, nil
}

func (r *fakeDeviceRepo) ReplaceTags(ctx context.Context, deviceID int64, tags []string) ([]models.Tag, error) {
	out := make([]models.Tag, 0, len(tags))
	for i, tag := range tags {
		out = append(out, models.Tag{ID: int64(i + 1), Category: "device", Tag: tag})
	}
	r.tags[deviceID] = out
	return out, nil
}

type fakeUserRepo struct {
	users map[int64]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*models.User{}}
}

func (r *fakeUserRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	return &fakeTx{}, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, errors.NewNotFoundError("user not found", nil)
}

func (r *fakeUserRepo) ListCredentialed(ctx context.Context) ([]*models.User, error) {
	out := []*models.User{}
	for _, user := range r.users {
		if user.APIKeyHash != nil {
			copied := *user
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) SetCredentials(ctx context.Context, userID int64, keyHash, keySalt string, registeredAt time.Time) error {
	user, ok := r.users[userID]
	if !ok {
		return errors.NewNotFoundError("user not found", nil)
	}
	user.APIKeyHash = &keyHash
	user.APIKeySalt = &keySalt
	user.IsRegistered = true
	user.IsActive = true
	user.RegisteredAt = &registeredAt
	return nil
}

func (r *fakeUserRepo) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	if user, ok := r.users[userID]; ok {
		user.LastLogin = &at
	}
	return nil
}

type testHarness struct {
	svc     *HubService
	metrics *fakeMetricRepo
	devices *fakeDeviceRepo
	users   *fakeUserRepo
}

func newTestService() *testHarness {
	metrics := &fakeMetricRepo{}
	devices := newFakeDeviceRepo()
	users := newFakeUserRepo()
	// An empty redis config yields a disabled cache that misses on
	// every read, which is exactly what these tests want.
	svc := New(metrics, devices, users, cache.New(config.RedisConfig{}))
	return &testHarness{svc: svc, metrics: metrics, devices: devices, users: users}
}

func (h *testHarness) seedDevice(name string) *models.Device {
	device := &models.Device{Name: name, CreatedAt: time.Now().UTC()}
	_ = h.devices.Create(context.Background(), device)
	return device
}

func (h *testHarness) seedMetric(deviceID int64, serverTime time.Time) *models.SensorMetric {
	metric := &models.SensorMetric{
		DeviceID:        deviceID,
		TimestampDevice: serverTime,
		TimestampServer: serverTime,
		Messages:        []models.SensorMessage{},
	}
	_ = h.metrics.Insert(context.Background(), metric)
	return metric
}
