package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsense/telemetry-hub/internal/cache"
	"github.com/gridsense/telemetry-hub/internal/config"
	"github.com/gridsense/telemetry-hub/internal/database"
	"github.com/gridsense/telemetry-hub/internal/errors"
	"github.com/gridsense/telemetry-hub/internal/hubservice"
	"github.com/gridsense/telemetry-hub/internal/models"
)

// Minimal in-memory repositories backing full request/response tests.

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }
func (stubTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (stubTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

type memMetricRepo struct {
	metrics []*models.SensorMetric
	nextID  int64
}

func (r *memMetricRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	return stubTx{}, nil
}

func (r *memMetricRepo) Insert(ctx context.Context, metric *models.SensorMetric) error {
	r.nextID++
	metric.ID = r.nextID
	r.metrics = append(r.metrics, metric)
	return nil
}

func (r *memMetricRepo) sorted(filters models.MetricFilters) []*models.SensorMetric {
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

func (r *memMetricRepo) Count(ctx context.Context, filters models.MetricFilters) (int64, error) {
	return int64(len(r.sorted(filters))), nil
}

func (r *memMetricRepo) List(ctx context.Context, filters models.MetricFilters, offset, limit int) ([]*models.SensorMetric, error) {
	rows := r.sorted(filters)
	if offset >= len(rows) {
		return []*models.SensorMetric{}, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func (r *memMetricRepo) GetLatestByDevice(ctx context.Context, deviceID int64) (*models.SensorMetric, error) {
	for _, m := range r.sorted(models.MetricFilters{}) {
		if m.DeviceID == deviceID {
			return m, nil
		}
	}
	return nil, errors.NewNotFoundError("no metrics for device", nil)
}

func (r *memMetricRepo) DeleteByDeviceID(ctx context.Context, deviceID int64, tx database.Transaction) error {
	kept := r.metrics[:0]
	for _, m := range r.metrics {
		if m.DeviceID != deviceID {
			kept = append(kept, m)
		}
	}
	r.metrics = kept
	return nil
}

type memDeviceRepo struct {
	devices map[int64]*models.Device
	nextID  int64
}

func (r *memDeviceRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	return stubTx{}, nil
}

func (r *memDeviceRepo) Create(ctx context.Context, device *models.Device) error {
	r.nextID++
	device.ID = r.nextID
	r.devices[device.ID] = device
	return nil
}

func (r *memDeviceRepo) Get(ctx context.Context, id int64) (*models.Device, error) {
	device, ok := r.devices[id]
	if !ok {
		return nil, errors.NewNotFoundError("device not found", nil)
	}
	return device, nil
}

func (r *memDeviceRepo) GetByName(ctx context.Context, name string) (*models.Device, error) {
	for _, device := range r.devices {
		if device.Name == name {
			return device, nil
		}
	}
	return nil, errors.NewNotFoundError("device not found", nil)
}

func (r *memDeviceRepo) Update(ctx context.Context, device *models.Device) error {
	r.devices[device.ID] = device
	return nil
}

func (r *memDeviceRepo) Delete(ctx context.Context, id int64, tx database.Transaction) error {
	delete(r.devices, id)
	return nil
}

func (r *memDeviceRepo) List(ctx context.Context, filters models.DeviceFilters, page, limit int) (int64, []*models.Device, error) {
	out := []*models.Device{}
	for _, device := range r.devices {
		out = append(out, device)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return int64(len(out)), out, nil
}

func (r *memDeviceRepo) GetTags(ctx context.Context, deviceID int64) ([]models.Tag, error) {
	return []models.Tag{}, nil
}

func (r *memDeviceRepo) ReplaceTags(ctx context.Context, deviceID int64, tags []string) ([]models.Tag, error) {
	out := make([]models.Tag, 0, len(tags))
	for i, tag := range tags {
		out = append(out, models.Tag{ID: int64(i + 1), Category: "device", Tag: tag})
	}
	return out, nil
}

type memUserRepo struct {
	users map[int64]*models.User
}

func (r *memUserRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	return stubTx{}, nil
}

func (r *memUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, errors.NewNotFoundError("user not found", nil)
}

func (r *memUserRepo) ListCredentialed(ctx context.Context) ([]*models.User, error) {
	out := []*models.User{}
	for _, user := range r.users {
		if user.APIKeyHash != nil {
			out = append(out, user)
		}
	}
	return out, nil
}

func (r *memUserRepo) SetCredentials(ctx context.Context, userID int64, keyHash, keySalt string, registeredAt time.Time) error {
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

func (r *memUserRepo) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	return nil
}

type routerHarness struct {
	router  *Router
	metrics *memMetricRepo
	devices *memDeviceRepo
	users   *memUserRepo
}

func newRouterHarness() *routerHarness {
	metrics := &memMetricRepo{}
	devices := &memDeviceRepo{devices: map[int64]*models.Device{}}
	users := &memUserRepo{users: map[int64]*models.User{}}
	svc := hubservice.New(metrics, devices, users, cache.New(config.RedisConfig{}))
	return &routerHarness{
		router:  NewRouter(svc),
		metrics: metrics,
		devices: devices,
		users:   users,
	}
}

func (h *routerHarness) seedDevice(name string) *models.Device {
	device := &models.Device{Name: name, CreatedAt: time.Now().UTC(), Tags: []models.Tag{}}
	_ = h.devices.Create(context.Background(), device)
	return device
}

func (h *routerHarness) seedMetrics(deviceID int64, n int) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		_ = h.metrics.Insert(context.Background(), &models.SensorMetric{
			DeviceID:        deviceID,
			TimestampDevice: base.Add(time.Duration(i) * time.Minute),
			TimestampServer: base.Add(time.Duration(i) * time.Minute),
			Messages:        []models.SensorMessage{},
		})
	}
}

// registerUser seeds a pre-created user and runs the registration
// endpoint, returning the issued key.
func (h *routerHarness) registerUser(t *testing.T, username string) string {
	t.Helper()
	h.users.users[1] = &models.User{ID: 1, Username: username, CreatedAt: time.Now().UTC()}

	body, _ := json.Marshal(models.RegisterRequest{Username: username})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v2/auth/register", bytes.NewReader(body))
	h.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp models.APIKeyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.APIKey)
	return resp.APIKey
}

func TestHealthEndpoint(t *testing.T) {
	h := newRouterHarness()

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestListMetricsBareArrayResponse(t *testing.T) {
	h := newRouterHarness()
	device := h.seedDevice("station-1")
	h.seedMetrics(device.ID, 3)

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var bare []models.SensorMetric
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bare), "small results must be a bare array")
	assert.Len(t, bare, 3)
}

func TestListMetricsEnvelopeResponse(t *testing.T) {
	h := newRouterHarness()
	device := h.seedDevice("station-1")
	h.seedMetrics(device.ID, 201)

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/metrics?limit=100&page=3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope models.PaginatedMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, int64(201), envelope.Pagination.TotalCount)
	assert.Equal(t, 3, envelope.Pagination.TotalPages)
	assert.False(t, envelope.Pagination.HasNext)
	assert.True(t, envelope.Pagination.HasPrev)
	assert.Len(t, envelope.Data, 1, "last page holds the remainder")
}

func TestListMetricsInvalidDateIs400(t *testing.T) {
	h := newRouterHarness()

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/metrics?min_date=yesterday", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var apiErr map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, "invalid_date_format", apiErr["type"])
	details, ok := apiErr["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "yesterday", details["input"])
}

func TestListMetricsInvalidLimitIs422(t *testing.T) {
	h := newRouterHarness()

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/metrics?limit=5000", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_LIMIT")
}

func TestCreateMetricRequiresAPIKey(t *testing.T) {
	h := newRouterHarness()

	body := []byte(`{"device_id":1,"timestamp_device":1714567800}`)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v2/metrics", bytes.NewReader(body)))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_API_KEY")
}

func TestCreateMetricWithAPIKey(t *testing.T) {
	h := newRouterHarness()
	device := h.seedDevice("station-1")
	key := h.registerUser(t, "field-team")

	payload := fmt.Sprintf(`{
		"device_id": %d,
		"timestamp_device": 1714567800,
		"temperature": 21.5,
		"sensor_messages": [{"gateway_id": "gw-01", "rssi": -41.0}]
	}`, device.ID)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/metrics", bytes.NewReader([]byte(payload)))
	req.Header.Set("X-API-Key", key)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var metric models.SensorMetric
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metric))
	assert.NotZero(t, metric.ID)
	assert.Len(t, metric.Messages, 1)
}

func TestBearerTokenIsAccepted(t *testing.T) {
	h := newRouterHarness()
	h.seedDevice("station-1")
	key := h.registerUser(t, "field-team")

	req := httptest.NewRequest(http.MethodGet, "/api/v2/devices", nil)
	req.Header.Set("Authorization", "Bearer "+key)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.PaginatedDevices
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Pagination.TotalCount)
}

func TestUnknownKeyIsRejected(t *testing.T) {
	h := newRouterHarness()
	h.registerUser(t, "field-team")

	req := httptest.NewRequest(http.MethodGet, "/api/v2/devices", nil)
	req.Header.Set("X-API-Key", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_API_KEY")
}

func TestDeviceLifecycleOverHTTP(t *testing.T) {
	h := newRouterHarness()
	key := h.registerUser(t, "field-team")

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		req.Header.Set("X-API-Key", key)
		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/api/v2/devices", `{"name":"meadow-7","latitude":48.137}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var device models.Device
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &device))

	path := fmt.Sprintf("/api/v2/devices/%d", device.ID)
	rec = do(http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodPut, path, `{"comment":"east wall"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "east wall")

	rec = do(http.MethodGet, path+"/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodDelete, path, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(http.MethodGet, path, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
