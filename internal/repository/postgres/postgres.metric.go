// FilePath: internal/repository/postgres/postgres.metric.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	nuts "github.com/vaudience/go-nuts"

	"github.com/gridsense/telemetry-hub/internal/database"
	"github.com/gridsense/telemetry-hub/internal/errors"
	"github.com/gridsense/telemetry-hub/internal/models"
)

type MetricRepo struct {
	PostgresBaseRepo
}

func NewMetricRepository(db database.DB) (*MetricRepo, error) {
	repo := &MetricRepo{PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *MetricRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sensor_metrics (
			id BIGSERIAL PRIMARY KEY,
			device_id BIGINT NOT NULL REFERENCES devices(device_id) ON DELETE CASCADE,
			timestamp_device TIMESTAMPTZ NOT NULL,
			timestamp_server TIMESTAMPTZ NOT NULL,
			temperature DOUBLE PRECISION,
			humidity DOUBLE PRECISION,
			air_pressure DOUBLE PRECISION,
			battery_voltage DOUBLE PRECISION,
			confirmed BOOLEAN,
			consumed_airtime DOUBLE PRECISION,
			f_cnt BIGINT,
			frequency BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS sensor_messages (
			id BIGSERIAL PRIMARY KEY,
			metric_id BIGINT NOT NULL REFERENCES sensor_metrics(id) ON DELETE CASCADE,
			gateway_id TEXT NOT NULL,
			rssi DOUBLE PRECISION,
			snr DOUBLE PRECISION,
			channel_rssi DOUBLE PRECISION,
			lora_bandwidth BIGINT,
			lora_spreading_factor BIGINT,
			lora_coding_rate TEXT,
			frequency BIGINT
		)`,
		// The list/filter path orders by server timestamp with id as
		// tie-break, so index both.
		`CREATE INDEX IF NOT EXISTS idx_sensor_metrics_ts_server
			ON sensor_metrics(timestamp_server DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sensor_messages_metric
			ON sensor_messages(metric_id)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize metric schema", err)
		}
	}
	return nil
}

const metricColumns = `id, device_id, timestamp_device, timestamp_server,
	temperature, humidity, air_pressure, battery_voltage,
	confirmed, consumed_airtime, f_cnt, frequency`

const messageColumns = `id, metric_id, gateway_id, rssi, snr, channel_rssi,
	lora_bandwidth, lora_spreading_factor, lora_coding_rate, frequency`

// Insert persists the metric and all nested messages as one transaction.
// Either every row lands or none do.
func (r *MetricRepo) Insert(ctx context.Context, metric *models.SensorMetric) error {
	tx, err := r.db.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback() // No-op once committed.

	metricQuery := `
		INSERT INTO sensor_metrics (
			device_id, timestamp_device, timestamp_server,
			temperature, humidity, air_pressure, battery_voltage,
			confirmed, consumed_airtime, f_cnt, frequency
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err = tx.QueryRowContext(ctx, metricQuery,
		metric.DeviceID, metric.TimestampDevice, metric.TimestampServer,
		metric.Temperature, metric.Humidity, metric.AirPressure, metric.BatteryVoltage,
		metric.Confirmed, metric.ConsumedAirtime, metric.FCnt, metric.Frequency,
	).Scan(&metric.ID)
	if err != nil {
		return errors.NewDatabaseError("failed to insert metric", err)
	}

	messageQuery := `
		INSERT INTO sensor_messages (
			metric_id, gateway_id, rssi, snr, channel_rssi,
			lora_bandwidth, lora_spreading_factor, lora_coding_rate, frequency
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	for i := range metric.Messages {
		msg := &metric.Messages[i]
		msg.MetricID = metric.ID
		err = tx.QueryRowContext(ctx, messageQuery,
			msg.MetricID, msg.GatewayID, msg.RSSI, msg.SNR, msg.ChannelRSSI,
			msg.LoraBandwidth, msg.LoraSpreadingFactor, msg.LoraCodingRate, msg.Frequency,
		).Scan(&msg.ID)
		if err != nil {
			return errors.NewDatabaseError("failed to insert sensor message", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseError("failed to commit transaction", err)
	}
	return nil
}

// Count returns the number of metrics matching the filter window.
func (r *MetricRepo) Count(ctx context.Context, filters models.MetricFilters) (int64, error) {
	where, args := buildMetricWhere(filters)

	var count int64
	query := `SELECT COUNT(*) FROM sensor_metrics` + where
	err := r.db.GetDB().GetContext(ctx, &count, query, args...)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to count metrics", err)
	}
	return count, nil
}

// List returns one page of metrics, newest first, with nested messages
// attached. Equal server timestamps are tie-broken by descending id so
// that consecutive pages never repeat or skip rows.
func (r *MetricRepo) List(ctx context.Context, filters models.MetricFilters, offset, limit int) ([]*models.SensorMetric, error) {
	where, args := buildMetricWhere(filters)
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT %s FROM sensor_metrics%s
		ORDER BY timestamp_server DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		metricColumns, where, len(args)-1, len(args))

	metrics := []*models.SensorMetric{}
	err := r.db.GetDB().SelectContext(ctx, &metrics, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list metrics", err)
	}

	if err := r.attachMessages(ctx, metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

func (r *MetricRepo) GetLatestByDevice(ctx context.Context, deviceID int64) (*models.SensorMetric, error) {
	metric := &models.SensorMetric{}
	query := fmt.Sprintf(`
		SELECT %s FROM sensor_metrics
		WHERE device_id = $1
		ORDER BY timestamp_server DESC, id DESC
		LIMIT 1`, metricColumns)

	err := r.db.GetDB().GetContext(ctx, metric, query, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no metrics for device", err)
		}
		return nil, errors.NewDatabaseError("failed to get latest metric", err)
	}

	if err := r.attachMessages(ctx, []*models.SensorMetric{metric}); err != nil {
		return nil, err
	}
	return metric, nil
}

// DeleteByDeviceID removes all metrics of a device inside the given
// transaction. Messages go with them via the FK cascade.
func (r *MetricRepo) DeleteByDeviceID(ctx context.Context, deviceID int64, tx database.Transaction) error {
	query := `DELETE FROM sensor_metrics WHERE device_id = $1`

	result, err := tx.ExecContext(ctx, query, deviceID)
	if err != nil {
		return errors.NewDatabaseError("failed to delete metrics", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	nuts.L.Infof("[MetricRepo] Deleted %d metrics for device %d", rows, deviceID)
	return nil
}

// attachMessages loads the nested messages for a batch of metrics in a
// single query.
func (r *MetricRepo) attachMessages(ctx context.Context, metrics []*models.SensorMetric) error {
	byID := make(map[int64]*models.SensorMetric, len(metrics))
	ids := make([]int64, 0, len(metrics))
	for _, m := range metrics {
		m.Messages = []models.SensorMessage{}
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM sensor_messages
		WHERE metric_id = ANY($1)
		ORDER BY metric_id, id`, messageColumns)

	messages := []models.SensorMessage{}
	err := r.db.GetDB().SelectContext(ctx, &messages, query, pq.Array(ids))
	if err != nil {
		return errors.NewDatabaseError("failed to load sensor messages", err)
	}

	for _, msg := range messages {
		if metric, ok := byID[msg.MetricID]; ok {
			metric.Messages = append(metric.Messages, msg)
		}
	}
	return nil
}

func buildMetricWhere(filters models.MetricFilters) (string, []interface{}) {
	conds := []string{}
	args := []interface{}{}

	if filters.MinDate != nil {
		args = append(args, *filters.MinDate)
		conds = append(conds, fmt.Sprintf("timestamp_server >= $%d", len(args)))
	}
	if filters.MaxDate != nil {
		args = append(args, *filters.MaxDate)
		conds = append(conds, fmt.Sprintf("timestamp_server <= $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
