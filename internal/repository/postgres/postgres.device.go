// FilePath: internal/repository/postgres/postgres.device.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	nuts "github.com/vaudience/go-nuts"

	"github.com/gridsense/telemetry-hub/internal/database"
	"github.com/gridsense/telemetry-hub/internal/errors"
	"github.com/gridsense/telemetry-hub/internal/models"
)

type DeviceRepo struct {
	PostgresBaseRepo
}

func NewDeviceRepository(db database.DB) (*DeviceRepo, error) {
	repo := &DeviceRepo{PostgresBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *DeviceRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS hardware_revisions (
			hardware_id BIGSERIAL PRIMARY KEY,
			version_name TEXT,
			specification_repo TEXT,
			specification_commit TEXT,
			specification_file_path TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS software_versions (
			software_id BIGSERIAL PRIMARY KEY,
			version_name TEXT,
			git_commit TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS devices (
			device_id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			hardware_id BIGINT,
			software_id BIGINT,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			appeui TEXT,
			deveui TEXT,
			appkey TEXT,
			ground_cover TEXT,
			height_above_ground INTEGER,
			shading INTEGER,
			close_to_a_tree BOOLEAN,
			close_to_water BOOLEAN,
			orientation TEXT,
			distance_to_next_building_cm INTEGER,
			comment TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id BIGSERIAL PRIMARY KEY,
			category TEXT NOT NULL,
			tag TEXT NOT NULL,
			UNIQUE (category, tag)
		)`,
		`CREATE TABLE IF NOT EXISTS device_tags (
			device_id BIGINT NOT NULL REFERENCES devices(device_id) ON DELETE CASCADE,
			tag_id BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			PRIMARY KEY (device_id, tag_id)
		)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize device schema", err)
		}
	}
	return nil
}

const deviceColumns = `device_id, name, hardware_id, software_id,
	latitude, longitude, created_at,
	appeui, deveui, appkey, ground_cover, height_above_ground, shading,
	close_to_a_tree, close_to_water, orientation,
	distance_to_next_building_cm, comment`

func (r *DeviceRepo) Create(ctx context.Context, device *models.Device) error {
	query := `
		INSERT INTO devices (
			name, hardware_id, software_id, latitude, longitude, created_at,
			appeui, deveui, appkey,
			ground_cover, height_above_ground, shading, close_to_a_tree,
			close_to_water, orientation, distance_to_next_building_cm, comment
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING device_id`

	err := r.db.GetDB().QueryRowContext(ctx, query,
		device.Name, device.HardwareID, device.SoftwareID,
		device.Latitude, device.Longitude, device.CreatedAt,
		device.AppEUI, device.DevEUI, device.AppKey, device.GroundCover,
		device.HeightAboveGround, device.Shading, device.CloseToATree,
		device.CloseToWater, device.Orientation, device.DistanceToNextBuildingCm,
		device.Comment,
	).Scan(&device.ID)
	if err != nil {
		return errors.NewDatabaseError("failed to create device", err)
	}
	return nil
}

func (r *DeviceRepo) Get(ctx context.Context, id int64) (*models.Device, error) {
	device := &models.Device{}
	query := fmt.Sprintf(`SELECT %s FROM devices WHERE device_id = $1`, deviceColumns)

	err := r.db.GetDB().GetContext(ctx, device, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("device not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get device", err)
	}

	device.Tags, err = r.GetTags(ctx, device.ID)
	if err != nil {
		return nil, err
	}
	return device, nil
}

func (r *DeviceRepo) GetByName(ctx context.Context, name string) (*models.Device, error) {
	device := &models.Device{}
	query := fmt.Sprintf(`SELECT %s FROM devices WHERE name = $1`, deviceColumns)

	err := r.db.GetDB().GetContext(ctx, device, query, name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("device not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get device", err)
	}

	device.Tags, err = r.GetTags(ctx, device.ID)
	if err != nil {
		return nil, err
	}
	return device, nil
}

func (r *DeviceRepo) Update(ctx context.Context, device *models.Device) error {
	query := `
		UPDATE devices SET
			name = $1,
			hardware_id = $2,
			software_id = $3,
			latitude = $4,
			longitude = $5,
			appeui = $6,
			deveui = $7,
			appkey = $8,
			ground_cover = $9,
			height_above_ground = $10,
			shading = $11,
			close_to_a_tree = $12,
			close_to_water = $13,
			orientation = $14,
			distance_to_next_building_cm = $15,
			comment = $16
		WHERE device_id = $17`

	result, err := r.db.GetDB().ExecContext(ctx, query,
		device.Name, device.HardwareID, device.SoftwareID,
		device.Latitude, device.Longitude, device.AppEUI,
		device.DevEUI, device.AppKey, device.GroundCover, device.HeightAboveGround,
		device.Shading, device.CloseToATree, device.CloseToWater,
		device.Orientation, device.DistanceToNextBuildingCm, device.Comment,
		device.ID,
	)
	if err != nil {
		return errors.NewDatabaseError("failed to update device", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}
	return nil
}

// Delete removes a device inside the given transaction. Tag links and
// metrics cascade at the database level.
func (r *DeviceRepo) Delete(ctx context.Context, id int64, tx database.Transaction) error {
	query := `DELETE FROM devices WHERE device_id = $1`

	result, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return errors.NewDatabaseError("failed to delete device", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}
	return nil
}

// List returns the total match count plus one page of devices ordered by
// creation time, newest first.
func (r *DeviceRepo) List(ctx context.Context, filters models.DeviceFilters, page, limit int) (int64, []*models.Device, error) {
	where, args := buildDeviceWhere(filters)

	var total int64
	countQuery := `SELECT COUNT(*) FROM devices` + where
	if err := r.db.GetDB().GetContext(ctx, &total, countQuery, args...); err != nil {
		return 0, nil, errors.NewDatabaseError("failed to count devices", err)
	}

	// Pages past the last one are empty; skipping the fetch also keeps
	// the offset multiplication from wrapping for huge page values.
	devices := []*models.Device{}
	lastPage := (total + int64(limit) - 1) / int64(limit)
	if int64(page) > lastPage {
		return total, devices, nil
	}

	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`
		SELECT %s FROM devices%s
		ORDER BY created_at DESC, device_id DESC
		LIMIT $%d OFFSET $%d`,
		deviceColumns, where, len(args)-1, len(args))

	if err := r.db.GetDB().SelectContext(ctx, &devices, query, args...); err != nil {
		return 0, nil, errors.NewDatabaseError("failed to list devices", err)
	}

	for _, device := range devices {
		tags, err := r.GetTags(ctx, device.ID)
		if err != nil {
			return 0, nil, err
		}
		device.Tags = tags
	}
	return total, devices, nil
}

func (r *DeviceRepo) GetTags(ctx context.Context, deviceID int64) ([]models.Tag, error) {
	tags := []models.Tag{}
	query := `
		SELECT t.id, t.category, t.tag
		FROM tags t
		JOIN device_tags dt ON dt.tag_id = t.id
		WHERE dt.device_id = $1
		ORDER BY t.id`

	err := r.db.GetDB().SelectContext(ctx, &tags, query, deviceID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get device tags", err)
	}
	return tags, nil
}

// ReplaceTags swaps a device's tag set for the given names, creating
// missing tags under the "device" category.
func (r *DeviceRepo) ReplaceTags(ctx context.Context, deviceID int64, tags []string) ([]models.Tag, error) {
	tx, err := r.db.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM device_tags WHERE device_id = $1`, deviceID); err != nil {
		return nil, errors.NewDatabaseError("failed to clear device tags", err)
	}

	result := []models.Tag{}
	for _, name := range tags {
		tag := models.Tag{Category: "device", Tag: name}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO tags (category, tag) VALUES ($1, $2)
			ON CONFLICT (category, tag) DO UPDATE SET tag = EXCLUDED.tag
			RETURNING id`, tag.Category, tag.Tag,
		).Scan(&tag.ID)
		if err != nil {
			return nil, errors.NewDatabaseError("failed to upsert tag", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO device_tags (device_id, tag_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, deviceID, tag.ID); err != nil {
			return nil, errors.NewDatabaseError("failed to link tag", err)
		}
		result = append(result, tag)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewDatabaseError("failed to commit transaction", err)
	}

	nuts.L.Debugf("[DeviceRepo] Replaced tags for device %d (%d tags)", deviceID, len(result))
	return result, nil
}

func buildDeviceWhere(filters models.DeviceFilters) (string, []interface{}) {
	conds := []string{}
	args := []interface{}{}

	if filters.Name != "" {
		args = append(args, "%"+filters.Name+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filters.GroundCover != "" {
		args = append(args, filters.GroundCover)
		conds = append(conds, fmt.Sprintf("ground_cover = $%d", len(args)))
	}
	if filters.Orientation != "" {
		args = append(args, filters.Orientation)
		conds = append(conds, fmt.Sprintf("orientation = $%d", len(args)))
	}
	if filters.Shading != 0 {
		args = append(args, filters.Shading)
		conds = append(conds, fmt.Sprintf("shading = $%d", len(args)))
	}
	if filters.TagCategory != "" || filters.TagName != "" {
		sub := `SELECT dt.device_id FROM device_tags dt JOIN tags t ON t.id = dt.tag_id WHERE `
		tagConds := []string{}
		if filters.TagCategory != "" {
			args = append(args, filters.TagCategory)
			tagConds = append(tagConds, fmt.Sprintf("t.category = $%d", len(args)))
		}
		if filters.TagName != "" {
			args = append(args, filters.TagName)
			tagConds = append(tagConds, fmt.Sprintf("t.tag = $%d", len(args)))
		}
		conds = append(conds, "device_id IN ("+sub+strings.Join(tagConds, " AND ")+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
