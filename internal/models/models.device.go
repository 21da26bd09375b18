// FilePath: internal/models/models.device.go
package models

import "time"

type GroundCover string

const (
	GroundEarth       GroundCover = "earth"
	GroundGrass       GroundCover = "grass"
	GroundConcrete    GroundCover = "concrete"
	GroundAsphalt     GroundCover = "asphalt"
	GroundCobblestone GroundCover = "cobblestone"
	GroundWater       GroundCover = "water"
	GroundSand        GroundCover = "sand"
	GroundOther       GroundCover = "other"
)

type Orientation string

const (
	OrientationNorth Orientation = "north"
	OrientationEast  Orientation = "east"
	OrientationSouth Orientation = "south"
	OrientationWest  Orientation = "west"
)

// Device is a named physical sensor unit. Metrics reference devices by
// foreign key; deleting a device cascades to its metrics and messages.
type Device struct {
	ID                       int64        `json:"device_id" db:"device_id"`
	Name                     string       `json:"name" db:"name"`
	HardwareID               *int64       `json:"hardware_id,omitempty" db:"hardware_id"`
	SoftwareID               *int64       `json:"software_id,omitempty" db:"software_id"`
	Latitude                 *float64     `json:"latitude,omitempty" db:"latitude"`
	Longitude                *float64     `json:"longitude,omitempty" db:"longitude"`
	CreatedAt                time.Time    `json:"created_at" db:"created_at"`
	AppEUI                   *string      `json:"appeui,omitempty" db:"appeui"`
	DevEUI                   *string      `json:"deveui,omitempty" db:"deveui"`
	AppKey                   *string      `json:"appkey,omitempty" db:"appkey"`
	GroundCover              *GroundCover `json:"ground_cover,omitempty" db:"ground_cover"`
	HeightAboveGround        *int         `json:"height_above_ground,omitempty" db:"height_above_ground"`
	Shading                  *int         `json:"shading,omitempty" db:"shading"`
	CloseToATree             *bool        `json:"close_to_a_tree,omitempty" db:"close_to_a_tree"`
	CloseToWater             *bool        `json:"close_to_water,omitempty" db:"close_to_water"`
	Orientation              *Orientation `json:"orientation,omitempty" db:"orientation"`
	DistanceToNextBuildingCm *int         `json:"distance_to_next_building_cm,omitempty" db:"distance_to_next_building_cm"`
	Comment                  *string      `json:"comment,omitempty" db:"comment"`
	Tags                     []Tag        `json:"tags" db:"-"`
}

// Tag is a categorized label shared across devices via a link table.
type Tag struct {
	ID       int64  `json:"id" db:"id"`
	Category string `json:"category" db:"category"`
	Tag      string `json:"tag" db:"tag"`
}

// HardwareRevision is a catalog entry for a board revision, pointing at
// the specification it was built from. Devices reference revisions via
// hardware_id.
type HardwareRevision struct {
	HardwareID            int64   `json:"hardware_id" db:"hardware_id"`
	VersionName           *string `json:"version_name,omitempty" db:"version_name"`
	SpecificationRepo     *string `json:"specification_repo,omitempty" db:"specification_repo"`
	SpecificationCommit   *string `json:"specification_commit,omitempty" db:"specification_commit"`
	SpecificationFilePath *string `json:"specification_file_path,omitempty" db:"specification_file_path"`
}

// SoftwareVersion is a catalog entry for a firmware build. Devices
// reference builds via software_id.
type SoftwareVersion struct {
	SoftwareID  int64   `json:"software_id" db:"software_id"`
	VersionName *string `json:"version_name,omitempty" db:"version_name"`
	GitCommit   *string `json:"git_commit,omitempty" db:"git_commit"`
}

// CreateDeviceRequest is the device-creation payload. Tags are plain
// strings filed under the "device" category.
type CreateDeviceRequest struct {
	Name                     string       `json:"name"`
	HardwareID               *int64       `json:"hardware_id,omitempty"`
	SoftwareID               *int64       `json:"software_id,omitempty"`
	Latitude                 *float64     `json:"latitude,omitempty"`
	Longitude                *float64     `json:"longitude,omitempty"`
	AppEUI                   *string      `json:"appeui,omitempty"`
	DevEUI                   *string      `json:"deveui,omitempty"`
	AppKey                   *string      `json:"appkey,omitempty"`
	GroundCover              *GroundCover `json:"ground_cover,omitempty"`
	HeightAboveGround        *int         `json:"height_above_ground,omitempty"`
	Shading                  *int         `json:"shading,omitempty"`
	CloseToATree             *bool        `json:"close_to_a_tree,omitempty"`
	CloseToWater             *bool        `json:"close_to_water,omitempty"`
	Orientation              *Orientation `json:"orientation,omitempty"`
	DistanceToNextBuildingCm *int         `json:"distance_to_next_building_cm,omitempty"`
	Comment                  *string      `json:"comment,omitempty"`
	Tags                     []string     `json:"tags,omitempty"`
}

// UpdateDeviceRequest mirrors CreateDeviceRequest with every field
// optional; nil fields are left unchanged. A non-nil Tags pointer
// replaces the device's tag set, even when it points at an empty list.
type UpdateDeviceRequest struct {
	Name                     *string      `json:"name,omitempty"`
	HardwareID               *int64       `json:"hardware_id,omitempty"`
	SoftwareID               *int64       `json:"software_id,omitempty"`
	Latitude                 *float64     `json:"latitude,omitempty"`
	Longitude                *float64     `json:"longitude,omitempty"`
	AppEUI                   *string      `json:"appeui,omitempty"`
	DevEUI                   *string      `json:"deveui,omitempty"`
	AppKey                   *string      `json:"appkey,omitempty"`
	GroundCover              *GroundCover `json:"ground_cover,omitempty"`
	HeightAboveGround        *int         `json:"height_above_ground,omitempty"`
	Shading                  *int         `json:"shading,omitempty"`
	CloseToATree             *bool        `json:"close_to_a_tree,omitempty"`
	CloseToWater             *bool        `json:"close_to_water,omitempty"`
	Orientation              *Orientation `json:"orientation,omitempty"`
	DistanceToNextBuildingCm *int         `json:"distance_to_next_building_cm,omitempty"`
	Comment                  *string      `json:"comment,omitempty"`
	Tags                     *[]string    `json:"tags,omitempty"`
}
