// FilePath: internal/models/models.composite.go
package models

import "time"

// DeviceLatestData combines a device with its most recent metric, used by
// the device status endpoint.
type DeviceLatestData struct {
	Device    *Device       `json:"device"`
	Latest    *SensorMetric `json:"latest_metric,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}
