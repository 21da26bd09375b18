// FilePath: internal/models/models.metric.go
package models

import "time"

// SensorMetric is one observation reported by one device at one point in
// time. TimestampServer is immutable after insert and is the only column
// used for ordering and date filtering.
type SensorMetric struct {
	ID              int64           `json:"id" db:"id"`
	DeviceID        int64           `json:"device_id" db:"device_id"`
	TimestampDevice time.Time       `json:"timestamp_device" db:"timestamp_device"`
	TimestampServer time.Time       `json:"timestamp_server" db:"timestamp_server"`
	Temperature     *float64        `json:"temperature,omitempty" db:"temperature"`
	Humidity        *float64        `json:"humidity,omitempty" db:"humidity"`
	AirPressure     *float64        `json:"air_pressure,omitempty" db:"air_pressure"`
	BatteryVoltage  *float64        `json:"battery_voltage,omitempty" db:"battery_voltage"`
	Confirmed       *bool           `json:"confirmed,omitempty" db:"confirmed"`
	ConsumedAirtime *float64        `json:"consumed_airtime,omitempty" db:"consumed_airtime"`
	FCnt            *int64          `json:"f_cnt,omitempty" db:"f_cnt"`
	Frequency       *int64          `json:"frequency,omitempty" db:"frequency"`
	Messages        []SensorMessage `json:"sensor_messages" db:"-"`
}

// SensorMessage is LoRaWAN radio-layer metadata for one gateway that
// received the uplink carrying a metric. Messages are only ever created
// together with their metric and are deleted with it.
type SensorMessage struct {
	ID                  int64    `json:"id" db:"id"`
	MetricID            int64    `json:"metric_id" db:"metric_id"`
	GatewayID           string   `json:"gateway_id" db:"gateway_id"`
	RSSI                *float64 `json:"rssi,omitempty" db:"rssi"`
	SNR                 *float64 `json:"snr,omitempty" db:"snr"`
	ChannelRSSI         *float64 `json:"channel_rssi,omitempty" db:"channel_rssi"`
	LoraBandwidth       *int64   `json:"lora_bandwidth,omitempty" db:"lora_bandwidth"`
	LoraSpreadingFactor *int64   `json:"lora_spreading_factor,omitempty" db:"lora_spreading_factor"`
	LoraCodingRate      *string  `json:"lora_coding_rate,omitempty" db:"lora_coding_rate"`
	Frequency           *int64   `json:"frequency,omitempty" db:"frequency"`
}

// CreateMetricRequest is the ingestion payload. Device firmware reports
// timestamps as Unix epoch seconds; timestamp_server is assigned by the
// server when omitted.
type CreateMetricRequest struct {
	DeviceID        int64                  `json:"device_id"`
	TimestampDevice int64                  `json:"timestamp_device"`
	TimestampServer *int64                 `json:"timestamp_server,omitempty"`
	Temperature     *float64               `json:"temperature,omitempty"`
	Humidity        *float64               `json:"humidity,omitempty"`
	AirPressure     *float64               `json:"air_pressure,omitempty"`
	BatteryVoltage  *float64               `json:"battery_voltage,omitempty"`
	Confirmed       *bool                  `json:"confirmed,omitempty"`
	ConsumedAirtime *float64               `json:"consumed_airtime,omitempty"`
	FCnt            *int64                 `json:"f_cnt,omitempty"`
	Frequency       *int64                 `json:"frequency,omitempty"`
	Messages        []SensorMessageRequest `json:"sensor_messages,omitempty"`
}

// SensorMessageRequest is one nested radio-metadata entry of an ingestion
// payload.
type SensorMessageRequest struct {
	GatewayID           string   `json:"gateway_id"`
	RSSI                *float64 `json:"rssi,omitempty"`
	SNR                 *float64 `json:"snr,omitempty"`
	ChannelRSSI         *float64 `json:"channel_rssi,omitempty"`
	LoraBandwidth       *int64   `json:"lora_bandwidth,omitempty"`
	LoraSpreadingFactor *int64   `json:"lora_spreading_factor,omitempty"`
	LoraCodingRate      *string  `json:"lora_coding_rate,omitempty"`
	Frequency           *int64   `json:"frequency,omitempty"`
}
