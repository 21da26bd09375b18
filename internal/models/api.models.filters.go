package models

import "time"

// MetricFilters defines the server-timestamp range filter for metric
// queries. Nil bounds are open ends.
type MetricFilters struct {
	MinDate *time.Time `json:"min_date"`
	MaxDate *time.Time `json:"max_date"`
}

// Empty reports whether the filter window can match no rows at all
// (min after max). Such a window is an empty result, not an error.
func (f MetricFilters) Empty() bool {
	return f.MinDate != nil && f.MaxDate != nil && f.MinDate.After(*f.MaxDate)
}

// DeviceFilters defines the available filter options for devices
type DeviceFilters struct {
	Name        string `json:"name"`
	GroundCover string `json:"ground_cover"`
	Orientation string `json:"orientation"`
	Shading     int    `json:"shading"`
	TagCategory string `json:"tag_category"`
	TagName     string `json:"tag_name"`
}

// ListMetricsParams is the raw query-string shape of GET /metrics,
// decoded via gorilla/schema before validation.
type ListMetricsParams struct {
	MinDate string `schema:"min_date"`
	MaxDate string `schema:"max_date"`
	Limit   *int   `schema:"limit"`
	Page    *int   `schema:"page"`
}

// ListDevicesParams is the raw query-string shape of GET /devices.
type ListDevicesParams struct {
	Limit       *int   `schema:"limit"`
	Page        *int   `schema:"page"`
	Name        string `schema:"name"`
	GroundCover string `schema:"ground_cover"`
	Orientation string `schema:"orientation"`
	Shading     int    `schema:"shading"`
	TagCategory string `schema:"tag_category"`
	TagName     string `schema:"tag_name"`
}
