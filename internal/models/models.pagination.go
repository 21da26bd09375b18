// FilePath: internal/models/models.pagination.go
package models

// Pagination carries page metadata for enveloped list responses.
type Pagination struct {
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// NewPagination derives the full page metadata from a total row count and
// the requested page/limit.
func NewPagination(totalCount int64, page, limit int) Pagination {
	totalPages := int((totalCount + int64(limit) - 1) / int64(limit))
	return Pagination{
		TotalCount: totalCount,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// PaginatedMetrics is the enveloped form of a metrics list response.
type PaginatedMetrics struct {
	Data       []*SensorMetric `json:"data"`
	Pagination Pagination      `json:"pagination"`
}

// PaginatedDevices is the enveloped form of a devices list response.
type PaginatedDevices struct {
	Data       []*Device  `json:"data"`
	Pagination Pagination `json:"pagination"`
}
