package models

// PointFilter represents filter parameters for querying ingested points
type PointFilter struct {
	SubjectID string `form:"subjectId"`
	Date      string `form:"date"`      // YYYY-MM-DD
	Source    string `form:"source"`    // one of the Source constants
	StartTime int64  `form:"startTime"` // Unix milliseconds
	EndTime   int64  `form:"endTime"`   // Unix milliseconds
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// PointsResponse is the paginated result of a point query
type PointsResponse struct {
	Data       []GeoPoint `json:"data"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	TotalPages int        `json:"totalPages"`
}

// SnapRequest represents the body of a road-snap request
type SnapRequest struct {
	SubjectID    string `json:"subjectId" binding:"required"`
	Date         string `json:"date" binding:"required"`
	SourceFilter string `json:"sourceFilter"`
}
