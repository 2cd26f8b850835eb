package models

import "time"

// Minute is a record of a committee meeting
type Minute struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	Name      string     `json:"name"`
	MeetingAt *time.Time `json:"meeting_at,omitempty"`
	Body      *string    `json:"body,omitempty"`
	Attendees []string   `json:"attendees"`
	CreatedBy *string    `json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// CreateMinuteRequest is the request for recording meeting minutes
type CreateMinuteRequest struct {
	Name      string     `json:"name" validate:"required"`
	MeetingAt *time.Time `json:"meeting_at,omitempty"`
	Body      *string    `json:"body,omitempty"`
	Attendees []string   `json:"attendees,omitempty"`
}

// UpdateMinuteRequest is the request for updating meeting minutes
type UpdateMinuteRequest struct {
	Name      *string    `json:"name,omitempty"`
	MeetingAt *time.Time `json:"meeting_at,omitempty"`
	Body      *string    `json:"body,omitempty"`
	Attendees []string   `json:"attendees,omitempty"`
}

// MinuteListResponse is the response for listing minutes
type MinuteListResponse struct {
	Items      []Minute `json:"items"`
	TotalCount int      `json:"total_count"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
}
