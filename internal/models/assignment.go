package models

import "time"

// Assignment is one concrete occurrence of a professor teaching a subject
// to a group in a room during a time window on a specific date. Room and
// day are derived fields, never caller-supplied.
type Assignment struct {
	ID        string    `db:"id" json:"id"`
	Professor string    `db:"professor" json:"professor"`
	Subject   string    `db:"subject" json:"subject"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	GroupNo   int       `db:"group_no" json:"group_no"`
	RoomNo    string    `db:"room_no" json:"room_no"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Date      string    `db:"date" json:"date"`
	Day       string    `db:"day" json:"day"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AssignmentFilter describes query params for listing assignments.
type AssignmentFilter struct {
	Professor string
	GroupNo   int
	Subject   string
	Date      string
	Day       string
	Page      int
	PageSize  int
}

// AssignmentConflict describes an existing assignment that blocks a
// request, with both resource axes reported.
type AssignmentConflict struct {
	AssignmentID string `json:"assignment_id"`
	Professor    string `json:"professor"`
	Subject      string `json:"subject"`
	GroupNo      int    `json:"group_no"`
	RoomNo       string `json:"room_no"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Date         string `json:"date"`
	Dimension    string `json:"dimension"`
}

// AssignmentConflictError is returned when an assignment collides with an
// existing one on the room or group axis, or trips the ownership guard.
type AssignmentConflictError struct {
	Type     string             `json:"type"`
	Message  string             `json:"message"`
	Conflict AssignmentConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *AssignmentConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
