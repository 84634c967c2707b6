package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleHOD       UserRole = "HOD"
	RoleProfessor UserRole = "PROFESSOR"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	FullName     string     `db:"full_name" json:"full_name"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// SubjectEntry is one (subjectName, subjectId) pair a professor is
// authorized to teach. Order is preserved from registration.
type SubjectEntry struct {
	SubjectName string `db:"subject_name" json:"subject_name"`
	SubjectID   string `db:"subject_id" json:"subject_id"`
}

// Professor is the directory view of a user: identity plus the subjects
// they may teach. It is a value object; the subject slice is owned by the
// directory layer and never aliased into request state.
type Professor struct {
	ID       string         `json:"id"`
	Username string         `json:"username"`
	FullName string         `json:"full_name"`
	Subjects []SubjectEntry `json:"subjects"`
}

// SubjectFor returns the subject id for an exact display-name match.
func (p *Professor) SubjectFor(subjectName string) (string, bool) {
	for _, s := range p.Subjects {
		if s.SubjectName == subjectName {
			return s.SubjectID, true
		}
	}
	return "", false
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
