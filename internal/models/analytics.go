package models

// ProfessorLoad counts classes per professor.
type ProfessorLoad struct {
	Professor string `db:"professor" json:"professor"`
	FullName  string `db:"full_name" json:"full_name"`
	Count     int    `db:"count" json:"count"`
}

// GroupLoad counts classes per student group.
type GroupLoad struct {
	GroupNo int `db:"group_no" json:"group_no"`
	Count   int `db:"count" json:"count"`
}

// DayLoad counts classes per weekday.
type DayLoad struct {
	Day   string `db:"day" json:"day"`
	Count int    `db:"count" json:"count"`
}

// SubjectLoad counts classes per subject.
type SubjectLoad struct {
	Subject string `db:"subject" json:"subject"`
	Count   int    `db:"count" json:"count"`
}

// ProfessorGroupLoad counts classes per (professor, group) pair.
type ProfessorGroupLoad struct {
	Professor string `db:"professor" json:"professor"`
	FullName  string `db:"full_name" json:"full_name"`
	GroupNo   int    `db:"group_no" json:"group_no"`
	Count     int    `db:"count" json:"count"`
}

// ScheduleAnalytics bundles every grouped count for the dashboard.
type ScheduleAnalytics struct {
	ClassesPerProfessor      []ProfessorLoad      `json:"classes_per_professor"`
	ClassesPerGroup          []GroupLoad          `json:"classes_per_group"`
	ClassesPerDay            []DayLoad            `json:"classes_per_day"`
	SubjectDistribution      []SubjectLoad        `json:"subject_distribution"`
	ClassesPerProfessorGroup []ProfessorGroupLoad `json:"classes_per_professor_per_group"`
}
