package model

import (
	"time"
)

// DefaultSubjectWeight is used when a subject is created without an explicit weight
const DefaultSubjectWeight = 1.0

// Subject groups the grades of one user under a named course
type Subject struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_subject_user_name" json:"user_id"`
	Name      string    `gorm:"not null;uniqueIndex:idx_subject_user_name" json:"name"`

	// BaseWeight is the weight chosen by the owner. Weight is the effective weight after
	// the name policy has been applied and is rewritten on every aggregation run.
	BaseWeight float64 `gorm:"not null" json:"base_weight"`
	Weight     float64 `gorm:"not null" json:"weight"`

	// Derived fields; all three are NULL while the subject has no grades
	Average  *float64 `json:"average"`
	Points   *float64 `json:"points"`
	NumExams *int     `json:"num_exams"`

	// Relationships
	User   User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Grades []Grade `gorm:"foreignKey:SubjectID;constraint:OnDelete:CASCADE" json:"-"`
}
