package model

import (
	"time"

	"gorm.io/datatypes"
)

// DefaultGradeWeight is used when a grade is recorded without an explicit weight
const DefaultGradeWeight = 1.0

// Grade values live on the 0..6 scale
const (
	MinGradeValue = 0.0
	MaxGradeValue = 6.0
)

// Grade is a single exam result. A nil or zero Value marks the exam as not graded yet.
type Grade struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	SubjectID uint           `gorm:"not null;index" json:"subject_id"`
	Name      string         `gorm:"not null" json:"name"`
	Date      datatypes.Date `json:"date"`
	Value     *float64       `gorm:"column:grade" json:"grade"`
	Weight    float64        `gorm:"not null" json:"weight"`
	Details   string         `gorm:"type:text" json:"details"`

	// Relationships
	Subject Subject `gorm:"foreignKey:SubjectID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsGraded reports whether the grade carries a usable value
func (g Grade) IsGraded() bool {
	return g.Value != nil && *g.Value != 0
}
