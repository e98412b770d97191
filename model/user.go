package model

import (
	"time"
)

// User represents a registered user together with their derived grade totals
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"` // Never expose password in JSON
	Admin        bool      `gorm:"default:false" json:"admin"`

	// Derived by the aggregation pipeline, never written by callers
	TotalAverage *float64 `json:"total_average"`
	TotalPoints  *float64 `json:"total_points"`
	TotalExams   *int     `json:"total_exams"`

	// Relationships
	Subjects []Subject `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Grades   []Grade   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
