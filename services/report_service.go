package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SirCraft007/grade-api/database"
	"github.com/SirCraft007/grade-api/database/dbctx"
	"gorm.io/gorm"
)

// SubjectReport is the stored summary of one subject
type SubjectReport struct {
	ID       uint     `json:"id"`
	Name     string   `json:"name"`
	Weight   float64  `json:"weight"`
	Average  *float64 `json:"average"`
	Points   *float64 `json:"points"`
	NumExams *int     `json:"num_exams"`
	Grades   int      `json:"grades"`
}

// UserReport is a point-in-time snapshot of a user's stored summaries
type UserReport struct {
	UserID       uint            `json:"user_id"`
	Username     string          `json:"username"`
	TotalAverage *float64        `json:"total_average"`
	TotalPoints  *float64        `json:"total_points"`
	TotalExams   *int            `json:"total_exams"`
	Subjects     []SubjectReport `json:"subjects"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// ReportService builds read-only reports from stored summaries
type ReportService struct {
	users *UserService
	repo  *database.GradebookRepository
}

// NewReportService creates a new report service
func NewReportService(db *gorm.DB, users *UserService) *ReportService {
	return &ReportService{
		users: users,
		repo:  database.NewGradebookRepository(db),
	}
}

// BuildReport reads the stored summaries of userID. It never recomputes anything.
func (s *ReportService) BuildReport(ctx context.Context, userID uint) (*UserReport, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	dbc := dbctx.Context{Ctx: ctx}
	subjects, err := s.repo.ListSubjects(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subjects: %w", err)
	}

	report := &UserReport{
		UserID:       user.ID,
		Username:     user.Username,
		TotalAverage: user.TotalAverage,
		TotalPoints:  user.TotalPoints,
		TotalExams:   user.TotalExams,
		Subjects:     make([]SubjectReport, 0, len(subjects)),
		GeneratedAt:  time.Now().UTC(),
	}
	for _, subject := range subjects {
		grades, err := s.repo.ListSubjectGrades(dbc, userID, subject.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch grades: %w", err)
		}
		report.Subjects = append(report.Subjects, SubjectReport{
			ID:       subject.ID,
			Name:     subject.Name,
			Weight:   subject.Weight,
			Average:  subject.Average,
			Points:   subject.Points,
			NumExams: subject.NumExams,
			Grades:   len(grades),
		})
	}
	return report, nil
}

// MarshalReport renders a report as indented JSON
func MarshalReport(report *UserReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}
