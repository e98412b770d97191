package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SirCraft007/grade-api/database"
	"github.com/SirCraft007/grade-api/database/dbctx"
	"github.com/SirCraft007/grade-api/model"
	"github.com/SirCraft007/grade-api/services/aggregation"
	"github.com/SirCraft007/grade-api/utils/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GradeService handles grade writes and reads
type GradeService struct {
	db        *gorm.DB
	repo      *database.GradebookRepository
	pipeline  *aggregation.Pipeline
	validator *validation.Validator
}

// NewGradeService creates a new grade service
func NewGradeService(db *gorm.DB, pipeline *aggregation.Pipeline) *GradeService {
	return &GradeService{
		db:        db,
		repo:      database.NewGradebookRepository(db),
		pipeline:  pipeline,
		validator: validation.NewValidator(),
	}
}

// AddGradeRequest adds a grade to a subject given either by id or by name. A subject
// named but not yet existing is created with the default weight.
type AddGradeRequest struct {
	SubjectID   *uint     `json:"subject_id" validate:"required_without=SubjectName"`
	SubjectName string    `json:"subject_name" validate:"max=255"`
	Name        string    `json:"name" validate:"required,max=255"`
	Date        time.Time `json:"date"`
	Value       *float64  `json:"grade" validate:"omitempty,gte=0,lte=6"`
	Weight      *float64  `json:"weight" validate:"omitempty,gte=0"`
	Details     string    `json:"details" validate:"max=2000"`
}

// UpdateGradeRequest is a partial grade update. Setting SubjectID or SubjectName moves
// the grade to another subject.
type UpdateGradeRequest struct {
	SubjectID   *uint      `json:"subject_id"`
	SubjectName *string    `json:"subject_name" validate:"omitempty,min=1,max=255"`
	Name        *string    `json:"name" validate:"omitempty,min=1,max=255"`
	Date        *time.Time `json:"date"`
	Value       *float64   `json:"grade" validate:"omitempty,gte=0,lte=6"`
	Weight      *float64   `json:"weight" validate:"omitempty,gte=0"`
	Details     *string    `json:"details" validate:"omitempty,max=2000"`
}

// GradeResult is a written grade together with the refreshed user totals
type GradeResult struct {
	Grade          *model.Grade             `json:"grade"`
	SubjectCreated bool                     `json:"subject_created"`
	Summary        *aggregation.UserSummary `json:"summary"`
}

// GradeDetail is a grade with the name of its subject
type GradeDetail struct {
	model.Grade
	SubjectName string `json:"subject_name"`
}

// AddGrade records a new grade and recomputes its subject and the user
func (s *GradeService) AddGrade(ctx context.Context, userID uint, req AddGradeRequest) (*GradeResult, error) {
	req.SubjectName = validation.SanitizeString(req.SubjectName)
	req.Name = validation.SanitizeString(req.Name)
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, invalidInput(err)
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	result := &GradeResult{}
	grade := model.Grade{
		UserID:  userID,
		Name:    req.Name,
		Date:    datatypes.Date(req.Date),
		Value:   req.Value,
		Weight:  weightOrDefault(req.Weight, model.DefaultGradeWeight),
		Details: req.Details,
	}

	summary, err := s.pipeline.Apply(ctx, userID, func(dbc dbctx.Context) ([]uint, error) {
		var subject *model.Subject
		if req.SubjectID != nil {
			found, err := s.repo.GetSubject(dbc, userID, *req.SubjectID)
			if err != nil {
				return nil, lookupErr(err)
			}
			subject = found
		} else {
			found, created, err := resolveSubjectByName(dbc, userID, req.SubjectName)
			if err != nil {
				return nil, err
			}
			subject = found
			result.SubjectCreated = created
		}

		grade.SubjectID = subject.ID
		if err := dbc.Tx.Create(&grade).Error; err != nil {
			return nil, fmt.Errorf("failed to create grade: %w", err)
		}
		return []uint{subject.ID}, nil
	})
	if err != nil {
		return nil, lookupErr(err)
	}

	result.Grade = &grade
	result.Summary = summary
	return result, nil
}

// UpdateGrade applies a partial update to a grade. When the grade moves, both the old
// and the new subject are recomputed.
func (s *GradeService) UpdateGrade(ctx context.Context, userID, gradeID uint, req UpdateGradeRequest) (*GradeResult, error) {
	if req.SubjectName != nil {
		name := validation.SanitizeString(*req.SubjectName)
		req.SubjectName = &name
	}
	if req.Name != nil {
		name := validation.SanitizeString(*req.Name)
		req.Name = &name
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, invalidInput(err)
	}
	if req.Date != nil && req.Date.IsZero() {
		return nil, fmt.Errorf("%w: date must not be empty", ErrInvalidInput)
	}
	if !req.hasChanges() {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	result := &GradeResult{}
	var grade model.Grade

	summary, err := s.pipeline.Apply(ctx, userID, func(dbc dbctx.Context) ([]uint, error) {
		if err := loadGrade(dbc, userID, gradeID, &grade); err != nil {
			return nil, err
		}
		oldSubjectID := grade.SubjectID

		updates := map[string]interface{}{}
		switch {
		case req.SubjectID != nil:
			if _, err := s.repo.GetSubject(dbc, userID, *req.SubjectID); err != nil {
				return nil, lookupErr(err)
			}
			updates["subject_id"] = *req.SubjectID
		case req.SubjectName != nil:
			subject, created, err := resolveSubjectByName(dbc, userID, *req.SubjectName)
			if err != nil {
				return nil, err
			}
			result.SubjectCreated = created
			updates["subject_id"] = subject.ID
		}
		if req.Name != nil {
			updates["name"] = *req.Name
		}
		if req.Date != nil {
			updates["date"] = datatypes.Date(*req.Date)
		}
		if req.Value != nil {
			updates["grade"] = *req.Value
		}
		if req.Weight != nil {
			updates["weight"] = *req.Weight
		}
		if req.Details != nil {
			updates["details"] = *req.Details
		}

		if err := dbc.Tx.Model(&model.Grade{}).
			Where("id = ? AND user_id = ?", gradeID, userID).
			Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update grade: %w", err)
		}

		if err := loadGrade(dbc, userID, gradeID, &grade); err != nil {
			return nil, err
		}
		return []uint{oldSubjectID, grade.SubjectID}, nil
	})
	if err != nil {
		return nil, lookupErr(err)
	}

	result.Grade = &grade
	result.Summary = summary
	return result, nil
}

// DeleteGrade removes a grade and recomputes its subject and the user
func (s *GradeService) DeleteGrade(ctx context.Context, userID, gradeID uint) (*aggregation.UserSummary, error) {
	summary, err := s.pipeline.Apply(ctx, userID, func(dbc dbctx.Context) ([]uint, error) {
		var grade model.Grade
		if err := loadGrade(dbc, userID, gradeID, &grade); err != nil {
			return nil, err
		}
		if err := dbc.Tx.Delete(&model.Grade{}, grade.ID).Error; err != nil {
			return nil, fmt.Errorf("failed to delete grade: %w", err)
		}
		return []uint{grade.SubjectID}, nil
	})
	if err != nil {
		return nil, lookupErr(err)
	}
	return summary, nil
}

// GetGrade returns one grade of userID
func (s *GradeService) GetGrade(ctx context.Context, userID, gradeID uint) (*GradeDetail, error) {
	var grade model.Grade
	err := s.db.WithContext(ctx).
		Preload("Subject").
		Where("id = ? AND user_id = ?", gradeID, userID).
		Take(&grade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: grade %d", ErrNotFound, gradeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch grade: %w", err)
	}
	return toGradeDetail(grade), nil
}

// ListGrades returns every grade of userID
func (s *GradeService) ListGrades(ctx context.Context, userID uint) ([]GradeDetail, error) {
	var grades []model.Grade
	if err := s.db.WithContext(ctx).
		Preload("Subject").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&grades).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch grades: %w", err)
	}

	details := make([]GradeDetail, 0, len(grades))
	for _, g := range grades {
		details = append(details, *toGradeDetail(g))
	}
	return details, nil
}

// ListSubjectGrades returns every grade of one subject of userID
func (s *GradeService) ListSubjectGrades(ctx context.Context, userID, subjectID uint) ([]model.Grade, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.repo.GetSubject(dbc, userID, subjectID); err != nil {
		return nil, lookupErr(err)
	}
	grades, err := s.repo.ListSubjectGrades(dbc, userID, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch grades: %w", err)
	}
	return grades, nil
}

func (r UpdateGradeRequest) hasChanges() bool {
	return r.SubjectID != nil || r.SubjectName != nil || r.Name != nil || r.Date != nil ||
		r.Value != nil || r.Weight != nil || r.Details != nil
}

func loadGrade(dbc dbctx.Context, userID, gradeID uint, grade *model.Grade) error {
	err := dbc.Tx.Where("id = ? AND user_id = ?", gradeID, userID).Take(grade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: grade %d", ErrNotFound, gradeID)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch grade: %w", err)
	}
	return nil
}

func toGradeDetail(g model.Grade) *GradeDetail {
	return &GradeDetail{Grade: g, SubjectName: g.Subject.Name}
}
