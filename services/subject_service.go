package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/SirCraft007/grade-api/database"
	"github.com/SirCraft007/grade-api/database/dbctx"
	"github.com/SirCraft007/grade-api/model"
	"github.com/SirCraft007/grade-api/services/aggregation"
	"github.com/SirCraft007/grade-api/utils/validation"
	"gorm.io/gorm"
)

// SubjectService handles subject writes and reads. Every write goes through the
// aggregation pipeline.
type SubjectService struct {
	db        *gorm.DB
	repo      *database.GradebookRepository
	pipeline  *aggregation.Pipeline
	validator *validation.Validator
}

// NewSubjectService creates a new subject service
func NewSubjectService(db *gorm.DB, pipeline *aggregation.Pipeline) *SubjectService {
	return &SubjectService{
		db:        db,
		repo:      database.NewGradebookRepository(db),
		pipeline:  pipeline,
		validator: validation.NewValidator(),
	}
}

// CreateSubjectRequest represents the request to create a subject
type CreateSubjectRequest struct {
	Name   string   `json:"name" validate:"required,min=1,max=255"`
	Weight *float64 `json:"weight" validate:"omitempty,gte=0"`
}

// UpdateSubjectRequest represents a partial subject update
type UpdateSubjectRequest struct {
	Name   *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Weight *float64 `json:"weight" validate:"omitempty,gte=0"`
}

// SubjectResult is a written subject together with the refreshed user totals
type SubjectResult struct {
	Subject *model.Subject           `json:"subject"`
	Summary *aggregation.UserSummary `json:"summary"`
}

// SubjectDetail is a subject with the ids of its grades
type SubjectDetail struct {
	model.Subject
	GradeIDs []uint `json:"grade_ids"`
}

// DeleteSubjectResult reports what a subject deletion removed
type DeleteSubjectResult struct {
	GradesDeleted int64                    `json:"grades_deleted"`
	Summary       *aggregation.UserSummary `json:"summary"`
}

// CreateSubject creates a subject for userID and recomputes it and the user
func (s *SubjectService) CreateSubject(ctx context.Context, userID uint, req CreateSubjectRequest) (*SubjectResult, error) {
	req.Name = validation.SanitizeString(req.Name)
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, invalidInput(err)
	}

	weight := weightOrDefault(req.Weight, model.DefaultSubjectWeight)
	subject := model.Subject{
		UserID:     userID,
		Name:       req.Name,
		BaseWeight: weight,
		Weight:     weight,
	}

	summary, err := s.pipeline.Apply(ctx, userID, func(dbc dbctx.Context) ([]uint, error) {
		if err := ensureSubjectNameFree(dbc, userID, subject.Name, 0); err != nil {
			return nil, err
		}
		if err := dbc.Tx.Create(&subject).Error; err != nil {
			return nil, fmt.Errorf("failed to create subject: %w", err)
		}
		return []uint{subject.ID}, nil
	})
	if err != nil {
		return nil, lookupErr(err)
	}

	fresh, err := s.repo.GetSubject(dbctx.Context{Ctx: ctx}, userID, subject.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload subject: %w", err)
	}
	return &SubjectResult{Subject: fresh, Summary: summary}, nil
}

// UpdateSubject renames a subject and/or changes its base weight
func (s *SubjectService) UpdateSubject(ctx context.Context, userID, subjectID uint, req UpdateSubjectRequest) (*SubjectResult, error) {
	if req.Name != nil {
		name := validation.SanitizeString(*req.Name)
		req.Name = &name
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, invalidInput(err)
	}
	if req.Name == nil && req.Weight == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	summary, err := s.pipeline.Apply(ctx, userID, func(dbc dbctx.Context) ([]uint, error) {
		if _, err := s.repo.GetSubject(dbc, userID, subjectID); err != nil {
			return nil, lookupErr(err)
		}

		updates := map[string]interface{}{}
		if req.Name != nil {
			if err := ensureSubjectNameFree(dbc, userID, *req.Name, subjectID); err != nil {
				return nil, err
			}
			updates["name"] = *req.Name
		}
		if req.Weight != nil {
			updates["base_weight"] = *req.Weight
		}

		if err := dbc.Tx.Model(&model.Subject{}).
			Where("id = ? AND user_id = ?", subjectID, userID).
			Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update subject: %w", err)
		}
		return []uint{subjectID}, nil
	})
	if err != nil {
		return nil, lookupErr(err)
	}

	fresh, err := s.repo.GetSubject(dbctx.Context{Ctx: ctx}, userID, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload subject: %w", err)
	}
	return &SubjectResult{Subject: fresh, Summary: summary}, nil
}

// DeleteSubject removes a subject and all of its grades, then recomputes the user
func (s *SubjectService) DeleteSubject(ctx context.Context, userID, subjectID uint) (*DeleteSubjectResult, error) {
	result := &DeleteSubjectResult{}

	summary, err := s.pipeline.Apply(ctx, userID, func(dbc dbctx.Context) ([]uint, error) {
		if _, err := s.repo.GetSubject(dbc, userID, subjectID); err != nil {
			return nil, lookupErr(err)
		}
		grades, _, err := s.repo.DeleteSubjects(dbc, userID, []uint{subjectID})
		if err != nil {
			return nil, err
		}
		result.GradesDeleted = grades
		// Nothing left to recompute at subject level
		return nil, nil
	})
	if err != nil {
		return nil, lookupErr(err)
	}

	result.Summary = summary
	return result, nil
}

// GetSubject returns one subject of userID with the ids of its grades
func (s *SubjectService) GetSubject(ctx context.Context, userID, subjectID uint) (*SubjectDetail, error) {
	subject, err := s.repo.GetSubject(dbctx.Context{Ctx: ctx}, userID, subjectID)
	if err != nil {
		return nil, lookupErr(err)
	}

	var gradeIDs []uint
	if err := s.db.WithContext(ctx).
		Model(&model.Grade{}).
		Where("subject_id = ? AND user_id = ?", subjectID, userID).
		Order("id ASC").
		Pluck("id", &gradeIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch grade ids: %w", err)
	}

	return &SubjectDetail{Subject: *subject, GradeIDs: gradeIDs}, nil
}

// ListSubjects returns every subject of userID
func (s *SubjectService) ListSubjects(ctx context.Context, userID uint) ([]model.Subject, error) {
	subjects, err := s.repo.ListSubjects(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subjects: %w", err)
	}
	return subjects, nil
}

// ensureSubjectNameFree fails with ErrConflict when another subject of the user already
// carries name
func ensureSubjectNameFree(dbc dbctx.Context, userID uint, name string, exceptID uint) error {
	var count int64
	if err := dbc.Tx.Model(&model.Subject{}).
		Where("user_id = ? AND name = ? AND id <> ?", userID, name, exceptID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check subject name: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: subject %q", ErrConflict, name)
	}
	return nil
}

// resolveSubjectByName finds the subject of userID called name, creating it with the
// default weight when it does not exist yet
func resolveSubjectByName(dbc dbctx.Context, userID uint, name string) (*model.Subject, bool, error) {
	var subject model.Subject
	err := dbc.Tx.Where("user_id = ? AND name = ?", userID, name).Take(&subject).Error
	if err == nil {
		return &subject, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up subject %q: %w", name, err)
	}

	subject = model.Subject{
		UserID:     userID,
		Name:       name,
		BaseWeight: model.DefaultSubjectWeight,
		Weight:     model.DefaultSubjectWeight,
	}
	if err := dbc.Tx.Create(&subject).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create subject %q: %w", name, err)
	}
	return &subject, true, nil
}
