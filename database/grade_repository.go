package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/SirCraft007/grade-api/database/dbctx"
	"github.com/SirCraft007/grade-api/model"
	"github.com/SirCraft007/grade-api/services/aggregation"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GradebookRepository is the GORM implementation of aggregation.Store plus the bulk
// operations the services need
type GradebookRepository struct {
	db *gorm.DB
}

var _ aggregation.Store = (*GradebookRepository)(nil)

// NewGradebookRepository creates a repository over db
func NewGradebookRepository(db *gorm.DB) *GradebookRepository {
	return &GradebookRepository{db: db}
}

func (r *GradebookRepository) conn(dbc dbctx.Context) *gorm.DB {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return txx.WithContext(ctx)
}

// Transaction runs fn in a database transaction. fn's error is returned unchanged and
// rolls the transaction back.
func (r *GradebookRepository) Transaction(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return &aggregation.StorageError{Op: "begin transaction", Err: tx.Error}
	}

	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if err := fn(dbctx.Context{Ctx: ctx, Tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return &aggregation.StorageError{Op: "commit", Err: err}
	}
	committed = true
	return nil
}

// LockUser takes a row lock on the user until the surrounding transaction ends
func (r *GradebookRepository) LockUser(dbc dbctx.Context, userID uint) error {
	var user model.User
	err := r.conn(dbc).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", userID).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return aggregation.ErrUserNotFound
	}
	return err
}

// GetSubject fetches a subject owned by userID
func (r *GradebookRepository) GetSubject(dbc dbctx.Context, userID, subjectID uint) (*model.Subject, error) {
	var subject model.Subject
	err := r.conn(dbc).
		Where("id = ? AND user_id = ?", subjectID, userID).
		Take(&subject).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, aggregation.ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListSubjects returns every subject of userID ordered by id
func (r *GradebookRepository) ListSubjects(dbc dbctx.Context, userID uint) ([]model.Subject, error) {
	var subjects []model.Subject
	if err := r.conn(dbc).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&subjects).Error; err != nil {
		return nil, err
	}
	return subjects, nil
}

// ListSubjectGrades returns every grade of a subject ordered by id
func (r *GradebookRepository) ListSubjectGrades(dbc dbctx.Context, userID, subjectID uint) ([]model.Grade, error) {
	var grades []model.Grade
	if err := r.conn(dbc).
		Where("subject_id = ? AND user_id = ?", subjectID, userID).
		Order("id ASC").
		Find(&grades).Error; err != nil {
		return nil, err
	}
	return grades, nil
}

// SaveSubjectSummary overwrites the derived fields of a subject
func (r *GradebookRepository) SaveSubjectSummary(dbc dbctx.Context, summary aggregation.SubjectSummary) error {
	subject := model.Subject{ID: summary.SubjectID}
	summary.Apply(&subject)
	// Select forces NULLs and zero weights to be written
	return r.conn(dbc).
		Model(&subject).
		Select("average", "points", "num_exams", "weight").
		Where("user_id = ?", summary.UserID).
		Updates(&subject).Error
}

// SaveUserSummary overwrites the derived totals of a user
func (r *GradebookRepository) SaveUserSummary(dbc dbctx.Context, summary aggregation.UserSummary) error {
	return r.conn(dbc).
		Model(&model.User{}).
		Where("id = ?", summary.UserID).
		Updates(map[string]interface{}{
			"total_average": summary.TotalAverage,
			"total_points":  summary.TotalPoints,
			"total_exams":   summary.TotalExams,
		}).Error
}

// ListUserIDs returns the id of every user, ascending
func (r *GradebookRepository) ListUserIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return ids, nil
}

// DeleteSubjects removes the given subjects of userID together with their grades and
// reports how many rows of each kind were deleted
func (r *GradebookRepository) DeleteSubjects(dbc dbctx.Context, userID uint, subjectIDs []uint) (grades int64, subjects int64, err error) {
	if len(subjectIDs) == 0 {
		return 0, 0, nil
	}
	ids := make([]int64, 0, len(subjectIDs))
	for _, id := range subjectIDs {
		ids = append(ids, int64(id))
	}

	res := r.conn(dbc).Exec(
		"DELETE FROM grades WHERE user_id = ? AND subject_id = ANY(?)",
		userID, pq.Array(ids),
	)
	if res.Error != nil {
		return 0, 0, fmt.Errorf("failed to delete grades: %w", res.Error)
	}
	grades = res.RowsAffected

	res = r.conn(dbc).Exec(
		"DELETE FROM subjects WHERE user_id = ? AND id = ANY(?)",
		userID, pq.Array(ids),
	)
	if res.Error != nil {
		return 0, 0, fmt.Errorf("failed to delete subjects: %w", res.Error)
	}
	subjects = res.RowsAffected

	return grades, subjects, nil
}
