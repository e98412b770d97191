package aggregation

import (
	"context"

	"github.com/SirCraft007/grade-api/database/dbctx"
	"github.com/SirCraft007/grade-api/model"
)

// Store is the storage the pipeline reads grades from and writes summaries to.
//
// Transaction runs fn in one storage transaction and returns fn's error unchanged; a
// failure to begin or commit is returned as a *StorageError. Lookups of missing rows
// return ErrUserNotFound or ErrSubjectNotFound. Listings are ordered by id.
type Store interface {
	Transaction(ctx context.Context, fn func(dbc dbctx.Context) error) error
	LockUser(dbc dbctx.Context, userID uint) error
	GetSubject(dbc dbctx.Context, userID, subjectID uint) (*model.Subject, error)
	ListSubjects(dbc dbctx.Context, userID uint) ([]model.Subject, error)
	ListSubjectGrades(dbc dbctx.Context, userID, subjectID uint) ([]model.Grade, error)
	SaveSubjectSummary(dbc dbctx.Context, summary SubjectSummary) error
	SaveUserSummary(dbc dbctx.Context, summary UserSummary) error
}
