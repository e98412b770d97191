package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/SirCraft007/grade-api/database"
	"github.com/SirCraft007/grade-api/database/dbctx"
	"github.com/SirCraft007/grade-api/model"
	"github.com/SirCraft007/grade-api/services/aggregation"
	"github.com/SirCraft007/grade-api/utils/auth"
	"github.com/SirCraft007/grade-api/utils/validation"
	"gorm.io/gorm"
)

// UserService manages accounts and their lifecycle
type UserService struct {
	db        *gorm.DB
	repo      *database.GradebookRepository
	pipeline  *aggregation.Pipeline
	validator *validation.Validator
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB, pipeline *aggregation.Pipeline) *UserService {
	return &UserService{
		db:        db,
		repo:      database.NewGradebookRepository(db),
		pipeline:  pipeline,
		validator: validation.NewValidator(),
	}
}

// CreateUserRequest represents the request to create an account
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required"`
	Admin    bool   `json:"admin"`
}

// DeleteUserResult reports how many rows a user deletion removed
type DeleteUserResult struct {
	SubjectsDeleted int64 `json:"subjects_deleted"`
	GradesDeleted   int64 `json:"grades_deleted"`
}

// CreateUser registers a new account and initializes its totals
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	req.Username = validation.SanitizeString(req.Username)
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, invalidInput(err)
	}

	if err := s.ensureUsernameFree(ctx, req.Username, 0); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := model.User{
		Username:     req.Username,
		PasswordHash: hash,
		Admin:        req.Admin,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Start from zero totals rather than NULL
	if _, err := s.pipeline.Recompute(ctx, user.ID); err != nil {
		return nil, err
	}

	return s.GetUser(ctx, user.ID)
}

// GetUser returns a user with its current totals
func (s *UserService) GetUser(ctx context.Context, userID uint) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

// GetUserByUsername looks a user up by username
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

// UpdateUsername renames an account
func (s *UserService) UpdateUsername(ctx context.Context, userID uint, username string) (*model.User, error) {
	username = validation.SanitizeString(username)
	if ok, msg := validation.ValidateUsername(username); !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, msg)
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.ensureUsernameFree(ctx, username, userID); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("username", username).Error; err != nil {
		return nil, fmt.Errorf("failed to update username: %w", err)
	}
	return s.GetUser(ctx, userID)
}

// UpdatePassword replaces the password after verifying the current one
func (s *UserService) UpdatePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := auth.VerifyPassword(user.PasswordHash, oldPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return fmt.Errorf("failed to verify password: %w", err)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// Authenticate returns the user when username and password match
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account with all of its subjects and grades
func (s *UserService) DeleteUser(ctx context.Context, userID uint) (*DeleteUserResult, error) {
	result := &DeleteUserResult{}

	// The pipeline lock keeps concurrent grade writes for this user out while the rows go
	_, err := s.pipeline.Apply(ctx, userID, func(dbc dbctx.Context) ([]uint, error) {
		subjects, err := s.repo.ListSubjects(dbc, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch subjects: %w", err)
		}
		ids := make([]uint, 0, len(subjects))
		for _, subject := range subjects {
			ids = append(ids, subject.ID)
		}

		grades, deleted, err := s.repo.DeleteSubjects(dbc, userID, ids)
		if err != nil {
			return nil, err
		}
		result.GradesDeleted = grades
		result.SubjectsDeleted = deleted

		if err := dbc.Tx.Delete(&model.User{}, userID).Error; err != nil {
			return nil, fmt.Errorf("failed to delete user: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return nil, lookupErr(err)
	}
	return result, nil
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string, exceptID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("username = ? AND id <> ?", username, exceptID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: username %q", ErrConflict, username)
	}
	return nil
}
