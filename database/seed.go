package database

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/SirCraft007/grade-api/model"
	"github.com/SirCraft007/grade-api/utils/auth"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAdminUser creates the admin account named by ADMIN_USERNAME and ADMIN_PASSWORD.
// An existing account with that username is returned untouched; nil is returned when the
// variables are not set.
func (s *Seeder) SeedAdminUser() (*model.User, error) {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")

	if username == "" || password == "" {
		log.Println("ADMIN_USERNAME and ADMIN_PASSWORD environment variables not set, skipping admin user creation")
		return nil, nil
	}

	return s.seedUser(username, password, true)
}

func (s *Seeder) seedUser(username, password string, admin bool) (*model.User, error) {
	var existing model.User
	err := s.db.Where("username = ?", username).Take(&existing).Error
	if err == nil {
		log.Printf("User %s already exists, skipping...\n", username)
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		PasswordHash: passwordHash,
		Admin:        admin,
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}

	log.Printf("Created user: %s (admin=%t)\n", user.Username, user.Admin)
	return user, nil
}
