package testutil

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/SirCraft007/grade-api/model"
	"github.com/SirCraft007/grade-api/utils"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error
)

// Logger returns a logger that discards output
func Logger(tb testing.TB) *utils.Logger {
	tb.Helper()
	return utils.NopLogger()
}

// DB returns the shared test database, skipping the test when TEST_POSTGRES_DSN is unset
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			dbErr = errMissingDSN
			return
		}

		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			dbErr = err
			return
		}

		if err := autoMigrateAll(db); err != nil {
			dbErr = err
			return
		}
	})

	if errors.Is(dbErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run database integration tests")
	}
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return db
}

// Tx opens a transaction that is rolled back when the test ends
func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

// User creates a user with a unique name. The user and everything it owns is removed
// when the test ends.
func User(tb testing.TB, db *gorm.DB) *model.User {
	tb.Helper()
	user := &model.User{
		Username:     fmt.Sprintf("test_%s", uuid.NewString()[:8]),
		PasswordHash: "unused",
	}
	if err := db.Create(user).Error; err != nil {
		tb.Fatalf("create user: %v", err)
	}
	tb.Cleanup(func() { DeleteUser(db, user.ID) })
	return user
}

// DeleteUser removes a user with all of its rows
func DeleteUser(db *gorm.DB, userID uint) {
	db.Where("user_id = ?", userID).Delete(&model.Grade{})
	db.Where("user_id = ?", userID).Delete(&model.Subject{})
	db.Delete(&model.User{}, userID)
}

func autoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Subject{},
		&model.Grade{},
		&model.CronJobLog{},
	)
}
