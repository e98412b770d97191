package database

import "gorm.io/gorm"

// Storage defines the lifecycle every database implementation must satisfy
type Storage interface {
	// Lifecycle methods
	Init() error
	Close() error
	HealthCheck() error

	// GORM DB access
	GetDB() *gorm.DB
}

var _ Storage = (*GORMStore)(nil)
