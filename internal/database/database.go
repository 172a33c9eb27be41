// Package database opens the application database and owns schema migration.
//
// Repositories for individual entities live in subpackages
// (materials, borrows, reserves, ...), each wrapping *gorm.DB.
package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mfajardo/libcirc/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens (or creates) the SQLite database at dbPath and migrates
// the schema. WAL mode and a busy timeout are applied so concurrent
// coordinator transactions queue instead of failing immediately.
func NewDatabase(dbPath string) (*Database, error) {
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal=WAL&_busy_timeout=5000&_fk=1"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Material{},
		&entities.BorrowRecord{},
		&entities.ReserveRecord{},
		&entities.Rating{},
		&entities.Notification{},
		&entities.Activity{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HasUsers reports whether any account exists yet.
func (d *Database) HasUsers() (bool, error) {
	var count int64
	if err := d.DB.Model(&entities.User{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByToken resolves an API token to its account.
func (d *Database) GetUserByToken(token string) (*entities.User, error) {
	var user entities.User
	if err := d.DB.Where("token = ?", token).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail looks up an account by email.
func (d *Database) GetUserByEmail(email string) (*entities.User, error) {
	var user entities.User
	if err := d.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser persists a new account.
func (d *Database) CreateUser(user *entities.User) error {
	return d.DB.Create(user).Error
}
