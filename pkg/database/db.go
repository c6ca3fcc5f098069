package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	Name       string     `gorm:"not null" json:"name"`
	KeyPreview string     `json:"key_preview"`
	RateLimit  int        `gorm:"default:10000" json:"rate_limit"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table, one row per key and day
type APIUsage struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	KeyID          uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date           string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount   int    `gorm:"default:0" json:"request_count"`
	TotalStaff     int    `gorm:"default:0" json:"total_staff"`
	TotalSlots     int    `gorm:"default:0" json:"total_slots"`
	TotalShortages int    `gorm:"default:0" json:"total_shortages"`
}

// MasterUser represents the master_users table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// RosterSnapshot stores an operator-edited roster as JSON. The newest row is
// served as the initial data.
type RosterSnapshot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Year      int       `gorm:"index:idx_roster_month" json:"year"`
	Month     int       `gorm:"index:idx_roster_month" json:"month"`
	Data      string    `gorm:"type:text;not null" json:"-"`
	SavedBy   string    `json:"saved_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Config selects the database. A non-empty URL selects Postgres, otherwise
// SQLite is opened at Path.
type Config struct {
	URL  string
	Path string
}

// InitDB initializes the database connection and migrates the schema
func InitDB(cfg Config) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	if cfg.URL != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.URL,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	} else {
		path := cfg.Path
		if path == "" {
			path = "shift_roster.db"
		}
		db, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.AutoMigrate(&APIKey{}, &APIUsage{}, &MasterUser{}, &RosterSnapshot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}
