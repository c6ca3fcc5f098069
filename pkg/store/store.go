// Package store keeps the operator's roster between sessions.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
	"gorm.io/gorm"

	"github.com/arnavshah/shift-roster-api/pkg/database"
	"github.com/arnavshah/shift-roster-api/pkg/models"
)

var ErrNotFound = errors.New("roster not found")

// Store loads and saves the roster served as initial data
type Store interface {
	Load(ctx context.Context) (*models.Roster, error)
	Save(ctx context.Context, r *models.Roster, savedBy string) error
}

// FileStore reads a JSON roster file. Comments and trailing commas are
// allowed so the seed file can be edited by hand.
type FileStore struct {
	Path string
}

// Load parses the roster file
func (f *FileStore) Load(ctx context.Context) (*models.Roster, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", f.Path, err)
	}
	return decode(data)
}

// Save replaces the roster file atomically
func (f *FileStore) Save(ctx context.Context, r *models.Roster, savedBy string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode roster: %w", err)
	}
	if err := atomic.WriteFile(f.Path, bytes.NewReader(append(data, '\n'))); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Path, err)
	}
	return nil
}

func decode(data []byte) (*models.Roster, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("roster file contains invalid JSON: %w", err)
	}
	var r models.Roster
	if err := json.Unmarshal(std, &r); err != nil {
		return nil, fmt.Errorf("roster file contains invalid JSON: %w", err)
	}
	return &r, nil
}

// DBStore keeps every saved roster as a snapshot row and serves the newest.
// Seed is consulted when nothing has been saved yet.
type DBStore struct {
	DB   *gorm.DB
	Seed Store
}

// Load returns the newest snapshot, falling back to Seed
func (s *DBStore) Load(ctx context.Context) (*models.Roster, error) {
	var snap database.RosterSnapshot
	err := s.DB.WithContext(ctx).Order("id desc").First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if s.Seed == nil {
			return nil, ErrNotFound
		}
		return s.Seed.Load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load roster snapshot: %w", err)
	}
	return decode([]byte(snap.Data))
}

// Save stores a new snapshot
func (s *DBStore) Save(ctx context.Context, r *models.Roster, savedBy string) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode roster: %w", err)
	}
	snap := database.RosterSnapshot{
		Year:    r.Year,
		Month:   r.Month,
		Data:    string(data),
		SavedBy: savedBy,
	}
	if err := s.DB.WithContext(ctx).Create(&snap).Error; err != nil {
		return fmt.Errorf("failed to save roster snapshot: %w", err)
	}
	return nil
}
