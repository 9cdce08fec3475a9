package gating

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/silli-ai/reasoner/pkg/models"
)

// FamilyStore reads and writes per-family cloud reasoning flags. The
// gateway only ever reads; writes happen through administrative commands.
type FamilyStore interface {
	// CloudReasoning returns the cloud reasoning flag for a family.
	// Unknown families get the store's configured default.
	CloudReasoning(ctx context.Context, familyID string) (bool, error)
	// SetCloudReasoning creates or updates a family's flag.
	SetCloudReasoning(ctx context.Context, familyID string, enabled bool) error
	// List returns all stored family profiles.
	List(ctx context.Context) ([]models.Family, error)
	// Close releases resources.
	Close() error
}

// SQLiteFamilyStore implements FamilyStore with a SQLite database.
type SQLiteFamilyStore struct {
	db        *sql.DB
	defaultOn bool
}

const createFamiliesTable = `
CREATE TABLE IF NOT EXISTS families (
	id TEXT PRIMARY KEY,
	cloud_reasoning INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// NewFamilyStore opens the family database and runs auto-migration.
// defaultOn is the flag reported for families with no stored profile.
func NewFamilyStore(dbPath string, defaultOn bool) (*SQLiteFamilyStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open family db: %w", err)
	}

	if _, err := db.Exec(createFamiliesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate family db: %w", err)
	}

	return &SQLiteFamilyStore{db: db, defaultOn: defaultOn}, nil
}

// CloudReasoning implements FamilyStore.
func (s *SQLiteFamilyStore) CloudReasoning(ctx context.Context, familyID string) (bool, error) {
	var enabled int
	err := s.db.QueryRowContext(ctx,
		`SELECT cloud_reasoning FROM families WHERE id = ?`, familyID,
	).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return s.defaultOn, nil
	}
	if err != nil {
		return false, fmt.Errorf("query family %s: %w", familyID, err)
	}
	return enabled != 0, nil
}

// SetCloudReasoning implements FamilyStore.
func (s *SQLiteFamilyStore) SetCloudReasoning(ctx context.Context, familyID string, enabled bool) error {
	val := 0
	if enabled {
		val = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO families (id, cloud_reasoning, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET cloud_reasoning = excluded.cloud_reasoning,
		                               updated_at = excluded.updated_at`,
		familyID, val, time.Now().UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set family %s: %w", familyID, err)
	}
	return nil
}

// List implements FamilyStore.
func (s *SQLiteFamilyStore) List(ctx context.Context) ([]models.Family, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cloud_reasoning, created_at, updated_at FROM families ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	defer rows.Close()

	var families []models.Family
	for rows.Next() {
		var f models.Family
		var enabled int
		if err := rows.Scan(&f.ID, &enabled, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan family row: %w", err)
		}
		f.CloudReasoning = enabled != 0
		families = append(families, f)
	}
	return families, rows.Err()
}

// Close implements FamilyStore.
func (s *SQLiteFamilyStore) Close() error {
	return s.db.Close()
}
