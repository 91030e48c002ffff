package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nymirith/adventure/internal/game/character"
)

// ErrSnapshotNotFound is returned when an account has no saved character.
var ErrSnapshotNotFound = errors.New("character snapshot not found")

// SnapshotRepository persists one character snapshot per account as a
// JSONB document.
type SnapshotRepository struct {
	db *pgxpool.Pool
}

// NewSnapshotRepository creates a SnapshotRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save upserts the account's character snapshot. Saving the same snapshot
// twice is harmless.
//
// Precondition: accountID must reference an existing account.
func (r *SnapshotRepository) Save(ctx context.Context, accountID int64, snap character.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO character_snapshots (account_id, snapshot)
		 VALUES ($1, $2)
		 ON CONFLICT (account_id)
		 DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = NOW()`,
		accountID, data,
	)
	if err != nil {
		return fmt.Errorf("upserting snapshot: %w", err)
	}
	return nil
}

// Load retrieves the account's character snapshot.
//
// Postcondition: Returns the snapshot or ErrSnapshotNotFound.
func (r *SnapshotRepository) Load(ctx context.Context, accountID int64) (character.Snapshot, error) {
	var data []byte
	err := r.db.QueryRow(ctx,
		`SELECT snapshot FROM character_snapshots WHERE account_id = $1`,
		accountID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return character.Snapshot{}, ErrSnapshotNotFound
		}
		return character.Snapshot{}, fmt.Errorf("querying snapshot: %w", err)
	}
	var snap character.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return character.Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}

// Delete removes the account's character snapshot.
//
// Postcondition: Returns ErrSnapshotNotFound if no snapshot existed.
func (r *SnapshotRepository) Delete(ctx context.Context, accountID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM character_snapshots WHERE account_id = $1`,
		accountID,
	)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSnapshotNotFound
	}
	return nil
}
