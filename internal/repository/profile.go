package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tradeledger/types"
)

// GetProfileByExternalID retrieves a profile by its external identity reference.
func (db *Database) GetProfileByExternalID(ctx context.Context, externalID string) (*types.Profile, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT id, external_id, email, full_name, avatar_url, created_at, updated_at
		FROM profiles WHERE external_id = $1`, externalID)

	var p types.Profile
	err := row.Scan(&p.ID, &p.ExternalID, &p.Email, &p.FullName, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile for %s %w", externalID, ErrNotFound)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// CreateProfile inserts a profile. The external_id unique constraint is what
// makes the resolver's get-or-create race-free against other writers.
func (db *Database) CreateProfile(ctx context.Context, profile *types.Profile) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO profiles (id, external_id, email, full_name, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		profile.ID, profile.ExternalID, profile.Email, profile.FullName, profile.AvatarURL,
		profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (db *Database) UpdateProfile(ctx context.Context, profile *types.Profile) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE profiles SET email = $2, full_name = $3, avatar_url = $4, updated_at = $5
		WHERE id = $1`,
		profile.ID, profile.Email, profile.FullName, profile.AvatarURL, profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("profile %s %w", profile.ID, ErrNotFound)
	}
	return nil
}
