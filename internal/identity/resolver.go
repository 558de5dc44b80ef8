// Package identity maps external user identifiers to internal profiles.
// Authentication itself is the identity provider's problem; by the time an
// external id reaches this package it is trusted.
package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradeledger/internal/repository"
	"tradeledger/types"
)

// Defaults carries the display fields used when a profile is created on
// first sight of an external id.
type Defaults struct {
	Email     string
	FullName  string
	AvatarURL string
}

type Resolver struct {
	store repository.ProfileStore

	mu      sync.Mutex
	pending map[string]*sync.Mutex
}

func NewResolver(store repository.ProfileStore) *Resolver {
	return &Resolver{store: store, pending: make(map[string]*sync.Mutex)}
}

// Resolve returns the profile for an external id, creating it with the
// supplied defaults if it does not exist yet. Creation is serialized per
// external id so concurrent first sightings cannot mint two profiles.
func (r *Resolver) Resolve(ctx context.Context, externalID string, defaults Defaults) (*types.Profile, error) {
	profile, err := r.store.GetProfileByExternalID(ctx, externalID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	unlock := r.lock(externalID)
	defer unlock()

	// Another caller may have created it while we waited for the lock.
	profile, err = r.store.GetProfileByExternalID(ctx, externalID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	profile = &types.Profile{
		ID:         uuid.NewString(),
		ExternalID: externalID,
		Email:      defaults.Email,
		FullName:   defaults.FullName,
		AvatarURL:  defaults.AvatarURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.store.CreateProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Update rewrites the profile's display fields.
func (r *Resolver) Update(ctx context.Context, profile *types.Profile, defaults Defaults) (*types.Profile, error) {
	updated := *profile
	if defaults.Email != "" {
		updated.Email = defaults.Email
	}
	if defaults.FullName != "" {
		updated.FullName = defaults.FullName
	}
	if defaults.AvatarURL != "" {
		updated.AvatarURL = defaults.AvatarURL
	}
	updated.UpdatedAt = time.Now().UTC()
	if err := r.store.UpdateProfile(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *Resolver) lock(externalID string) func() {
	r.mu.Lock()
	m, ok := r.pending[externalID]
	if !ok {
		m = &sync.Mutex{}
		r.pending[externalID] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}
