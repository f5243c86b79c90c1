// Package store persists the whole profile collection as one JSON array in a Slot.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	profilestruct "github.com/Gamequic/ProfileDirectory/pkg/features/profiles/struct"

	"go.uber.org/zap"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileStore serializes every read-modify-write cycle in this process.
// Writers in other processes sharing the slot are last-write-wins.
type ProfileStore struct {
	mu     sync.Mutex
	slot   Slot
	logger *zap.Logger
	now    func() time.Time
}

func NewProfileStore(slot Slot, logger *zap.Logger) *ProfileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileStore{slot: slot, logger: logger, now: time.Now}
}

// List never fails: a missing or unreadable slot is an empty collection.
func (s *ProfileStore) List(ctx context.Context) []profilestruct.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *ProfileStore) GetByID(ctx context.Context, id int64) (profilestruct.Profile, error) {
	for _, p := range s.List(ctx) {
		if p.ID == id {
			return p, nil
		}
	}
	return profilestruct.Profile{}, ErrProfileNotFound
}

func (s *ProfileStore) Add(ctx context.Context, draft profilestruct.ProfileDraft) (profilestruct.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := s.load(ctx)
	profile := draft.WithID(s.nextID(profiles))
	profiles = append(profiles, profile)

	if err := s.save(ctx, profiles); err != nil {
		return profilestruct.Profile{}, err
	}
	return profile, nil
}

// Update replaces the record with the given id by what apply makes of it, and
// returns both versions. apply runs under the store lock. Nothing is written
// when the id is absent or apply fails.
func (s *ProfileStore) Update(ctx context.Context, id int64, apply func(previous profilestruct.Profile) (profilestruct.Profile, error)) (updated, previous profilestruct.Profile, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := s.load(ctx)
	index := -1
	for i := range profiles {
		if profiles[i].ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return profilestruct.Profile{}, profilestruct.Profile{}, ErrProfileNotFound
	}

	previous = profiles[index]
	updated, err = apply(previous)
	if err != nil {
		return profilestruct.Profile{}, previous, err
	}
	updated.ID = id
	profiles[index] = updated

	if err := s.save(ctx, profiles); err != nil {
		return profilestruct.Profile{}, previous, err
	}
	return updated, previous, nil
}

// Remove is idempotent and reports the record it took out, if any. The
// collection is written back even when id is absent.
func (s *ProfileStore) Remove(ctx context.Context, id int64) (removed profilestruct.Profile, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := s.load(ctx)
	kept := make([]profilestruct.Profile, 0, len(profiles))
	for _, p := range profiles {
		if p.ID == id {
			removed, found = p, true
			continue
		}
		kept = append(kept, p)
	}
	if err := s.save(ctx, kept); err != nil {
		return profilestruct.Profile{}, false, err
	}
	return removed, found, nil
}

// Stored reports whether the slot holds a collection at all. A saved empty
// collection counts as stored.
func (s *ProfileStore) Stored(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.slot.Load(ctx)
	return err == nil
}

func (s *ProfileStore) load(ctx context.Context) []profilestruct.Profile {
	data, err := s.slot.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrSlotEmpty) {
			s.logger.Warn("Error reading profiles, using empty collection", zap.Error(err))
		}
		return []profilestruct.Profile{}
	}

	var profiles []profilestruct.Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		s.logger.Warn("Stored profiles are corrupt, using empty collection", zap.Error(err))
		return []profilestruct.Profile{}
	}
	if profiles == nil {
		return []profilestruct.Profile{}
	}
	return profiles
}

func (s *ProfileStore) save(ctx context.Context, profiles []profilestruct.Profile) error {
	data, err := json.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}
	if err := s.slot.Save(ctx, data); err != nil {
		s.logger.Error("Error saving profiles", zap.Error(err))
		return fmt.Errorf("save profiles: %w", err)
	}
	return nil
}

// nextID is the current time in milliseconds, bumped past the largest stored id.
func (s *ProfileStore) nextID(profiles []profilestruct.Profile) int64 {
	id := s.now().UnixMilli()
	for _, p := range profiles {
		if p.ID >= id {
			id = p.ID + 1
		}
	}
	return id
}
