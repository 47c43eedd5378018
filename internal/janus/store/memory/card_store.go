package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

func (s *Store) CreateCard(_ context.Context, c types.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putCardLocked(c, "")
}

// putCardLocked inserts or replaces c, enforcing both unique keys. prev is
// the card id being replaced ("" for an insert).
func (s *Store) putCardLocked(c types.Card, prev string) error {
	if prev == "" {
		if _, ok := s.cards[c.CardID]; ok {
			return fmt.Errorf("card %s: %w", c.CardID, store.ErrConflict)
		}
	}
	if owner, ok := s.cardsByFP[c.FingerprintID]; ok && owner != c.CardID {
		return fmt.Errorf("fingerprint %d bound to card %s: %w", c.FingerprintID, owner, store.ErrConflict)
	}
	if old, ok := s.cards[c.CardID]; ok {
		delete(s.cardsByFP, old.FingerprintID)
	}
	s.cards[c.CardID] = c
	s.cardsByFP[c.FingerprintID] = c.CardID
	return nil
}

func (s *Store) GetCard(_ context.Context, cardID string) (types.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[cardID]
	if !ok {
		return types.Card{}, fmt.Errorf("card %s: %w", cardID, store.ErrNotFound)
	}
	return c, nil
}

func (s *Store) GetCardByFingerprint(_ context.Context, fingerprintID int64) (types.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.cardsByFP[fingerprintID]
	if !ok {
		return types.Card{}, fmt.Errorf("fingerprint %d: %w", fingerprintID, store.ErrNotFound)
	}
	return s.cards[id], nil
}

func (s *Store) GetCards(_ context.Context, cardIDs []string) (map[string]types.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]types.Card, len(cardIDs))
	for _, id := range cardIDs {
		if c, ok := s.cards[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (s *Store) ListCards(_ context.Context, f store.CardFilter) ([]types.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	depts := make(map[string]struct{}, len(f.DepartmentIDs))
	for _, d := range f.DepartmentIDs {
		depts[d] = struct{}{}
	}

	out := make([]types.Card, 0)
	for _, c := range s.cards {
		if f.OrganizationID != "" && c.OrganizationID != f.OrganizationID {
			continue
		}
		if len(depts) > 0 {
			if _, ok := depts[c.DepartmentID]; !ok {
				continue
			}
		}
		if f.HolderType != "" && c.HolderType != f.HolderType {
			continue
		}
		if f.Active != nil && c.Active != *f.Active {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HolderName == out[j].HolderName {
			return out[i].CardID < out[j].CardID
		}
		return out[i].HolderName < out[j].HolderName
	})
	return out, nil
}

func (s *Store) UpdateCard(_ context.Context, c types.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[c.CardID]; !ok {
		return fmt.Errorf("card %s: %w", c.CardID, store.ErrNotFound)
	}
	return s.putCardLocked(c, c.CardID)
}

func (s *Store) TouchCardAccess(_ context.Context, cardID string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[cardID]
	if !ok {
		return fmt.Errorf("card %s: %w", cardID, store.ErrNotFound)
	}
	t = t.UTC()
	c.LastAccessAt = &t
	s.cards[cardID] = c
	return nil
}

func (s *Store) DeleteCard(_ context.Context, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[cardID]
	if !ok {
		return fmt.Errorf("card %s: %w", cardID, store.ErrNotFound)
	}
	delete(s.cards, cardID)
	delete(s.cardsByFP, c.FingerprintID)
	return nil
}

func (s *Store) UpsertBiometric(_ context.Context, d types.BiometricData) (types.BiometricData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[d.CardID]
	if !ok {
		return types.BiometricData{}, fmt.Errorf("card %s: %w", d.CardID, store.ErrNotFound)
	}
	now := d.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	bio := s.upsertBiometricLocked(d.CardID, d.TemplateData, now)
	c.BiometricID = bio.ID
	s.cards[c.CardID] = c
	return bio, nil
}

func (s *Store) upsertBiometricLocked(cardID, template string, now time.Time) types.BiometricData {
	bio, ok := s.bios[cardID]
	if !ok {
		bio = types.BiometricData{
			ID:        uuid.NewString(),
			CardID:    cardID,
			CreatedAt: now,
		}
	}
	bio.TemplateData = template
	bio.UpdatedAt = now
	s.bios[cardID] = bio
	return bio
}

func (s *Store) GetBiometric(_ context.Context, cardID string) (types.BiometricData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bios[cardID]
	if !ok {
		return types.BiometricData{}, fmt.Errorf("biometric %s: %w", cardID, store.ErrNotFound)
	}
	return b, nil
}

func (s *Store) DeleteBiometric(_ context.Context, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bios[cardID]; !ok {
		return fmt.Errorf("biometric %s: %w", cardID, store.ErrNotFound)
	}
	delete(s.bios, cardID)
	if c, ok := s.cards[cardID]; ok {
		c.BiometricID = ""
		s.cards[cardID] = c
	}
	return nil
}
