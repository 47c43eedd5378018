package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

func (s *Store) ReservePending(_ context.Context, p types.PendingRegistration) (types.PendingRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		other := s.pending[id]
		if other.Status != types.PendingStatusPending {
			continue
		}
		if other.DeviceID == p.DeviceID {
			return types.PendingRegistration{}, fmt.Errorf("device %s mid-enrollment: %w", p.DeviceID, store.ErrConflict)
		}
		if other.CardID == p.CardID {
			return types.PendingRegistration{}, fmt.Errorf("card %s mid-enrollment: %w", p.CardID, store.ErrConflict)
		}
	}

	next := s.fpHighWater
	for fp := range s.cardsByFP {
		if fp > next {
			next = fp
		}
	}
	next++
	s.fpHighWater = next

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.FingerprintID = next
	p.Status = types.PendingStatusPending
	s.pending[p.ID] = p
	s.order = append(s.order, p.ID)
	return p, nil
}

func (s *Store) GetPendingForDevice(_ context.Context, deviceID string) (types.PendingRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		p := s.pending[id]
		if p.DeviceID == deviceID && p.Status == types.PendingStatusPending {
			return p, nil
		}
	}
	return types.PendingRegistration{}, fmt.Errorf("pending registration for device %s: %w", deviceID, store.ErrNotFound)
}

func (s *Store) ListPending(_ context.Context, f store.PendingFilter) ([]types.PendingRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.PendingRegistration, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		p := s.pending[s.order[i]]
		if f.DeviceID != "" && p.DeviceID != f.DeviceID {
			continue
		}
		if f.CardID != "" && p.CardID != f.CardID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) ListStalePending(_ context.Context, cutoff time.Time) ([]types.PendingRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.PendingRegistration, 0)
	for _, id := range s.order {
		p := s.pending[id]
		if p.Status == types.PendingStatusPending && p.CreatedAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) CompleteEnrollment(_ context.Context, pendingID, templateData string, at time.Time) (types.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[pendingID]
	if !ok || p.Status != types.PendingStatusPending {
		return types.Card{}, fmt.Errorf("pending registration %s: %w", pendingID, store.ErrNotFound)
	}
	at = at.UTC()

	card, exists := s.cards[p.CardID]
	if !exists {
		if err := s.checkProfileLocked(p.Profile); err != nil {
			return types.Card{}, err
		}
		card = cardFromProfile(p, at)
	}
	if owner, taken := s.cardsByFP[p.FingerprintID]; taken && owner != p.CardID {
		return types.Card{}, fmt.Errorf("fingerprint %d bound to card %s: %w", p.FingerprintID, owner, store.ErrConflict)
	}

	bio := s.upsertBiometricLocked(p.CardID, templateData, at)
	card.FingerprintID = p.FingerprintID
	card.BiometricID = bio.ID
	card.UpdatedAt = at
	prev := ""
	if exists {
		prev = card.CardID
	}
	if err := s.putCardLocked(card, prev); err != nil {
		return types.Card{}, err
	}

	p.Status = types.PendingStatusCompleted
	p.ResolvedAt = &at
	s.pending[p.ID] = p
	s.releaseDeviceLocked(p.DeviceID, at)
	return card, nil
}

func (s *Store) FailPending(_ context.Context, pendingID, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[pendingID]
	if !ok || p.Status != types.PendingStatusPending {
		return fmt.Errorf("pending registration %s: %w", pendingID, store.ErrNotFound)
	}
	at = at.UTC()
	p.Status = types.PendingStatusFailed
	p.FailureReason = reason
	p.ResolvedAt = &at
	s.pending[p.ID] = p
	s.releaseDeviceLocked(p.DeviceID, at)
	return nil
}

// checkProfileLocked confirms the staged department still exists under the
// staged organization.
func (s *Store) checkProfileLocked(prof types.CardProfile) error {
	dept, ok := s.depts[prof.DepartmentID]
	if !ok {
		return fmt.Errorf("department %s no longer exists: %w", prof.DepartmentID, store.ErrConflict)
	}
	if _, ok := s.orgs[dept.OrganizationID]; !ok {
		return fmt.Errorf("organization %s no longer exists: %w", dept.OrganizationID, store.ErrConflict)
	}
	if dept.OrganizationID != prof.OrganizationID {
		return fmt.Errorf("department %s moved to organization %s: %w", prof.DepartmentID, dept.OrganizationID, store.ErrConflict)
	}
	return nil
}

func cardFromProfile(p types.PendingRegistration, at time.Time) types.Card {
	return types.Card{
		CardID:         p.CardID,
		OrganizationID: p.Profile.OrganizationID,
		DepartmentID:   p.Profile.DepartmentID,
		HolderName:     p.Profile.HolderName,
		HolderType:     p.Profile.HolderType,
		Email:          p.Profile.Email,
		Phone:          p.Profile.Phone,
		ExpiryDate:     p.Profile.ExpiryDate,
		Active:         true,
		IssueDate:      at,
		CreatedAt:      at,
	}
}
