package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

func (s *Store) CreateOrganization(_ context.Context, o types.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[o.ID]; ok {
		return fmt.Errorf("organization %s: %w", o.ID, store.ErrConflict)
	}
	s.orgs[o.ID] = o
	return nil
}

func (s *Store) GetOrganization(_ context.Context, id string) (types.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orgs[id]
	if !ok {
		return types.Organization{}, fmt.Errorf("organization %s: %w", id, store.ErrNotFound)
	}
	return o, nil
}

func (s *Store) ListOrganizations(_ context.Context) ([]types.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Organization, 0, len(s.orgs))
	for _, o := range s.orgs {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateOrganization(_ context.Context, o types.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[o.ID]; !ok {
		return fmt.Errorf("organization %s: %w", o.ID, store.ErrNotFound)
	}
	s.orgs[o.ID] = o
	return nil
}

func (s *Store) DeleteOrganization(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[id]; !ok {
		return fmt.Errorf("organization %s: %w", id, store.ErrNotFound)
	}
	delete(s.orgs, id)
	return nil
}

func (s *Store) CreateDepartment(_ context.Context, d types.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.depts[d.ID]; ok {
		return fmt.Errorf("department %s: %w", d.ID, store.ErrConflict)
	}
	s.depts[d.ID] = d
	return nil
}

func (s *Store) GetDepartment(_ context.Context, id string) (types.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.depts[id]
	if !ok {
		return types.Department{}, fmt.Errorf("department %s: %w", id, store.ErrNotFound)
	}
	return d, nil
}

func (s *Store) ListDepartments(_ context.Context, organizationID string) ([]types.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Department, 0)
	for _, d := range s.depts {
		if organizationID != "" && d.OrganizationID != organizationID {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateDepartment(_ context.Context, d types.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.depts[d.ID]; !ok {
		return fmt.Errorf("department %s: %w", d.ID, store.ErrNotFound)
	}
	s.depts[d.ID] = d
	return nil
}

func (s *Store) DeleteDepartment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.depts[id]; !ok {
		return fmt.Errorf("department %s: %w", id, store.ErrNotFound)
	}
	delete(s.depts, id)
	return nil
}
