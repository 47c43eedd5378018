package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/store"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

var _ store.Registry = (*Store)(nil)

// Store is an in-memory Registry. A single mutex covers every collection so
// the multi-entity operations (reserve, complete, fail) are atomic.
// It is intended for use in tests and dev environments.
type Store struct {
	mu sync.RWMutex

	orgs      map[string]types.Organization
	depts     map[string]types.Department
	cards     map[string]types.Card
	cardsByFP map[int64]string
	bios      map[string]types.BiometricData // keyed by card id
	devices   map[string]types.Device
	pending   map[string]types.PendingRegistration
	order     []string // pending ids in creation order

	logs      []types.AccessLog
	nextLogID int64

	fpHighWater int64
}

func New() *Store {
	return &Store{
		orgs:      make(map[string]types.Organization),
		depts:     make(map[string]types.Department),
		cards:     make(map[string]types.Card),
		cardsByFP: make(map[int64]string),
		bios:      make(map[string]types.BiometricData),
		devices:   make(map[string]types.Device),
		pending:   make(map[string]types.PendingRegistration),
	}
}

func (s *Store) Ping(context.Context) error { return nil }
