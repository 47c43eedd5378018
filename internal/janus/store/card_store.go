package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

type CardFilter struct {
	OrganizationID string
	DepartmentIDs  []string
	HolderType     types.HolderType
	Active         *bool
}

type CardStore interface {
	// CreateCard returns ErrConflict when the card id or the fingerprint id
	// is already taken.
	CreateCard(ctx context.Context, c types.Card) error
	GetCard(ctx context.Context, cardID string) (types.Card, error)
	GetCardByFingerprint(ctx context.Context, fingerprintID int64) (types.Card, error)
	// GetCards resolves many cards at once; missing ids are simply absent
	// from the result.
	GetCards(ctx context.Context, cardIDs []string) (map[string]types.Card, error)
	ListCards(ctx context.Context, f CardFilter) ([]types.Card, error)
	UpdateCard(ctx context.Context, c types.Card) error
	TouchCardAccess(ctx context.Context, cardID string, t time.Time) error
	DeleteCard(ctx context.Context, cardID string) error
}

type BiometricStore interface {
	// UpsertBiometric creates or replaces the template for d.CardID and
	// links the card to it. The stored row is returned.
	UpsertBiometric(ctx context.Context, d types.BiometricData) (types.BiometricData, error)
	GetBiometric(ctx context.Context, cardID string) (types.BiometricData, error)
	DeleteBiometric(ctx context.Context, cardID string) error
}
