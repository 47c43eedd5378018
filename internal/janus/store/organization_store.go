package store

import (
	"context"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

type OrganizationStore interface {
	CreateOrganization(ctx context.Context, o types.Organization) error
	GetOrganization(ctx context.Context, id string) (types.Organization, error)
	ListOrganizations(ctx context.Context) ([]types.Organization, error)
	UpdateOrganization(ctx context.Context, o types.Organization) error
	DeleteOrganization(ctx context.Context, id string) error
}

type DepartmentStore interface {
	CreateDepartment(ctx context.Context, d types.Department) error
	GetDepartment(ctx context.Context, id string) (types.Department, error)
	// ListDepartments returns every department when organizationID is empty.
	ListDepartments(ctx context.Context, organizationID string) ([]types.Department, error)
	UpdateDepartment(ctx context.Context, d types.Department) error
	DeleteDepartment(ctx context.Context, id string) error
}
