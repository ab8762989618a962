package ports

import (
	"context"

	"github.com/carrent/auth-engine/internal/core/domain"
)

// ProfileField selects which identity key a profile lookup runs against.
type ProfileField string

const (
	ProfileFieldID     ProfileField = "id"
	ProfileFieldAuthID ProfileField = "auth_id"
	ProfileFieldEmail  ProfileField = "email"
)

// ProfileRepository is the remote profile store. FindByField returns
// domain.ErrProfileNotFound when no record matches.
type ProfileRepository interface {
	FindByField(ctx context.Context, field ProfileField, value string) (*domain.Profile, error)
	Insert(ctx context.Context, p *domain.Profile) (*domain.Profile, error)
	Update(ctx context.Context, p *domain.Profile) error
}

// RoleCache is the local persisted cache for resolved roles and other
// auth-adjacent keys. Written only by the Role Resolver (on a positive admin
// determination) and by Logout (clearing).
type RoleCache interface {
	GetRole(ctx context.Context, identityID string) (domain.Role, bool, error)
	SetRole(ctx context.Context, identityID string, role domain.Role) error
	// Clear removes the cached role and every other auth-adjacent key.
	Clear(ctx context.Context) error
}

// VehicleCacheWarmer preloads the vehicle read cache after a successful
// login. Strictly fire-and-forget: failures must never affect the login
// result.
type VehicleCacheWarmer interface {
	Warm(ctx context.Context, role domain.Role) error
}
