package types

import (
	"github.com/google/uuid"

	"github.com/shopgrid/catalog-engine/pkg/enums"
)

// Principal is the authenticated identity supplied by the auth layer. The
// engine trusts it without re-validating credentials.
type Principal struct {
	StoreID uuid.UUID
	Role    enums.ActorRole
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == enums.ActorRoleAdmin
}
