package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgauth "github.com/shopgrid/catalog-engine/pkg/auth"
	"github.com/shopgrid/catalog-engine/pkg/enums"
	"github.com/shopgrid/catalog-engine/pkg/types"
)

type contextKey string

const (
	ctxStoreID contextKey = "store_id"
	ctxRole    contextKey = "actor_role"
)

func StoreIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxStoreID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// WithPrincipal injects the authenticated identity into the context, used by
// the auth middleware and by handler tests.
func WithPrincipal(ctx context.Context, principal types.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxStoreID, principal.StoreID.String())
	return context.WithValue(ctx, ctxRole, string(principal.Role))
}

func principalFromClaims(claims *pkgauth.AccessTokenClaims) types.Principal {
	return types.Principal{StoreID: claims.StoreID, Role: claims.Role}
}

// PrincipalFromContext rebuilds the authenticated identity seeded by Auth.
func PrincipalFromContext(ctx context.Context) (types.Principal, bool) {
	storeID, err := uuid.Parse(StoreIDFromContext(ctx))
	if err != nil {
		return types.Principal{}, false
	}
	role := enums.ActorRole(RoleFromContext(ctx))
	if !role.IsValid() {
		return types.Principal{}, false
	}
	return types.Principal{StoreID: storeID, Role: role}, true
}
