package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/shopgrid/catalog-engine/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT. Tokens
// are issued by the external auth service; this side only mints them in tests
// and tooling.
type AccessTokenPayload struct {
	StoreID uuid.UUID
	Role    enums.ActorRole
	JTI     string
}

// AccessTokenClaims represents the typed JWT presented by clients.
type AccessTokenClaims struct {
	StoreID uuid.UUID       `json:"store_id"`
	Role    enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
