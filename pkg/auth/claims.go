package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/estatedesk/estatedesk-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID      uuid.UUID
	Role        enums.UserRole
	BuildingIDs []uuid.UUID
	JTI         string
}

// AccessTokenClaims represents the typed JWT issued to clients.
// BuildingIDs carries the caller's assigned buildings so that scope checks
// do not need a registry lookup on every request; admins carry none.
type AccessTokenClaims struct {
	UserID      uuid.UUID      `json:"user_id"`
	Role        enums.UserRole `json:"role"`
	BuildingIDs []uuid.UUID    `json:"building_ids,omitempty"`
	jwt.RegisteredClaims
}
