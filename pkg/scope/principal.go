package scope

import (
	"github.com/google/uuid"

	"github.com/estatedesk/estatedesk-backend/pkg/enums"
)

// Principal is the authenticated caller as seen by domain services: the
// resolved role plus building assignments, never raw credentials.
type Principal struct {
	UserID      uuid.UUID
	Role        enums.UserRole
	BuildingIDs []uuid.UUID
}

// Scope resolves the principal's visible building set.
func (p Principal) Scope() Scope {
	return Resolve(p.Role, p.BuildingIDs)
}

// IsAdmin reports whether the principal holds the administrator role.
func (p Principal) IsAdmin() bool {
	return p.Role == enums.UserRoleAdmin
}
