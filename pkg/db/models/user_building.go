package models

import (
	"time"

	"github.com/google/uuid"
)

// UserBuilding links a user with a building they may manage. The assignment
// table is the sole source of truth for manager access; at most one row per
// building carries IsPrimary.
type UserBuilding struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_user_buildings_user_building"`
	BuildingID uuid.UUID  `gorm:"column:building_id;type:uuid;not null;uniqueIndex:idx_user_buildings_user_building"`
	IsPrimary  bool       `gorm:"column:is_primary;not null;default:false"`
	AssignedBy *uuid.UUID `gorm:"column:assigned_by;type:uuid"`
	AssignedAt time.Time  `gorm:"column:assigned_at;autoCreateTime"`
}
