package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/estatedesk/estatedesk-backend/pkg/enums"
)

// Building is the top entity of the building → floor → apartment hierarchy.
// Manager assignment lives exclusively in user_buildings; there is no manager
// pointer here.
type Building struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string               `gorm:"column:name;not null"`
	Address   string               `gorm:"column:address;not null"`
	Status    enums.BuildingStatus `gorm:"column:status;not null"`
	Amenities pq.StringArray       `gorm:"column:amenities;type:text[]"`
	IsDeleted bool                 `gorm:"column:is_deleted;not null;default:false"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
