package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/estatedesk/estatedesk-backend/pkg/enums"
)

// Apartment is a rentable unit on a floor. Status must reflect the active
// contract on the apartment, or MAINTENANCE when cascaded from the parent,
// or AVAILABLE otherwise.
type Apartment struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FloorID    uuid.UUID             `gorm:"column:floor_id;type:uuid;not null;index"`
	RoomNumber string                `gorm:"column:room_number;not null"`
	Status     enums.ApartmentStatus `gorm:"column:status;not null"`
	AreaSqm    decimal.Decimal       `gorm:"column:area_sqm;type:numeric(10,2)"`
	Bedrooms   int                   `gorm:"column:bedrooms;not null;default:1"`
	IsDeleted  bool                  `gorm:"column:is_deleted;not null;default:false"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
