package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/estatedesk/estatedesk-backend/pkg/enums"
)

// Floor is a level within a building. FloorNumber is unique per building.
type Floor struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuildingID  uuid.UUID         `gorm:"column:building_id;type:uuid;not null;index"`
	FloorNumber int               `gorm:"column:floor_number;not null"`
	Name        string            `gorm:"column:name"`
	Status      enums.FloorStatus `gorm:"column:status;not null"`
	IsDeleted   bool              `gorm:"column:is_deleted;not null;default:false"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
