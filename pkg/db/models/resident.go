package models

import (
	"time"

	"github.com/google/uuid"
)

// Resident is the head of household on a contract.
type Resident struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FullName  string    `gorm:"column:full_name;not null"`
	Phone     string    `gorm:"column:phone"`
	Email     string    `gorm:"column:email"`
	IsDeleted bool      `gorm:"column:is_deleted;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// HouseholdMember lives in the apartment under a contract without being its
// primary party. Members move out independently of the contract.
type HouseholdMember struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ContractID   uuid.UUID  `gorm:"column:contract_id;type:uuid;not null;index"`
	FullName     string     `gorm:"column:full_name;not null"`
	Relationship string     `gorm:"column:relationship"`
	MovedInAt    time.Time  `gorm:"column:moved_in_at;not null"`
	MovedOutAt   *time.Time `gorm:"column:moved_out_at"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
