package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/estatedesk/estatedesk-backend/pkg/enums"
)

// ContractHistory is the append-only audit trail of contract lifecycle
// events. Rows are never updated or deleted.
type ContractHistory struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ContractID  uuid.UUID           `gorm:"column:contract_id;type:uuid;not null;index"`
	Action      enums.HistoryAction `gorm:"column:action;not null"`
	OldValue    *string             `gorm:"column:old_value"`
	NewValue    *string             `gorm:"column:new_value"`
	OldEndDate  *time.Time          `gorm:"column:old_end_date"`
	NewEndDate  *time.Time          `gorm:"column:new_end_date"`
	Reason      string              `gorm:"column:reason"`
	ActorUserID *uuid.UUID          `gorm:"column:actor_user_id;type:uuid"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
}
