package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityLog is an append-only audit record of something that happened
// within a tenant. Rows are never updated or deleted.
type ActivityLog struct {
	ID         string                 `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID   string                 `json:"tenant_id" gorm:"type:uuid;index;not null"`
	UserID     *string                `json:"user_id,omitempty" gorm:"type:uuid;index"`
	Action     string                 `json:"action" gorm:"type:varchar(100);not null"`
	Resource   string                 `json:"resource" gorm:"type:varchar(100);not null"`
	ResourceID string                 `json:"resource_id,omitempty" gorm:"type:varchar(100)"`
	Details    map[string]interface{} `json:"details,omitempty" gorm:"serializer:json"`
	CreatedAt  time.Time              `json:"created_at"`
}

// BeforeCreate assigns a UUID primary key when none was supplied
func (l *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
