package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApiConnection tracks an external API integration configured by a tenant
type ApiConnection struct {
	ID           string         `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID     string         `json:"tenant_id" gorm:"type:uuid;index;not null"`
	ServiceName  string         `json:"service_name" gorm:"type:varchar(100);not null"`
	Status       string         `json:"status" gorm:"type:varchar(20);not null"`
	LastSync     *time.Time     `json:"last_sync,omitempty"`
	RequestCount int            `json:"request_count" gorm:"default:0"`
	AvgLatency   int            `json:"avg_latency" gorm:"default:0"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate assigns a UUID primary key when none was supplied
func (a *ApiConnection) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
